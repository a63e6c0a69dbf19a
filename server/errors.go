package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phantom-spire/iam/rbac"
)

// statusForKind maps engine error kinds to HTTP statuses. Decision endpoints
// never use this: they always return 200 with a fail-closed evaluation body.
func statusForKind(k rbac.Kind) int {
	switch k {
	case rbac.KindDuplicate, rbac.KindDuplicateAssignment, rbac.KindInactiveRole:
		return http.StatusConflict
	case rbac.KindValidation:
		return http.StatusBadRequest
	case rbac.KindNotFound:
		return http.StatusNotFound
	case rbac.KindImmutable:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeEngineError renders the standard error envelope for a failed mutation.
func writeEngineError(c *gin.Context, err error) {
	var e *rbac.Error
	if !errors.As(err, &e) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	body := gin.H{"error": string(e.Kind), "error_description": e.Message}
	if len(e.Meta) > 0 {
		body["meta"] = e.Meta
	}
	c.JSON(statusForKind(e.Kind), body)
}
