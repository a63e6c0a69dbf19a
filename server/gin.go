package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewGinEngine builds the Gin router and registers all routes. The admin
// group sits behind TokenMiddleware; the decision endpoint does too, since
// callers are trusted services, not end users.
func NewGinEngine(s *Server) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())

	r.GET("/iam/v1/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := r.Group("/iam/v1")
	authed.Use(s.TokenMiddleware())

	authed.POST("/authz/check", s.HandleAuthzCheckGin)

	admin := authed.Group("/admin")
	admin.POST("/permissions", s.HandleCreatePermissionGin)
	admin.GET("/permissions", s.HandleListPermissionsGin)
	admin.POST("/roles", s.HandleCreateRoleGin)
	admin.GET("/roles", s.HandleListRolesGin)
	admin.GET("/roles/:id", s.HandleGetRoleGin)
	admin.PUT("/roles/:id", s.HandleUpdateRoleGin)
	admin.POST("/roles/:id/assign/:userId", s.HandleAssignRoleGin)
	admin.POST("/roles/:id/revoke/:userId", s.HandleRevokeRoleGin)
	admin.GET("/users/:userId/roles", s.HandleGetUserRolesGin)
	admin.GET("/users/:userId/permissions", s.HandleGetUserPermissionsGin)
	admin.GET("/audit", s.HandleRecentAuditGin)

	return r
}
