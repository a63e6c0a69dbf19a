package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phantom-spire/iam/dto"
	"github.com/phantom-spire/iam/rbac"
)

func (s *Server) HandleCreatePermissionGin(c *gin.Context) {
	var body dto.CreatePermissionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	created, err := s.Engine.DefinePermission(body.ToPermission())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	s.persistPermission(c, *created)
	c.JSON(http.StatusCreated, gin.H{"permission": created})
}

func (s *Server) HandleListPermissionsGin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"permissions": s.Engine.ListPermissions()})
}

func (s *Server) HandleCreateRoleGin(c *gin.Context) {
	var body dto.CreateRoleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	created, err := s.Engine.DefineRole(body.ToRole())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	s.persistRole(c, *created)
	c.JSON(http.StatusCreated, gin.H{"role": created})
}

func (s *Server) HandleUpdateRoleGin(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	var body dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	updated, err := s.Engine.UpdateRole(id, body.ToUpdate())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	s.persistRole(c, *updated)
	c.JSON(http.StatusOK, gin.H{"role": updated})
}

func (s *Server) HandleGetRoleGin(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	includeInherited := true
	if v := c.Query("inherited"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			includeInherited = b
		}
	}
	role, err := s.Engine.GetRole(id, includeInherited)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role})
}

func (s *Server) HandleListRolesGin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": s.Engine.ListRoles()})
}

func (s *Server) HandleAssignRoleGin(c *gin.Context) {
	roleID := strings.TrimSpace(c.Param("id"))
	userID := strings.TrimSpace(c.Param("userId"))
	var body dto.AssignRoleRequest
	// Body is optional; a bare POST assigns without expiry or constraints.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}
	asg, err := s.Engine.AssignRole(userID, roleID, actingUser(c), rbac.AssignOptions{
		ExpiresAt:   body.ExpiresAt,
		Constraints: body.Constraints,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	s.persistAssignment(c, *asg)
	s.invalidateUser(c, userID)
	c.JSON(http.StatusCreated, gin.H{"assignment": asg})
}

func (s *Server) HandleRevokeRoleGin(c *gin.Context) {
	roleID := strings.TrimSpace(c.Param("id"))
	userID := strings.TrimSpace(c.Param("userId"))
	asg, err := s.Engine.RevokeRole(userID, roleID, actingUser(c))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	s.persistAssignment(c, *asg)
	s.invalidateUser(c, userID)
	c.JSON(http.StatusOK, gin.H{"assignment": asg})
}

func (s *Server) HandleGetUserRolesGin(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	c.JSON(http.StatusOK, gin.H{"assignments": s.Engine.GetUserRoles(userID)})
}

func (s *Server) HandleGetUserPermissionsGin(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	if s.Cache != nil {
		if perms, ok := s.Cache.GetUserPermissions(c.Request.Context(), userID); ok {
			c.JSON(http.StatusOK, gin.H{"permissions": perms, "cached": true})
			return
		}
	}
	perms := s.Engine.GetUserPermissions(userID)
	if s.Cache != nil {
		flat := make([]rbac.Permission, 0, len(perms))
		for _, p := range perms {
			flat = append(flat, *p)
		}
		if err := s.Cache.SetUserPermissions(c.Request.Context(), userID, flat); err != nil {
			s.Log.Warn("permission cache set failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

// HandleAuthzCheckGin is the decision endpoint. It always answers 200 with a
// PolicyEvaluation body; evaluation failures fail closed inside the engine
// and surface here as a denial, never as a 5xx.
func (s *Server) HandleAuthzCheckGin(c *gin.Context) {
	var body dto.CheckRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if body.UserID == "" || body.Resource == "" || body.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "user_id, resource and action are required"})
		return
	}
	ev := s.Engine.CanPerformAction(body.UserID, body.Resource, body.Action, body.Context)
	c.JSON(http.StatusOK, ev)
}

func (s *Server) HandleRecentAuditGin(c *gin.Context) {
	if s.Audit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "audit log not configured"})
		return
	}
	n := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			n = parsed
		}
	}
	events, err := s.Audit.Recent(n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Write-through helpers. Persistence failures are logged, not surfaced: the
// engine already accepted the mutation and remains authoritative.

func (s *Server) persistPermission(c *gin.Context, p rbac.Permission) {
	if s.Store == nil {
		return
	}
	if err := s.Store.SavePermission(c.Request.Context(), p); err != nil {
		s.Log.Error("persist permission failed", zap.String("permission_id", p.ID), zap.Error(err))
	}
}

func (s *Server) persistRole(c *gin.Context, r rbac.Role) {
	if s.Store == nil {
		return
	}
	if err := s.Store.SaveRole(c.Request.Context(), r); err != nil {
		s.Log.Error("persist role failed", zap.String("role_id", r.ID), zap.Error(err))
	}
}

func (s *Server) persistAssignment(c *gin.Context, a rbac.Assignment) {
	if s.Store == nil {
		return
	}
	if err := s.Store.SaveAssignment(c.Request.Context(), a); err != nil {
		s.Log.Error("persist assignment failed", zap.String("assignment_id", a.ID), zap.Error(err))
	}
}

func (s *Server) invalidateUser(c *gin.Context, userID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(c.Request.Context(), userID); err != nil {
		s.Log.Warn("cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}
