package dto

import (
	"time"

	"github.com/phantom-spire/iam/rbac"
)

// CreatePermissionRequest is the body for POST /iam/v1/admin/permissions.
type CreatePermissionRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Resource    string            `json:"resource"`
	Action      string            `json:"action"`
	Constraints map[string]string `json:"constraints,omitempty"`
}

func (r CreatePermissionRequest) ToPermission() rbac.Permission {
	return rbac.Permission{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Resource:    r.Resource,
		Action:      r.Action,
		Constraints: r.Constraints,
	}
}

// CreateRoleRequest is the body for POST /iam/v1/admin/roles.
type CreateRoleRequest struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Permissions  []string `json:"permissions"`
	Inherits     []string `json:"inherits,omitempty"`
	IsSystemRole bool     `json:"is_system_role"`
}

func (r CreateRoleRequest) ToRole() rbac.Role {
	return rbac.Role{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Permissions:  r.Permissions,
		Inherits:     r.Inherits,
		IsSystemRole: r.IsSystemRole,
	}
}

// UpdateRoleRequest is the body for PUT /iam/v1/admin/roles/:id. Absent fields
// are left untouched.
type UpdateRoleRequest struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
	Inherits    *[]string `json:"inherits,omitempty"`
	IsActive    *bool     `json:"is_active,omitempty"`
}

func (r UpdateRoleRequest) ToUpdate() rbac.RoleUpdate {
	return rbac.RoleUpdate{
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
		Inherits:    r.Inherits,
		IsActive:    r.IsActive,
	}
}

// AssignRoleRequest is the optional body for the assign endpoint.
type AssignRoleRequest struct {
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	Constraints map[string]string `json:"constraints,omitempty"`
}

// CheckRequest is the body for POST /iam/v1/authz/check.
type CheckRequest struct {
	UserID   string            `json:"user_id"`
	Resource string            `json:"resource"`
	Action   string            `json:"action"`
	Context  map[string]string `json:"context,omitempty"`
}
