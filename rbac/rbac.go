package rbac

import "time"

// Permission is an atomic (resource, action) capability, optionally gated by
// constraints. Resource and action are free-form strings compared with exact
// equality; there is deliberately no wildcard or glob matching so a permission
// covers exactly one (resource, action) pair.
type Permission struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Resource    string            `json:"resource"`
	Action      string            `json:"action"`
	Constraints map[string]string `json:"constraints,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Role bundles directly granted permission ids and may inherit from parent
// roles. System roles are seeded at startup and immutable afterwards.
type Role struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Permissions  []string  `json:"permissions"`
	Inherits     []string  `json:"inherits,omitempty"`
	IsSystemRole bool      `json:"is_system_role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Assignment is a time-bounded grant of a role to a user. Revocation flips
// IsActive instead of deleting the record so audit history survives.
type Assignment struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	RoleID      string            `json:"role_id"`
	AssignedBy  string            `json:"assigned_by"`
	AssignedAt  time.Time         `json:"assigned_at"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	IsActive    bool              `json:"is_active"`
	Constraints map[string]string `json:"constraints,omitempty"`
	RevokedBy   string            `json:"revoked_by,omitempty"`
	RevokedAt   *time.Time        `json:"revoked_at,omitempty"`
}

// AssignOptions carries the optional parts of an assignment.
type AssignOptions struct {
	ExpiresAt   *time.Time
	Constraints map[string]string
}

// RoleUpdate is a partial role update; nil fields are left untouched.
type RoleUpdate struct {
	Name        *string
	Description *string
	Permissions *[]string
	Inherits    *[]string
	IsActive    *bool
}

// Evaluation is the outcome of an authorization check. AppliedPolicies holds
// the single granting permission id on an allow, or every matching-but-rejected
// permission id on a constraint denial.
type Evaluation struct {
	Allowed         bool              `json:"allowed"`
	Reason          string            `json:"reason"`
	AppliedPolicies []string          `json:"applied_policies,omitempty"`
	Constraints     map[string]string `json:"constraints,omitempty"`
}

// expired reports whether the assignment's expiry, if any, has passed.
func (a *Assignment) expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// current reports whether the assignment still grants its role.
func (a *Assignment) current(now time.Time) bool {
	return a.IsActive && !a.expired(now)
}
