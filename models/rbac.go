package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Permission is the durable form of an engine permission. Constraints is
// stored as raw JSON bytes to avoid ORM map parsing issues.
type Permission struct {
	ID          string          `gorm:"column:id;primaryKey" json:"id"`
	Name        string          `gorm:"column:name" json:"name"`
	Description string          `gorm:"column:description" json:"description"`
	Resource    string          `gorm:"column:resource;index" json:"resource"`
	Action      string          `gorm:"column:action;index" json:"action"`
	Constraints json.RawMessage `gorm:"column:constraints" json:"constraints"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Permission) TableName() string { return "permissions" }

// Role stores direct permission ids and parent role ids as JSON arrays.
type Role struct {
	ID           string          `gorm:"column:id;primaryKey" json:"id"`
	Name         string          `gorm:"column:name" json:"name"`
	Description  string          `gorm:"column:description" json:"description"`
	Permissions  json.RawMessage `gorm:"column:permissions" json:"permissions"`
	Inherits     json.RawMessage `gorm:"column:inherits" json:"inherits"`
	IsSystemRole bool            `gorm:"column:is_system_role" json:"is_system_role"`
	IsActive     bool            `gorm:"column:is_active" json:"is_active"`
	CreatedAt    time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Role) TableName() string { return "roles" }

// RoleAssignment links a user to a role. Revocation flips is_active; rows are
// never deleted so the assignment history stays queryable.
type RoleAssignment struct {
	ID          string          `gorm:"column:id;primaryKey" json:"id"`
	UserID      string          `gorm:"column:user_id;index" json:"user_id"`
	RoleID      string          `gorm:"column:role_id;index" json:"role_id"`
	AssignedBy  string          `gorm:"column:assigned_by" json:"assigned_by"`
	AssignedAt  time.Time       `gorm:"column:assigned_at" json:"assigned_at"`
	ExpiresAt   *time.Time      `gorm:"column:expires_at" json:"expires_at,omitempty"`
	IsActive    bool            `gorm:"column:is_active;index" json:"is_active"`
	Constraints json.RawMessage `gorm:"column:constraints" json:"constraints"`
	RevokedBy   string          `gorm:"column:revoked_by" json:"revoked_by,omitempty"`
	RevokedAt   *time.Time      `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
}

func (RoleAssignment) TableName() string { return "role_assignments" }

// AuditEvent is an append-only audit record.
type AuditEvent struct {
	ID         string          `gorm:"column:id;primaryKey" json:"id"`
	Name       string          `gorm:"column:name;index" json:"name"`
	Fields     json.RawMessage `gorm:"column:fields" json:"fields"`
	OccurredAt time.Time       `gorm:"column:occurred_at;index" json:"occurred_at"`
}

func (AuditEvent) TableName() string { return "audit_events" }

// NewID generates a hyphenless UUID string used for all row identifiers.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
