package models

import (
	"encoding/json"

	"github.com/phantom-spire/iam/rbac"
)

// Conversion between engine types and durable rows. Maps and string slices
// round-trip through JSON columns; nil stays nil so empty and absent are
// distinguishable in the database.

func marshalMap(m map[string]string) json.RawMessage {
	if m == nil {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}

func unmarshalMap(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func marshalList(s []string) json.RawMessage {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return b
}

func unmarshalList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s []string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return s
}

// FromPermission converts an engine permission to its row form.
func FromPermission(p rbac.Permission) Permission {
	return Permission{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
		Constraints: marshalMap(p.Constraints),
		CreatedAt:   p.CreatedAt,
	}
}

// ToPermission converts a row back to the engine form.
func (p Permission) ToPermission() rbac.Permission {
	return rbac.Permission{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
		Constraints: unmarshalMap(p.Constraints),
		CreatedAt:   p.CreatedAt,
	}
}

// FromRole converts an engine role to its row form.
func FromRole(r rbac.Role) Role {
	return Role{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Permissions:  marshalList(r.Permissions),
		Inherits:     marshalList(r.Inherits),
		IsSystemRole: r.IsSystemRole,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// ToRole converts a row back to the engine form.
func (r Role) ToRole() rbac.Role {
	return rbac.Role{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Permissions:  unmarshalList(r.Permissions),
		Inherits:     unmarshalList(r.Inherits),
		IsSystemRole: r.IsSystemRole,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// FromAssignment converts an engine assignment to its row form.
func FromAssignment(a rbac.Assignment) RoleAssignment {
	return RoleAssignment{
		ID:          a.ID,
		UserID:      a.UserID,
		RoleID:      a.RoleID,
		AssignedBy:  a.AssignedBy,
		AssignedAt:  a.AssignedAt,
		ExpiresAt:   a.ExpiresAt,
		IsActive:    a.IsActive,
		Constraints: marshalMap(a.Constraints),
		RevokedBy:   a.RevokedBy,
		RevokedAt:   a.RevokedAt,
	}
}

// ToAssignment converts a row back to the engine form.
func (a RoleAssignment) ToAssignment() rbac.Assignment {
	return rbac.Assignment{
		ID:          a.ID,
		UserID:      a.UserID,
		RoleID:      a.RoleID,
		AssignedBy:  a.AssignedBy,
		AssignedAt:  a.AssignedAt,
		ExpiresAt:   a.ExpiresAt,
		IsActive:    a.IsActive,
		Constraints: unmarshalMap(a.Constraints),
		RevokedBy:   a.RevokedBy,
		RevokedAt:   a.RevokedAt,
	}
}

// FromEvent converts an audit event to its row form.
func FromEvent(ev rbac.Event) AuditEvent {
	var fields json.RawMessage
	if ev.Fields != nil {
		if b, err := json.Marshal(ev.Fields); err == nil {
			fields = b
		}
	}
	return AuditEvent{ID: ev.ID, Name: ev.Name, Fields: fields, OccurredAt: ev.At}
}
