package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phantom-spire/iam/rbac"
)

func TestPermissionRoundTrip(t *testing.T) {
	in := rbac.Permission{
		ID: "p1", Name: "deploy", Description: "deploy models",
		Resource: "models", Action: "deploy",
		Constraints: map[string]string{"env": "prod"},
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	out := FromPermission(in).ToPermission()
	require.Equal(t, in, out)
}

func TestRoleRoundTrip(t *testing.T) {
	in := rbac.Role{
		ID: "r1", Name: "editor", Description: "can edit",
		Permissions: []string{"p1", "p2"}, Inherits: []string{"viewer"},
		IsSystemRole: true, IsActive: true,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}
	out := FromRole(in).ToRole()
	require.Equal(t, in, out)

	// nil slices survive as nil, not empty JSON arrays
	bare := rbac.Role{ID: "r2", Name: "bare"}
	row := FromRole(bare)
	require.Nil(t, row.Permissions)
	require.Nil(t, row.Inherits)
	require.Equal(t, bare, row.ToRole())
}

func TestAssignmentRoundTrip(t *testing.T) {
	exp := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	in := rbac.Assignment{
		ID: "a1", UserID: "alice", RoleID: "r1", AssignedBy: "admin",
		AssignedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ExpiresAt:  &exp, IsActive: true,
		Constraints: map[string]string{"region": "eu"},
	}
	out := FromAssignment(in).ToAssignment()
	require.Equal(t, in, out)
}

func TestNewIDShape(t *testing.T) {
	id := NewID()
	require.Len(t, id, 32)
	require.NotContains(t, id, "-")
	require.NotEqual(t, id, NewID())
}
