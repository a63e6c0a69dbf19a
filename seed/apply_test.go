package seed

import (
	"testing"

	"github.com/phantom-spire/iam/rbac"
)

func TestApplySeedsSystemRoles(t *testing.T) {
	e := rbac.NewEngine(nil)
	if err := Apply(e); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	admin, err := e.GetRole("system-admin", true)
	if err != nil {
		t.Fatalf("system-admin missing: %v", err)
	}
	if !admin.IsSystemRole {
		t.Fatal("system-admin must be a system role")
	}
	// Inherits analyst -> viewer, so the effective set spans all seven perms.
	if got := len(admin.Permissions); got != 7 {
		t.Fatalf("system-admin effective permissions = %d, want 7", got)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	e := rbac.NewEngine(nil)
	if err := Apply(e); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if err := Apply(e); err != nil {
		t.Fatalf("second Apply must be a no-op, got %v", err)
	}
	if got := len(e.ListRoles()); got != 3 {
		t.Fatalf("expected 3 system roles, got %d", got)
	}
}

func TestSeededSystemRoleIsImmutable(t *testing.T) {
	e := rbac.NewEngine(nil)
	if err := Apply(e); err != nil {
		t.Fatal(err)
	}
	name := "renamed"
	_, err := e.UpdateRole("viewer", rbac.RoleUpdate{Name: &name})
	if !rbac.IsKind(err, rbac.KindImmutable) {
		t.Fatalf("expected immutable error, got %v", err)
	}
}
