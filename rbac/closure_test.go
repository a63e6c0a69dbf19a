package rbac

import (
	"reflect"
	"testing"
)

func TestGetRoleExpandsInheritedPermissions(t *testing.T) {
	e := NewEngine(nil)
	mustDefinePermission(t, e, perm("p_read", "reports", "read"))
	mustDefinePermission(t, e, perm("p_write", "reports", "write"))
	mustDefinePermission(t, e, perm("p_admin", "reports", "admin"))

	mustDefineRole(t, e, Role{ID: "base", Name: "base", Permissions: []string{"p_read"}})
	mustDefineRole(t, e, Role{ID: "editor", Name: "editor", Permissions: []string{"p_write"}, Inherits: []string{"base"}})
	mustDefineRole(t, e, Role{ID: "owner", Name: "owner", Permissions: []string{"p_admin"}, Inherits: []string{"editor"}})

	got, err := e.GetRole("owner", true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"p_admin", "p_read", "p_write"}
	if !reflect.DeepEqual(got.Permissions, want) {
		t.Fatalf("effective permissions = %v, want %v", got.Permissions, want)
	}

	direct, err := e.GetRole("owner", false)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(direct.Permissions, []string{"p_admin"}) {
		t.Fatalf("direct permissions = %v, want [p_admin]", direct.Permissions)
	}
}

func TestUserInheritsThroughChildRole(t *testing.T) {
	e := NewEngine(nil)
	mustDefinePermission(t, e, perm("p_read", "reports", "read"))
	mustDefineRole(t, e, Role{ID: "parent", Name: "parent", Permissions: []string{"p_read"}})
	mustDefineRole(t, e, Role{ID: "child", Name: "child", Inherits: []string{"parent"}})

	if _, err := e.AssignRole("bob", "child", "admin", AssignOptions{}); err != nil {
		t.Fatal(err)
	}
	got := e.GetUserPermissions("bob")
	if len(got) != 1 || got[0].ID != "p_read" {
		t.Fatalf("user assigned only child must inherit p_read, got %v", got)
	}
}

// A cycle can only be configured through updates (parents must exist at
// definition time). The closure must neither hang nor double-count.
func TestInheritanceCycleIsTolerated(t *testing.T) {
	e := NewEngine(nil)
	mustDefinePermission(t, e, perm("p_a", "x", "a"))
	mustDefinePermission(t, e, perm("p_b", "x", "b"))
	mustDefineRole(t, e, Role{ID: "a", Name: "a", Permissions: []string{"p_a"}})
	mustDefineRole(t, e, Role{ID: "b", Name: "b", Permissions: []string{"p_b"}, Inherits: []string{"a"}})

	inherits := []string{"b"}
	if _, err := e.UpdateRole("a", RoleUpdate{Inherits: &inherits}); err != nil {
		t.Fatalf("cycle-forming update should be accepted: %v", err)
	}

	for _, id := range []string{"a", "b"} {
		got, err := e.GetRole(id, true)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"p_a", "p_b"}
		if !reflect.DeepEqual(got.Permissions, want) {
			t.Fatalf("role %s effective permissions = %v, want %v", id, got.Permissions, want)
		}
	}
}

func TestSelfInheritanceRejected(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.DefineRole(Role{ID: "r1", Name: "r1", Inherits: []string{"r1"}})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for self-inheritance, got %v", err)
	}
}

func TestUpdateInheritsRecomputesDescendants(t *testing.T) {
	e := NewEngine(nil)
	mustDefinePermission(t, e, perm("p_top", "x", "top"))
	mustDefineRole(t, e, Role{ID: "top", Name: "top", Permissions: []string{"p_top"}})
	mustDefineRole(t, e, Role{ID: "mid", Name: "mid"})
	mustDefineRole(t, e, Role{ID: "leaf", Name: "leaf", Inherits: []string{"mid"}})

	// Splicing top above mid must surface p_top through leaf as well.
	inherits := []string{"top"}
	if _, err := e.UpdateRole("mid", RoleUpdate{Inherits: &inherits}); err != nil {
		t.Fatal(err)
	}
	got, err := e.GetRole("leaf", true)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Permissions, []string{"p_top"}) {
		t.Fatalf("leaf should inherit p_top after mid update, got %v", got.Permissions)
	}
}

func TestDeepInheritanceChain(t *testing.T) {
	e := NewEngine(nil)
	mustDefinePermission(t, e, perm("p_root", "x", "root"))
	mustDefineRole(t, e, Role{ID: "d0", Name: "d0", Permissions: []string{"p_root"}})
	prev := "d0"
	for i := 1; i <= 50; i++ {
		id := "d" + string(rune('0'+i/10)) + string(rune('0'+i%10))
		mustDefineRole(t, e, Role{ID: id, Name: id, Inherits: []string{prev}})
		prev = id
	}
	got, err := e.GetRole(prev, true)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Permissions, []string{"p_root"}) {
		t.Fatalf("deep chain should resolve to [p_root], got %v", got.Permissions)
	}
}
