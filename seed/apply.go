package seed

import (
	"github.com/phantom-spire/iam/rbac"
)

// Built-in system permissions and roles, registered once at process start.
// System roles are immutable afterwards; operators build on them through
// custom roles that inherit from these.

var systemPermissions = []rbac.Permission{
	{ID: "perm.roles.read", Name: "read roles", Resource: "roles", Action: "read"},
	{ID: "perm.roles.write", Name: "manage roles", Resource: "roles", Action: "write"},
	{ID: "perm.permissions.read", Name: "read permissions", Resource: "permissions", Action: "read"},
	{ID: "perm.permissions.write", Name: "manage permissions", Resource: "permissions", Action: "write"},
	{ID: "perm.assignments.read", Name: "read assignments", Resource: "assignments", Action: "read"},
	{ID: "perm.assignments.write", Name: "manage assignments", Resource: "assignments", Action: "write"},
	{ID: "perm.audit.read", Name: "read audit log", Resource: "audit", Action: "read"},
}

var systemRoles = []rbac.Role{
	{
		ID:          "viewer",
		Name:        "Viewer",
		Description: "Read-only access to the authorization registry",
		Permissions: []string{
			"perm.roles.read",
			"perm.permissions.read",
			"perm.assignments.read",
		},
		IsSystemRole: true,
	},
	{
		ID:          "analyst",
		Name:        "Analyst",
		Description: "Viewer plus audit access",
		Permissions:  []string{"perm.audit.read"},
		Inherits:     []string{"viewer"},
		IsSystemRole: true,
	},
	{
		ID:          "system-admin",
		Name:        "System Administrator",
		Description: "Full control over roles, permissions and assignments",
		Permissions: []string{
			"perm.roles.write",
			"perm.permissions.write",
			"perm.assignments.write",
		},
		Inherits:     []string{"analyst"},
		IsSystemRole: true,
	},
}

// Apply registers the system permissions and roles on the engine. It is
// idempotent: anything already present (e.g. after a store rehydration) is
// left alone.
func Apply(engine *rbac.Engine) error {
	for _, p := range systemPermissions {
		if _, err := engine.DefinePermission(p); err != nil {
			if rbac.IsKind(err, rbac.KindDuplicate) {
				continue
			}
			return err
		}
	}
	for _, r := range systemRoles {
		if _, err := engine.DefineRole(r); err != nil {
			if rbac.IsKind(err, rbac.KindDuplicate) {
				continue
			}
			return err
		}
	}
	return nil
}
