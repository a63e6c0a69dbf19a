package rbac

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine is the in-memory RBAC evaluator. It owns the permission, role and
// assignment registries plus a precomputed role-inheritance closure, all
// guarded by a single reader-writer lock: mutations take the write lock,
// decision reads run concurrently under the read lock. Construct it once and
// hand it to callers; there is no package-level singleton.
type Engine struct {
	mu          sync.RWMutex
	permissions map[string]*Permission
	roles       map[string]*Role
	assignments map[string][]*Assignment
	// closure maps a role id to the set of role ids reachable through
	// Inherits, the role itself included. Rebuilt eagerly on definition
	// and update so the decision path never walks the graph.
	closure map[string]map[string]struct{}

	sink EventSink
	now  func() time.Time
}

// NewEngine builds an empty engine. A nil sink discards audit events.
func NewEngine(sink EventSink) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		permissions: make(map[string]*Permission),
		roles:       make(map[string]*Role),
		assignments: make(map[string][]*Assignment),
		closure:     make(map[string]map[string]struct{}),
		sink:        sink,
		now:         time.Now,
	}
}

// SetClock overrides the engine clock. Test hook only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

func (e *Engine) emit(name string, fields map[string]any) {
	// Falls back to the wall clock so the fail-closed paths can still audit
	// when the engine clock itself is what broke.
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	e.sink.Emit(newEvent(name, now().UTC(), fields))
}

// Restore installs previously persisted state wholesale and rebuilds the
// inheritance closure. Used when rehydrating from a durable store at startup;
// no validation is re-run and no audit events are emitted.
func (e *Engine) Restore(perms []Permission, roles []Role, assignments []Assignment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.permissions = make(map[string]*Permission, len(perms))
	for i := range perms {
		p := perms[i]
		e.permissions[p.ID] = &p
	}
	e.roles = make(map[string]*Role, len(roles))
	for i := range roles {
		r := roles[i]
		e.roles[r.ID] = &r
	}
	e.assignments = make(map[string][]*Assignment)
	for i := range assignments {
		a := assignments[i]
		e.assignments[a.UserID] = append(e.assignments[a.UserID], &a)
	}
	e.closure = make(map[string]map[string]struct{}, len(e.roles))
	for id := range e.roles {
		e.closure[id] = e.computeClosureLocked(id)
	}
}

// DefinePermission registers a new permission. Permissions are immutable once
// created and uniquely keyed by id.
func (e *Engine) DefinePermission(p Permission) (*Permission, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" || strings.TrimSpace(p.Resource) == "" || strings.TrimSpace(p.Action) == "" {
		return nil, newError(KindValidation, "permission requires id, resource and action", "permissionId", p.ID)
	}

	e.mu.Lock()
	if _, ok := e.permissions[p.ID]; ok {
		e.mu.Unlock()
		return nil, newError(KindDuplicate, "permission already exists", "permissionId", p.ID)
	}
	p.CreatedAt = e.now().UTC()
	stored := p
	e.permissions[p.ID] = &stored
	e.mu.Unlock()

	e.emit(EventPermissionCreated, map[string]any{
		"permission_id": p.ID,
		"resource":      p.Resource,
		"action":        p.Action,
	})
	out := stored
	return &out, nil
}

// DefineRole registers a new role. Every referenced permission id and parent
// role id must already exist; a dangling reference is a hard error and leaves
// the registry untouched.
func (e *Engine) DefineRole(r Role) (*Role, error) {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" || strings.TrimSpace(r.Name) == "" {
		return nil, newError(KindValidation, "role requires id and name", "roleId", r.ID)
	}

	e.mu.Lock()
	if _, ok := e.roles[r.ID]; ok {
		e.mu.Unlock()
		return nil, newError(KindDuplicate, "role already exists", "roleId", r.ID)
	}
	if err := e.checkRoleRefsLocked(r.ID, r.Permissions, r.Inherits); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	now := e.now().UTC()
	r.IsActive = true
	r.CreatedAt = now
	r.UpdatedAt = now
	stored := r
	e.roles[r.ID] = &stored
	e.closure[r.ID] = e.computeClosureLocked(r.ID)
	e.mu.Unlock()

	e.emit(EventRoleCreated, map[string]any{
		"role_id":     r.ID,
		"name":        r.Name,
		"system_role": r.IsSystemRole,
	})
	out := stored
	return &out, nil
}

// UpdateRole applies a partial update to an existing custom role. System roles
// are immutable. Updated permission and parent references are re-validated,
// and a change to Inherits rebuilds the whole closure since descendants of the
// edited role inherit through it.
func (e *Engine) UpdateRole(roleID string, up RoleUpdate) (*Role, error) {
	e.mu.Lock()
	role, ok := e.roles[roleID]
	if !ok {
		e.mu.Unlock()
		return nil, newError(KindNotFound, "role not found", "roleId", roleID)
	}
	if role.IsSystemRole {
		e.mu.Unlock()
		return nil, newError(KindImmutable, "system role cannot be modified", "roleId", roleID)
	}

	perms := role.Permissions
	if up.Permissions != nil {
		perms = *up.Permissions
	}
	inherits := role.Inherits
	if up.Inherits != nil {
		inherits = *up.Inherits
	}
	if err := e.checkRoleRefsLocked(roleID, perms, inherits); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	if up.Name != nil {
		role.Name = *up.Name
	}
	if up.Description != nil {
		role.Description = *up.Description
	}
	if up.Permissions != nil {
		role.Permissions = *up.Permissions
	}
	if up.IsActive != nil {
		role.IsActive = *up.IsActive
	}
	inheritsChanged := up.Inherits != nil
	if inheritsChanged {
		role.Inherits = *up.Inherits
	}
	role.UpdatedAt = e.now().UTC()
	if inheritsChanged {
		for id := range e.roles {
			e.closure[id] = e.computeClosureLocked(id)
		}
	}
	out := *role
	e.mu.Unlock()

	e.emit(EventRoleUpdated, map[string]any{"role_id": roleID})
	return &out, nil
}

// GetRole returns a copy of the role. With includeInherited the permission
// list is expanded to the full effective set through the inheritance closure,
// deduplicated and sorted.
func (e *Engine) GetRole(roleID string, includeInherited bool) (*Role, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	role, ok := e.roles[roleID]
	if !ok {
		return nil, newError(KindNotFound, "role not found", "roleId", roleID)
	}
	out := *role
	if includeInherited {
		out.Permissions = e.effectivePermissionIDsLocked(roleID)
	} else {
		out.Permissions = append([]string{}, role.Permissions...)
	}
	out.Inherits = append([]string(nil), role.Inherits...)
	return &out, nil
}

// ListRoles returns copies of every defined role, sorted by id.
func (e *Engine) ListRoles() []*Role {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Role, 0, len(e.roles))
	for _, r := range e.roles {
		c := *r
		c.Permissions = append([]string{}, r.Permissions...)
		c.Inherits = append([]string(nil), r.Inherits...)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListPermissions returns copies of every registered permission, sorted by id.
func (e *Engine) ListPermissions() []*Permission {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Permission, 0, len(e.permissions))
	for _, p := range e.permissions {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AssignRole grants roleID to userID. A (user, role) pair can hold at most one
// active assignment; an existing expired one is flipped inactive here rather
// than blocking the new grant.
func (e *Engine) AssignRole(userID, roleID, assignedBy string, opts AssignOptions) (*Assignment, error) {
	e.mu.Lock()
	role, ok := e.roles[roleID]
	if !ok {
		e.mu.Unlock()
		return nil, newError(KindNotFound, "role not found", "roleId", roleID)
	}
	if !role.IsActive {
		e.mu.Unlock()
		return nil, newError(KindInactiveRole, "role is not active", "roleId", roleID)
	}
	now := e.now().UTC()
	for _, a := range e.assignments[userID] {
		if a.RoleID != roleID || !a.IsActive {
			continue
		}
		if a.expired(now) {
			a.IsActive = false
			continue
		}
		e.mu.Unlock()
		return nil, newError(KindDuplicateAssignment, "user already holds an active assignment for this role",
			"userId", userID, "roleId", roleID)
	}
	asg := &Assignment{
		ID:          uuid.NewString(),
		UserID:      userID,
		RoleID:      roleID,
		AssignedBy:  assignedBy,
		AssignedAt:  now,
		ExpiresAt:   opts.ExpiresAt,
		IsActive:    true,
		Constraints: opts.Constraints,
	}
	e.assignments[userID] = append(e.assignments[userID], asg)
	out := *asg
	e.mu.Unlock()

	e.emit(EventRoleAssigned, map[string]any{
		"assignment_id": out.ID,
		"user_id":       userID,
		"role_id":       roleID,
		"assigned_by":   assignedBy,
	})
	return &out, nil
}

// RevokeRole soft-deletes the active assignment for (userID, roleID). The
// record is kept with IsActive=false so the audit trail stays intact.
func (e *Engine) RevokeRole(userID, roleID, revokedBy string) (*Assignment, error) {
	e.mu.Lock()
	now := e.now().UTC()
	var target *Assignment
	for _, a := range e.assignments[userID] {
		if a.RoleID == roleID && a.current(now) {
			target = a
			break
		}
	}
	if target == nil {
		e.mu.Unlock()
		return nil, newError(KindNotFound, "no active assignment for user and role",
			"userId", userID, "roleId", roleID)
	}
	target.IsActive = false
	target.RevokedBy = revokedBy
	revokedAt := now
	target.RevokedAt = &revokedAt
	out := *target
	e.mu.Unlock()

	e.emit(EventRoleRevoked, map[string]any{
		"assignment_id": out.ID,
		"user_id":       userID,
		"role_id":       roleID,
		"revoked_by":    revokedBy,
	})
	return &out, nil
}

// GetUserRoles returns the user's current assignments. Expired assignments
// found here are flipped inactive as a side effect; expiry is evaluated on
// access, not by a background sweep.
func (e *Engine) GetUserRoles(userID string) []*Assignment {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now().UTC()
	var out []*Assignment
	for _, a := range e.assignments[userID] {
		if !a.IsActive {
			continue
		}
		if a.expired(now) {
			a.IsActive = false
			continue
		}
		c := *a
		out = append(out, &c)
	}
	return out
}

// GetUserPermissions returns the deduplicated union of the effective
// permission sets of every role the user currently holds.
func (e *Engine) GetUserPermissions(userID string) []*Permission {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.userPermissionsLocked(userID)
}

// HasPermission is a boolean membership test against the user's effective
// permission set. It never raises: internal failures are logged as
// permission_check_error and the check fails closed.
func (e *Engine) HasPermission(userID, permissionID string, _ map[string]string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.emit(EventPermissionCheckError, map[string]any{
				"user_id":       userID,
				"permission_id": permissionID,
				"panic":         r,
			})
			ok = false
		}
	}()
	for _, p := range e.snapshotUserPermissions(userID) {
		if p.ID == permissionID {
			return true
		}
	}
	return false
}

// snapshotUserPermissions reads the effective set under the read lock. The
// deferred unlock keeps a panicking evaluation from wedging the engine before
// the decision path's recover converts it into a denial.
func (e *Engine) snapshotUserPermissions(userID string) []*Permission {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.userPermissionsLocked(userID)
}

// CanPerformAction decides whether userID may perform action on resource given
// the request context. Matching permissions are tried in order; the first one
// whose constraints are all satisfied wins and is recorded as the single
// applied policy. The decision path never returns an error: failures are
// audited and converted into a denial.
func (e *Engine) CanPerformAction(userID, resource, action string, ctx map[string]string) (ev Evaluation) {
	defer func() {
		if r := recover(); r != nil {
			e.emit(EventAuthorizationError, map[string]any{
				"user_id":  userID,
				"resource": resource,
				"action":   action,
				"panic":    r,
			})
			ev = Evaluation{Allowed: false, Reason: "authorization evaluation failed"}
		}
	}()

	perms := e.snapshotUserPermissions(userID)

	var matching []*Permission
	for _, p := range perms {
		if p.Resource == resource && p.Action == action {
			matching = append(matching, p)
		}
	}
	if len(matching) == 0 {
		e.emit(EventAuthorizationDenied, map[string]any{
			"user_id":  userID,
			"resource": resource,
			"action":   action,
			"reason":   "no matching permissions",
		})
		return Evaluation{Allowed: false, Reason: "no matching permissions"}
	}

	var rejected []string
	for _, p := range matching {
		if !constraintsSatisfied(p.Constraints, ctx) {
			rejected = append(rejected, p.ID)
			continue
		}
		e.emit(EventAuthorizationGranted, map[string]any{
			"user_id":       userID,
			"resource":      resource,
			"action":        action,
			"permission_id": p.ID,
		})
		return Evaluation{
			Allowed:         true,
			Reason:          "permission granted",
			AppliedPolicies: []string{p.ID},
			Constraints:     p.Constraints,
		}
	}
	e.emit(EventAuthorizationDenied, map[string]any{
		"user_id":  userID,
		"resource": resource,
		"action":   action,
		"reason":   "constraints not met",
		"rejected": rejected,
	})
	return Evaluation{Allowed: false, Reason: "constraints not met", AppliedPolicies: rejected}
}

// constraintsSatisfied requires every constraint key to match the context
// value exactly. A permission without constraints always passes.
func constraintsSatisfied(constraints, ctx map[string]string) bool {
	for k, want := range constraints {
		if got, ok := ctx[k]; !ok || got != want {
			return false
		}
	}
	return true
}

// checkRoleRefsLocked validates permission and parent references eagerly so a
// failed definition never leaves partial state. Self-inheritance is rejected
// outright; longer cycles can only appear through later updates and are
// tolerated by the visited-set traversal.
func (e *Engine) checkRoleRefsLocked(roleID string, perms, inherits []string) error {
	for _, pid := range perms {
		if _, ok := e.permissions[pid]; !ok {
			return newError(KindValidation, "role references undefined permission",
				"roleId", roleID, "permissionId", pid)
		}
	}
	for _, parent := range inherits {
		if parent == roleID {
			return newError(KindValidation, "role cannot inherit from itself", "roleId", roleID)
		}
		if _, ok := e.roles[parent]; !ok {
			return newError(KindValidation, "role references undefined parent role",
				"roleId", roleID, "parentRoleId", parent)
		}
	}
	return nil
}

// computeClosureLocked walks the inheritance graph iteratively with a visited
// set, so pathological graphs (including cycles introduced by updates) cost at
// most one visit per role and cannot recurse unboundedly.
func (e *Engine) computeClosureLocked(roleID string) map[string]struct{} {
	visited := map[string]struct{}{roleID: {}}
	stack := []string{roleID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		role, ok := e.roles[id]
		if !ok {
			continue
		}
		for _, parent := range role.Inherits {
			if _, seen := visited[parent]; seen {
				continue
			}
			visited[parent] = struct{}{}
			stack = append(stack, parent)
		}
	}
	return visited
}

// effectivePermissionIDsLocked returns the deduplicated, sorted union of the
// role's direct permissions and those of every transitively inherited role.
func (e *Engine) effectivePermissionIDsLocked(roleID string) []string {
	set := make(map[string]struct{})
	closure, ok := e.closure[roleID]
	if !ok {
		closure = map[string]struct{}{roleID: {}}
	}
	for id := range closure {
		role, ok := e.roles[id]
		if !ok {
			continue
		}
		for _, pid := range role.Permissions {
			set[pid] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for pid := range set {
		out = append(out, pid)
	}
	sort.Strings(out)
	return out
}

// userPermissionsLocked unions the effective permission sets of every role the
// user currently holds. Expired assignments and deactivated roles contribute
// nothing; expiry is only observed here, never mutated, so the read lock
// suffices.
func (e *Engine) userPermissionsLocked(userID string) []*Permission {
	now := e.now().UTC()
	set := make(map[string]struct{})
	for _, a := range e.assignments[userID] {
		if !a.current(now) {
			continue
		}
		role, ok := e.roles[a.RoleID]
		if !ok || !role.IsActive {
			continue
		}
		for _, pid := range e.effectivePermissionIDsLocked(a.RoleID) {
			set[pid] = struct{}{}
		}
	}
	ids := make([]string, 0, len(set))
	for pid := range set {
		ids = append(ids, pid)
	}
	sort.Strings(ids)
	out := make([]*Permission, 0, len(ids))
	for _, pid := range ids {
		if p, ok := e.permissions[pid]; ok {
			c := *p
			out = append(out, &c)
		}
	}
	return out
}
