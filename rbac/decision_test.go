package rbac

import (
	"reflect"
	"testing"
)

func setupAlice(t *testing.T, sink EventSink) *Engine {
	t.Helper()
	e := NewEngine(sink)
	mustDefinePermission(t, e, Permission{
		ID: "p1", Name: "deploy models", Resource: "models", Action: "deploy",
		Constraints: map[string]string{"env": "prod"},
	})
	mustDefineRole(t, e, Role{ID: "R1", Name: "deployer", Permissions: []string{"p1"}})
	if _, err := e.AssignRole("alice", "R1", "admin", AssignOptions{}); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestCanPerformActionConstraintMismatch(t *testing.T) {
	e := setupAlice(t, nil)
	ev := e.CanPerformAction("alice", "models", "deploy", map[string]string{"env": "staging"})
	if ev.Allowed {
		t.Fatalf("staging context must be denied: %+v", ev)
	}
	if ev.Reason != "constraints not met" {
		t.Fatalf("reason = %q, want %q", ev.Reason, "constraints not met")
	}
	if !reflect.DeepEqual(ev.AppliedPolicies, []string{"p1"}) {
		t.Fatalf("denial must list the rejected permission, got %v", ev.AppliedPolicies)
	}
}

func TestCanPerformActionConstraintMatch(t *testing.T) {
	e := setupAlice(t, nil)
	ev := e.CanPerformAction("alice", "models", "deploy", map[string]string{"env": "prod"})
	if !ev.Allowed {
		t.Fatalf("prod context must be allowed: %+v", ev)
	}
	if !reflect.DeepEqual(ev.AppliedPolicies, []string{"p1"}) {
		t.Fatalf("applied policies = %v, want [p1]", ev.AppliedPolicies)
	}
}

func TestCanPerformActionNoMatchingPermission(t *testing.T) {
	e := setupAlice(t, nil)
	cases := []struct{ resource, action string }{
		{"models", "delete"},
		{"datasets", "deploy"},
		{"models", "Deploy"}, // exact string match, no case folding
	}
	for _, c := range cases {
		ev := e.CanPerformAction("alice", c.resource, c.action, nil)
		if ev.Allowed || ev.Reason != "no matching permissions" {
			t.Fatalf("(%s,%s): got %+v", c.resource, c.action, ev)
		}
	}
}

func TestCanPerformActionUnknownUserDenied(t *testing.T) {
	e := setupAlice(t, nil)
	if ev := e.CanPerformAction("mallory", "models", "deploy", map[string]string{"env": "prod"}); ev.Allowed {
		t.Fatalf("unknown user must be denied: %+v", ev)
	}
}

func TestUnconstrainedPermissionAlwaysPasses(t *testing.T) {
	e := NewEngine(nil)
	mustDefinePermission(t, e, perm("p_open", "reports", "read"))
	mustDefineRole(t, e, Role{ID: "r1", Name: "r1", Permissions: []string{"p_open"}})
	if _, err := e.AssignRole("bob", "r1", "admin", AssignOptions{}); err != nil {
		t.Fatal(err)
	}
	if ev := e.CanPerformAction("bob", "reports", "read", nil); !ev.Allowed {
		t.Fatalf("permission without constraints must pass with nil context: %+v", ev)
	}
}

// The engine evaluates matching permissions in order and stops at the first
// whose constraints pass, even when a later match is less restrictive. That
// first-match-wins behavior is deliberate and pinned here: the allow must
// report exactly one applied policy, not the union of all viable matches.
func TestFirstMatchWins(t *testing.T) {
	e := NewEngine(nil)
	mustDefinePermission(t, e, perm("p_open", "models", "deploy"))
	mustDefinePermission(t, e, Permission{
		ID: "p_prod", Resource: "models", Action: "deploy",
		Constraints: map[string]string{"env": "prod"},
	})
	mustDefineRole(t, e, Role{ID: "r1", Name: "r1", Permissions: []string{"p_open", "p_prod"}})
	if _, err := e.AssignRole("carol", "r1", "admin", AssignOptions{}); err != nil {
		t.Fatal(err)
	}
	ev := e.CanPerformAction("carol", "models", "deploy", map[string]string{"env": "prod"})
	if !ev.Allowed {
		t.Fatalf("expected allow: %+v", ev)
	}
	if len(ev.AppliedPolicies) != 1 {
		t.Fatalf("first match wins: want exactly one applied policy, got %v", ev.AppliedPolicies)
	}
}

func TestHasPermission(t *testing.T) {
	e := setupAlice(t, nil)
	if !e.HasPermission("alice", "p1", nil) {
		t.Fatal("alice holds p1 through R1")
	}
	if e.HasPermission("alice", "p2", nil) {
		t.Fatal("p2 is not granted")
	}
	if e.HasPermission("mallory", "p1", nil) {
		t.Fatal("mallory holds nothing")
	}
}

func TestDecisionEventsEmitted(t *testing.T) {
	sink := &captureSink{}
	e := setupAlice(t, sink)

	e.CanPerformAction("alice", "models", "deploy", map[string]string{"env": "prod"})
	e.CanPerformAction("alice", "models", "deploy", map[string]string{"env": "staging"})
	e.CanPerformAction("alice", "models", "delete", nil)

	if sink.count(EventAuthorizationGranted) != 1 {
		t.Fatalf("expected 1 granted event, got %d", sink.count(EventAuthorizationGranted))
	}
	if sink.count(EventAuthorizationDenied) != 2 {
		t.Fatalf("expected 2 denied events, got %d", sink.count(EventAuthorizationDenied))
	}
}

func TestDecisionPathFailsClosedOnPanic(t *testing.T) {
	sink := &captureSink{}
	e := setupAlice(t, sink)
	// A broken engine clock is an internal failure the decision path must
	// absorb rather than propagate.
	e.SetClock(nil)

	ev := e.CanPerformAction("alice", "models", "deploy", map[string]string{"env": "prod"})
	if ev.Allowed {
		t.Fatalf("evaluation failure must fail closed: %+v", ev)
	}
	if sink.count(EventAuthorizationError) != 1 {
		t.Fatalf("expected authorization_error event, got %v", sink.names())
	}

	if e.HasPermission("alice", "p1", nil) {
		t.Fatal("permission check must fail closed on internal error")
	}
	if sink.count(EventPermissionCheckError) != 1 {
		t.Fatalf("expected permission_check_error event, got %v", sink.names())
	}
}
