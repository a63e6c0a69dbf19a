package rbac

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Audit event names emitted by the engine. Every mutation and every
// authorization decision (grant or deny) produces one.
const (
	EventPermissionCreated    = "permission_created"
	EventRoleCreated          = "role_created"
	EventRoleUpdated          = "role_updated"
	EventRoleAssigned         = "role_assigned"
	EventRoleRevoked          = "role_revoked"
	EventAuthorizationGranted = "authorization_granted"
	EventAuthorizationDenied  = "authorization_denied"
	EventAuthorizationError   = "authorization_error"
	EventPermissionCheckError = "permission_check_error"
)

// Event is a structured audit record. The sink's persistence and format are
// the sink's concern; the engine only names the event and fills the fields.
type Event struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	At     time.Time      `json:"at"`
	Fields map[string]any `json:"fields,omitempty"`
}

// EventSink receives audit events. Emit must not block the decision path for
// long and must never panic back into the engine.
type EventSink interface {
	Emit(Event)
}

// MultiSink fans one event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// ZapSink logs audit events through a structured logger.
type ZapSink struct{ Log *zap.Logger }

func NewZapSink(log *zap.Logger) *ZapSink { return &ZapSink{Log: log} }

func (s *ZapSink) Emit(ev Event) {
	if s.Log == nil {
		return
	}
	s.Log.Info("audit",
		zap.String("event_id", ev.ID),
		zap.String("event", ev.Name),
		zap.Time("at", ev.At),
		zap.Any("fields", ev.Fields),
	)
}

// newEvent stamps an event with a fresh id and the engine clock.
func newEvent(name string, at time.Time, fields map[string]any) Event {
	return Event{ID: uuid.NewString(), Name: name, At: at, Fields: fields}
}
