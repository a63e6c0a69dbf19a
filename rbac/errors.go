package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies engine errors so callers (e.g. the HTTP layer) can map them
// to transport-level responses without string matching.
type Kind string

const (
	KindDuplicate           Kind = "duplicate"
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindImmutable           Kind = "immutable"
	KindInactiveRole        Kind = "inactive_role"
	KindDuplicateAssignment Kind = "duplicate_assignment"
	KindEvaluation          Kind = "evaluation"
)

// Error is the typed error returned by every engine mutation. Meta carries
// contextual ids (roleId, permissionId, userId) for the caller's envelope.
type Error struct {
	Kind    Kind
	Message string
	Meta    map[string]string
}

func (e *Error) Error() string {
	if len(e.Meta) == 0 {
		return string(e.Kind) + ": " + e.Message
	}
	keys := make([]string, 0, len(e.Meta))
	for k := range e.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Meta[k])
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(parts, " "))
}

// IsKind reports whether err is an engine error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// newError builds an *Error; meta is alternating key, value pairs.
func newError(k Kind, msg string, meta ...string) *Error {
	e := &Error{Kind: k, Message: msg}
	if len(meta) > 0 {
		e.Meta = make(map[string]string, len(meta)/2)
		for i := 0; i+1 < len(meta); i += 2 {
			e.Meta[meta[i]] = meta[i+1]
		}
	}
	return e
}
