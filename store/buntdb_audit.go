package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/buntdb"
	"go.uber.org/zap"

	"github.com/phantom-spire/iam/rbac"
)

// BuntAuditLog is an rbac.EventSink appending JSON events to a buntdb file
// (or ":memory:"). Keys embed a zero-padded nanosecond timestamp so key order
// is chronological; an optional TTL ages entries out without a sweeper.
type BuntAuditLog struct {
	db  *buntdb.DB
	ttl time.Duration
	log *zap.Logger
}

// NewBuntAuditLog opens the log at path. ttl <= 0 keeps entries forever.
func NewBuntAuditLog(path string, ttl time.Duration, log *zap.Logger) (*BuntAuditLog, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &BuntAuditLog{db: db, ttl: ttl, log: log}, nil
}

func (b *BuntAuditLog) Close() error { return b.db.Close() }

func (b *BuntAuditLog) key(ev rbac.Event) string {
	return fmt.Sprintf("audit:%020d:%s", ev.At.UnixNano(), ev.ID)
}

func (b *BuntAuditLog) Emit(ev rbac.Event) {
	val, err := json.Marshal(ev)
	if err != nil {
		return
	}
	var opts *buntdb.SetOptions
	if b.ttl > 0 {
		opts = &buntdb.SetOptions{Expires: true, TTL: b.ttl}
	}
	err = b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(b.key(ev), string(val), opts)
		return err
	})
	if err != nil && b.log != nil {
		b.log.Warn("buntdb audit write failed", zap.String("event", ev.Name), zap.Error(err))
	}
}

// Recent returns up to n events, newest first.
func (b *BuntAuditLog) Recent(n int) ([]rbac.Event, error) {
	var out []rbac.Event
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Descend("", func(key, value string) bool {
			if !strings.HasPrefix(key, "audit:") {
				return true
			}
			var ev rbac.Event
			if json.Unmarshal([]byte(value), &ev) == nil {
				out = append(out, ev)
			}
			return len(out) < n
		})
	})
	return out, err
}
