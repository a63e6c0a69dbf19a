package store

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/phantom-spire/iam/models"
	"github.com/phantom-spire/iam/rbac"
)

// AuditStore is an rbac.EventSink writing append-only rows to audit_events.
// A write failure is logged and swallowed: the decision path must never fail
// because the audit database hiccuped.
type AuditStore struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewAuditStore(db *gorm.DB, log *zap.Logger) *AuditStore {
	return &AuditStore{DB: db, Log: log}
}

func (s *AuditStore) Emit(ev rbac.Event) {
	row := models.FromEvent(ev)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil && s.Log != nil {
		s.Log.Warn("audit write failed", zap.String("event", ev.Name), zap.Error(err))
	}
}

// Recent returns the latest n audit rows, newest first.
func (s *AuditStore) Recent(ctx context.Context, n int) ([]models.AuditEvent, error) {
	var rows []models.AuditEvent
	err := s.DB.WithContext(ctx).Order("occurred_at DESC").Limit(n).Find(&rows).Error
	return rows, err
}
