package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/phantom-spire/iam/models"
	"github.com/phantom-spire/iam/rbac"
)

// RBACStore persists engine state write-through. The engine stays the source
// of truth for reads; each mutation here is a single transaction so the
// referential-integrity and at-most-one-active-assignment invariants hold in
// the durable copy as well.
type RBACStore struct{ DB *gorm.DB }

func NewRBACStore(db *gorm.DB) *RBACStore { return &RBACStore{DB: db} }

// SavePermission inserts a newly defined permission.
func (s *RBACStore) SavePermission(ctx context.Context, p rbac.Permission) error {
	row := models.FromPermission(p)
	return s.DB.WithContext(ctx).Create(&row).Error
}

// SaveRole upserts the role row by id.
func (s *RBACStore) SaveRole(ctx context.Context, r rbac.Role) error {
	row := models.FromRole(r)
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Role
		err := tx.Where("id = ?", row.ID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&row).Error
		} else if err != nil {
			return err
		}
		updates := map[string]interface{}{
			"name":        row.Name,
			"description": row.Description,
			"permissions": row.Permissions,
			"inherits":    row.Inherits,
			"is_active":   row.IsActive,
			"updated_at":  row.UpdatedAt,
		}
		return tx.Model(&models.Role{}).Where("id = ?", row.ID).Updates(updates).Error
	})
}

// SaveAssignment upserts the assignment row by id, covering both the grant
// and the later soft-delete revocation of the same record.
func (s *RBACStore) SaveAssignment(ctx context.Context, a rbac.Assignment) error {
	row := models.FromAssignment(a)
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.RoleAssignment
		err := tx.Where("id = ?", row.ID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&row).Error
		} else if err != nil {
			return err
		}
		updates := map[string]interface{}{
			"is_active":  row.IsActive,
			"revoked_by": row.RevokedBy,
			"revoked_at": row.RevokedAt,
		}
		return tx.Model(&models.RoleAssignment{}).Where("id = ?", row.ID).Updates(updates).Error
	})
}

// ExpireAssignment marks an assignment inactive after lazy expiry observed it.
func (s *RBACStore) ExpireAssignment(ctx context.Context, id string, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.RoleAssignment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "revoked_at": at}).Error
}

// Load reads the full registry for engine rehydration at startup.
func (s *RBACStore) Load(ctx context.Context) ([]rbac.Permission, []rbac.Role, []rbac.Assignment, error) {
	var permRows []models.Permission
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&permRows).Error; err != nil {
		return nil, nil, nil, err
	}
	var roleRows []models.Role
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&roleRows).Error; err != nil {
		return nil, nil, nil, err
	}
	var asgRows []models.RoleAssignment
	if err := s.DB.WithContext(ctx).Order("assigned_at ASC").Find(&asgRows).Error; err != nil {
		return nil, nil, nil, err
	}

	perms := make([]rbac.Permission, 0, len(permRows))
	for _, r := range permRows {
		perms = append(perms, r.ToPermission())
	}
	roles := make([]rbac.Role, 0, len(roleRows))
	for _, r := range roleRows {
		roles = append(roles, r.ToRole())
	}
	asgs := make([]rbac.Assignment, 0, len(asgRows))
	for _, r := range asgRows {
		asgs = append(asgs, r.ToAssignment())
	}
	return perms, roles, asgs, nil
}
