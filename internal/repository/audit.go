package repository

import (
	"context"

	"biblio/internal/models"

	"gorm.io/gorm"
)

// AuditRepository defines persistence operations for the audit trail.
// Entries are append-only; there is deliberately no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByRequest(ctx context.Context, requestID uint) ([]*models.AuditEntry, error)
	HasAction(ctx context.Context, requestID uint, action models.AuditAction) (bool, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *auditRepository) ListByRequest(ctx context.Context, requestID uint) ([]*models.AuditEntry, error) {
	var entries []*models.AuditEntry
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

func (r *auditRepository) HasAction(ctx context.Context, requestID uint, action models.AuditAction) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AuditEntry{}).
		Where("request_id = ? AND action = ?", requestID, action).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
