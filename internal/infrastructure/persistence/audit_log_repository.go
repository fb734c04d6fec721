package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoply/backend/internal/domain/payment"
)

// GormAuditLogRepository implements payment.AuditLogRepository using GORM.
// Rows are write-once: the repository exposes no update or delete, and
// masking has already happened before an entry reaches Create.
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Create appends one audit row
func (r *GormAuditLogRepository) Create(ctx context.Context, entry *payment.RequestAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByOrder returns the audit trail for one order, oldest first
func (r *GormAuditLogRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]payment.RequestAuditLog, error) {
	var entries []payment.RequestAuditLog
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormAuditLogRepository implements payment.AuditLogRepository
var _ payment.AuditLogRepository = (*GormAuditLogRepository)(nil)
