package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shoply/backend/internal/domain/inventory"
	"github.com/shoply/backend/internal/domain/shared"
)

// GormInventoryRepository implements inventory.Repository using GORM. The
// stock mutation is a single conditional UPDATE, never read-then-write, so
// two concurrent orders can both succeed only while stock covers both.
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// FindByItem resolves the record for (shop, product[, variant])
func (r *GormInventoryRepository) FindByItem(ctx context.Context, shopID, productID uuid.UUID, variantID *uuid.UUID) (*inventory.InventoryRecord, error) {
	query := r.db.WithContext(ctx).Where("shop_id = ? AND product_id = ?", shopID, productID)
	if variantID != nil {
		query = query.Where("variant_id = ?", *variantID)
	} else {
		query = query.Where("variant_id IS NULL")
	}

	var record inventory.InventoryRecord
	if err := query.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Create inserts a new inventory record
func (r *GormInventoryRepository) Create(ctx context.Context, record *inventory.InventoryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ApplyAdjustment applies the stock delta and appends the ledger row in one
// transaction. The guard `stock + delta >= 0` lives in the WHERE clause;
// zero rows affected means the guard rejected it (or the row vanished) and
// nothing is written. The adjustment's OldStock/NewStock are overwritten from
// the stock the UPDATE returns, so the ledger row records the movement that
// actually happened even when a concurrent adjustment landed after the
// caller's read.
func (r *GormInventoryRepository) ApplyAdjustment(ctx context.Context, recordID uuid.UUID, delta decimal.Decimal, adjustment *inventory.InventoryAdjustment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var newStock decimal.Decimal
		result := tx.Raw(
			`UPDATE inventory_records SET stock = stock + ?, updated_at = NOW() `+
				`WHERE id = ? AND stock + ? >= 0 RETURNING stock`,
			delta, recordID, delta,
		).Scan(&newStock)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&inventory.InventoryRecord{}).
				Where("id = ?", recordID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.ErrInsufficientStock
		}

		adjustment.OldStock = newStock.Sub(delta)
		adjustment.NewStock = newStock
		return tx.Create(adjustment).Error
	})
}

// ListAdjustments returns the ledger for one record, newest first
func (r *GormInventoryRepository) ListAdjustments(ctx context.Context, inventoryID uuid.UUID) ([]inventory.InventoryAdjustment, error) {
	var adjustments []inventory.InventoryAdjustment
	if err := r.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("created_at DESC").
		Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// Ensure GormInventoryRepository implements inventory.Repository
var _ inventory.Repository = (*GormInventoryRepository)(nil)
