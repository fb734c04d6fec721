package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoply/backend/internal/domain/shared"
)

// InventoryRecord is the denormalized current stock count for one sellable
// item: a product, or one variant of a product. Current stock is derivable
// from the adjustment ledger; this row exists so availability checks are one
// read.
type InventoryRecord struct {
	shared.BaseEntity
	ShopID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_shop_product_variant,priority:1"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_shop_product_variant,priority:2"`
	VariantID *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_inventory_shop_product_variant,priority:3"`
	Stock     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// NewInventoryRecord creates a record with an opening stock count
func NewInventoryRecord(shopID, productID uuid.UUID, variantID *uuid.UUID, stock decimal.Decimal) (*InventoryRecord, error) {
	if shopID == uuid.Nil || productID == uuid.Nil {
		return nil, shared.ErrInvalidInput
	}
	if stock.IsNegative() {
		return nil, shared.NewDomainError("INVALID_STOCK", "Opening stock cannot be negative")
	}
	return &InventoryRecord{
		BaseEntity: shared.NewBaseEntity(),
		ShopID:     shopID,
		ProductID:  productID,
		VariantID:  variantID,
		Stock:      stock,
	}, nil
}

// CanFulfill returns true if current stock covers the requested quantity
func (r *InventoryRecord) CanFulfill(quantity decimal.Decimal) bool {
	return r.Stock.GreaterThanOrEqual(quantity)
}
