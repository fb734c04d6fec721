package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoply/backend/internal/domain/shared"
)

// AdjustmentType is the kind of one ledger entry
type AdjustmentType string

const (
	// AdjustmentIn adds stock (restock, supplier delivery)
	AdjustmentIn AdjustmentType = "in"
	// AdjustmentOrder subtracts stock for a fulfilled order line
	AdjustmentOrder AdjustmentType = "order"
	// AdjustmentReverse restores stock for a cancelled or refunded order line
	AdjustmentReverse AdjustmentType = "reverse"
)

// String returns the string representation of AdjustmentType
func (t AdjustmentType) String() string {
	return string(t)
}

// IsValid returns true if the adjustment type is known
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentIn, AdjustmentOrder, AdjustmentReverse:
		return true
	default:
		return false
	}
}

// SignedQuantity returns the stock delta this type applies for a quantity
func (t AdjustmentType) SignedQuantity(quantity decimal.Decimal) decimal.Decimal {
	if t == AdjustmentOrder {
		return quantity.Neg()
	}
	return quantity
}

// InventoryAdjustment is one append-only ledger entry. Rows are created by
// Adjust and never updated or deleted; old and new stock are captured so the
// ledger replays without reading its neighbours.
type InventoryAdjustment struct {
	shared.BaseEntity
	InventoryID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type        AdjustmentType  `gorm:"type:varchar(16);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	OldStock    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NewStock    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InventoryAdjustment) TableName() string {
	return "inventory_adjustments"
}

// NewInventoryAdjustment validates and prices one prospective ledger entry
// against the record's current stock. The stock invariant lives here:
// new = old ± quantity, never negative. OldStock/NewStock are provisional —
// the repository overwrites them with the values the atomic update observed
// before the row is inserted.
func NewInventoryAdjustment(record *InventoryRecord, adjType AdjustmentType, quantity, price decimal.Decimal) (*InventoryAdjustment, error) {
	if !adjType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ADJUSTMENT_TYPE", "Unknown adjustment type")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	oldStock := record.Stock
	newStock := oldStock.Add(adjType.SignedQuantity(quantity))
	if newStock.IsNegative() {
		return nil, shared.ErrInsufficientStock
	}

	return &InventoryAdjustment{
		BaseEntity:  shared.NewBaseEntity(),
		InventoryID: record.ID,
		Type:        adjType,
		Quantity:    quantity,
		Price:       price,
		OldStock:    oldStock,
		NewStock:    newStock,
	}, nil
}
