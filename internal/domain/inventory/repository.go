package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository persists inventory records and their adjustment ledger
type Repository interface {
	// FindByItem resolves the record for (shop, product[, variant]).
	// Returns shared.ErrNotFound when no record exists.
	FindByItem(ctx context.Context, shopID, productID uuid.UUID, variantID *uuid.UUID) (*InventoryRecord, error)

	// Create inserts a new inventory record
	Create(ctx context.Context, record *InventoryRecord) error

	// ApplyAdjustment applies the stock delta and appends the ledger row in
	// one transaction. The stock update is a single conditional statement
	// (stock = stock + delta, guarded non-negative), not read-then-write;
	// shared.ErrInsufficientStock is returned when the guard rejects it and
	// nothing is written.
	ApplyAdjustment(ctx context.Context, recordID uuid.UUID, delta decimal.Decimal, adjustment *InventoryAdjustment) error

	// ListAdjustments returns the ledger for one record, newest first
	ListAdjustments(ctx context.Context, inventoryID uuid.UUID) ([]InventoryAdjustment, error)
}
