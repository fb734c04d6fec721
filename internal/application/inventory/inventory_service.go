package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shoply/backend/internal/domain/inventory"
	"github.com/shoply/backend/internal/domain/shared"
)

// AdjustInput identifies one item and the ledger entry to apply to it
type AdjustInput struct {
	ShopID    uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Type      inventory.AdjustmentType
	Quantity  decimal.Decimal
	Price     decimal.Decimal
}

// AdjustResult reports the stock movement one adjustment caused
type AdjustResult struct {
	OldStock decimal.Decimal `json:"old_stock"`
	NewStock decimal.Decimal `json:"new_stock"`
}

// LineItem is one order line as seen by availability checks. Lines without
// inventory tracking pass through unchecked.
type LineItem struct {
	ProductID    uuid.UUID
	VariantID    *uuid.UUID
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	HasInventory bool
}

// Service maintains the append-only stock ledger. Stock moves only through
// Adjust; the current count on the record is derived state kept in step by
// the repository's conditional update.
type Service struct {
	repo   inventory.Repository
	logger *zap.Logger
}

// NewService creates an inventory Service
func NewService(repo inventory.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// OpenStock creates the inventory record for an item with an opening count.
// Subsequent stock movement goes through Adjust.
func (s *Service) OpenStock(ctx context.Context, shopID, productID uuid.UUID, variantID *uuid.UUID, stock decimal.Decimal) (*inventory.InventoryRecord, error) {
	record, err := inventory.NewInventoryRecord(shopID, productID, variantID, stock)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Adjust applies one stock movement and appends its ledger row. The record
// and the ledger change together or not at all; a movement that would drive
// stock negative is rejected with nothing written. The returned old/new stock
// come from the repository's atomic update, not this function's earlier read,
// so they stay truthful under concurrent adjustments.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (*AdjustResult, error) {
	record, err := s.repo.FindByItem(ctx, in.ShopID, in.ProductID, in.VariantID)
	if err != nil {
		return nil, err
	}

	adjustment, err := inventory.NewInventoryAdjustment(record, in.Type, in.Quantity, in.Price)
	if err != nil {
		return nil, err
	}

	delta := in.Type.SignedQuantity(in.Quantity)
	if err := s.repo.ApplyAdjustment(ctx, record.ID, delta, adjustment); err != nil {
		return nil, err
	}

	s.logger.Info("inventory adjusted",
		zap.String("shop_id", in.ShopID.String()),
		zap.String("product_id", in.ProductID.String()),
		zap.String("type", in.Type.String()),
		zap.String("quantity", in.Quantity.String()),
		zap.String("new_stock", adjustment.NewStock.String()))

	return &AdjustResult{OldStock: adjustment.OldStock, NewStock: adjustment.NewStock}, nil
}

// CheckAvailability validates that every tracked line item is fulfillable at
// current stock. It writes nothing; callers run it before committing to a
// payment so an unfulfillable order never creates an invoice.
func (s *Service) CheckAvailability(ctx context.Context, shopID uuid.UUID, items []LineItem) error {
	for _, item := range items {
		if !item.HasInventory {
			continue
		}
		record, err := s.repo.FindByItem(ctx, shopID, item.ProductID, item.VariantID)
		if err != nil {
			return fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		if !record.CanFulfill(item.Quantity) {
			return fmt.Errorf("product %s: %w", item.ProductID, shared.ErrInsufficientStock)
		}
	}
	return nil
}

// Ledger returns the adjustment history for one item, newest first
func (s *Service) Ledger(ctx context.Context, shopID, productID uuid.UUID, variantID *uuid.UUID) ([]inventory.InventoryAdjustment, error) {
	record, err := s.repo.FindByItem(ctx, shopID, productID, variantID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAdjustments(ctx, record.ID)
}
