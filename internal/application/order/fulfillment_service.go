package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	inventoryapp "github.com/shoply/backend/internal/application/inventory"
	"github.com/shoply/backend/internal/domain/inventory"
	"github.com/shoply/backend/internal/domain/payment"
)

// LineSource supplies the line items of an order. Order storage is owned by
// a collaborator; this core only consumes the interface.
type LineSource interface {
	OrderLines(ctx context.Context, orderID uuid.UUID) ([]inventoryapp.LineItem, error)
}

// InventoryLedger is the slice of the inventory service fulfillment needs
type InventoryLedger interface {
	CheckAvailability(ctx context.Context, shopID uuid.UUID, items []inventoryapp.LineItem) error
	Adjust(ctx context.Context, in inventoryapp.AdjustInput) (*inventoryapp.AdjustResult, error)
}

// FulfillmentService couples verified settlements to stock movement: a paid
// order decrements inventory for its tracked lines, a cancelled order
// restores it. Availability is validated before the first decrement so a
// partially unfulfillable order moves no stock at all.
type FulfillmentService struct {
	lines  LineSource
	ledger InventoryLedger
	logger *zap.Logger
}

// NewFulfillmentService creates a FulfillmentService
func NewFulfillmentService(lines LineSource, ledger InventoryLedger, logger *zap.Logger) *FulfillmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FulfillmentService{lines: lines, ledger: ledger, logger: logger}
}

// HandlePaid reacts to the first verified settlement of an invoice by
// decrementing stock for every tracked line of its order.
func (s *FulfillmentService) HandlePaid(ctx context.Context, invoice *payment.PaymentInvoice) error {
	items, err := s.lines.OrderLines(ctx, invoice.OrderID)
	if err != nil {
		return fmt.Errorf("load order lines: %w", err)
	}

	if err := s.ledger.CheckAvailability(ctx, invoice.ShopID, items); err != nil {
		return fmt.Errorf("order %s: %w", invoice.OrderID, err)
	}

	if err := s.moveStock(ctx, invoice.ShopID, items, inventory.AdjustmentOrder); err != nil {
		return err
	}

	s.logger.Info("order fulfilled",
		zap.String("order_id", invoice.OrderID.String()),
		zap.String("invoice_id", invoice.ID.String()))
	return nil
}

// CancelOrder restores stock for every tracked line of a cancelled or
// refunded order.
func (s *FulfillmentService) CancelOrder(ctx context.Context, shopID, orderID uuid.UUID) error {
	items, err := s.lines.OrderLines(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order lines: %w", err)
	}

	if err := s.moveStock(ctx, shopID, items, inventory.AdjustmentReverse); err != nil {
		return err
	}

	s.logger.Info("order stock reversed", zap.String("order_id", orderID.String()))
	return nil
}

// moveStock applies one adjustment per tracked line
func (s *FulfillmentService) moveStock(ctx context.Context, shopID uuid.UUID, items []inventoryapp.LineItem, adjType inventory.AdjustmentType) error {
	for _, item := range items {
		if !item.HasInventory {
			continue
		}
		if _, err := s.ledger.Adjust(ctx, inventoryapp.AdjustInput{
			ShopID:    shopID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Type:      adjType,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}); err != nil {
			return fmt.Errorf("product %s: %w", item.ProductID, err)
		}
	}
	return nil
}
