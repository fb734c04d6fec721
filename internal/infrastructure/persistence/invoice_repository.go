package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoply/backend/internal/domain/payment"
	"github.com/shoply/backend/internal/domain/shared"
)

// GormInvoiceRepository implements payment.InvoiceRepository using GORM.
// Every status-changing statement is guarded on the prior state so the paid
// status stays terminal under concurrent checks and webhooks.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create inserts a new invoice row
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *payment.PaymentInvoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.PaymentInvoice, error) {
	var invoice payment.PaymentInvoice
	if err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByInvoiceNo finds an invoice by the provider-side invoice number
func (r *GormInvoiceRepository) FindByInvoiceNo(ctx context.Context, provider payment.Provider, invoiceNo string) (*payment.PaymentInvoice, error) {
	var invoice payment.PaymentInvoice
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND invoiceno = ?", provider, invoiceNo).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByOrder finds all invoices for an order, newest first
func (r *GormInvoiceRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]payment.PaymentInvoice, error) {
	var invoices []payment.PaymentInvoice
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Update persists the mutable fields of an invoice. The statement is guarded
// so a row that went paid concurrently is left untouched.
func (r *GormInvoiceRepository) Update(ctx context.Context, invoice *payment.PaymentInvoice) error {
	result := r.db.WithContext(ctx).
		Model(&payment.PaymentInvoice{}).
		Where("id = ? AND status <> ?", invoice.ID, payment.InvoiceStatusPaid).
		Updates(map[string]any{
			"status":        invoice.Status,
			"invoiceno":     invoice.InvoiceNo,
			"checkout_url":  invoice.CheckoutURL,
			"qrcode":        invoice.QRCode,
			"deeplinks":     invoice.Deeplinks,
			"retry_count":   invoice.RetryCount,
			"response":      invoice.Response,
			"error_message": invoice.ErrorMessage,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return payment.ErrInvoiceAlreadyPaid
	}
	return nil
}

// MarkPaid performs the guarded paid transition in one conditional UPDATE.
// Returns false when a concurrent check already won the race; the caller
// treats that as success.
func (r *GormInvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, rawResponse string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&payment.PaymentInvoice{}).
		Where("id = ? AND status <> ?", id, payment.InvoiceStatusPaid).
		Updates(map[string]any{
			"status":        payment.InvoiceStatusPaid,
			"payment_date":  paidAt,
			"response":      rawResponse,
			"error_message": "",
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkError records a failed cycle unless the invoice is already paid
func (r *GormInvoiceRepository) MarkError(ctx context.Context, id uuid.UUID, rawResponse, message string) error {
	return r.db.WithContext(ctx).
		Model(&payment.PaymentInvoice{}).
		Where("id = ? AND status <> ?", id, payment.InvoiceStatusPaid).
		Updates(map[string]any{
			"status":        payment.InvoiceStatusError,
			"response":      rawResponse,
			"error_message": message,
			"updated_at":    time.Now(),
		}).Error
}

// Ensure GormInvoiceRepository implements payment.InvoiceRepository
var _ payment.InvoiceRepository = (*GormInvoiceRepository)(nil)
