package payment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoply/backend/internal/domain/payment"
)

// CreateInvoiceInput carries everything needed to open a payment attempt
type CreateInvoiceInput struct {
	Provider    payment.Provider
	ShopID      uuid.UUID
	OrderID     uuid.UUID
	OrderCode   string
	Amount      decimal.Decimal
	Description string
	// CallbackURL is handed to providers that bounce the payer back
	CallbackURL string
}

// CheckInvoiceInput identifies the invoice to verify. A webhook can fill any
// one of the identifiers; InvoiceID wins, then provider+InvoiceNo, then the
// latest invoice of OrderID.
type CheckInvoiceInput struct {
	InvoiceID *uuid.UUID
	Provider  payment.Provider
	InvoiceNo string
	OrderID   *uuid.UUID
}

// InvoiceResponse is the caller-facing projection of a payment invoice.
// Raw provider payloads and internal error evidence stay out of it.
type InvoiceResponse struct {
	ID          uuid.UUID              `json:"id"`
	Provider    payment.Provider       `json:"provider"`
	OrderID     uuid.UUID              `json:"order_id"`
	OrderCode   string                 `json:"order_code"`
	Amount      decimal.Decimal        `json:"amount"`
	Status      payment.InvoiceStatus  `json:"status"`
	InvoiceNo   string                 `json:"invoice_no,omitempty"`
	CheckoutURL string                 `json:"checkout_url,omitempty"`
	QRCode      string                 `json:"qrcode,omitempty"`
	Deeplinks   []payment.Deeplink     `json:"deeplinks,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	PaymentDate *string                `json:"payment_date,omitempty"`
}

// ToInvoiceResponse maps a domain invoice to its caller-facing projection
func ToInvoiceResponse(invoice *payment.PaymentInvoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:          invoice.ID,
		Provider:    invoice.Provider,
		OrderID:     invoice.OrderID,
		OrderCode:   invoice.OrderCode,
		Amount:      invoice.Amount,
		Status:      invoice.Status,
		InvoiceNo:   invoice.InvoiceNo,
		CheckoutURL: invoice.CheckoutURL,
		QRCode:      invoice.QRCode,
		Deeplinks:   invoice.Deeplinks,
		RetryCount:  invoice.RetryCount,
	}
	if invoice.PaymentDate != nil {
		formatted := invoice.PaymentDate.Format("2006-01-02T15:04:05Z07:00")
		resp.PaymentDate = &formatted
	}
	return resp
}
