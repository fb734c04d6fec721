package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shoply/backend/internal/domain/shared"
)

// InvoiceStatus is the persisted state of a PaymentInvoice
type InvoiceStatus string

const (
	// InvoiceStatusCreated is the initial state, persisted before any external call
	InvoiceStatusCreated InvoiceStatus = "created"
	// InvoiceStatusPending means the provider accepted the invoice and awaits payment
	InvoiceStatusPending InvoiceStatus = "pending"
	// InvoiceStatusPaid means settlement was verified; terminal
	InvoiceStatusPaid InvoiceStatus = "paid"
	// InvoiceStatusError means a request cycle failed; the row keeps the evidence
	InvoiceStatusError InvoiceStatus = "error"
)

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is known
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusCreated, InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusError:
		return true
	default:
		return false
	}
}

// rank orders statuses for the monotonicity guard. paid never regresses.
func (s InvoiceStatus) rank() int {
	switch s {
	case InvoiceStatusCreated:
		return 0
	case InvoiceStatusPending:
		return 1
	case InvoiceStatusError:
		return 2
	case InvoiceStatusPaid:
		return 3
	default:
		return -1
	}
}

// CanTransitionTo reports whether the status may move to next. Statuses are
// monotonic; error may still become paid (a late settlement observed by a
// webhook), but paid is terminal.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	if s == InvoiceStatusPaid {
		return false
	}
	if s == InvoiceStatusError && next == InvoiceStatusPending {
		return true
	}
	return next.rank() > s.rank()
}

// Deeplink is one app-switch link returned by a provider
type Deeplink struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
	Link string `json:"link"`
}

// PaymentInvoice tracks one payment attempt against one provider. It is
// owned by the transaction orchestrator and mutated only through the
// transition methods below.
type PaymentInvoice struct {
	shared.BaseEntity
	Provider     Provider        `gorm:"type:varchar(32);not null;index"`
	ShopID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderCode    string          `gorm:"not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status       InvoiceStatus   `gorm:"type:varchar(16);not null;index"`
	InvoiceNo    string          `gorm:"column:invoiceno;index"`
	CheckoutURL  string
	QRCode       string     `gorm:"column:qrcode"`
	Deeplinks    []Deeplink `gorm:"serializer:json"`
	RetryCount   int        `gorm:"not null;default:0"`
	Response     string
	ErrorMessage string
	PaymentDate  *time.Time
}

// TableName returns the table name for GORM
func (PaymentInvoice) TableName() string {
	return "payment_invoices"
}

// NewPaymentInvoice creates an invoice in the created state. The row is
// persisted before any external call so no attempt is ever silently lost.
func NewPaymentInvoice(provider Provider, shopID, orderID uuid.UUID, orderCode string, amount decimal.Decimal) (*PaymentInvoice, error) {
	if !provider.IsValid() {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Unknown payment provider")
	}
	if shopID == uuid.Nil || orderID == uuid.Nil {
		return nil, shared.ErrInvalidInput
	}
	if orderCode == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_CODE", "Order code is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	return &PaymentInvoice{
		BaseEntity: shared.NewBaseEntity(),
		Provider:   provider,
		ShopID:     shopID,
		OrderID:    orderID,
		OrderCode:  orderCode,
		Amount:     amount,
		Status:     InvoiceStatusCreated,
		Deeplinks:  make([]Deeplink, 0),
	}, nil
}

// BillNo derives the provider-facing idempotency key for the current
// attempt. A retry keeps the invoice row but presents a fresh key, suffixed
// by the incremented retry count.
func (i *PaymentInvoice) BillNo() string {
	if i.RetryCount == 0 {
		return i.OrderCode
	}
	return fmt.Sprintf("%s-%d", i.OrderCode, i.RetryCount)
}

// IsPaid returns true if settlement has been verified
func (i *PaymentInvoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// BumpRetry increments the retry counter for a caller-driven retry.
// Paid invoices cannot be retried.
func (i *PaymentInvoice) BumpRetry() error {
	if i.IsPaid() {
		return ErrInvoiceAlreadyPaid
	}
	i.RetryCount++
	i.UpdatedAt = time.Now()
	return nil
}

// MarkPending records a successful create cycle along with the fields
// extracted from the provider response.
func (i *PaymentInvoice) MarkPending(invoiceNo, checkoutURL, qrcode string, deeplinks []Deeplink, rawResponse string) error {
	if !i.Status.CanTransitionTo(InvoiceStatusPending) {
		return shared.ErrInvalidState
	}
	i.Status = InvoiceStatusPending
	i.InvoiceNo = invoiceNo
	i.CheckoutURL = checkoutURL
	i.QRCode = qrcode
	if deeplinks != nil {
		i.Deeplinks = deeplinks
	}
	i.Response = rawResponse
	i.ErrorMessage = ""
	i.UpdatedAt = time.Now()
	return nil
}

// MarkPaid records verified settlement. Terminal.
func (i *PaymentInvoice) MarkPaid(at time.Time, rawResponse string) error {
	if i.IsPaid() {
		return ErrInvoiceAlreadyPaid
	}
	i.Status = InvoiceStatusPaid
	i.PaymentDate = &at
	if rawResponse != "" {
		i.Response = rawResponse
	}
	i.ErrorMessage = ""
	i.UpdatedAt = time.Now()
	return nil
}

// MarkError records a failed request cycle with the raw response and a
// caller-safe message. A paid invoice is never downgraded.
func (i *PaymentInvoice) MarkError(rawResponse, message string) error {
	if i.IsPaid() {
		return ErrInvoiceAlreadyPaid
	}
	i.Status = InvoiceStatusError
	i.Response = rawResponse
	i.ErrorMessage = message
	i.UpdatedAt = time.Now()
	return nil
}
