package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GatewayRequest is a fully built outbound request, ready for provider
// pre-processing and dispatch.
type GatewayRequest struct {
	Provider Provider
	Action   Action
	Method   string
	URL      string
	Encoding RequestEncoding
	Headers  map[string]string
	Body     map[string]any
}

// GatewayResponse is the decoded result of one outbound call. Tree is nil
// when the payload was not a JSON object; conditions then address nothing
// and fail closed.
type GatewayResponse struct {
	StatusCode int
	Raw        []byte
	Tree       map[string]any
}

// GatewayClient executes a built request against a provider endpoint.
// Implementations own per-call timeouts, bounded retry for idempotent
// actions and per-provider circuit breaking.
type GatewayClient interface {
	Do(ctx context.Context, req *GatewayRequest) (*GatewayResponse, error)
}

// ProviderAdapter mutates an already-built request with provider-specific
// pre-processing such as checksums or signing. Adapters never perform I/O.
type ProviderAdapter interface {
	Provider() Provider
	Adapt(ctx context.Context, req *GatewayRequest, rctx *Context) error
}

// AdapterRegistry resolves the adapter for a provider. Unknown providers
// get the identity adapter, matching default pass-through behavior.
type AdapterRegistry interface {
	Get(provider Provider) ProviderAdapter
}

// ProviderConfigRepository reads provider config rows. SaveOption is the
// single, explicitly scoped write this core performs against a row: caching
// a reusable auth credential under one option key.
type ProviderConfigRepository interface {
	FindByUID(ctx context.Context, provider Provider) (*ProviderConfig, error)
	SaveOption(ctx context.Context, provider Provider, key, value string) error
}

// InvoiceRepository persists payment invoices. Status transitions use
// conditional updates keyed on the prior state so concurrent checks are safe.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *PaymentInvoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentInvoice, error)
	FindByInvoiceNo(ctx context.Context, provider Provider, invoiceNo string) (*PaymentInvoice, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentInvoice, error)
	// Update persists mutable fields; rows already paid are left untouched.
	Update(ctx context.Context, invoice *PaymentInvoice) error
	// MarkPaid performs the guarded paid transition. Returns false when a
	// concurrent check already won; that is success, not an error.
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, rawResponse string) (bool, error)
	// MarkError records a failed cycle unless the invoice is already paid.
	MarkError(ctx context.Context, id uuid.UUID, rawResponse, message string) error
}

// AuditLogRepository appends immutable request audit rows
type AuditLogRepository interface {
	Create(ctx context.Context, entry *RequestAuditLog) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]RequestAuditLog, error)
}

// CredentialStore caches auth credentials per provider with a TTL. Saving
// here is the named side effect of a successful auth refresh.
type CredentialStore interface {
	Get(ctx context.Context, provider Provider) (map[string]string, error)
	Save(ctx context.Context, provider Provider, credentials map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, provider Provider) error
}

// MerchantService supplies decrypted per-merchant options for a shop.
// Owned by a collaborator; this core only consumes the interface.
type MerchantService interface {
	MerchantOptions(ctx context.Context, shopID uuid.UUID, includeSensitive bool) (map[string]string, error)
}
