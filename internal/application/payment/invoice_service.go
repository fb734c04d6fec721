package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shoply/backend/internal/domain/payment"
	"github.com/shoply/backend/internal/domain/shared"
)

// SettlementHandler reacts to the first verified settlement of an invoice.
// Order fulfillment hangs off this hook; it runs at most once per invoice
// because only the check that wins the guarded paid transition calls it.
type SettlementHandler interface {
	HandlePaid(ctx context.Context, invoice *payment.PaymentInvoice) error
}

// InvoiceService owns the payment invoice lifecycle: create, caller-driven
// retry, and settlement checks reachable from both polling and webhooks.
type InvoiceService struct {
	executor    Executor
	invoiceRepo payment.InvoiceRepository
	auditRepo   payment.AuditLogRepository
	onPaid      SettlementHandler
	logger      *zap.Logger
}

// NewInvoiceService creates an InvoiceService
func NewInvoiceService(executor Executor, invoiceRepo payment.InvoiceRepository, auditRepo payment.AuditLogRepository, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		executor:    executor,
		invoiceRepo: invoiceRepo,
		auditRepo:   auditRepo,
		logger:      logger,
	}
}

// SetSettlementHandler wires the hook invoked on first verified settlement
func (s *InvoiceService) SetSettlementHandler(handler SettlementHandler) {
	s.onPaid = handler
}

// CreatePaymentInvoice opens a payment attempt: the invoice row is persisted
// in the created state before any external call, then one create cycle runs
// against the provider. A failed cycle leaves the row in the error state
// with the evidence attached and returns the error.
func (s *InvoiceService) CreatePaymentInvoice(ctx context.Context, in CreateInvoiceInput) (*payment.PaymentInvoice, error) {
	invoice, err := payment.NewPaymentInvoice(in.Provider, in.ShopID, in.OrderID, in.OrderCode, in.Amount)
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, err
	}

	if err := s.runCreateCycle(ctx, invoice, in.Description, in.CallbackURL); err != nil {
		return invoice, err
	}
	return invoice, nil
}

// RetryPaymentInvoice re-runs the create cycle for an existing invoice with
// a fresh bill number. The invoice row is reused; only the retry counter
// moves. Paid invoices cannot be retried.
func (s *InvoiceService) RetryPaymentInvoice(ctx context.Context, invoiceID uuid.UUID) (*payment.PaymentInvoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := invoice.BumpRetry(); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}

	if err := s.runCreateCycle(ctx, invoice, "", ""); err != nil {
		return invoice, err
	}
	return invoice, nil
}

// runCreateCycle executes one create cycle and records its outcome on the
// invoice row.
func (s *InvoiceService) runCreateCycle(ctx context.Context, invoice *payment.PaymentInvoice, description, callbackURL string) error {
	extras := map[string]any{
		"amount":     invoice.Amount.String(),
		"bill_no":    invoice.BillNo(),
		"order_code": invoice.OrderCode,
		"order_id":   invoice.OrderID.String(),
		"invoice_id": invoice.ID.String(),
	}
	if description != "" {
		extras["description"] = description
	}
	if callbackURL != "" {
		extras["callback_url"] = callbackURL
	}

	orderID := invoice.OrderID
	result, err := s.executor.Execute(ctx, ExecuteInput{
		Provider: invoice.Provider,
		Action:   payment.ActionCreateInvoice,
		ShopID:   invoice.ShopID,
		OrderID:  &orderID,
		Extras:   extras,
	})
	if err != nil {
		s.recordFailure(ctx, invoice, err)
		return err
	}

	deeplinks := toDeeplinks(result.Fields["deeplinks"])
	if markErr := invoice.MarkPending(
		asString(result.Fields["invoice_no"]),
		asString(result.Fields["checkout_url"]),
		asString(result.Fields["qrcode"]),
		deeplinks,
		string(result.Response.Raw),
	); markErr != nil {
		return markErr
	}
	return s.invoiceRepo.Update(ctx, invoice)
}

// recordFailure moves the invoice into the error state with whatever
// evidence the failure carries. Condition failures keep the raw provider
// payload; transport and build failures only have a message.
func (s *InvoiceService) recordFailure(ctx context.Context, invoice *payment.PaymentInvoice, cause error) {
	raw := ""
	var condErr *payment.ConditionFailure
	if errors.As(cause, &condErr) {
		raw = condErr.Response
	}
	if err := s.invoiceRepo.MarkError(ctx, invoice.ID, raw, cause.Error()); err != nil {
		s.logger.Error("failed to record invoice error",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
	}
	_ = invoice.MarkError(raw, cause.Error())
}

// CheckInvoice verifies settlement. Paid invoices are memoized: the stored
// result is returned with zero outbound calls. Otherwise one check cycle
// runs; passing conditions win the guarded paid transition, failing ones
// simply mean "not paid yet" and leave the row alone.
func (s *InvoiceService) CheckInvoice(ctx context.Context, in CheckInvoiceInput) (*payment.PaymentInvoice, error) {
	invoice, err := s.resolveInvoice(ctx, in)
	if err != nil {
		return nil, err
	}

	if invoice.IsPaid() {
		return invoice, nil
	}

	orderID := invoice.OrderID
	result, err := s.executor.Execute(ctx, ExecuteInput{
		Provider: invoice.Provider,
		Action:   payment.ActionCheckInvoice,
		ShopID:   invoice.ShopID,
		OrderID:  &orderID,
		Extras: map[string]any{
			"invoiceno":  invoice.InvoiceNo,
			"bill_no":    invoice.BillNo(),
			"order_code": invoice.OrderCode,
			"order_id":   invoice.OrderID.String(),
			"amount":     invoice.Amount.String(),
		},
	})
	if err != nil {
		var condErr *payment.ConditionFailure
		if errors.As(err, &condErr) {
			// The provider answered and the invoice is simply unpaid
			s.logger.Debug("settlement not confirmed",
				zap.String("provider", invoice.Provider.String()),
				zap.String("invoiceno", invoice.InvoiceNo))
			return invoice, nil
		}
		// Transport and auth failures leave the row untouched: settlement
		// state is unknown, not failed, and the caller polls again.
		return nil, err
	}

	paidAt := settlementTime(result.Fields)
	raw := string(result.Response.Raw)

	won, err := s.invoiceRepo.MarkPaid(ctx, invoice.ID, paidAt, raw)
	if err != nil {
		return nil, err
	}
	_ = invoice.MarkPaid(paidAt, raw)

	if won && s.onPaid != nil {
		if hookErr := s.onPaid.HandlePaid(ctx, invoice); hookErr != nil {
			// Settlement already stands; fulfillment retries out-of-band
			s.logger.Error("settlement hook failed",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(hookErr))
		}
	}
	return invoice, nil
}

// InvoicesByOrder lists all payment attempts for an order, newest first
func (s *InvoiceService) InvoicesByOrder(ctx context.Context, orderID uuid.UUID) ([]payment.PaymentInvoice, error) {
	return s.invoiceRepo.FindByOrder(ctx, orderID)
}

// AuditTrail lists the masked outbound request log for an order
func (s *InvoiceService) AuditTrail(ctx context.Context, orderID uuid.UUID) ([]payment.RequestAuditLog, error) {
	return s.auditRepo.ListByOrder(ctx, orderID)
}

// resolveInvoice finds the invoice a check refers to. InvoiceID wins, then
// provider+invoice number, then the newest invoice of the order.
func (s *InvoiceService) resolveInvoice(ctx context.Context, in CheckInvoiceInput) (*payment.PaymentInvoice, error) {
	switch {
	case in.InvoiceID != nil:
		return s.invoiceRepo.FindByID(ctx, *in.InvoiceID)
	case in.InvoiceNo != "" && in.Provider != "":
		return s.invoiceRepo.FindByInvoiceNo(ctx, in.Provider, in.InvoiceNo)
	case in.OrderID != nil:
		invoices, err := s.invoiceRepo.FindByOrder(ctx, *in.OrderID)
		if err != nil {
			return nil, err
		}
		if len(invoices) == 0 {
			return nil, shared.ErrNotFound
		}
		return &invoices[0], nil
	default:
		return nil, shared.ErrInvalidInput
	}
}

// settlementTime takes the provider-reported settlement timestamp when the
// response selectors extracted one, else the observation time.
func settlementTime(fields map[string]any) time.Time {
	if raw := asString(fields["payment_date"]); raw != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts
			}
		}
	}
	return time.Now()
}

// toDeeplinks converts the extracted deeplink list into domain form
func toDeeplinks(v any) []payment.Deeplink {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	links := make([]payment.Deeplink, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		links = append(links, payment.Deeplink{
			Name: asString(m["name"]),
			Logo: asString(m["logo"]),
			Link: asString(m["link"]),
		})
	}
	return links
}
