package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shoply/backend/internal/domain/payment"
	"github.com/shoply/backend/internal/domain/shared"
)

// MockExecutor is a mock implementation of Executor
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, in ExecuteInput) (*ExecuteResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ExecuteResult), args.Error(1)
}

// MockInvoiceRepository is a mock implementation of payment.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *payment.PaymentInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.PaymentInvoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentInvoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByInvoiceNo(ctx context.Context, provider payment.Provider, invoiceNo string) (*payment.PaymentInvoice, error) {
	args := m.Called(ctx, provider, invoiceNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentInvoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]payment.PaymentInvoice, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.PaymentInvoice), args.Error(1)
}

func (m *MockInvoiceRepository) Update(ctx context.Context, invoice *payment.PaymentInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, rawResponse string) (bool, error) {
	args := m.Called(ctx, id, paidAt, rawResponse)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) MarkError(ctx context.Context, id uuid.UUID, rawResponse, message string) error {
	args := m.Called(ctx, id, rawResponse, message)
	return args.Error(0)
}

// MockSettlementHandler is a mock implementation of SettlementHandler
type MockSettlementHandler struct {
	mock.Mock
}

func (m *MockSettlementHandler) HandlePaid(ctx context.Context, invoice *payment.PaymentInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

type invoiceServiceFixture struct {
	executor *MockExecutor
	invoices *MockInvoiceRepository
	audits   *MockAuditLogRepository
	svc      *InvoiceService
}

func newInvoiceServiceFixture() *invoiceServiceFixture {
	f := &invoiceServiceFixture{
		executor: new(MockExecutor),
		invoices: new(MockInvoiceRepository),
		audits:   new(MockAuditLogRepository),
	}
	f.svc = NewInvoiceService(f.executor, f.invoices, f.audits, nil)
	return f
}

func pendingInvoice(t *testing.T) *payment.PaymentInvoice {
	t.Helper()
	invoice, err := payment.NewPaymentInvoice(
		payment.ProviderQPay, uuid.New(), uuid.New(), "ORD-1001", decimal.NewFromInt(15000))
	require.NoError(t, err)
	require.NoError(t, invoice.MarkPending("INV-7", "https://pay.example/7", "QR...", nil, `{"invoice_id":"INV-7"}`))
	return invoice
}

func TestInvoiceService_CreatePaymentInvoice(t *testing.T) {
	t.Run("persists before calling and marks pending on success", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		var callOrder []string
		f.invoices.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			callOrder = append(callOrder, "create")
			created := args.Get(1).(*payment.PaymentInvoice)
			assert.Equal(t, payment.InvoiceStatusCreated, created.Status)
		}).Return(nil)

		f.executor.On("Execute", mock.Anything, mock.MatchedBy(func(in ExecuteInput) bool {
			return in.Action == payment.ActionCreateInvoice &&
				in.Extras["amount"] == "15000" &&
				in.Extras["bill_no"] == "ORD-1001"
		})).Run(func(mock.Arguments) {
			callOrder = append(callOrder, "execute")
		}).Return(&ExecuteResult{
			Fields: map[string]any{
				"invoice_no":   "INV-7",
				"checkout_url": "https://pay.example/7",
				"qrcode":       "QR...",
				"deeplinks": []any{
					map[string]any{"name": "qPay wallet", "link": "qpay://inv/7"},
				},
			},
			Response: &payment.GatewayResponse{Raw: []byte(`{"invoice_id":"INV-7"}`)},
		}, nil)
		f.invoices.On("Update", mock.Anything, mock.Anything).Return(nil)

		invoice, err := f.svc.CreatePaymentInvoice(context.Background(), CreateInvoiceInput{
			Provider:  payment.ProviderQPay,
			ShopID:    uuid.New(),
			OrderID:   uuid.New(),
			OrderCode: "ORD-1001",
			Amount:    decimal.NewFromInt(15000),
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"create", "execute"}, callOrder)
		assert.Equal(t, payment.InvoiceStatusPending, invoice.Status)
		assert.Equal(t, "INV-7", invoice.InvoiceNo)
		assert.Equal(t, "https://pay.example/7", invoice.CheckoutURL)
		require.Len(t, invoice.Deeplinks, 1)
		assert.Equal(t, "qpay://inv/7", invoice.Deeplinks[0].Link)
	})

	t.Run("provider rejection leaves the row in error state", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		f.invoices.On("Create", mock.Anything, mock.Anything).Return(nil)
		condErr := payment.NewConditionFailure(payment.ProviderQPay, "Гүйлгээ амжилтгүй", `{"error":"NO_CREDIT"}`)
		f.executor.On("Execute", mock.Anything, mock.Anything).Return(nil, condErr)
		f.invoices.On("MarkError", mock.Anything, mock.Anything, `{"error":"NO_CREDIT"}`, "Гүйлгээ амжилтгүй").Return(nil)

		invoice, err := f.svc.CreatePaymentInvoice(context.Background(), CreateInvoiceInput{
			Provider:  payment.ProviderQPay,
			ShopID:    uuid.New(),
			OrderID:   uuid.New(),
			OrderCode: "ORD-1002",
			Amount:    decimal.NewFromInt(9000),
		})
		require.Error(t, err)
		assert.Equal(t, payment.InvoiceStatusError, invoice.Status)
		f.invoices.AssertCalled(t, "MarkError", mock.Anything, invoice.ID, `{"error":"NO_CREDIT"}`, "Гүйлгээ амжилтгүй")
		f.invoices.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("invalid amount fails before any persistence", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		_, err := f.svc.CreatePaymentInvoice(context.Background(), CreateInvoiceInput{
			Provider:  payment.ProviderQPay,
			ShopID:    uuid.New(),
			OrderID:   uuid.New(),
			OrderCode: "ORD-1003",
			Amount:    decimal.Zero,
		})
		require.Error(t, err)
		f.invoices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})
}

func TestInvoiceService_RetryPaymentInvoice(t *testing.T) {
	t.Run("presents a fresh bill number", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		invoice, err := payment.NewPaymentInvoice(
			payment.ProviderQPay, uuid.New(), uuid.New(), "ORD-2001", decimal.NewFromInt(5000))
		require.NoError(t, err)
		require.NoError(t, invoice.MarkError(`{"error":"timeout"}`, "timeout"))

		f.invoices.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		f.invoices.On("Update", mock.Anything, mock.Anything).Return(nil)
		f.executor.On("Execute", mock.Anything, mock.MatchedBy(func(in ExecuteInput) bool {
			return in.Extras["bill_no"] == "ORD-2001-1"
		})).Return(&ExecuteResult{
			Fields:   map[string]any{"invoice_no": "INV-R1"},
			Response: &payment.GatewayResponse{Raw: []byte(`{"invoice_id":"INV-R1"}`)},
		}, nil)

		retried, err := f.svc.RetryPaymentInvoice(context.Background(), invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, retried.RetryCount)
		assert.Equal(t, payment.InvoiceStatusPending, retried.Status)
		assert.Equal(t, "INV-R1", retried.InvoiceNo)
	})

	t.Run("paid invoice cannot be retried", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		invoice := pendingInvoice(t)
		require.NoError(t, invoice.MarkPaid(time.Now(), ""))
		f.invoices.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)

		_, err := f.svc.RetryPaymentInvoice(context.Background(), invoice.ID)
		assert.ErrorIs(t, err, payment.ErrInvoiceAlreadyPaid)
		f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})
}

func TestInvoiceService_CheckInvoice(t *testing.T) {
	t.Run("paid invoice is memoized with zero outbound calls", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		invoice := pendingInvoice(t)
		require.NoError(t, invoice.MarkPaid(time.Now(), ""))
		f.invoices.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)

		id := invoice.ID
		got, err := f.svc.CheckInvoice(context.Background(), CheckInvoiceInput{InvoiceID: &id})
		require.NoError(t, err)
		assert.True(t, got.IsPaid())
		f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
		f.invoices.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("verified settlement wins the paid transition and fires the hook", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		handler := new(MockSettlementHandler)
		f.svc.SetSettlementHandler(handler)

		invoice := pendingInvoice(t)
		f.invoices.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		f.executor.On("Execute", mock.Anything, mock.MatchedBy(func(in ExecuteInput) bool {
			return in.Action == payment.ActionCheckInvoice && in.Extras["invoiceno"] == "INV-7"
		})).Return(&ExecuteResult{
			Fields:   map[string]any{"payment_date": "2026-08-30T14:05:00Z"},
			Response: &payment.GatewayResponse{Raw: []byte(`{"payment_status":"PAID"}`)},
		}, nil)

		wantPaidAt, _ := time.Parse(time.RFC3339, "2026-08-30T14:05:00Z")
		f.invoices.On("MarkPaid", mock.Anything, invoice.ID, wantPaidAt, `{"payment_status":"PAID"}`).Return(true, nil)
		handler.On("HandlePaid", mock.Anything, mock.Anything).Return(nil)

		id := invoice.ID
		got, err := f.svc.CheckInvoice(context.Background(), CheckInvoiceInput{InvoiceID: &id})
		require.NoError(t, err)
		assert.True(t, got.IsPaid())
		require.NotNil(t, got.PaymentDate)
		assert.True(t, got.PaymentDate.Equal(wantPaidAt))
		handler.AssertCalled(t, "HandlePaid", mock.Anything, mock.Anything)
	})

	t.Run("losing the settlement race is success without the hook", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		handler := new(MockSettlementHandler)
		f.svc.SetSettlementHandler(handler)

		invoice := pendingInvoice(t)
		f.invoices.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		f.executor.On("Execute", mock.Anything, mock.Anything).Return(&ExecuteResult{
			Fields:   map[string]any{},
			Response: &payment.GatewayResponse{Raw: []byte(`{"payment_status":"PAID"}`)},
		}, nil)
		f.invoices.On("MarkPaid", mock.Anything, invoice.ID, mock.Anything, mock.Anything).Return(false, nil)

		id := invoice.ID
		got, err := f.svc.CheckInvoice(context.Background(), CheckInvoiceInput{InvoiceID: &id})
		require.NoError(t, err)
		assert.True(t, got.IsPaid())
		handler.AssertNotCalled(t, "HandlePaid", mock.Anything, mock.Anything)
	})

	t.Run("unpaid provider answer is not an error", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		invoice := pendingInvoice(t)
		f.invoices.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		condErr := payment.NewConditionFailure(payment.ProviderQPay, "Төлбөр төлөгдөөгүй байна", `{"payment_status":"NEW"}`)
		f.executor.On("Execute", mock.Anything, mock.Anything).Return(nil, condErr)

		id := invoice.ID
		got, err := f.svc.CheckInvoice(context.Background(), CheckInvoiceInput{InvoiceID: &id})
		require.NoError(t, err)
		assert.Equal(t, payment.InvoiceStatusPending, got.Status)
		f.invoices.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("transport failure propagates without state change", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		invoice := pendingInvoice(t)
		f.invoices.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)
		netErr := payment.NewNetworkError(payment.ProviderQPay, payment.ActionCheckInvoice, errors.New("connection reset"))
		f.executor.On("Execute", mock.Anything, mock.Anything).Return(nil, netErr)

		id := invoice.ID
		_, err := f.svc.CheckInvoice(context.Background(), CheckInvoiceInput{InvoiceID: &id})
		var gotErr *payment.NetworkError
		require.ErrorAs(t, err, &gotErr)
		f.invoices.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.invoices.AssertNotCalled(t, "MarkError", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("resolves by provider and invoice number", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		invoice := pendingInvoice(t)
		require.NoError(t, invoice.MarkPaid(time.Now(), ""))
		f.invoices.On("FindByInvoiceNo", mock.Anything, payment.ProviderQPay, "INV-7").Return(invoice, nil)

		got, err := f.svc.CheckInvoice(context.Background(), CheckInvoiceInput{
			Provider:  payment.ProviderQPay,
			InvoiceNo: "INV-7",
		})
		require.NoError(t, err)
		assert.True(t, got.IsPaid())
	})

	t.Run("falls back to the latest invoice of an order", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		invoice := pendingInvoice(t)
		require.NoError(t, invoice.MarkPaid(time.Now(), ""))
		orderID := invoice.OrderID
		f.invoices.On("FindByOrder", mock.Anything, orderID).Return([]payment.PaymentInvoice{*invoice}, nil)

		got, err := f.svc.CheckInvoice(context.Background(), CheckInvoiceInput{OrderID: &orderID})
		require.NoError(t, err)
		assert.True(t, got.IsPaid())
	})

	t.Run("order without invoices", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		orderID := uuid.New()
		f.invoices.On("FindByOrder", mock.Anything, orderID).Return([]payment.PaymentInvoice{}, nil)

		_, err := f.svc.CheckInvoice(context.Background(), CheckInvoiceInput{OrderID: &orderID})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("no identifier at all", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		_, err := f.svc.CheckInvoice(context.Background(), CheckInvoiceInput{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestInvoiceService_AuditTrail(t *testing.T) {
	f := newInvoiceServiceFixture()

	orderID := uuid.New()
	f.audits.On("ListByOrder", mock.Anything, orderID).Return([]payment.RequestAuditLog{
		{Provider: payment.ProviderQPay, Action: payment.ActionAuth, Status: payment.AuditStatusSuccess},
		{Provider: payment.ProviderQPay, Action: payment.ActionCreateInvoice, Status: payment.AuditStatusSuccess},
	}, nil)

	entries, err := f.svc.AuditTrail(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, payment.ActionAuth, entries[0].Action)
}
