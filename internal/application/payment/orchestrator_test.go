package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shoply/backend/internal/domain/payment"
	"github.com/shoply/backend/internal/domain/shared"
)

// MockProviderConfigRepository is a mock implementation of payment.ProviderConfigRepository
type MockProviderConfigRepository struct {
	mock.Mock
}

func (m *MockProviderConfigRepository) FindByUID(ctx context.Context, provider payment.Provider) (*payment.ProviderConfig, error) {
	args := m.Called(ctx, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.ProviderConfig), args.Error(1)
}

func (m *MockProviderConfigRepository) SaveOption(ctx context.Context, provider payment.Provider, key, value string) error {
	args := m.Called(ctx, provider, key, value)
	return args.Error(0)
}

// MockGatewayClient is a mock implementation of payment.GatewayClient
type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) Do(ctx context.Context, req *payment.GatewayRequest) (*payment.GatewayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.GatewayResponse), args.Error(1)
}

// MockAuditLogRepository is a mock implementation of payment.AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Create(ctx context.Context, entry *payment.RequestAuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]payment.RequestAuditLog, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.RequestAuditLog), args.Error(1)
}

// MockCredentialStore is a mock implementation of payment.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Get(ctx context.Context, provider payment.Provider) (map[string]string, error) {
	args := m.Called(ctx, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockCredentialStore) Save(ctx context.Context, provider payment.Provider, credentials map[string]string, ttl time.Duration) error {
	args := m.Called(ctx, provider, credentials, ttl)
	return args.Error(0)
}

func (m *MockCredentialStore) Delete(ctx context.Context, provider payment.Provider) error {
	args := m.Called(ctx, provider)
	return args.Error(0)
}

// passthroughAdapter leaves requests untouched, like unregistered providers
type passthroughAdapter struct {
	provider payment.Provider
}

func (a passthroughAdapter) Provider() payment.Provider { return a.provider }

func (a passthroughAdapter) Adapt(_ context.Context, _ *payment.GatewayRequest, _ *payment.Context) error {
	return nil
}

type passthroughRegistry struct{}

func (passthroughRegistry) Get(provider payment.Provider) payment.ProviderAdapter {
	return passthroughAdapter{provider: provider}
}

type orchestratorFixture struct {
	configRepo *MockProviderConfigRepository
	client     *MockGatewayClient
	auditRepo  *MockAuditLogRepository
	credStore  *MockCredentialStore
	orch       *Orchestrator
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		configRepo: new(MockProviderConfigRepository),
		client:     new(MockGatewayClient),
		auditRepo:  new(MockAuditLogRepository),
		credStore:  new(MockCredentialStore),
	}
	f.orch = NewOrchestrator(f.configRepo, f.client, passthroughRegistry{}, f.auditRepo, f.credStore, nil, time.Hour)
	return f
}

// qpayConfig is a realistic declarative config: a token-guarded auth block,
// a create block with a localized failure message and a check block whose
// condition asserts the settled state.
func qpayConfig() *payment.ProviderConfig {
	return &payment.ProviderConfig{
		BaseEntity: shared.NewBaseEntity(),
		UID:        payment.ProviderQPay,
		APIURL:     "https://merchant.qpay.mn",
		AuthParams: &payment.RequestParams{
			URI:    "{{api_url}}/v2/auth/token",
			Method: "POST",
			Selectors: []payment.Selector{
				{Field: "client_id", From: payment.SourceOptions, Selector: "client_id"},
				{Field: "client_secret", From: payment.SourceOptions, Selector: "client_secret"},
			},
			Conditions: []payment.SuccessCondition{
				{Condition: payment.ConditionNotNull, Selector: "options.access_token"},
			},
			ResponseSelectors: []payment.ResponseSelector{
				{Field: "access_token", Selector: "response.access_token"},
			},
			SensitiveSelectors: []string{"client_secret"},
		},
		CreateParams: payment.RequestParams{
			URI:    "{{api_url}}/v2/invoice",
			Method: "POST",
			Selectors: []payment.Selector{
				{Field: "amount", From: payment.SourceTemplate, Selector: "{{amount}}"},
				{Field: "sender_invoice_no", From: payment.SourceTemplate, Selector: "{{bill_no}}"},
			},
			Headers: []payment.Selector{
				{Field: "Authorization", From: payment.SourceTemplate, Selector: "Bearer {{options.access_token}}"},
			},
			Conditions: []payment.SuccessCondition{
				{Condition: payment.ConditionNotNull, Selector: "response.invoice_id", Message: "Нэхэмжлэх үүсгэж чадсангүй"},
			},
			ResponseSelectors: []payment.ResponseSelector{
				{Field: "invoice_no", Selector: "response.invoice_id"},
				{Field: "qrcode", Selector: "response.qr_text"},
			},
			SensitiveSelectors: []string{"Authorization"},
		},
		CheckParams: payment.RequestParams{
			URI:    "{{api_url}}/v2/payment/check",
			Method: "POST",
			Selectors: []payment.Selector{
				{Field: "invoice_id", From: payment.SourceTemplate, Selector: "{{invoiceno}}"},
			},
			Headers: []payment.Selector{
				{Field: "Authorization", From: payment.SourceTemplate, Selector: "Bearer {{options.access_token}}"},
			},
			Conditions: []payment.SuccessCondition{
				{Condition: payment.ConditionEqual, Selector: "response.payment_status", Value: "PAID", Message: "Төлбөр төлөгдөөгүй байна"},
			},
			ResponseSelectors: []payment.ResponseSelector{
				{Field: "payment_date", Selector: "response.payment_date"},
			},
			SensitiveSelectors: []string{"Authorization"},
		},
		Options: []payment.Option{
			{Key: "client_id", Value: "shoply"},
			{Key: "client_secret", Value: "s3cret", Sensitive: true},
		},
	}
}

func createInput() ExecuteInput {
	return ExecuteInput{
		Provider: payment.ProviderQPay,
		Action:   payment.ActionCreateInvoice,
		ShopID:   uuid.New(),
		Extras: map[string]any{
			"amount":  "15000",
			"bill_no": "ORD-1001",
		},
	}
}

func TestOrchestrator_Execute_RefreshesAuthThenCreates(t *testing.T) {
	f := newOrchestratorFixture()
	in := createInput()

	f.configRepo.On("FindByUID", mock.Anything, payment.ProviderQPay).Return(qpayConfig(), nil)
	f.credStore.On("Get", mock.Anything, payment.ProviderQPay).Return(nil, nil)

	f.client.On("Do", mock.Anything, mock.MatchedBy(func(req *payment.GatewayRequest) bool {
		return req.Action == payment.ActionAuth
	})).Return(&payment.GatewayResponse{
		StatusCode: 200,
		Raw:        []byte(`{"access_token":"tok-1"}`),
		Tree:       map[string]any{"access_token": "tok-1"},
	}, nil).Once()

	f.client.On("Do", mock.Anything, mock.MatchedBy(func(req *payment.GatewayRequest) bool {
		return req.Action == payment.ActionCreateInvoice
	})).Return(&payment.GatewayResponse{
		StatusCode: 200,
		Raw:        []byte(`{"invoice_id":"INV-7","qr_text":"QR..."}`),
		Tree:       map[string]any{"invoice_id": "INV-7", "qr_text": "QR..."},
	}, nil).Once()

	f.credStore.On("Save", mock.Anything, payment.ProviderQPay, map[string]string{"access_token": "tok-1"}, time.Hour).Return(nil)
	f.auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.orch.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "INV-7", result.Fields["invoice_no"])
	assert.Equal(t, "QR...", result.Fields["qrcode"])

	f.client.AssertNumberOfCalls(t, "Do", 2)
	f.credStore.AssertCalled(t, "Save", mock.Anything, payment.ProviderQPay, map[string]string{"access_token": "tok-1"}, time.Hour)
	// one audit row per outbound call
	f.auditRepo.AssertNumberOfCalls(t, "Create", 2)
	f.configRepo.AssertNotCalled(t, "SaveOption", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_Execute_SkipsAuthWhenCachedTokenValid(t *testing.T) {
	f := newOrchestratorFixture()
	in := createInput()

	f.configRepo.On("FindByUID", mock.Anything, payment.ProviderQPay).Return(qpayConfig(), nil)
	f.credStore.On("Get", mock.Anything, payment.ProviderQPay).Return(map[string]string{"access_token": "cached"}, nil)

	var created *payment.GatewayRequest
	f.client.On("Do", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*payment.GatewayRequest)
	}).Return(&payment.GatewayResponse{
		StatusCode: 200,
		Raw:        []byte(`{"invoice_id":"INV-8"}`),
		Tree:       map[string]any{"invoice_id": "INV-8"},
	}, nil).Once()
	f.auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.orch.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "INV-8", result.Fields["invoice_no"])

	f.client.AssertNumberOfCalls(t, "Do", 1)
	require.NotNil(t, created)
	assert.Equal(t, payment.ActionCreateInvoice, created.Action)
	assert.Equal(t, "Bearer cached", created.Headers["Authorization"])
}

func TestOrchestrator_Execute_AuthWithoutCredentialsFails(t *testing.T) {
	f := newOrchestratorFixture()
	in := createInput()

	f.configRepo.On("FindByUID", mock.Anything, payment.ProviderQPay).Return(qpayConfig(), nil)
	f.credStore.On("Get", mock.Anything, payment.ProviderQPay).Return(nil, nil)
	f.client.On("Do", mock.Anything, mock.Anything).Return(&payment.GatewayResponse{
		StatusCode: 200,
		Raw:        []byte(`{"error":"invalid_client"}`),
		Tree:       map[string]any{"error": "invalid_client"},
	}, nil).Once()
	f.auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.orch.Execute(context.Background(), in)
	require.Error(t, err)

	var authErr *payment.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, payment.ErrEmptyAuthResponse)
	f.credStore.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.client.AssertNumberOfCalls(t, "Do", 1)
}

func TestOrchestrator_Execute_ConditionFailure(t *testing.T) {
	f := newOrchestratorFixture()
	in := createInput()

	f.configRepo.On("FindByUID", mock.Anything, payment.ProviderQPay).Return(qpayConfig(), nil)
	f.credStore.On("Get", mock.Anything, payment.ProviderQPay).Return(map[string]string{"access_token": "cached"}, nil)

	raw := `{"error":"NO_CREDIT"}`
	f.client.On("Do", mock.Anything, mock.Anything).Return(&payment.GatewayResponse{
		StatusCode: 200,
		Raw:        []byte(raw),
		Tree:       map[string]any{"error": "NO_CREDIT"},
	}, nil).Once()

	var audited *payment.RequestAuditLog
	f.auditRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		audited = args.Get(1).(*payment.RequestAuditLog)
	}).Return(nil)

	_, err := f.orch.Execute(context.Background(), in)
	require.Error(t, err)

	var condErr *payment.ConditionFailure
	require.ErrorAs(t, err, &condErr)
	assert.Equal(t, "Нэхэмжлэх үүсгэж чадсангүй", condErr.Message)
	assert.Equal(t, raw, condErr.Response)

	require.NotNil(t, audited)
	assert.Equal(t, payment.AuditStatusFailed, audited.Status)
}

func TestOrchestrator_Execute_TransportFailureIsAudited(t *testing.T) {
	f := newOrchestratorFixture()
	in := createInput()

	f.configRepo.On("FindByUID", mock.Anything, payment.ProviderQPay).Return(qpayConfig(), nil)
	f.credStore.On("Get", mock.Anything, payment.ProviderQPay).Return(map[string]string{"access_token": "cached"}, nil)

	netErr := payment.NewNetworkError(payment.ProviderQPay, payment.ActionCreateInvoice, errors.New("connection refused"))
	f.client.On("Do", mock.Anything, mock.Anything).Return(nil, netErr).Once()

	var audited *payment.RequestAuditLog
	f.auditRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		audited = args.Get(1).(*payment.RequestAuditLog)
	}).Return(nil)

	_, err := f.orch.Execute(context.Background(), in)
	var gotErr *payment.NetworkError
	require.ErrorAs(t, err, &gotErr)

	require.NotNil(t, audited)
	assert.Equal(t, payment.AuditStatusFailed, audited.Status)
	assert.Empty(t, audited.Response)
}

func TestOrchestrator_Execute_AuditMasksSensitiveValues(t *testing.T) {
	f := newOrchestratorFixture()
	in := createInput()

	f.configRepo.On("FindByUID", mock.Anything, payment.ProviderQPay).Return(qpayConfig(), nil)
	f.credStore.On("Get", mock.Anything, payment.ProviderQPay).Return(map[string]string{"access_token": "super-secret-token"}, nil)
	f.client.On("Do", mock.Anything, mock.Anything).Return(&payment.GatewayResponse{
		StatusCode: 200,
		Raw:        []byte(`{"invoice_id":"INV-9"}`),
		Tree:       map[string]any{"invoice_id": "INV-9"},
	}, nil).Once()

	var audited *payment.RequestAuditLog
	f.auditRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		audited = args.Get(1).(*payment.RequestAuditLog)
	}).Return(nil)

	_, err := f.orch.Execute(context.Background(), in)
	require.NoError(t, err)

	require.NotNil(t, audited)
	assert.NotContains(t, audited.Headers, "super-secret-token")
	assert.Contains(t, audited.Headers, "***")
}

func TestOrchestrator_Execute_PersistsCredentialsWhenOptedIn(t *testing.T) {
	f := newOrchestratorFixture()
	in := createInput()

	cfg := qpayConfig()
	cfg.Options = append(cfg.Options, payment.Option{Key: "persist_credentials", Value: "true"})

	f.configRepo.On("FindByUID", mock.Anything, payment.ProviderQPay).Return(cfg, nil)
	f.credStore.On("Get", mock.Anything, payment.ProviderQPay).Return(nil, nil)

	f.client.On("Do", mock.Anything, mock.MatchedBy(func(req *payment.GatewayRequest) bool {
		return req.Action == payment.ActionAuth
	})).Return(&payment.GatewayResponse{
		StatusCode: 200,
		Raw:        []byte(`{"access_token":"tok-2"}`),
		Tree:       map[string]any{"access_token": "tok-2"},
	}, nil).Once()
	f.client.On("Do", mock.Anything, mock.MatchedBy(func(req *payment.GatewayRequest) bool {
		return req.Action == payment.ActionCreateInvoice
	})).Return(&payment.GatewayResponse{
		StatusCode: 200,
		Raw:        []byte(`{"invoice_id":"INV-10"}`),
		Tree:       map[string]any{"invoice_id": "INV-10"},
	}, nil).Once()

	f.credStore.On("Save", mock.Anything, payment.ProviderQPay, mock.Anything, time.Hour).Return(nil)
	f.configRepo.On("SaveOption", mock.Anything, payment.ProviderQPay, "access_token", "tok-2").Return(nil)
	f.auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.orch.Execute(context.Background(), in)
	require.NoError(t, err)
	f.configRepo.AssertCalled(t, "SaveOption", mock.Anything, payment.ProviderQPay, "access_token", "tok-2")
}

func TestOrchestrator_Execute_UnconfiguredProvider(t *testing.T) {
	f := newOrchestratorFixture()
	in := createInput()
	in.Provider = payment.ProviderKhanBank

	f.configRepo.On("FindByUID", mock.Anything, payment.ProviderKhanBank).Return(nil, payment.ErrProviderNotConfigured)

	_, err := f.orch.Execute(context.Background(), in)
	assert.ErrorIs(t, err, payment.ErrProviderNotConfigured)
	f.client.AssertNotCalled(t, "Do", mock.Anything, mock.Anything)
	f.auditRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrchestrator_Execute_AuthActionDoesNotRecurse(t *testing.T) {
	f := newOrchestratorFixture()
	in := createInput()
	in.Action = payment.ActionAuth

	f.configRepo.On("FindByUID", mock.Anything, payment.ProviderQPay).Return(qpayConfig(), nil)
	f.credStore.On("Get", mock.Anything, payment.ProviderQPay).Return(nil, nil)
	f.client.On("Do", mock.Anything, mock.Anything).Return(&payment.GatewayResponse{
		StatusCode: 200,
		Raw:        []byte(`{"access_token":"tok-3"}`),
		Tree:       map[string]any{"access_token": "tok-3"},
	}, nil).Once()
	f.auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.orch.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "tok-3", result.Fields["access_token"])
	f.client.AssertNumberOfCalls(t, "Do", 1)
}
