package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shoply/backend/internal/domain/payment"
)

// persistCredentialsOption is the config option that opts a provider into
// writing refreshed credentials back onto its config row, in addition to the
// TTL cache.
const persistCredentialsOption = "persist_credentials"

// Executor runs one declarative request cycle against a provider. Split out
// as an interface so the invoice service can be tested without wire calls.
type Executor interface {
	Execute(ctx context.Context, in ExecuteInput) (*ExecuteResult, error)
}

// ExecuteInput identifies one request cycle and its per-call inputs
type ExecuteInput struct {
	Provider payment.Provider
	Action   payment.Action
	ShopID   uuid.UUID
	OrderID  *uuid.UUID
	// Extras become the context's extra tree: amount, bill_no, order fields
	Extras map[string]any
}

// ExecuteResult is the outcome of a passed request cycle
type ExecuteResult struct {
	// Fields holds the values extracted by the action's response selectors
	Fields   map[string]any
	Response *payment.GatewayResponse
}

// Orchestrator drives the full request cycle for any provider and action:
// load config, assemble context, refresh auth when stale, build, adapt,
// execute, evaluate, extract, audit. Providers differ only by config row
// and (optionally) a registered adapter.
type Orchestrator struct {
	configRepo payment.ProviderConfigRepository
	client     payment.GatewayClient
	registry   payment.AdapterRegistry
	auditRepo  payment.AuditLogRepository
	credStore  payment.CredentialStore
	merchants  payment.MerchantService
	logger     *zap.Logger
	tokenTTL   time.Duration
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(
	configRepo payment.ProviderConfigRepository,
	client payment.GatewayClient,
	registry payment.AdapterRegistry,
	auditRepo payment.AuditLogRepository,
	credStore payment.CredentialStore,
	logger *zap.Logger,
	tokenTTL time.Duration,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokenTTL == 0 {
		tokenTTL = 12 * time.Hour
	}
	return &Orchestrator{
		configRepo: configRepo,
		client:     client,
		registry:   registry,
		auditRepo:  auditRepo,
		credStore:  credStore,
		logger:     logger,
		tokenTTL:   tokenTTL,
	}
}

// SetMerchantService wires the optional per-shop option source
func (o *Orchestrator) SetMerchantService(svc payment.MerchantService) {
	o.merchants = svc
}

// Execute runs one request cycle end to end
func (o *Orchestrator) Execute(ctx context.Context, in ExecuteInput) (*ExecuteResult, error) {
	cfg, err := o.configRepo.FindByUID(ctx, in.Provider)
	if err != nil {
		return nil, err
	}

	params, err := cfg.ParamsFor(in.Action)
	if err != nil {
		return nil, payment.NewConfigError(in.Provider, fmt.Sprintf("no params for action %s", in.Action), err)
	}

	if in.Action == payment.ActionAuth {
		// Auth conditions guard validity of existing credentials; they are
		// not success conditions for the refresh call itself.
		p := *params
		p.Conditions = nil
		params = &p
	}

	rctx, err := o.buildContext(ctx, cfg, in)
	if err != nil {
		return nil, err
	}

	if in.Action != payment.ActionAuth && cfg.AuthParams != nil {
		if err := o.ensureAuth(ctx, cfg, rctx, in); err != nil {
			return nil, err
		}
	}

	return o.runCycle(ctx, params, rctx, in)
}

// buildContext assembles the per-call context: provider options, decrypted
// merchant options, cached credentials and the caller's extras, in that
// order so later layers override earlier ones.
func (o *Orchestrator) buildContext(ctx context.Context, cfg *payment.ProviderConfig, in ExecuteInput) (*payment.Context, error) {
	rctx := payment.NewContext(cfg.APIURL)
	rctx.MergeOptions(cfg.OptionsMap())

	if o.merchants != nil && in.ShopID != uuid.Nil {
		merchantOpts, err := o.merchants.MerchantOptions(ctx, in.ShopID, true)
		if err != nil {
			return nil, fmt.Errorf("load merchant options: %w", err)
		}
		rctx.MergeOptions(merchantOpts)
	}

	creds, err := o.credStore.Get(ctx, in.Provider)
	if err != nil {
		return nil, fmt.Errorf("load cached credentials: %w", err)
	}
	rctx.MergeOptions(creds)

	for k, v := range in.Extras {
		rctx.SetExtra(k, v)
	}
	return rctx, nil
}

// ensureAuth checks the auth validity conditions against the context and,
// when none match, performs the auth sub-call, caches the extracted
// credentials and merges them into the context. Proceeding with an empty
// token is never allowed.
func (o *Orchestrator) ensureAuth(ctx context.Context, cfg *payment.ProviderConfig, rctx *payment.Context, in ExecuteInput) error {
	valid, _ := payment.EvaluateConditions(cfg.AuthParams.Conditions, rctx, false)
	if valid {
		return nil
	}

	authIn := in
	authIn.Action = payment.ActionAuth

	// The conditions guard validity of existing credentials, not success of
	// the refresh; the refresh passes when it yields credentials.
	authParams := *cfg.AuthParams
	authParams.Conditions = nil

	result, err := o.runCycle(ctx, &authParams, rctx, authIn)
	if err != nil {
		return payment.NewAuthError(in.Provider, err)
	}

	credentials := make(map[string]string, len(result.Fields))
	for k, v := range result.Fields {
		if v == nil {
			continue
		}
		if s := asString(v); s != "" {
			credentials[k] = s
		}
	}
	if len(credentials) == 0 {
		return payment.NewAuthError(in.Provider, payment.ErrEmptyAuthResponse)
	}

	if err := o.credStore.Save(ctx, in.Provider, credentials, o.tokenTTL); err != nil {
		return payment.NewAuthError(in.Provider, fmt.Errorf("cache credentials: %w", err))
	}
	rctx.MergeOptions(credentials)

	if persist, _ := cfg.OptionValue(persistCredentialsOption); persist == "true" {
		for k, v := range credentials {
			if err := o.configRepo.SaveOption(ctx, in.Provider, k, v); err != nil {
				// The cache already holds the credential; a failed row write
				// only costs an extra refresh later.
				o.logger.Warn("failed to persist credential option",
					zap.String("provider", in.Provider.String()),
					zap.String("key", k),
					zap.Error(err))
			}
		}
	}
	return nil
}

// runCycle builds, adapts, executes and evaluates one request
func (o *Orchestrator) runCycle(ctx context.Context, params *payment.RequestParams, rctx *payment.Context, in ExecuteInput) (*ExecuteResult, error) {
	uri, err := payment.Interpolate(params.URI, rctx)
	if err != nil {
		return nil, payment.NewConfigError(in.Provider, "bad uri template", err)
	}
	body, err := payment.BuildParams(params.Selectors, rctx)
	if err != nil {
		return nil, err
	}
	headers, err := payment.BuildHeaders(params.Headers, rctx)
	if err != nil {
		return nil, err
	}

	req := &payment.GatewayRequest{
		Provider: in.Provider,
		Action:   in.Action,
		Method:   params.Method,
		URL:      uri,
		Encoding: params.Encoding,
		Headers:  headers,
		Body:     body,
	}

	if err := o.registry.Get(in.Provider).Adapt(ctx, req, rctx); err != nil {
		return nil, err
	}

	resp, err := o.client.Do(ctx, req)
	if err != nil {
		o.audit(ctx, in, params, req, nil, payment.AuditStatusFailed)
		return nil, err
	}

	rctx.SetExtra("response", resp.Tree)

	passed, failedCond := payment.EvaluateConditions(params.Conditions, rctx, true)
	if !passed {
		o.audit(ctx, in, params, req, resp, payment.AuditStatusFailed)
		message := ""
		if failedCond != nil {
			message = failedCond.Message
		}
		return nil, payment.NewConditionFailure(in.Provider, message, string(resp.Raw))
	}

	fields, err := payment.ExtractFields(params.ResponseSelectors, rctx)
	if err != nil {
		o.audit(ctx, in, params, req, resp, payment.AuditStatusFailed)
		return nil, err
	}

	o.audit(ctx, in, params, req, resp, payment.AuditStatusSuccess)
	return &ExecuteResult{Fields: fields, Response: resp}, nil
}

// audit appends the masked, write-once record of one outbound call. Audit
// failures are logged, not propagated; the payment outcome already stands.
func (o *Orchestrator) audit(ctx context.Context, in ExecuteInput, params *payment.RequestParams, req *payment.GatewayRequest, resp *payment.GatewayResponse, status payment.AuditStatus) {
	sensitive := params.SensitiveSelectors

	headersJSON, _ := json.Marshal(payment.MaskHeaders(req.Headers, sensitive))
	bodyJSON, _ := json.Marshal(payment.MaskTree(req.Body, sensitive))

	response := ""
	if resp != nil {
		response = payment.MaskJSON(resp.Raw, sensitive)
	}

	entry := &payment.RequestAuditLog{
		Provider:  in.Provider,
		Action:    in.Action,
		APIMethod: req.Method,
		APIURL:    req.URL,
		Headers:   string(headersJSON),
		Body:      string(bodyJSON),
		Response:  response,
		Status:    status,
		OrderID:   in.OrderID,
	}
	if in.ShopID != uuid.Nil {
		shopID := in.ShopID
		entry.MerchantID = &shopID
	}

	if err := o.auditRepo.Create(ctx, entry); err != nil {
		o.logger.Error("failed to write audit log",
			zap.String("provider", in.Provider.String()),
			zap.String("action", in.Action.String()),
			zap.Error(err))
	}
}

// asString renders an extracted field value for storage or credential use
func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case decimal.Decimal:
		return val.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// Ensure Orchestrator implements Executor
var _ Executor = (*Orchestrator)(nil)
