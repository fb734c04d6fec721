package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/shoply/backend/internal/domain/payment"
)

// maxResponseBytes caps how much of a provider response is read
const maxResponseBytes = 4 << 20 // 4MB

// ClientConfig holds outbound call behavior
type ClientConfig struct {
	RequestTimeout  time.Duration // per attempt
	CheckMaxRetries int           // extra attempts for idempotent actions
	RetryBaseDelay  time.Duration
	BreakerMaxFails uint32        // consecutive failures before a provider breaker opens
	BreakerCooldown time.Duration // open-state duration
}

// HTTPClient executes built gateway requests over HTTP. One instance serves
// all providers; each provider gets its own circuit breaker so a degraded
// network does not take down the others.
type HTTPClient struct {
	httpClient *http.Client
	cfg        ClientConfig
	logger     *zap.Logger

	mu       sync.Mutex
	breakers map[payment.Provider]*gobreaker.CircuitBreaker
}

// NewHTTPClient creates a gateway client
func NewHTTPClient(cfg ClientConfig, logger *zap.Logger) *HTTPClient {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.BreakerMaxFails == 0 {
		cfg.BreakerMaxFails = 5
	}
	if cfg.BreakerCooldown == 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		httpClient: &http.Client{},
		cfg:        cfg,
		logger:     logger,
		breakers:   make(map[payment.Provider]*gobreaker.CircuitBreaker),
	}
}

// Do executes the request. Transport failures come back as
// *payment.NetworkError; HTTP error statuses are NOT errors here, the
// response is returned so the caller's conditions can judge it.
//
// Idempotent actions get bounded retries with exponential backoff; create
// calls are never replayed.
func (c *HTTPClient) Do(ctx context.Context, req *payment.GatewayRequest) (*payment.GatewayResponse, error) {
	breaker := c.breakerFor(req.Provider)

	attempt := func() (*payment.GatewayResponse, error) {
		result, err := breaker.Execute(func() (any, error) {
			return c.doOnce(ctx, req)
		})
		if err != nil {
			return nil, err
		}
		return result.(*payment.GatewayResponse), nil
	}

	var resp *payment.GatewayResponse
	var err error

	if req.Action.Idempotent() && c.cfg.CheckMaxRetries > 0 {
		operation := func() error {
			r, attemptErr := attempt()
			if attemptErr != nil {
				if errors.Is(attemptErr, gobreaker.ErrOpenState) || errors.Is(attemptErr, gobreaker.ErrTooManyRequests) {
					// Breaker rejected the call; waiting out the backoff
					// schedule will not help within this request's deadline.
					return backoff.Permanent(attemptErr)
				}
				return attemptErr
			}
			resp = r
			if r.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("provider returned status %d", r.StatusCode)
			}
			return nil
		}

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = c.cfg.RetryBaseDelay
		err = backoff.Retry(operation, backoff.WithContext(
			backoff.WithMaxRetries(bo, uint64(c.cfg.CheckMaxRetries)), ctx))
		if err != nil && resp != nil {
			// The final attempt reached the provider; let the caller's
			// conditions evaluate (and fail closed on) what came back.
			c.logger.Warn("gateway retries exhausted, returning last response",
				zap.String("provider", req.Provider.String()),
				zap.String("action", req.Action.String()),
				zap.Int("status", resp.StatusCode))
			return resp, nil
		}
	} else {
		resp, err = attempt()
	}

	if err != nil {
		return nil, payment.NewNetworkError(req.Provider, req.Action, err)
	}
	return resp, nil
}

// doOnce performs a single HTTP attempt with the per-call timeout
func (c *HTTPClient) doOnce(ctx context.Context, req *payment.GatewayRequest) (*payment.GatewayResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("gateway call",
		zap.String("provider", req.Provider.String()),
		zap.String("action", req.Action.String()),
		zap.String("method", req.Method),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	resp := &payment.GatewayResponse{
		StatusCode: httpResp.StatusCode,
		Raw:        raw,
	}

	// Tree stays nil for non-object payloads; conditions then fail closed
	var tree map[string]any
	if json.Unmarshal(raw, &tree) == nil {
		resp.Tree = tree
	}
	return resp, nil
}

// breakerFor returns (lazily creating) the breaker for a provider
func (c *HTTPClient) breakerFor(provider payment.Provider) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[provider]; ok {
		return cb
	}

	maxFails := c.cfg.BreakerMaxFails
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    provider.String(),
		Timeout: c.cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("gateway breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	c.breakers[provider] = cb
	return cb
}

// encodeBody serializes the request body for the configured encoding.
// Methods without a body (GET, DELETE) send none.
func encodeBody(req *payment.GatewayRequest) (io.Reader, string, error) {
	if len(req.Body) == 0 || req.Method == http.MethodGet || req.Method == http.MethodDelete {
		return nil, "", nil
	}

	if req.Encoding == payment.EncodingForm {
		values := url.Values{}
		for k, v := range req.Body {
			values.Set(k, formValue(v))
		}
		return strings.NewReader(values.Encode()), "application/x-www-form-urlencoded", nil
	}

	raw, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	return bytes.NewReader(raw), "application/json", nil
}

// formValue renders one body value as a form field
func formValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// Ensure HTTPClient implements payment.GatewayClient
var _ payment.GatewayClient = (*HTTPClient)(nil)
