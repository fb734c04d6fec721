package gateway

import (
	"context"
	"fmt"

	"github.com/shoply/backend/internal/domain/payment"
)

// MonpayAdapter attaches the client-id header Monpay requires and, on
// invoice creation, the merchant redirect URI the app link flow bounces
// back to.
type MonpayAdapter struct{}

// NewMonpayAdapter creates the Monpay adapter
func NewMonpayAdapter() *MonpayAdapter {
	return &MonpayAdapter{}
}

// Provider returns the provider this adapter serves
func (a *MonpayAdapter) Provider() payment.Provider {
	return payment.ProviderMonPay
}

// Adapt sets the client-id header on every call; create calls also get the
// redirect URI when the config left it out.
func (a *MonpayAdapter) Adapt(ctx context.Context, req *payment.GatewayRequest, rctx *payment.Context) error {
	clientID, ok := rctx.Options["client_id"]
	if !ok || clientID == "" {
		return fmt.Errorf("monpay: client_id option: %w", payment.ErrOptionMissing)
	}

	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	req.Headers["client-id"] = clientID

	if req.Action == payment.ActionCreateInvoice {
		if _, exists := req.Body["redirectUri"]; !exists {
			if redirect, ok := rctx.Options["redirect_uri"]; ok && redirect != "" {
				req.Body["redirectUri"] = redirect
			}
		}
	}
	return nil
}

var _ payment.ProviderAdapter = (*MonpayAdapter)(nil)
