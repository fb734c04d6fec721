package gateway

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/shoply/backend/internal/domain/payment"
)

// StorepayAdapter attaches the basic-auth header Storepay expects on every
// call, built from the username and password options. A header already set
// by config selectors wins.
type StorepayAdapter struct{}

// NewStorepayAdapter creates the Storepay adapter
func NewStorepayAdapter() *StorepayAdapter {
	return &StorepayAdapter{}
}

// Provider returns the provider this adapter serves
func (a *StorepayAdapter) Provider() payment.Provider {
	return payment.ProviderStorePay
}

// Adapt sets the Authorization header when the config has not
func (a *StorepayAdapter) Adapt(ctx context.Context, req *payment.GatewayRequest, rctx *payment.Context) error {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	if _, exists := req.Headers["Authorization"]; exists {
		return nil
	}

	username, okUser := rctx.Options["username"]
	password, okPass := rctx.Options["password"]
	if !okUser || !okPass || username == "" {
		return fmt.Errorf("storepay: username/password options: %w", payment.ErrOptionMissing)
	}

	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	req.Headers["Authorization"] = "Basic " + token
	return nil
}

var _ payment.ProviderAdapter = (*StorepayAdapter)(nil)
