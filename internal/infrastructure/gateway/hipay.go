package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shoply/backend/internal/domain/payment"
)

// HipayAdapter signs outbound Hipay requests: SHA-256 over entity id, amount
// and the merchant's client_secret option, attached as the signature field.
type HipayAdapter struct{}

// NewHipayAdapter creates the Hipay adapter
func NewHipayAdapter() *HipayAdapter {
	return &HipayAdapter{}
}

// Provider returns the provider this adapter serves
func (a *HipayAdapter) Provider() payment.Provider {
	return payment.ProviderHiPay
}

// Adapt computes and attaches the signature. Auth calls are left untouched.
func (a *HipayAdapter) Adapt(ctx context.Context, req *payment.GatewayRequest, rctx *payment.Context) error {
	if req.Action == payment.ActionAuth {
		return nil
	}

	secret, ok := rctx.Options["client_secret"]
	if !ok || secret == "" {
		return fmt.Errorf("hipay: client_secret option: %w", payment.ErrOptionMissing)
	}

	entity := formValue(req.Body["entityId"])
	amount := formValue(req.Body["amount"])

	sum := sha256.Sum256([]byte(entity + amount + secret))
	req.Body["signature"] = hex.EncodeToString(sum[:])
	return nil
}

var _ payment.ProviderAdapter = (*HipayAdapter)(nil)
