package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shoply/backend/internal/domain/payment"
)

// GolomtAdapter adds the checksum field Golomt ecommerce requires on invoice
// creation and status checks: HMAC-SHA256 over amount and transaction id,
// keyed by the merchant's hmac_key option.
type GolomtAdapter struct{}

// NewGolomtAdapter creates the Golomt adapter
func NewGolomtAdapter() *GolomtAdapter {
	return &GolomtAdapter{}
}

// Provider returns the provider this adapter serves
func (a *GolomtAdapter) Provider() payment.Provider {
	return payment.ProviderGolomt
}

// Adapt computes and attaches the checksum. Auth calls carry no amount and
// are left untouched.
func (a *GolomtAdapter) Adapt(ctx context.Context, req *payment.GatewayRequest, rctx *payment.Context) error {
	if req.Action == payment.ActionAuth {
		return nil
	}

	key, ok := rctx.Options["hmac_key"]
	if !ok || key == "" {
		return fmt.Errorf("golomt: hmac_key option: %w", payment.ErrOptionMissing)
	}

	amount := formValue(req.Body["amount"])
	transactionID := formValue(req.Body["transactionId"])

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(amount + transactionID))
	req.Body["checksum"] = hex.EncodeToString(mac.Sum(nil))
	return nil
}

var _ payment.ProviderAdapter = (*GolomtAdapter)(nil)
