package gateway

import (
	"context"

	"github.com/shoply/backend/internal/domain/payment"
)

// Registry is a static table of provider adapters built at startup.
// Providers without a registered adapter get the identity adapter, so a new
// provider can go live on config alone.
type Registry struct {
	adapters map[payment.Provider]payment.ProviderAdapter
}

// NewRegistry creates a registry holding the given adapters
func NewRegistry(adapters ...payment.ProviderAdapter) *Registry {
	m := make(map[payment.Provider]payment.ProviderAdapter, len(adapters))
	for _, a := range adapters {
		m[a.Provider()] = a
	}
	return &Registry{adapters: m}
}

// DefaultRegistry returns the registry with every built-in adapter wired
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewGolomtAdapter(),
		NewHipayAdapter(),
		NewStorepayAdapter(),
		NewMonpayAdapter(),
	)
}

// Get resolves the adapter for a provider, falling back to identity
func (r *Registry) Get(provider payment.Provider) payment.ProviderAdapter {
	if a, ok := r.adapters[provider]; ok {
		return a
	}
	return identityAdapter{provider: provider}
}

// identityAdapter passes the built request through untouched
type identityAdapter struct {
	provider payment.Provider
}

func (a identityAdapter) Provider() payment.Provider {
	return a.provider
}

func (a identityAdapter) Adapt(ctx context.Context, req *payment.GatewayRequest, rctx *payment.Context) error {
	return nil
}

// Ensure Registry implements payment.AdapterRegistry
var _ payment.AdapterRegistry = (*Registry)(nil)
