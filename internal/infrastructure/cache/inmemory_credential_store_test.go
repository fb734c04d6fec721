package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoply/backend/internal/domain/payment"
)

func TestInMemoryCredentialStore_SaveAndGet(t *testing.T) {
	store := NewInMemoryCredentialStore()
	defer store.Close()
	ctx := context.Background()

	creds := map[string]string{"access_token": "tok-1", "refresh_token": "ref-1"}
	require.NoError(t, store.Save(ctx, payment.ProviderQPay, creds, time.Minute))

	got, err := store.Get(ctx, payment.ProviderQPay)
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	// Missing provider yields nil, not an error
	got, err = store.Get(ctx, payment.ProviderMonPay)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryCredentialStore_Expiry(t *testing.T) {
	store := NewInMemoryCredentialStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, payment.ProviderQPay, map[string]string{"token": "t"}, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	got, err := store.Get(ctx, payment.ProviderQPay)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryCredentialStore_Delete(t *testing.T) {
	store := NewInMemoryCredentialStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, payment.ProviderGolomt, map[string]string{"token": "t"}, time.Minute))
	require.NoError(t, store.Delete(ctx, payment.ProviderGolomt))

	got, err := store.Get(ctx, payment.ProviderGolomt)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryCredentialStore_CopySemantics(t *testing.T) {
	store := NewInMemoryCredentialStore()
	defer store.Close()
	ctx := context.Background()

	original := map[string]string{"token": "t"}
	require.NoError(t, store.Save(ctx, payment.ProviderQPay, original, time.Minute))
	original["token"] = "mutated"

	got, err := store.Get(ctx, payment.ProviderQPay)
	require.NoError(t, err)
	assert.Equal(t, "t", got["token"])

	// Mutating the returned map does not affect the cached copy
	got["token"] = "mutated-again"
	again, err := store.Get(ctx, payment.ProviderQPay)
	require.NoError(t, err)
	assert.Equal(t, "t", again["token"])
}

func TestInMemoryCredentialStore_Cleanup(t *testing.T) {
	store := NewInMemoryCredentialStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, payment.ProviderQPay, map[string]string{"a": "1"}, time.Nanosecond))
	require.NoError(t, store.Save(ctx, payment.ProviderMonPay, map[string]string{"b": "2"}, time.Minute))
	assert.Equal(t, 2, store.Size())

	store.cleanup()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryCredentialStore_CloseIdempotent(t *testing.T) {
	store := NewInMemoryCredentialStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
