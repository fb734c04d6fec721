package persistence

import (
	"context"
	"fmt"

	"github.com/shoply/backend/internal/domain/payment"
	"github.com/shoply/backend/internal/infrastructure/crypto"
)

// EncryptedProviderConfigRepository decorates a ProviderConfigRepository with
// at-rest encryption of sensitive option values. Values marked Sensitive are
// stored as ciphertext and decrypted on read, so the rest of the engine only
// ever sees plaintext options.
type EncryptedProviderConfigRepository struct {
	inner  payment.ProviderConfigRepository
	cipher *crypto.OptionsCipher
	// sensitiveKeys marks option keys written through SaveOption that must be
	// encrypted even though the caller supplies no Sensitive flag.
	sensitiveKeys map[string]bool
}

// NewEncryptedProviderConfigRepository wraps inner with cipher. extraSensitive
// lists option keys (for example refreshed credentials) to encrypt on save.
func NewEncryptedProviderConfigRepository(inner payment.ProviderConfigRepository, cipher *crypto.OptionsCipher, extraSensitive ...string) *EncryptedProviderConfigRepository {
	keys := make(map[string]bool, len(extraSensitive))
	for _, k := range extraSensitive {
		keys[k] = true
	}
	return &EncryptedProviderConfigRepository{inner: inner, cipher: cipher, sensitiveKeys: keys}
}

// FindByUID loads the config row and decrypts every sensitive option value
func (r *EncryptedProviderConfigRepository) FindByUID(ctx context.Context, provider payment.Provider) (*payment.ProviderConfig, error) {
	cfg, err := r.inner.FindByUID(ctx, provider)
	if err != nil {
		return nil, err
	}
	for i := range cfg.Options {
		opt := &cfg.Options[i]
		if !opt.Sensitive && !r.sensitiveKeys[opt.Key] {
			continue
		}
		plaintext, err := r.cipher.Decrypt(opt.Value)
		if err != nil {
			return nil, fmt.Errorf("decrypt option %q for provider %s: %w", opt.Key, provider, err)
		}
		opt.Value = plaintext
	}
	return cfg, nil
}

// SaveOption encrypts the value when the key is marked sensitive, then
// delegates to the inner repository.
func (r *EncryptedProviderConfigRepository) SaveOption(ctx context.Context, provider payment.Provider, key, value string) error {
	if r.sensitiveKeys[key] {
		ciphertext, err := r.cipher.Encrypt(value)
		if err != nil {
			return fmt.Errorf("encrypt option %q for provider %s: %w", key, provider, err)
		}
		value = ciphertext
	}
	return r.inner.SaveOption(ctx, provider, key, value)
}

var _ payment.ProviderConfigRepository = (*EncryptedProviderConfigRepository)(nil)
