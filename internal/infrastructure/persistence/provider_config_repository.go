package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shoply/backend/internal/domain/payment"
)

// GormProviderConfigRepository implements payment.ProviderConfigRepository
// using GORM. Config rows are read-mostly; the one write this core performs
// is SaveOption, caching a refreshed auth credential on the row.
type GormProviderConfigRepository struct {
	db *gorm.DB
}

// NewGormProviderConfigRepository creates a new GormProviderConfigRepository
func NewGormProviderConfigRepository(db *gorm.DB) *GormProviderConfigRepository {
	return &GormProviderConfigRepository{db: db}
}

// FindByUID finds the config row for a provider
func (r *GormProviderConfigRepository) FindByUID(ctx context.Context, provider payment.Provider) (*payment.ProviderConfig, error) {
	var cfg payment.ProviderConfig
	if err := r.db.WithContext(ctx).First(&cfg, "uid = ?", provider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrProviderNotConfigured
		}
		return nil, err
	}
	return &cfg, nil
}

// SaveOption upserts one option key on the provider's config row. The row is
// locked for the read-modify-write so concurrent refreshes cannot clobber
// each other's option sets.
func (r *GormProviderConfigRepository) SaveOption(ctx context.Context, provider payment.Provider, key, value string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cfg payment.ProviderConfig
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cfg, "uid = ?", provider).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return payment.ErrProviderNotConfigured
			}
			return err
		}

		updated := false
		for i := range cfg.Options {
			if cfg.Options[i].Key == key {
				cfg.Options[i].Value = value
				updated = true
				break
			}
		}
		if !updated {
			cfg.Options = append(cfg.Options, payment.Option{Key: key, Value: value})
		}

		return tx.Model(&cfg).Update("options", cfg.Options).Error
	})
}

// Ensure GormProviderConfigRepository implements payment.ProviderConfigRepository
var _ payment.ProviderConfigRepository = (*GormProviderConfigRepository)(nil)
