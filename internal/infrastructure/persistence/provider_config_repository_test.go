package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shoply/backend/internal/domain/payment"
)

func TestGormProviderConfigRepository_FindByUID(t *testing.T) {
	t.Run("finds configured provider", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormProviderConfigRepository(db)

		rows := sqlmock.NewRows([]string{"id", "uid", "api_url", "create_params", "check_params", "options"}).
			AddRow(uuid.New(), "qpay", "https://merchant.qpay.mn",
				`{"uri":"{{api_url}}/v2/invoice","method":"POST","selectors":[]}`,
				`{"uri":"{{api_url}}/v2/payment/check","method":"POST","selectors":[]}`,
				`[{"key":"client_id","value":"abc","sensitive":false}]`)

		mock.ExpectQuery(`SELECT \* FROM "provider_configs" WHERE uid = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(payment.ProviderQPay, 1).
			WillReturnRows(rows)

		cfg, err := repo.FindByUID(context.Background(), payment.ProviderQPay)
		require.NoError(t, err)
		assert.Equal(t, payment.ProviderQPay, cfg.UID)
		assert.Equal(t, "https://merchant.qpay.mn", cfg.APIURL)
		assert.Equal(t, "{{api_url}}/v2/invoice", cfg.CreateParams.URI)

		value, ok := cfg.OptionValue("client_id")
		assert.True(t, ok)
		assert.Equal(t, "abc", value)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormProviderConfigRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "provider_configs"`).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByUID(context.Background(), payment.ProviderKhanBank)
		assert.ErrorIs(t, err, payment.ErrProviderNotConfigured)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormProviderConfigRepository_SaveOption(t *testing.T) {
	t.Run("updates existing key under row lock", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormProviderConfigRepository(db)

		configID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "uid", "api_url", "create_params", "check_params", "options"}).
			AddRow(configID, "qpay", "https://merchant.qpay.mn",
				`{"uri":"","method":"POST","selectors":[]}`,
				`{"uri":"","method":"POST","selectors":[]}`,
				`[{"key":"token","value":"old","sensitive":true}]`)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "provider_configs" WHERE uid = \$1 ORDER BY .* LIMIT .* FOR UPDATE`).
			WithArgs(payment.ProviderQPay, 1).
			WillReturnRows(rows)
		mock.ExpectExec(`UPDATE "provider_configs" SET "options"=\$1,"updated_at"=\$2 WHERE "id" = \$3`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), configID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.SaveOption(context.Background(), payment.ProviderQPay, "token", "fresh")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row fails the transaction", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormProviderConfigRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "provider_configs"`).
			WillReturnError(gorm.ErrRecordNotFound)
		mock.ExpectRollback()

		err := repo.SaveOption(context.Background(), payment.ProviderQPay, "token", "fresh")
		assert.ErrorIs(t, err, payment.ErrProviderNotConfigured)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
