package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

type pgSettingsRepository struct {
	db PgxIface
}

// NewPgSettingsRepository creates the PostgreSQL settings repository.
func NewPgSettingsRepository(db PgxIface) repository.SettingsRepository {
	return &pgSettingsRepository{db: db}
}

func (r *pgSettingsRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query, key, value, time.Now().UTC())
	return err
}

func (r *pgSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrSettingNotFound
		}
		return "", err
	}
	return value, nil
}
