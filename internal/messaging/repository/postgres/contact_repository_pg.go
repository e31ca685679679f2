package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

type pgContactRepository struct {
	db PgxIface
}

// NewPgContactRepository creates the PostgreSQL contact cache repository.
func NewPgContactRepository(db PgxIface) repository.ContactRepository {
	return &pgContactRepository{db: db}
}

func (r *pgContactRepository) Upsert(ctx context.Context, contact *domain.Contact) error {
	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now

	query := `
		INSERT INTO contacts (id, name, phone_numbers, avatar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone_numbers = EXCLUDED.phone_numbers,
			avatar = EXCLUDED.avatar,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		contact.ID, contact.Name, contact.PhoneNumbers, contact.Avatar, contact.CreatedAt, contact.UpdatedAt,
	)
	return err
}

// FindByPhone matches on normalized digits so "+1 (555) 123-4567" in
// the cache is found for an inbound "15551234567". Contacts store
// numbers as entered by the device, so both sides are normalized here.
func (r *pgContactRepository) FindByPhone(ctx context.Context, phone string) (*domain.Contact, error) {
	normalized := domain.NormalizeAddress(phone)
	if normalized == "" {
		return nil, domain.ErrContactNotFound
	}
	query := `
		SELECT id, name, phone_numbers, avatar, created_at, updated_at
		FROM contacts
		WHERE EXISTS (
			SELECT 1 FROM unnest(phone_numbers) AS pn
			WHERE regexp_replace(pn, '\D', '', 'g') = $1
		)
		LIMIT 1
	`
	contact := &domain.Contact{}
	err := r.db.QueryRow(ctx, query, normalized).Scan(
		&contact.ID, &contact.Name, &contact.PhoneNumbers, &contact.Avatar, &contact.CreatedAt, &contact.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}
	return contact, nil
}
