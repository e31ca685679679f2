package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

const messageColumns = `id, thread_id, address, contact_name, body, subject, kind, box, read,
	       date, date_sent, delivery_status, sim_slot, attachment_count,
	       segments, parts_sent, parts_delivered, error_message, created_at, updated_at`

type pgMessageRepository struct {
	db PgxIface
}

// NewPgMessageRepository creates the PostgreSQL message repository.
func NewPgMessageRepository(db PgxIface) repository.MessageRepository {
	return &pgMessageRepository{db: db}
}

func (r *pgMessageRepository) Upsert(ctx context.Context, msg *domain.Message) error {
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now

	query := `
		INSERT INTO messages (
			id, thread_id, address, contact_name, body, subject, kind, box, read,
			date, date_sent, delivery_status, sim_slot, attachment_count,
			segments, parts_sent, parts_delivered, error_message, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
		ON CONFLICT (id) DO UPDATE SET
			thread_id = EXCLUDED.thread_id,
			address = EXCLUDED.address,
			contact_name = EXCLUDED.contact_name,
			body = EXCLUDED.body,
			subject = EXCLUDED.subject,
			kind = EXCLUDED.kind,
			box = EXCLUDED.box,
			read = EXCLUDED.read,
			date = EXCLUDED.date,
			date_sent = EXCLUDED.date_sent,
			delivery_status = EXCLUDED.delivery_status,
			sim_slot = EXCLUDED.sim_slot,
			attachment_count = EXCLUDED.attachment_count,
			segments = EXCLUDED.segments,
			parts_sent = EXCLUDED.parts_sent,
			parts_delivered = EXCLUDED.parts_delivered,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.ThreadID, msg.Address, msg.ContactName, msg.Body, msg.Subject, msg.Kind, msg.Box, msg.Read,
		msg.Date, msg.DateSent, msg.DeliveryStatus, msg.SimSlot, msg.AttachmentCount,
		msg.Segments, msg.PartsSent, msg.PartsDelivered, msg.ErrorMessage, msg.CreatedAt, msg.UpdatedAt,
	)
	return err
}

func (r *pgMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (r *pgMessageRepository) ListByThread(ctx context.Context, threadID string, limit, offset int) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE thread_id = $1
		ORDER BY date DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, threadID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *pgMessageRepository) Search(ctx context.Context, query string) ([]*domain.Message, error) {
	pattern := "%" + query + "%"
	sql := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE body ILIKE $1 OR address ILIKE $1 OR contact_name ILIKE $1
		ORDER BY date DESC
	`
	rows, err := r.db.Query(ctx, sql, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ApplyStatus encodes the monotonic ordering in the UPDATE predicate so
// concurrent callbacks for one id serialize in the store: the row only
// changes when the current status is non-terminal and outranked.
func (r *pgMessageRepository) ApplyStatus(ctx context.Context, id string, status domain.DeliveryStatus, dateSent *time.Time, errorMessage *string) (bool, error) {
	now := time.Now().UTC()
	query := `
		UPDATE messages
		SET delivery_status = $2,
		    date_sent = COALESCE($3, date_sent),
		    error_message = COALESCE($4, error_message),
		    updated_at = $5
		WHERE id = $1
		  AND delivery_status NOT IN ('delivered', 'failed')
		  AND (CASE delivery_status WHEN 'pending' THEN 0 WHEN 'sent' THEN 1 ELSE 99 END) <
		      (CASE $2 WHEN 'sent' THEN 1 WHEN 'delivered' THEN 2 WHEN 'failed' THEN 3 ELSE -1 END)
	`
	tag, err := r.db.Exec(ctx, query, id, status, dateSent, errorMessage, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgMessageRepository) ConfirmPartSent(ctx context.Context, id string, part int) (int, int, error) {
	return r.confirmPart(ctx, id, part, "parts_sent")
}

func (r *pgMessageRepository) ConfirmPartDelivered(ctx context.Context, id string, part int) (int, int, error) {
	return r.confirmPart(ctx, id, part, "parts_delivered")
}

// confirmPart records one part's confirmation. Numbered parts set a bit
// in the per-message mask; the counter moves only when the bit was
// clear, so a radio firmware that duplicates a callback for one part
// cannot inflate the count past the parts actually confirmed.
func (r *pgMessageRepository) confirmPart(ctx context.Context, id string, part int, column string) (int, int, error) {
	// column is one of two compile-time constants, never user input.
	var query string
	args := []any{id}
	if part >= 1 && part <= 63 {
		mask := column + "_mask"
		query = `
			UPDATE messages
			SET ` + column + ` = ` + column + ` + (CASE WHEN ` + mask + ` & (1::bigint << $2) = 0 THEN 1 ELSE 0 END),
			    ` + mask + ` = ` + mask + ` | (1::bigint << $2),
			    updated_at = $3
			WHERE id = $1
			RETURNING ` + column + `, segments
		`
		args = append(args, part-1, time.Now().UTC())
	} else {
		// Unnumbered callback from an older bridge revision. Fall back
		// to a capped increment; duplicates are indistinguishable from
		// distinct parts on this path.
		query = `
			UPDATE messages
			SET ` + column + ` = LEAST(` + column + ` + 1, segments), updated_at = $2
			WHERE id = $1
			RETURNING ` + column + `, segments
		`
		args = append(args, time.Now().UTC())
	}
	var parts, segments int
	err := r.db.QueryRow(ctx, query, args...).Scan(&parts, &segments)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, domain.ErrMessageNotFound
		}
		return 0, 0, err
	}
	return parts, segments, nil
}

func (r *pgMessageRepository) MostRecentInFlightOutbound(ctx context.Context) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE delivery_status NOT IN ('delivered', 'failed') AND box <> 'inbox'
		ORDER BY date DESC
		LIMIT 1
	`
	msg, err := scanMessage(r.db.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return msg, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	msg := &domain.Message{}
	err := row.Scan(
		&msg.ID, &msg.ThreadID, &msg.Address, &msg.ContactName, &msg.Body, &msg.Subject, &msg.Kind, &msg.Box, &msg.Read,
		&msg.Date, &msg.DateSent, &msg.DeliveryStatus, &msg.SimSlot, &msg.AttachmentCount,
		&msg.Segments, &msg.PartsSent, &msg.PartsDelivered, &msg.ErrorMessage, &msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func scanMessages(rows pgx.Rows) ([]*domain.Message, error) {
	var messages []*domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
