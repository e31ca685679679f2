package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

const threadColumns = `id, address, contact_name, snippet, message_count, unread_count,
	       date, kind, archived, pinned, created_at, updated_at`

type pgThreadRepository struct {
	db PgxIface
}

// NewPgThreadRepository creates the PostgreSQL thread repository.
func NewPgThreadRepository(db PgxIface) repository.ThreadRepository {
	return &pgThreadRepository{db: db}
}

// UpsertOnMessage is a single atomic statement: counters are
// incremented in place rather than read-modify-written, so concurrent
// inserts for the same thread never under-count.
func (r *pgThreadRepository) UpsertOnMessage(ctx context.Context, up repository.ThreadUpsert) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO threads (
			id, address, contact_name, snippet, message_count, unread_count,
			date, kind, archived, pinned, created_at, updated_at
		) VALUES ($1, $2, $3, $4, 1, $5, $6, $7, FALSE, FALSE, $8, $8)
		ON CONFLICT (id) DO UPDATE SET
			message_count = threads.message_count + 1,
			unread_count = threads.unread_count + $5,
			snippet = EXCLUDED.snippet,
			date = EXCLUDED.date,
			kind = EXCLUDED.kind,
			contact_name = COALESCE(EXCLUDED.contact_name, threads.contact_name),
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		up.ThreadID, up.Address, up.ContactName, up.Snippet, up.UnreadDelta,
		up.Date, up.Kind, now,
	)
	return err
}

func (r *pgThreadRepository) GetByID(ctx context.Context, id string) (*domain.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads WHERE id = $1`
	th, err := scanThread(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrThreadNotFound
		}
		return nil, err
	}
	return th, nil
}

func (r *pgThreadRepository) List(ctx context.Context) ([]*domain.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads ORDER BY pinned DESC, date DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanThreads(rows)
}

func (r *pgThreadRepository) Search(ctx context.Context, query string) ([]*domain.Thread, error) {
	pattern := "%" + query + "%"
	sql := `
		SELECT ` + threadColumns + `
		FROM threads
		WHERE address ILIKE $1 OR contact_name ILIKE $1 OR snippet ILIKE $1
		ORDER BY date DESC
	`
	rows, err := r.db.Query(ctx, sql, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanThreads(rows)
}

func (r *pgThreadRepository) MarkRead(ctx context.Context, threadID string) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		if _, err := tx.Exec(ctx,
			`UPDATE messages SET read = TRUE, updated_at = $2 WHERE thread_id = $1 AND read = FALSE`,
			threadID, now); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE threads SET unread_count = 0, updated_at = $2 WHERE id = $1`,
			threadID, now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrThreadNotFound
		}
		return nil
	})
}

func (r *pgThreadRepository) Delete(ctx context.Context, threadID string) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM attachments WHERE message_id IN (SELECT id FROM messages WHERE thread_id = $1)`,
			threadID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE thread_id = $1`, threadID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM threads WHERE id = $1`, threadID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrThreadNotFound
		}
		return nil
	})
}

func (r *pgThreadRepository) UpdateFlags(ctx context.Context, threadID string, archived, pinned *bool) error {
	query := `
		UPDATE threads
		SET archived = COALESCE($2, archived),
		    pinned = COALESCE($3, pinned),
		    updated_at = $4
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, threadID, archived, pinned, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrThreadNotFound
	}
	return nil
}

func scanThread(row pgx.Row) (*domain.Thread, error) {
	th := &domain.Thread{}
	err := row.Scan(
		&th.ID, &th.Address, &th.ContactName, &th.Snippet, &th.MessageCount, &th.UnreadCount,
		&th.Date, &th.Kind, &th.Archived, &th.Pinned, &th.CreatedAt, &th.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return th, nil
}

func scanThreads(rows pgx.Rows) ([]*domain.Thread, error) {
	var threads []*domain.Thread
	for rows.Next() {
		th, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, th)
	}
	return threads, rows.Err()
}
