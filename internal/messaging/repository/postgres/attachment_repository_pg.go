package postgres

import (
	"context"
	"time"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

type pgAttachmentRepository struct {
	db PgxIface
}

// NewPgAttachmentRepository creates the PostgreSQL attachment repository.
func NewPgAttachmentRepository(db PgxIface) repository.AttachmentRepository {
	return &pgAttachmentRepository{db: db}
}

func (r *pgAttachmentRepository) Upsert(ctx context.Context, att *domain.Attachment) error {
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO attachments (id, message_id, content_type, name, size, path, thumbnail_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			message_id = EXCLUDED.message_id,
			content_type = EXCLUDED.content_type,
			name = EXCLUDED.name,
			size = EXCLUDED.size,
			path = EXCLUDED.path,
			thumbnail_path = EXCLUDED.thumbnail_path
	`
	_, err := r.db.Exec(ctx, query,
		att.ID, att.MessageID, att.ContentType, att.Name, att.Size, att.Path, att.ThumbnailPath, att.CreatedAt,
	)
	return err
}

func (r *pgAttachmentRepository) ListByMessage(ctx context.Context, messageID string) ([]*domain.Attachment, error) {
	query := `
		SELECT id, message_id, content_type, name, size, path, thumbnail_path, created_at
		FROM attachments
		WHERE message_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []*domain.Attachment
	for rows.Next() {
		att := &domain.Attachment{}
		if err := rows.Scan(
			&att.ID, &att.MessageID, &att.ContentType, &att.Name, &att.Size, &att.Path, &att.ThumbnailPath, &att.CreatedAt,
		); err != nil {
			return nil, err
		}
		attachments = append(attachments, att)
	}
	return attachments, rows.Err()
}
