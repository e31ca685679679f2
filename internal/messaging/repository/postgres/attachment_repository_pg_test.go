package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

func setupAttachmentRepoTest(t *testing.T) (repository.AttachmentRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewPgAttachmentRepository(mockPool), mockPool
}

func TestPgAttachmentRepository_Upsert(t *testing.T) {
	repo, mockPool := setupAttachmentRepoTest(t)
	defer mockPool.Close()

	t.Run("NamelessAttachment", func(t *testing.T) {
		// MMS media often arrives without a filename; the nil name must
		// round-trip as NULL rather than be rejected by the store.
		att := &domain.Attachment{
			ID:          "att_1",
			MessageID:   "mms_1",
			ContentType: "image/jpeg",
			Size:        2048,
			Path:        "/data/attachments/att_1.jpg",
		}

		mockPool.ExpectExec(`INSERT INTO attachments`).
			WithArgs("att_1", "mms_1", "image/jpeg", (*string)(nil), int64(2048), "/data/attachments/att_1.jpg", (*string)(nil), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Upsert(context.Background(), att))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NamedAttachment", func(t *testing.T) {
		name := "vacation.jpg"
		thumb := "/data/thumbs/att_2.jpg"
		att := &domain.Attachment{
			ID:            "att_2",
			MessageID:     "mms_1",
			ContentType:   "image/jpeg",
			Name:          &name,
			Size:          4096,
			Path:          "/data/attachments/att_2.jpg",
			ThumbnailPath: &thumb,
			CreatedAt:     time.Now().UTC(),
		}

		mockPool.ExpectExec(`INSERT INTO attachments`).
			WithArgs("att_2", "mms_1", "image/jpeg", &name, int64(4096), "/data/attachments/att_2.jpg", &thumb, att.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Upsert(context.Background(), att))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgAttachmentRepository_ListByMessage(t *testing.T) {
	repo, mockPool := setupAttachmentRepoTest(t)
	defer mockPool.Close()

	t.Run("NullNameScansToNil", func(t *testing.T) {
		rows := mockPool.NewRows([]string{"id", "message_id", "content_type", "name", "size", "path", "thumbnail_path", "created_at"}).
			AddRow("att_1", "mms_1", "image/jpeg", nil, int64(2048), "/data/attachments/att_1.jpg", nil, time.Now().UTC())

		mockPool.ExpectQuery(`FROM attachments`).
			WithArgs("mms_1").
			WillReturnRows(rows)

		attachments, err := repo.ListByMessage(context.Background(), "mms_1")
		require.NoError(t, err)
		require.Len(t, attachments, 1)
		assert.Nil(t, attachments[0].Name)
		assert.Nil(t, attachments[0].ThumbnailPath)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("QueryError", func(t *testing.T) {
		mockPool.ExpectQuery(`FROM attachments`).
			WithArgs("mms_1").
			WillReturnError(pgx.ErrTxClosed)

		attachments, err := repo.ListByMessage(context.Background(), "mms_1")
		require.Error(t, err)
		assert.Nil(t, attachments)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
