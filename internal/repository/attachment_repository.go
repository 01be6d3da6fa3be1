package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"examcms/internal/domain"
)

type AttachmentRepository struct {
	db *sqlx.DB
}

func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	query := `
        INSERT INTO attachments (file_key, file_name, mime_type, size_bytes, language, uploaded_by, uploaded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		attachment.FileKey,
		attachment.FileName,
		attachment.MIMEType,
		attachment.SizeBytes,
		attachment.Language,
		attachment.UploadedBy,
		attachment.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) GetByKey(ctx context.Context, fileKey string) (*domain.Attachment, error) {
	var attachment domain.Attachment
	query := `
        SELECT file_key, file_name, mime_type, size_bytes, language, uploaded_by, uploaded_at
        FROM attachments
        WHERE file_key = $1`

	err := r.db.GetContext(ctx, &attachment, query, fileKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &attachment, nil
}

// FindMissing проверяет ключи одним запросом
func (r *AttachmentRepository) FindMissing(ctx context.Context, fileKeys []string) ([]string, error) {
	if len(fileKeys) == 0 {
		return nil, nil
	}

	var found []string
	query := `SELECT file_key FROM attachments WHERE file_key = ANY($1)`
	if err := r.db.SelectContext(ctx, &found, query, pq.Array(fileKeys)); err != nil {
		return nil, fmt.Errorf("failed to check attachments: %w", err)
	}

	return missingKeys(fileKeys, found), nil
}

func missingKeys(requested, found []string) []string {
	present := make(map[string]struct{}, len(found))
	for _, key := range found {
		present[key] = struct{}{}
	}

	var missing []string
	for _, key := range requested {
		if _, ok := present[key]; ok {
			continue
		}
		present[key] = struct{}{} // не повторяем ключ дважды
		missing = append(missing, key)
	}
	return missing
}
