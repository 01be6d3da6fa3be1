package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"examcms/internal/domain"
)

// psq - построитель запросов PostgreSQL с плейсхолдерами $n
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var contentColumns = []string{
	"id", "exam", "content_type", "head_version", "publish_state",
	"created_by", "created_at", "updated_at",
}

const uniqueViolation = "23505"

type ContentRepository struct {
	db *sqlx.DB
}

func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// CreateContent создает материал вместе с версией 0
func (r *ContentRepository) CreateContent(ctx context.Context, item *domain.ContentItem, initial *domain.Version) error {
	if initial.VersionNumber != 0 || item.HeadVersion != 0 {
		return errors.New("new content must start at version 0")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO content_items (id, exam, content_type, head_version, publish_state, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = tx.ExecContext(ctx, query,
		item.ID,
		item.Exam,
		item.ContentType,
		item.HeadVersion,
		item.PublishState,
		item.CreatedBy,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert content item: %w", err)
	}

	if err := insertVersion(ctx, tx, initial); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AppendVersion добавляет версию и сдвигает head по принципу compare-and-swap
func (r *ContentRepository) AppendVersion(ctx context.Context, version *domain.Version, expectedHead int) error {
	if err := checkAppend(version, expectedHead); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Сдвигаем head только если его никто не сдвинул до нас
	updateQuery := `
        UPDATE content_items
        SET head_version = $1,
            publish_state = $2,
            updated_at = $3
        WHERE id = $4 AND head_version = $5`

	result, err := tx.ExecContext(ctx, updateQuery,
		version.VersionNumber,
		version.PublishState,
		version.UpdatedAt,
		version.ContentID,
		expectedHead,
	)
	if err != nil {
		return fmt.Errorf("failed to advance head version: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rowsAffected == 0 {
		var actual int
		err := tx.GetContext(ctx, &actual, `SELECT head_version FROM content_items WHERE id = $1`, version.ContentID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrContentNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read head version: %w", err)
		}
		return &domain.StaleWriteError{ContentID: version.ContentID, Expected: expectedHead, Actual: actual}
	}

	if err := insertVersion(ctx, tx, version); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return &domain.StaleWriteError{ContentID: version.ContentID, Expected: expectedHead, Actual: version.VersionNumber}
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertVersion(ctx context.Context, tx *sqlx.Tx, version *domain.Version) error {
	query := `
        INSERT INTO content_versions (content_id, version_number, fields, attachment_refs, publish_state, updated_by, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.ExecContext(ctx, query,
		version.ContentID,
		version.VersionNumber,
		version.Fields,
		version.AttachmentRefs,
		version.PublishState,
		version.UpdatedBy,
		version.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert version %d: %w", version.VersionNumber, err)
	}
	return nil
}

func (r *ContentRepository) GetContent(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error) {
	var item domain.ContentItem
	query := `
        SELECT id, exam, content_type, head_version, publish_state, created_by, created_at, updated_at
        FROM content_items
        WHERE id = $1`

	err := r.db.GetContext(ctx, &item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	return &item, nil
}

// ListContent возвращает материалы по фильтру, новые изменения первыми
func (r *ContentRepository) ListContent(ctx context.Context, filter domain.ContentFilter) ([]domain.ContentItem, error) {
	qb := psq.Select(contentColumns...).From("content_items")

	if filter.Exam != nil {
		qb = qb.Where(sq.Eq{"exam": string(*filter.Exam)})
	}
	if filter.ContentType != nil {
		qb = qb.Where(sq.Eq{"content_type": string(*filter.ContentType)})
	}
	if filter.PublishState != nil {
		qb = qb.Where(sq.Eq{"publish_state": string(*filter.PublishState)})
	} else if !filter.IncludeDeleted {
		qb = qb.Where(sq.NotEq{"publish_state": string(domain.PublishStateDeleted)})
	}

	qb = qb.OrderBy("updated_at DESC", "id")
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build content list query: %w", err)
	}

	items := []domain.ContentItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list content items: %w", err)
	}
	return items, nil
}

func (r *ContentRepository) GetVersion(ctx context.Context, id uuid.UUID, number int) (*domain.Version, error) {
	var version domain.Version
	query := `
        SELECT content_id, version_number, fields, attachment_refs, publish_state, updated_by, updated_at
        FROM content_versions
        WHERE content_id = $1 AND version_number = $2`

	err := r.db.GetContext(ctx, &version, query, id, number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVersionNotStored
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return &version, nil
}

func (r *ContentRepository) ListVersions(ctx context.Context, id uuid.UUID, from, to int) ([]domain.VersionSummary, error) {
	versions := []domain.VersionSummary{}
	query := `
        SELECT version_number, publish_state, updated_by, updated_at
        FROM content_versions
        WHERE content_id = $1 AND version_number BETWEEN $2 AND $3
        ORDER BY version_number`

	if err := r.db.SelectContext(ctx, &versions, query, id, from, to); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}
