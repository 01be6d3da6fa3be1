package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"examcms/internal/domain"
)

// ErrVersionNotStored возвращается, когда строки версии нет в хранилище
var ErrVersionNotStored = errors.New("version not stored")

// ContentStore - хранилище материалов и их истории версий.
// Версии только добавляются: существующие строки никогда не изменяются.
type ContentStore interface {
	// CreateContent атомарно создает материал и его версию 0
	CreateContent(ctx context.Context, item *domain.ContentItem, initial *domain.Version) error
	// AppendVersion добавляет версию expectedHead+1 и сдвигает head,
	// только если текущий head равен expectedHead
	AppendVersion(ctx context.Context, version *domain.Version, expectedHead int) error
	GetContent(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error)
	ListContent(ctx context.Context, filter domain.ContentFilter) ([]domain.ContentItem, error)
	GetVersion(ctx context.Context, id uuid.UUID, number int) (*domain.Version, error)
	// ListVersions возвращает версии from..to по возрастанию номера
	ListVersions(ctx context.Context, id uuid.UUID, from, to int) ([]domain.VersionSummary, error)
}

// AttachmentStore - реестр метаданных вложений
type AttachmentStore interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	GetByKey(ctx context.Context, fileKey string) (*domain.Attachment, error)
	// FindMissing возвращает ключи, которых нет в реестре, в исходном порядке
	FindMissing(ctx context.Context, fileKeys []string) ([]string, error)
}

func checkAppend(version *domain.Version, expectedHead int) error {
	if version.VersionNumber != expectedHead+1 {
		return errors.New("version number must follow expected head version")
	}
	return nil
}
