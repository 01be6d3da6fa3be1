package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"examcms/internal/domain"
)

// memorySnapshot - неизменяемое состояние материала. Читатели берут указатель
// без блокировок, писатели заменяют его через CompareAndSwap.
type memorySnapshot struct {
	item     domain.ContentItem
	versions []domain.Version
}

type memoryContent struct {
	state atomic.Pointer[memorySnapshot]
}

// MemoryContentRepository хранит материалы в памяти. Материалы не делят
// общих блокировок: каждый сдвигает свой head независимо.
type MemoryContentRepository struct {
	items sync.Map // uuid.UUID -> *memoryContent
}

func NewMemoryContentRepository() *MemoryContentRepository {
	return &MemoryContentRepository{}
}

func (r *MemoryContentRepository) CreateContent(_ context.Context, item *domain.ContentItem, initial *domain.Version) error {
	if initial.VersionNumber != 0 || item.HeadVersion != 0 {
		return fmt.Errorf("new content must start at version 0")
	}

	entry := &memoryContent{}
	entry.state.Store(&memorySnapshot{
		item:     *item,
		versions: []domain.Version{initial.Clone()},
	})

	if _, loaded := r.items.LoadOrStore(item.ID, entry); loaded {
		return fmt.Errorf("content item %s already exists", item.ID)
	}
	return nil
}

func (r *MemoryContentRepository) AppendVersion(_ context.Context, version *domain.Version, expectedHead int) error {
	if err := checkAppend(version, expectedHead); err != nil {
		return err
	}

	entry, ok := r.load(version.ContentID)
	if !ok {
		return domain.ErrContentNotFound
	}

	current := entry.state.Load()
	if current.item.HeadVersion != expectedHead {
		return &domain.StaleWriteError{ContentID: version.ContentID, Expected: expectedHead, Actual: current.item.HeadVersion}
	}

	next := &memorySnapshot{item: current.item}
	next.item.HeadVersion = version.VersionNumber
	next.item.PublishState = version.PublishState
	next.item.UpdatedAt = version.UpdatedAt
	// Clip заставляет append скопировать массив: конкурирующий писатель
	// не должен писать в массив, который уже виден в чужом снимке
	next.versions = append(slices.Clip(current.versions), version.Clone())

	if !entry.state.CompareAndSwap(current, next) {
		actual := entry.state.Load().item.HeadVersion
		return &domain.StaleWriteError{ContentID: version.ContentID, Expected: expectedHead, Actual: actual}
	}
	return nil
}

func (r *MemoryContentRepository) GetContent(_ context.Context, id uuid.UUID) (*domain.ContentItem, error) {
	entry, ok := r.load(id)
	if !ok {
		return nil, domain.ErrContentNotFound
	}
	item := entry.state.Load().item
	return &item, nil
}

func (r *MemoryContentRepository) ListContent(_ context.Context, filter domain.ContentFilter) ([]domain.ContentItem, error) {
	items := []domain.ContentItem{}
	r.items.Range(func(_, value any) bool {
		item := value.(*memoryContent).state.Load().item
		if filter.Matches(item) {
			items = append(items, item)
		}
		return true
	})

	sort.Slice(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(items) {
			return []domain.ContentItem{}, nil
		}
		items = items[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(items) {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (r *MemoryContentRepository) GetVersion(_ context.Context, id uuid.UUID, number int) (*domain.Version, error) {
	entry, ok := r.load(id)
	if !ok {
		return nil, domain.ErrContentNotFound
	}
	versions := entry.state.Load().versions
	if number < 0 || number >= len(versions) {
		return nil, ErrVersionNotStored
	}
	version := versions[number].Clone()
	return &version, nil
}

func (r *MemoryContentRepository) ListVersions(_ context.Context, id uuid.UUID, from, to int) ([]domain.VersionSummary, error) {
	entry, ok := r.load(id)
	if !ok {
		return nil, domain.ErrContentNotFound
	}

	summaries := []domain.VersionSummary{}
	for _, v := range entry.state.Load().versions {
		if v.VersionNumber < from || v.VersionNumber > to {
			continue
		}
		summaries = append(summaries, domain.VersionSummary{
			VersionNumber: v.VersionNumber,
			PublishState:  v.PublishState,
			UpdatedBy:     v.UpdatedBy,
			UpdatedAt:     v.UpdatedAt,
		})
	}
	return summaries, nil
}

func (r *MemoryContentRepository) load(id uuid.UUID) (*memoryContent, bool) {
	value, ok := r.items.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*memoryContent), true
}

// MemoryAttachmentRepository - реестр вложений в памяти
type MemoryAttachmentRepository struct {
	attachments sync.Map // string -> domain.Attachment
}

func NewMemoryAttachmentRepository() *MemoryAttachmentRepository {
	return &MemoryAttachmentRepository{}
}

func (r *MemoryAttachmentRepository) Create(_ context.Context, attachment *domain.Attachment) error {
	if _, loaded := r.attachments.LoadOrStore(attachment.FileKey, *attachment); loaded {
		return fmt.Errorf("attachment %s already exists", attachment.FileKey)
	}
	return nil
}

func (r *MemoryAttachmentRepository) GetByKey(_ context.Context, fileKey string) (*domain.Attachment, error) {
	value, ok := r.attachments.Load(fileKey)
	if !ok {
		return nil, domain.ErrAttachmentNotFound
	}
	attachment := value.(domain.Attachment)
	return &attachment, nil
}

func (r *MemoryAttachmentRepository) FindMissing(_ context.Context, fileKeys []string) ([]string, error) {
	var found []string
	for _, key := range fileKeys {
		if _, ok := r.attachments.Load(key); ok {
			found = append(found, key)
		}
	}
	return missingKeys(fileKeys, found), nil
}
