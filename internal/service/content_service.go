package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"examcms/internal/domain"
	"examcms/internal/repository"
)

// CreateContentInput - данные для создания материала
type CreateContentInput struct {
	Exam        domain.Exam           `json:"exam"`
	ContentType domain.ContentType    `json:"content_type"`
	Fields      domain.Fields         `json:"fields"`
	Attachments domain.AttachmentRefs `json:"attachments"`
}

// UpdateContentInput - новый снимок полей. PublishState nil оставляет
// состояние head версии.
type UpdateContentInput struct {
	Fields       domain.Fields         `json:"fields"`
	Attachments  domain.AttachmentRefs `json:"attachments"`
	ExpectedHead int                   `json:"expected_head_version"`
	PublishState *domain.PublishState  `json:"publish_state,omitempty"`
}

// ContentService - граница ядра для слоя форм и страниц
type ContentService struct {
	contents  repository.ContentStore
	writer    *VersionWriter
	restorer  *RestoreService
	navigator *VersionNavigator
}

func NewContentService(
	contents repository.ContentStore,
	writer *VersionWriter,
	restorer *RestoreService,
	navigator *VersionNavigator,
) *ContentService {
	return &ContentService{
		contents:  contents,
		writer:    writer,
		restorer:  restorer,
		navigator: navigator,
	}
}

// CreateContent создает материал в состоянии DRAFT, версия 0
func (s *ContentService) CreateContent(ctx context.Context, input CreateContentInput, actor string) (*domain.WriteResult, error) {
	return s.writer.Append(ctx, AppendRequest{
		Exam:           input.Exam,
		ContentType:    input.ContentType,
		Fields:         input.Fields,
		AttachmentRefs: input.Attachments,
		PublishState:   domain.PublishStateDraft,
		Actor:          actor,
	})
}

// UpdateContent записывает новый снимок полей и вложений
func (s *ContentService) UpdateContent(
	ctx context.Context,
	contentID uuid.UUID,
	input UpdateContentInput,
	actor string,
) (*domain.WriteResult, error) {
	item, err := s.navigator.Head(ctx, contentID)
	if err != nil {
		return nil, err
	}

	state := item.PublishState
	if input.PublishState != nil {
		state = *input.PublishState
	}

	return s.writer.Append(ctx, AppendRequest{
		ContentID:      contentID,
		ExpectedHead:   input.ExpectedHead,
		Fields:         input.Fields,
		AttachmentRefs: input.Attachments,
		PublishState:   state,
		Actor:          actor,
	})
}

// SetPublishState меняет состояние публикации, копируя поля ожидаемой head версии
func (s *ContentService) SetPublishState(
	ctx context.Context,
	contentID uuid.UUID,
	state domain.PublishState,
	expectedHead int,
	actor string,
) (*domain.WriteResult, error) {
	item, err := s.navigator.Head(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if item.HeadVersion != expectedHead {
		staleWrites.Inc()
		return nil, &domain.StaleWriteError{ContentID: contentID, Expected: expectedHead, Actual: item.HeadVersion}
	}

	head, err := s.navigator.get(ctx, item, expectedHead)
	if err != nil {
		return nil, err
	}

	return s.writer.Append(ctx, AppendRequest{
		ContentID:      contentID,
		ExpectedHead:   expectedHead,
		Fields:         head.Fields,
		AttachmentRefs: head.AttachmentRefs,
		PublishState:   state,
		Actor:          actor,
	})
}

// DeleteContent переводит материал в терминальное состояние DELETED.
// Строки не удаляются, история остается целой.
func (s *ContentService) DeleteContent(ctx context.Context, contentID uuid.UUID, expectedHead int, actor string) (*domain.WriteResult, error) {
	return s.SetPublishState(ctx, contentID, domain.PublishStateDeleted, expectedHead, actor)
}

// GetContent возвращает материал и снимок его head версии
func (s *ContentService) GetContent(ctx context.Context, contentID uuid.UUID) (*domain.ContentDetail, error) {
	item, err := s.navigator.Head(ctx, contentID)
	if err != nil {
		return nil, err
	}
	head, err := s.navigator.get(ctx, item, item.HeadVersion)
	if err != nil {
		return nil, err
	}
	return &domain.ContentDetail{Content: *item, Head: *head}, nil
}

// ListContent возвращает материалы для списков
func (s *ContentService) ListContent(ctx context.Context, filter domain.ContentFilter) ([]domain.ContentItem, error) {
	items, err := s.contents.ListContent(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return items, nil
}

func (s *ContentService) ListVersions(ctx context.Context, contentID uuid.UUID) ([]domain.VersionSummary, error) {
	return s.navigator.List(ctx, contentID)
}

func (s *ContentService) GetVersion(ctx context.Context, contentID uuid.UUID, number int) (*domain.Version, error) {
	return s.navigator.Get(ctx, contentID, number)
}

func (s *ContentService) NextVersion(ctx context.Context, contentID uuid.UUID, number int) (*domain.Version, error) {
	return s.navigator.Next(ctx, contentID, number)
}

func (s *ContentService) PreviousVersion(ctx context.Context, contentID uuid.UUID, number int) (*domain.Version, error) {
	return s.navigator.Previous(ctx, contentID, number)
}

// RestoreVersion копирует версию в новую head версию
func (s *ContentService) RestoreVersion(ctx context.Context, contentID uuid.UUID, number int, actor string) (*domain.WriteResult, error) {
	return s.restorer.Restore(ctx, contentID, number, actor)
}

// Browse открывает сессию просмотра истории
func (s *ContentService) Browse(ctx context.Context, contentID uuid.UUID) (*BrowseSession, error) {
	return NewBrowseSession(ctx, s.navigator, s.restorer, contentID)
}
