package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"examcms/internal/domain"
	"examcms/internal/repository"
)

// AppendRequest - данные для новой версии. Пустой ContentID означает создание
// материала: тогда обязательны Exam и ContentType, а ExpectedHead игнорируется.
type AppendRequest struct {
	ContentID      uuid.UUID
	Exam           domain.Exam
	ContentType    domain.ContentType
	ExpectedHead   int
	Fields         domain.Fields
	AttachmentRefs domain.AttachmentRefs
	PublishState   domain.PublishState
	Actor          string
}

type newContent struct {
	Exam        domain.Exam        `validate:"required,oneof=SUKO LD PUHVI"`
	ContentType domain.ContentType `validate:"required,oneof=ASSIGNMENT INSTRUCTION CERTIFICATE"`
}

// VersionWriter - единственный компонент, который добавляет версии в хранилище
type VersionWriter struct {
	contents    repository.ContentStore
	attachments repository.AttachmentStore
	logger      *slog.Logger
	now         func() time.Time
}

func NewVersionWriter(
	contents repository.ContentStore,
	attachments repository.AttachmentStore,
	logger *slog.Logger,
) *VersionWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &VersionWriter{
		contents:    contents,
		attachments: attachments,
		logger:      logger,
		now: func() time.Time {
			// PostgreSQL хранит микросекунды
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// Append добавляет новую версию и сдвигает head материала
func (w *VersionWriter) Append(ctx context.Context, req AppendRequest) (*domain.WriteResult, error) {
	start := time.Now()
	defer func() { appendDuration.Observe(time.Since(start).Seconds()) }()

	if req.Actor == "" {
		return nil, &domain.ValidationError{Reason: "actor is required"}
	}
	if err := validateSnapshot(req.Fields, req.AttachmentRefs); err != nil {
		return nil, err
	}

	if req.ContentID == uuid.Nil {
		return w.create(ctx, req)
	}

	item, err := w.contents.GetContent(ctx, req.ContentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}

	// Дешевая проверка до обращения к реестру; окончательную делает хранилище
	if item.HeadVersion != req.ExpectedHead {
		staleWrites.Inc()
		return nil, &domain.StaleWriteError{ContentID: item.ID, Expected: req.ExpectedHead, Actual: item.HeadVersion}
	}

	transition := domain.Transition{From: item.PublishState, To: req.PublishState}
	if err := transition.Check(); err != nil {
		return nil, err
	}

	if err := w.checkAttachments(ctx, req.AttachmentRefs); err != nil {
		return nil, err
	}

	version := &domain.Version{
		ContentID:      item.ID,
		VersionNumber:  item.HeadVersion + 1,
		Fields:         req.Fields.Clone(),
		AttachmentRefs: req.AttachmentRefs.Clone(),
		PublishState:   req.PublishState,
		UpdatedBy:      req.Actor,
		UpdatedAt:      w.now(),
	}

	if err := w.contents.AppendVersion(ctx, version, req.ExpectedHead); err != nil {
		var stale *domain.StaleWriteError
		if errors.As(err, &stale) {
			staleWrites.Inc()
		}
		return nil, fmt.Errorf("failed to append version: %w", err)
	}

	versionsAppended.WithLabelValues(transition.Kind()).Inc()
	w.logger.InfoContext(ctx, "content version appended",
		"content_id", version.ContentID,
		"version", version.VersionNumber,
		"transition", transition.Kind(),
		"actor", req.Actor,
	)

	return &domain.WriteResult{
		ContentID:    version.ContentID,
		Version:      version.VersionNumber,
		PublishState: version.PublishState,
		Notification: transition.Notification(),
	}, nil
}

// create создает материал с версией 0
func (w *VersionWriter) create(ctx context.Context, req AppendRequest) (*domain.WriteResult, error) {
	if err := validate.Struct(newContent{Exam: req.Exam, ContentType: req.ContentType}); err != nil {
		return nil, validationError(err)
	}

	transition := domain.Transition{To: req.PublishState}
	if err := transition.Check(); err != nil {
		return nil, err
	}

	if err := w.checkAttachments(ctx, req.AttachmentRefs); err != nil {
		return nil, err
	}

	now := w.now()
	item := &domain.ContentItem{
		ID:           uuid.New(),
		Exam:         req.Exam,
		ContentType:  req.ContentType,
		HeadVersion:  0,
		PublishState: req.PublishState,
		CreatedBy:    req.Actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	initial := &domain.Version{
		ContentID:      item.ID,
		VersionNumber:  0,
		Fields:         req.Fields.Clone(),
		AttachmentRefs: req.AttachmentRefs.Clone(),
		PublishState:   req.PublishState,
		UpdatedBy:      req.Actor,
		UpdatedAt:      now,
	}

	if err := w.contents.CreateContent(ctx, item, initial); err != nil {
		return nil, fmt.Errorf("failed to create content: %w", err)
	}

	versionsAppended.WithLabelValues(transition.Kind()).Inc()
	w.logger.InfoContext(ctx, "content created",
		"content_id", item.ID,
		"exam", item.Exam,
		"content_type", item.ContentType,
		"actor", req.Actor,
	)

	return &domain.WriteResult{
		ContentID:    item.ID,
		Version:      0,
		PublishState: item.PublishState,
		Notification: transition.Notification(),
	}, nil
}

// checkAttachments проверяет, что все ключи уже загружены в реестр
func (w *VersionWriter) checkAttachments(ctx context.Context, refs domain.AttachmentRefs) error {
	if len(refs) == 0 {
		return nil
	}

	missing, err := w.attachments.FindMissing(ctx, refs.Keys())
	if err != nil {
		return fmt.Errorf("failed to check attachments: %w", err)
	}
	if len(missing) > 0 {
		return &domain.AttachmentNotFoundError{FileKeys: missing}
	}
	return nil
}
