package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"examcms/internal/domain"
	"examcms/internal/repository"
	"examcms/internal/service/s3"
)

// Максимальный размер вложения по умолчанию
const defaultMaxAttachmentSize = 50 * 1024 * 1024 // 50MB

// AttachmentService загружает вложения в хранилище и регистрирует их в реестре
type AttachmentService struct {
	attachments repository.AttachmentStore
	storage     s3.Storage
	maxSize     int64
	logger      *slog.Logger
}

func NewAttachmentService(
	attachments repository.AttachmentStore,
	storage s3.Storage,
	maxSize int64,
	logger *slog.Logger,
) *AttachmentService {
	if maxSize <= 0 {
		maxSize = defaultMaxAttachmentSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AttachmentService{
		attachments: attachments,
		storage:     storage,
		maxSize:     maxSize,
		logger:      logger,
	}
}

// MaxSize возвращает лимит размера вложения в байтах
func (s *AttachmentService) MaxSize() int64 {
	return s.maxSize
}

// Upload сохраняет данные и регистрирует вложение под новым ключом
func (s *AttachmentService) Upload(ctx context.Context, upload domain.AttachmentUpload) (*domain.Attachment, error) {
	if err := validate.Struct(upload); err != nil {
		return nil, validationError(err)
	}
	if int64(len(upload.Data)) > s.maxSize {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("attachment exceeds maximum size of %d bytes", s.maxSize)}
	}

	attachment := &domain.Attachment{
		FileKey:    uuid.New().String(),
		FileName:   upload.FileName,
		MIMEType:   upload.MIMEType,
		SizeBytes:  int64(len(upload.Data)),
		Language:   upload.Language,
		UploadedBy: upload.UploadedBy,
		UploadedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	objectKey := domain.AttachmentObjectKey(attachment.FileKey)
	if err := s.storage.UploadBytes(ctx, objectKey, upload.Data, upload.MIMEType); err != nil {
		return nil, fmt.Errorf("failed to store attachment data: %w", err)
	}

	if err := s.attachments.Create(ctx, attachment); err != nil {
		// При ошибке удаляем объект, чтобы не оставлять сирот в хранилище
		if deleteErr := s.storage.DeleteObject(ctx, objectKey); deleteErr != nil {
			s.logger.WarnContext(ctx, "failed to delete attachment data after registry error",
				"file_key", attachment.FileKey, "error", deleteErr)
		}
		return nil, fmt.Errorf("failed to register attachment: %w", err)
	}

	attachmentsUploaded.Inc()
	attachmentBytes.Add(float64(attachment.SizeBytes))
	s.logger.InfoContext(ctx, "attachment uploaded",
		"file_key", attachment.FileKey,
		"size_bytes", attachment.SizeBytes,
		"actor", upload.UploadedBy,
	)

	return attachment, nil
}

// Get возвращает метаданные вложения
func (s *AttachmentService) Get(ctx context.Context, fileKey string) (*domain.Attachment, error) {
	attachment, err := s.attachments.GetByKey(ctx, fileKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return attachment, nil
}

// Download возвращает метаданные и поток данных вложения. Поток закрывает вызывающий.
func (s *AttachmentService) Download(ctx context.Context, fileKey string) (*domain.Attachment, s3.S3Object, error) {
	attachment, err := s.Get(ctx, fileKey)
	if err != nil {
		return nil, nil, err
	}

	object, err := s.storage.GetObject(ctx, domain.AttachmentObjectKey(fileKey))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read attachment data: %w", err)
	}
	return attachment, object, nil
}
