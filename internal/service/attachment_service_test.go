package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examcms/internal/domain"
	"examcms/internal/repository"
	"examcms/internal/service/s3"
)

type failingAttachmentStore struct {
	repository.AttachmentStore
}

func (failingAttachmentStore) Create(context.Context, *domain.Attachment) error {
	return errors.New("connection refused")
}

func newTestAttachmentService(store repository.AttachmentStore, maxSize int64) (*AttachmentService, *s3.MemoryStorage) {
	storage := s3.NewMemoryStorage()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAttachmentService(store, storage, maxSize, logger), storage
}

func testUpload(data string) domain.AttachmentUpload {
	return domain.AttachmentUpload{
		FileName:   "liite.pdf",
		MIMEType:   "application/pdf",
		Language:   domain.LanguageSV,
		Data:       []byte(data),
		UploadedBy: testActor,
	}
}

func TestAttachmentServiceUploadAndDownload(t *testing.T) {
	registry := repository.NewMemoryAttachmentRepository()
	svc, storage := newTestAttachmentService(registry, 0)
	ctx := context.Background()

	attachment, err := svc.Upload(ctx, testUpload("%PDF-1.7"))
	require.NoError(t, err)
	assert.NotEmpty(t, attachment.FileKey)
	assert.Equal(t, int64(8), attachment.SizeBytes)
	assert.Equal(t, domain.LanguageSV, attachment.Language)
	assert.Equal(t, 1, storage.Len())
	assert.Equal(t, int64(defaultMaxAttachmentSize), svc.MaxSize())

	meta, object, err := svc.Download(ctx, attachment.FileKey)
	require.NoError(t, err)
	defer object.Close()

	data, err := io.ReadAll(object)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
	assert.Equal(t, "application/pdf", object.ContentType())
	assert.Equal(t, attachment.FileKey, meta.FileKey)

	missing, err := registry.FindMissing(ctx, []string{attachment.FileKey})
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestAttachmentServiceValidation(t *testing.T) {
	svc, storage := newTestAttachmentService(repository.NewMemoryAttachmentRepository(), 4)
	ctx := context.Background()

	tests := []struct {
		name   string
		upload domain.AttachmentUpload
	}{
		{"too large", testUpload("12345")},
		{"empty", testUpload("")},
		{"no language", func() domain.AttachmentUpload { u := testUpload("1"); u.Language = ""; return u }()},
		{"no uploader", func() domain.AttachmentUpload { u := testUpload("1"); u.UploadedBy = ""; return u }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tt.upload)
			var invalid *domain.ValidationError
			assert.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
	assert.Equal(t, 0, storage.Len())
}

func TestAttachmentServiceRemovesObjectWhenRegistryFails(t *testing.T) {
	svc, storage := newTestAttachmentService(failingAttachmentStore{}, 0)

	_, err := svc.Upload(context.Background(), testUpload("data"))
	require.Error(t, err)
	assert.Equal(t, 0, storage.Len())
}

func TestAttachmentServiceGetUnknown(t *testing.T) {
	svc, _ := newTestAttachmentService(repository.NewMemoryAttachmentRepository(), 0)

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrAttachmentNotFound)
}
