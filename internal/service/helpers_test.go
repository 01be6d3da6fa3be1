package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"examcms/internal/domain"
	"examcms/internal/repository"
)

const (
	testActor = "user-123"
	otherUser = "user-456"
)

type testServices struct {
	contents    *repository.MemoryContentRepository
	attachments *repository.MemoryAttachmentRepository
	writer      *VersionWriter
	navigator   *VersionNavigator
	restorer    *RestoreService
	service     *ContentService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	contents := repository.NewMemoryContentRepository()
	attachments := repository.NewMemoryAttachmentRepository()
	writer := NewVersionWriter(contents, attachments, logger)
	navigator := NewVersionNavigator(contents)
	restorer := NewRestoreService(navigator, writer, logger)

	return &testServices{
		contents:    contents,
		attachments: attachments,
		writer:      writer,
		navigator:   navigator,
		restorer:    restorer,
		service:     NewContentService(contents, writer, restorer, navigator),
	}
}

func fieldsNamed(name string) domain.Fields {
	return domain.Fields{
		Name:    domain.LocalizedText{Fi: name},
		Content: domain.LocalizedText{Fi: name + " sisältö"},
	}
}

func (s *testServices) registerAttachment(t *testing.T, fileKey string) domain.AttachmentRef {
	t.Helper()
	require.NoError(t, s.attachments.Create(context.Background(), &domain.Attachment{
		FileKey:    fileKey,
		FileName:   fileKey + ".pdf",
		MIMEType:   "application/pdf",
		SizeBytes:  1,
		Language:   domain.LanguageFI,
		UploadedBy: testActor,
	}))
	return domain.AttachmentRef{FileKey: fileKey, Name: fileKey + ".pdf", Language: domain.LanguageFI}
}

func (s *testServices) create(t *testing.T, name string) uuid.UUID {
	t.Helper()
	result, err := s.service.CreateContent(context.Background(), CreateContentInput{
		Exam:        domain.ExamSUKO,
		ContentType: domain.ContentTypeAssignment,
		Fields:      fieldsNamed(name),
	}, testActor)
	require.NoError(t, err)
	return result.ContentID
}

// update добавляет версию с новыми полями, сохраняя состояние head
func (s *testServices) update(t *testing.T, id uuid.UUID, expectedHead int, name string) *domain.WriteResult {
	t.Helper()
	result, err := s.service.UpdateContent(context.Background(), id, UpdateContentInput{
		Fields:       fieldsNamed(name),
		ExpectedHead: expectedHead,
	}, testActor)
	require.NoError(t, err)
	return result
}

func versionNumbers(summaries []domain.VersionSummary) []int {
	numbers := make([]int, 0, len(summaries))
	for _, s := range summaries {
		numbers = append(numbers, s.VersionNumber)
	}
	return numbers
}
