package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examcms/internal/domain"
)

func TestVersionWriterCreate(t *testing.T) {
	s := newTestServices(t)

	result, err := s.writer.Append(context.Background(), AppendRequest{
		Exam:         domain.ExamLD,
		ContentType:  domain.ContentTypeInstruction,
		Fields:       fieldsNamed("Ohje"),
		PublishState: domain.PublishStateDraft,
		Actor:        testActor,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, result.ContentID)
	assert.Equal(t, 0, result.Version)
	assert.Equal(t, domain.NotificationCreated, result.Notification)

	item, err := s.contents.GetContent(context.Background(), result.ContentID)
	require.NoError(t, err)
	assert.Equal(t, 0, item.HeadVersion)
	assert.Equal(t, domain.ExamLD, item.Exam)
	assert.Equal(t, testActor, item.CreatedBy)

	initial, err := s.contents.GetVersion(context.Background(), result.ContentID, 0)
	require.NoError(t, err)
	assert.NotNil(t, initial.AttachmentRefs)
	assert.Equal(t, testActor, initial.UpdatedBy)
}

func TestVersionWriterNumbersAreContiguous(t *testing.T) {
	s := newTestServices(t)
	id := s.create(t, "v0")

	for head := 0; head < 5; head++ {
		result := s.update(t, id, head, "next")
		assert.Equal(t, head+1, result.Version)
	}

	summaries, err := s.contents.ListVersions(context.Background(), id, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, versionNumbers(summaries))
}

func TestVersionWriterStaleExpectedHead(t *testing.T) {
	s := newTestServices(t)
	id := s.create(t, "v0")
	s.update(t, id, 0, "v1")

	_, err := s.writer.Append(context.Background(), AppendRequest{
		ContentID:    id,
		ExpectedHead: 0,
		Fields:       fieldsNamed("late"),
		PublishState: domain.PublishStateDraft,
		Actor:        otherUser,
	})

	var stale *domain.StaleWriteError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, 0, stale.Expected)
	assert.Equal(t, 1, stale.Actual)

	item, err := s.contents.GetContent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, item.HeadVersion)
}

func TestVersionWriterRejectsUnknownAttachments(t *testing.T) {
	s := newTestServices(t)
	known := s.registerAttachment(t, "known")
	id := s.create(t, "v0")

	_, err := s.writer.Append(context.Background(), AppendRequest{
		ContentID:    id,
		ExpectedHead: 0,
		Fields:       fieldsNamed("v1"),
		AttachmentRefs: domain.AttachmentRefs{
			known,
			{FileKey: "ghost", Name: "ghost.pdf", Language: domain.LanguageSV},
		},
		PublishState: domain.PublishStateDraft,
		Actor:        testActor,
	})

	var missing *domain.AttachmentNotFoundError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"ghost"}, missing.FileKeys)

	item, err := s.contents.GetContent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, item.HeadVersion)
}

func TestVersionWriterValidation(t *testing.T) {
	s := newTestServices(t)
	ref := s.registerAttachment(t, "a")
	id := s.create(t, "v0")

	tests := []struct {
		name string
		req  AppendRequest
	}{
		{
			name: "missing actor",
			req:  AppendRequest{ContentID: id, Fields: fieldsNamed("x"), PublishState: domain.PublishStateDraft},
		},
		{
			name: "missing name",
			req:  AppendRequest{ContentID: id, PublishState: domain.PublishStateDraft, Actor: testActor},
		},
		{
			name: "duplicate attachment",
			req: AppendRequest{
				ContentID:      id,
				Fields:         fieldsNamed("x"),
				AttachmentRefs: domain.AttachmentRefs{ref, ref},
				PublishState:   domain.PublishStateDraft,
				Actor:          testActor,
			},
		},
		{
			name: "bad attachment language",
			req: AppendRequest{
				ContentID:      id,
				Fields:         fieldsNamed("x"),
				AttachmentRefs: domain.AttachmentRefs{{FileKey: "a", Name: "a.pdf", Language: "EN"}},
				PublishState:   domain.PublishStateDraft,
				Actor:          testActor,
			},
		},
		{
			name: "unknown exam on create",
			req: AppendRequest{
				Exam:         domain.Exam("YO"),
				ContentType:  domain.ContentTypeAssignment,
				Fields:       fieldsNamed("x"),
				PublishState: domain.PublishStateDraft,
				Actor:        testActor,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.writer.Append(context.Background(), tt.req)
			var invalid *domain.ValidationError
			assert.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
}

func TestVersionWriterRejectsAppendAfterDelete(t *testing.T) {
	s := newTestServices(t)
	id := s.create(t, "v0")

	_, err := s.service.DeleteContent(context.Background(), id, 0, testActor)
	require.NoError(t, err)

	_, err = s.service.UpdateContent(context.Background(), id, UpdateContentInput{
		Fields:       fieldsNamed("zombie"),
		ExpectedHead: 1,
	}, testActor)

	var transition *domain.InvalidTransitionError
	require.True(t, errors.As(err, &transition))
	assert.Equal(t, domain.PublishStateDeleted, transition.From)
}

func TestVersionWriterUnknownContent(t *testing.T) {
	s := newTestServices(t)

	_, err := s.writer.Append(context.Background(), AppendRequest{
		ContentID:    uuid.New(),
		Fields:       fieldsNamed("x"),
		PublishState: domain.PublishStateDraft,
		Actor:        testActor,
	})
	assert.ErrorIs(t, err, domain.ErrContentNotFound)
}
