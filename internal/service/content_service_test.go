package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examcms/internal/domain"
)

func TestContentLifecycleScenario(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	created, err := s.service.CreateContent(ctx, CreateContentInput{
		Exam:        domain.ExamSUKO,
		ContentType: domain.ContentTypeAssignment,
		Fields:      fieldsNamed("v0"),
	}, testActor)
	require.NoError(t, err)
	assert.Equal(t, 0, created.Version)
	assert.Equal(t, domain.PublishStateDraft, created.PublishState)
	id := created.ContentID

	published := domain.PublishStatePublished
	notifications := []domain.NotificationKey{}
	for head := 0; head < 4; head++ {
		input := UpdateContentInput{Fields: fieldsNamed("edit"), ExpectedHead: head}
		if head == 2 {
			input.PublishState = &published
		}
		result, err := s.service.UpdateContent(ctx, id, input, testActor)
		require.NoError(t, err)
		assert.Equal(t, head+1, result.Version)
		notifications = append(notifications, result.Notification)
	}
	assert.Equal(t, []domain.NotificationKey{
		domain.NotificationDraftSaved,
		domain.NotificationDraftSaved,
		domain.NotificationPublished,
		domain.NotificationPublishedSaved,
	}, notifications)

	history, err := s.service.ListVersions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, versionNumbers(history))

	v2, err := s.service.GetVersion(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.PublishStateDraft, v2.PublishState)

	restored, err := s.service.RestoreVersion(ctx, id, 2, testActor)
	require.NoError(t, err)
	assert.Equal(t, 5, restored.Version)
	assert.Equal(t, domain.NotificationReturnedToDraft, restored.Notification)

	history, err = s.service.ListVersions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, versionNumbers(history))

	detail, err := s.service.GetContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, detail.Content.HeadVersion)
	assert.Equal(t, domain.PublishStateDraft, detail.Content.PublishState)
	assert.True(t, v2.Fields.Equal(detail.Head.Fields))
}

func TestAttachmentSetsAreVersionedByValue(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	a := s.registerAttachment(t, "a")
	b := s.registerAttachment(t, "b")

	created, err := s.service.CreateContent(ctx, CreateContentInput{
		Exam:        domain.ExamPUHVI,
		ContentType: domain.ContentTypeCertificate,
		Fields:      fieldsNamed("todistus"),
		Attachments: domain.AttachmentRefs{a},
	}, testActor)
	require.NoError(t, err)
	id := created.ContentID

	_, err = s.service.UpdateContent(ctx, id, UpdateContentInput{
		Fields:       fieldsNamed("todistus"),
		Attachments:  domain.AttachmentRefs{a, b},
		ExpectedHead: 0,
	}, testActor)
	require.NoError(t, err)

	_, err = s.service.UpdateContent(ctx, id, UpdateContentInput{
		Fields:       fieldsNamed("todistus"),
		Attachments:  domain.AttachmentRefs{b},
		ExpectedHead: 1,
	}, testActor)
	require.NoError(t, err)

	expected := map[int][]string{0: {"a"}, 1: {"a", "b"}, 2: {"b"}}
	for number, keys := range expected {
		version, err := s.service.GetVersion(ctx, id, number)
		require.NoError(t, err)
		assert.Equal(t, keys, version.AttachmentRefs.Keys(), "version %d", number)
	}

	_, err = s.service.RestoreVersion(ctx, id, 1, testActor)
	require.NoError(t, err)
	head, err := s.service.GetVersion(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, head.AttachmentRefs.Keys())

	_, err = s.service.RestoreVersion(ctx, id, 0, testActor)
	require.NoError(t, err)
	expected[3] = []string{"a", "b"}
	expected[4] = []string{"a"}

	// Восстановления не меняют наборы вложений прошлых версий
	for number, keys := range expected {
		version, err := s.service.GetVersion(ctx, id, number)
		require.NoError(t, err)
		assert.Equal(t, keys, version.AttachmentRefs.Keys(), "version %d after restores", number)
	}
}

func TestConcurrentUpdatesExactlyOneSucceeds(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	id := s.create(t, "v0")
	s.update(t, id, 0, "v1")

	const editors = 10
	results := make([]error, editors)
	var wg sync.WaitGroup
	for i := 0; i < editors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.service.UpdateContent(ctx, id, UpdateContentInput{
				Fields:       fieldsNamed("kilpaileva"),
				ExpectedHead: 1,
			}, testActor)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var stale *domain.StaleWriteError
		assert.True(t, errors.As(err, &stale), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, successes)

	item, err := s.navigator.Head(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, item.HeadVersion)
}

func TestSetPublishStateCopiesHeadSnapshot(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	id := s.create(t, "v0")
	s.update(t, id, 0, "v1")

	result, err := s.service.SetPublishState(ctx, id, domain.PublishStatePublished, 1, otherUser)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Version)

	v1, err := s.service.GetVersion(ctx, id, 1)
	require.NoError(t, err)
	v2, err := s.service.GetVersion(ctx, id, 2)
	require.NoError(t, err)
	assert.True(t, v1.Fields.Equal(v2.Fields))
	assert.Equal(t, domain.PublishStatePublished, v2.PublishState)
	assert.Equal(t, otherUser, v2.UpdatedBy)

	_, err = s.service.SetPublishState(ctx, id, domain.PublishStateDraft, 1, testActor)
	var stale *domain.StaleWriteError
	assert.True(t, errors.As(err, &stale))
}

func TestDeleteContentKeepsHistory(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	id := s.create(t, "v0")

	result, err := s.service.DeleteContent(ctx, id, 0, testActor)
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationDeleted, result.Notification)

	items, err := s.service.ListContent(ctx, domain.ContentFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = s.service.ListContent(ctx, domain.ContentFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, items, 1)

	v0, err := s.service.GetVersion(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, "v0", v0.Fields.Name.Fi)

	_, err = s.service.DeleteContent(ctx, id, 1, testActor)
	var transition *domain.InvalidTransitionError
	assert.True(t, errors.As(err, &transition))
}
