//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"examcms/internal/domain"
)

func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("examcms"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrate.New("file://../../migrations", dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("failed to run migrations: %v", err)
	}
	m.Close()

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresContentRepository(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	contents := NewContentRepository(db)
	attachments := NewAttachmentRepository(db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, attachments.Create(ctx, &domain.Attachment{
		FileKey:    "k1",
		FileName:   "liite.pdf",
		MIMEType:   "application/pdf",
		SizeBytes:  10,
		Language:   domain.LanguageFI,
		UploadedBy: testActor,
		UploadedAt: now,
	}))

	missing, err := attachments.FindMissing(ctx, []string{"k1", "k2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"k2"}, missing)

	id := uuid.New()
	item := &domain.ContentItem{
		ID:           id,
		Exam:         domain.ExamPUHVI,
		ContentType:  domain.ContentTypeCertificate,
		PublishState: domain.PublishStateDraft,
		CreatedBy:    testActor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	initial := testVersion(id, 0, domain.PublishStateDraft)
	initial.AttachmentRefs = nil
	require.NoError(t, contents.CreateContent(ctx, item, initial))

	stored, err := contents.GetVersion(ctx, id, 0)
	require.NoError(t, err)
	assert.NotNil(t, stored.AttachmentRefs)
	assert.Empty(t, stored.AttachmentRefs)

	require.NoError(t, contents.AppendVersion(ctx, testVersion(id, 1, domain.PublishStatePublished), 0))

	err = contents.AppendVersion(ctx, testVersion(id, 1, domain.PublishStateDraft), 0)
	var stale *domain.StaleWriteError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, 1, stale.Actual)

	got, err := contents.GetContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.HeadVersion)
	assert.Equal(t, domain.PublishStatePublished, got.PublishState)

	v1, err := contents.GetVersion(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.AttachmentRefs{{FileKey: "k1", Name: "liite.pdf", Language: domain.LanguageFI}}, v1.AttachmentRefs)

	summaries, err := contents.ListVersions(ctx, id, 1, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].VersionNumber)

	exam := domain.ExamPUHVI
	items, err := contents.ListContent(ctx, domain.ContentFilter{Exam: &exam})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
}

func TestPostgresConcurrentAppendsOneWinner(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	contents := NewContentRepository(db)

	id := uuid.New()
	now := time.Now().UTC()
	require.NoError(t, contents.CreateContent(ctx, &domain.ContentItem{
		ID:           id,
		Exam:         domain.ExamLD,
		ContentType:  domain.ContentTypeInstruction,
		PublishState: domain.PublishStateDraft,
		CreatedBy:    testActor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, testVersion(id, 0, domain.PublishStateDraft)))

	const writers = 8
	results := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = contents.AppendVersion(ctx, testVersion(id, 1, domain.PublishStateDraft), 0)
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
}
