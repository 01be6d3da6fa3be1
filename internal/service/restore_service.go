package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"examcms/internal/domain"
)

// RestoreService восстанавливает прошлую версию копированием: снимок целевой
// версии записывается как новая head версия, история никогда не откатывается.
type RestoreService struct {
	navigator *VersionNavigator
	writer    *VersionWriter
	logger    *slog.Logger
}

func NewRestoreService(navigator *VersionNavigator, writer *VersionWriter, logger *slog.Logger) *RestoreService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RestoreService{
		navigator: navigator,
		writer:    writer,
		logger:    logger,
	}
}

// Restore копирует версию target в новую версию head+1
func (s *RestoreService) Restore(ctx context.Context, contentID uuid.UUID, target int, actor string) (*domain.WriteResult, error) {
	item, err := s.navigator.Head(ctx, contentID)
	if err != nil {
		return nil, err
	}

	source, err := s.navigator.get(ctx, item, target)
	if err != nil {
		return nil, err
	}

	if item.PublishState.IsTerminal() {
		return nil, &domain.InvalidTransitionError{From: item.PublishState, To: source.PublishState}
	}

	result, err := s.writer.Append(ctx, AppendRequest{
		ContentID:      item.ID,
		ExpectedHead:   item.HeadVersion,
		Fields:         source.Fields,
		AttachmentRefs: source.AttachmentRefs,
		PublishState:   source.PublishState,
		Actor:          actor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to restore version %d: %w", target, err)
	}

	restoresTotal.Inc()
	s.logger.InfoContext(ctx, "content version restored",
		"content_id", item.ID,
		"restored_version", target,
		"new_version", result.Version,
		"actor", actor,
	)

	return result, nil
}
