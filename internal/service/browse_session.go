package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"examcms/internal/domain"
)

// BrowseMode - режим просмотра истории
type BrowseMode int

const (
	BrowseAtHead BrowseMode = iota
	BrowseBrowsing
)

func (m BrowseMode) String() string {
	if m == BrowseBrowsing {
		return "browsing"
	}
	return "at_head"
}

// BrowseSession - состояние просмотра истории одного материала на стороне клиента.
// AtHead -> Browsing(n) при Show/Next/Previous, Browsing -> AtHead при Stop или
// успешном Restore. Не предназначена для конкурентного использования.
type BrowseSession struct {
	navigator *VersionNavigator
	restorer  *RestoreService
	contentID uuid.UUID

	mode    BrowseMode
	head    int
	current *domain.Version
}

// NewBrowseSession открывает сессию на текущей head версии
func NewBrowseSession(
	ctx context.Context,
	navigator *VersionNavigator,
	restorer *RestoreService,
	contentID uuid.UUID,
) (*BrowseSession, error) {
	s := &BrowseSession{
		navigator: navigator,
		restorer:  restorer,
		contentID: contentID,
	}
	if err := s.Stop(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BrowseSession) Mode() BrowseMode {
	return s.mode
}

// Head возвращает номер head версии на момент последнего обновления сессии
func (s *BrowseSession) Head() int {
	return s.head
}

// Current возвращает показываемую версию
func (s *BrowseSession) Current() domain.Version {
	return s.current.Clone()
}

// HasNext сообщает, активна ли кнопка "следующая"
func (s *BrowseSession) HasNext() bool {
	return s.mode == BrowseBrowsing && s.current.VersionNumber < s.head
}

// HasPrevious сообщает, активна ли кнопка "предыдущая"
func (s *BrowseSession) HasPrevious() bool {
	return s.current.VersionNumber > 0
}

// Show переключает просмотр на версию number. Head сама по себе не показывается:
// запрос head возвращает сессию в AtHead.
func (s *BrowseSession) Show(ctx context.Context, number int) error {
	version, err := s.navigator.Get(ctx, s.contentID, number)
	if err != nil {
		return err
	}
	s.current = version
	if number == s.head {
		s.mode = BrowseAtHead
	} else {
		s.mode = BrowseBrowsing
	}
	return nil
}

// Next переходит к следующей версии. В AtHead и на head это no-op,
// шаг на head возвращает сессию в AtHead.
func (s *BrowseSession) Next(ctx context.Context) error {
	if !s.HasNext() {
		return nil
	}
	version, err := s.navigator.Next(ctx, s.contentID, s.current.VersionNumber)
	if err != nil {
		return err
	}
	s.current = version
	if version.VersionNumber == s.head {
		s.mode = BrowseAtHead
	}
	return nil
}

// Previous переходит к предыдущей версии. На версии 0 это no-op.
func (s *BrowseSession) Previous(ctx context.Context) error {
	if !s.HasPrevious() {
		return nil
	}
	version, err := s.navigator.Previous(ctx, s.contentID, s.current.VersionNumber)
	if err != nil {
		return err
	}
	s.current = version
	s.mode = BrowseBrowsing
	return nil
}

// Stop завершает просмотр и показывает актуальную head версию
func (s *BrowseSession) Stop(ctx context.Context) error {
	item, err := s.navigator.Head(ctx, s.contentID)
	if err != nil {
		return err
	}
	version, err := s.navigator.get(ctx, item, item.HeadVersion)
	if err != nil {
		return err
	}
	s.head = item.HeadVersion
	s.current = version
	s.mode = BrowseAtHead
	return nil
}

// Restore восстанавливает показываемую версию и возвращает сессию к новой head
func (s *BrowseSession) Restore(ctx context.Context, actor string) (*domain.WriteResult, error) {
	if s.mode != BrowseBrowsing || s.current.VersionNumber >= s.head {
		return nil, &domain.ValidationError{Reason: "only a version before the head version can be restored"}
	}

	result, err := s.restorer.Restore(ctx, s.contentID, s.current.VersionNumber, actor)
	if err != nil {
		return nil, err
	}

	if err := s.Stop(ctx); err != nil {
		return nil, fmt.Errorf("failed to reload head after restore: %w", err)
	}
	return result, nil
}
