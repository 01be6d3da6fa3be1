package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"examcms/internal/domain"
	"examcms/internal/repository"
)

// VersionNavigator - обход истории версий только на чтение
type VersionNavigator struct {
	contents repository.ContentStore
}

func NewVersionNavigator(contents repository.ContentStore) *VersionNavigator {
	return &VersionNavigator{contents: contents}
}

// Head возвращает материал с текущим номером head
func (n *VersionNavigator) Head(ctx context.Context, contentID uuid.UUID) (*domain.ContentItem, error) {
	item, err := n.contents.GetContent(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return item, nil
}

// List возвращает историю 1..head. Версия 0 - точка создания, а не изменение,
// поэтому в список не попадает. Показать и восстановить можно только версии
// раньше head.
func (n *VersionNavigator) List(ctx context.Context, contentID uuid.UUID) ([]domain.VersionSummary, error) {
	item, err := n.Head(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if item.HeadVersion == 0 {
		return []domain.VersionSummary{}, nil
	}

	summaries, err := n.contents.ListVersions(ctx, contentID, 1, item.HeadVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	restorable := !item.PublishState.IsTerminal()
	for i := range summaries {
		s := &summaries[i]
		s.Current = s.VersionNumber == item.HeadVersion
		s.CanShow = s.VersionNumber < item.HeadVersion
		s.CanRestore = s.CanShow && restorable
	}
	return summaries, nil
}

// Get возвращает полный снимок версии
func (n *VersionNavigator) Get(ctx context.Context, contentID uuid.UUID, number int) (*domain.Version, error) {
	item, err := n.Head(ctx, contentID)
	if err != nil {
		return nil, err
	}
	return n.get(ctx, item, number)
}

// Next возвращает следующую версию. На head это no-op.
func (n *VersionNavigator) Next(ctx context.Context, contentID uuid.UUID, number int) (*domain.Version, error) {
	item, err := n.Head(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := checkRange(item, number); err != nil {
		return nil, err
	}
	if number < item.HeadVersion {
		number++
	}
	return n.get(ctx, item, number)
}

// Previous возвращает предыдущую версию. На версии 0 это no-op.
func (n *VersionNavigator) Previous(ctx context.Context, contentID uuid.UUID, number int) (*domain.Version, error) {
	item, err := n.Head(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := checkRange(item, number); err != nil {
		return nil, err
	}
	if number > 0 {
		number--
	}
	return n.get(ctx, item, number)
}

func (n *VersionNavigator) get(ctx context.Context, item *domain.ContentItem, number int) (*domain.Version, error) {
	if err := checkRange(item, number); err != nil {
		return nil, err
	}

	version, err := n.contents.GetVersion(ctx, item.ID, number)
	if errors.Is(err, repository.ErrVersionNotStored) {
		// Номера непрерывны, так что это нарушение целостности хранилища
		return nil, fmt.Errorf("version %d of content %s is missing in store: %w", number, item.ID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

func checkRange(item *domain.ContentItem, number int) error {
	if number < 0 || number > item.HeadVersion {
		return &domain.VersionNotFoundError{ContentID: item.ID, Version: number, Head: item.HeadVersion}
	}
	return nil
}
