// collection_points.go — пункты приёма и их расписание.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/repository"
)

// CollectionPointService — сервис пунктов приёма.
type CollectionPointService struct {
	repo   repository.CollectionPointRepository
	logger *slog.Logger
}

// NewCollectionPointService создаёт сервис пунктов приёма.
func NewCollectionPointService(repo repository.CollectionPointRepository, logger *slog.Logger) *CollectionPointService {
	return &CollectionPointService{
		repo:   repo,
		logger: logger.With(slog.String("component", "collection_point_service")),
	}
}

// List возвращает пункты приёма; пустой city — все города.
func (s *CollectionPointService) List(ctx context.Context, city string) ([]*model.CollectionPoint, error) {
	items, err := s.repo.List(ctx, strings.TrimSpace(city))
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пунктов приёма: %w", err)
	}
	return items, nil
}

// Get возвращает пункт приёма с расписанием.
func (s *CollectionPointService) Get(ctx context.Context, id string) (*model.CollectionPoint, error) {
	if !isID(id) {
		return nil, fmt.Errorf("%w: пункт приёма %q", ErrNotFound, id)
	}
	cp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: пункт приёма %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("ошибка получения пункта приёма: %w", err)
	}
	return cp, nil
}

// Cities возвращает города, где есть пункты приёма.
func (s *CollectionPointService) Cities(ctx context.Context) ([]string, error) {
	cities, err := s.repo.Cities(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения городов: %w", err)
	}
	return cities, nil
}
