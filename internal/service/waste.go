// waste.go — учёт сданных отходов и начисление баллов.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/repository"
)

var (
	wasteKgTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cc_waste_kg_total",
		Help: "Суммарный вес сданных отходов по типам.",
	}, []string{"waste_type"})

	pointsIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cc_points_issued_total",
		Help: "Количество начисленных баллов.",
	})
)

// WasteService — сервис учёта отходов.
type WasteService struct {
	uow    repository.UnitOfWork
	waste  repository.WasteRepository
	points repository.CollectionPointRepository
	logger *slog.Logger
}

// NewWasteService создаёт сервис учёта отходов.
func NewWasteService(
	uow repository.UnitOfWork,
	waste repository.WasteRepository,
	points repository.CollectionPointRepository,
	logger *slog.Logger,
) *WasteService {
	return &WasteService{
		uow:    uow,
		waste:  waste,
		points: points,
		logger: logger.With(slog.String("component", "waste_service")),
	}
}

// Submit проверяет форму и атомарно сохраняет запись, начисляет баллы
// и пишет движение баллов.
func (s *WasteService) Submit(ctx context.Context, userID string, form WasteForm) (*model.WasteEntry, error) {
	entry, err := form.entry(userID)
	if err != nil {
		return nil, err
	}

	if entry.CollectionPointID != nil {
		if !isID(*entry.CollectionPointID) {
			return nil, FieldErrors{"collection_point_id": MsgUnknownPoint}.Err()
		}
		cp, err := s.points.GetByID(ctx, *entry.CollectionPointID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, FieldErrors{"collection_point_id": MsgUnknownPoint}.Err()
		case err != nil:
			return nil, fmt.Errorf("ошибка получения пункта приёма: %w", err)
		case !cp.Accepts(entry.WasteType):
			return nil, FieldErrors{"collection_point_id": MsgPointRejects}.Err()
		}
	}

	err = s.uow.Do(ctx, func(r repository.TxRepos) error {
		if err := r.Waste.Create(ctx, entry); err != nil {
			return err
		}
		if err := r.Points.Credit(ctx, userID, entry.PointsEarned); err != nil {
			return err
		}
		return r.Points.AddTransaction(ctx, &model.PointTransaction{
			UserID:      userID,
			Amount:      entry.PointsEarned,
			Kind:        model.TransactionEarn,
			ReferenceID: entry.ID,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: счёт баллов пользователя %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("ошибка сохранения записи об отходах: %w", err)
	}

	wasteKgTotal.WithLabelValues(string(entry.WasteType)).Add(entry.WeightKg)
	pointsIssuedTotal.Add(float64(entry.PointsEarned))

	s.logger.Info("Отходы учтены",
		slog.String("user_id", userID),
		slog.String("waste_type", string(entry.WasteType)),
		slog.Float64("weight_kg", entry.WeightKg),
		slog.Int("points", entry.PointsEarned),
	)
	return entry, nil
}

// ListMine возвращает записи пользователя.
func (s *WasteService) ListMine(ctx context.Context, userID string, limit, offset int) ([]*model.WasteEntry, error) {
	items, err := s.waste.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записей об отходах: %w", err)
	}
	return items, nil
}

// TotalsMine возвращает вес по типам для пользователя.
func (s *WasteService) TotalsMine(ctx context.Context, userID string) ([]model.WasteTotal, error) {
	totals, err := s.waste.TotalsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации отходов: %w", err)
	}
	return totals, nil
}
