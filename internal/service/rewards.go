// rewards.go — каталог вознаграждений и обмен баллов.
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

var rewardsRedeemedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cc_rewards_redeemed_total",
	Help: "Количество попыток обмена баллов по результату.",
}, []string{"result"})

// RewardService — сервис вознаграждений.
type RewardService struct {
	uow     repository.UnitOfWork
	rewards repository.RewardRepository
	points  repository.PointsRepository
	logger  *slog.Logger
}

// NewRewardService создаёт сервис вознаграждений.
func NewRewardService(
	uow repository.UnitOfWork,
	rewards repository.RewardRepository,
	points repository.PointsRepository,
	logger *slog.Logger,
) *RewardService {
	return &RewardService{
		uow:     uow,
		rewards: rewards,
		points:  points,
		logger:  logger.With(slog.String("component", "reward_service")),
	}
}

// Catalog возвращает активные позиции каталога.
func (s *RewardService) Catalog(ctx context.Context) ([]*model.Reward, error) {
	items, err := s.rewards.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения каталога: %w", err)
	}
	return items, nil
}

// Balance возвращает баланс; отсутствие счёта — нулевой баланс.
func (s *RewardService) Balance(ctx context.Context, userID string) (*model.UserPoints, error) {
	p, err := s.points.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.UserPoints{UserID: userID}, nil
		}
		return nil, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return p, nil
}

// History возвращает последние обмены пользователя.
func (s *RewardService) History(ctx context.Context, userID string, limit int) ([]*model.Redemption, error) {
	items, err := s.rewards.ListRedemptions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения обменов: %w", err)
	}
	return items, nil
}

// Redeem обменивает баллы на вознаграждение в одной транзакции:
// блокирует позицию и баланс, списывает баллы и остаток,
// записывает обмен и движение баллов.
func (s *RewardService) Redeem(ctx context.Context, userID, rewardID string) (*model.Redemption, error) {
	if !isID(rewardID) {
		rewardsRedeemedTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: вознаграждение %q", ErrNotFound, rewardID)
	}

	var red *model.Redemption

	err := s.uow.Do(ctx, func(r repository.TxRepos) error {
		rw, err := r.Rewards.GetForUpdate(ctx, rewardID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: вознаграждение %s", ErrNotFound, rewardID)
			}
			return err
		}
		if !rw.Active {
			return fmt.Errorf("%w: вознаграждение %s", ErrNotFound, rewardID)
		}
		if rw.Stock <= 0 {
			return ErrOutOfStock
		}

		bal, err := r.Points.GetForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInsufficientPoints
			}
			return err
		}
		if bal.Balance < rw.PointsCost {
			return ErrInsufficientPoints
		}

		if err := r.Points.Debit(ctx, userID, rw.PointsCost); err != nil {
			return err
		}
		if err := r.Rewards.DecrementStock(ctx, rw.ID); err != nil {
			return err
		}

		red = &model.Redemption{
			UserID:      userID,
			RewardID:    rw.ID,
			RewardTitle: rw.Title,
			PointsSpent: rw.PointsCost,
		}
		if err := r.Rewards.CreateRedemption(ctx, red); err != nil {
			return err
		}
		return r.Points.AddTransaction(ctx, &model.PointTransaction{
			UserID:      userID,
			Amount:      -rw.PointsCost,
			Kind:        model.TransactionRedeem,
			ReferenceID: red.ID,
		})
	})
	if err != nil {
		result := "error"
		switch {
		case errors.Is(err, ErrInsufficientPoints):
			result = "insufficient_points"
		case errors.Is(err, ErrOutOfStock):
			result = "out_of_stock"
		case errors.Is(err, ErrNotFound):
			result = "not_found"
		}
		rewardsRedeemedTotal.WithLabelValues(result).Inc()

		if result != "error" {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка обмена баллов: %w", err)
	}

	rewardsRedeemedTotal.WithLabelValues("ok").Inc()
	s.logger.Info("Баллы обменены",
		slog.String("user_id", userID),
		slog.String("reward_id", rewardID),
		slog.Int("points", red.PointsSpent),
	)
	return red, nil
}
