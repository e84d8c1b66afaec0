// stats.go — сводная статистика для администраторов и панель пользователя.
// Независимые запросы выполняются параллельно через errgroup.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/repository"
)

// Количество последних записей на панели пользователя.
const dashboardRecent = 5

// StatsRepos — источники данных статистики.
type StatsRepos struct {
	Profiles repository.ProfileRepository
	Reports  repository.ReportRepository
	Waste    repository.WasteRepository
	Points   repository.PointsRepository
	Rewards  repository.RewardRepository
}

// Dashboard — данные панели пользователя.
type Dashboard struct {
	Points       model.UserPoints
	Reports      []*model.IssueReport
	Waste        []model.WasteTotal
	Transactions []*model.PointTransaction
}

// StatsService — сервис статистики.
type StatsService struct {
	repos  StatsRepos
	logger *slog.Logger
}

// NewStatsService создаёт сервис статистики.
func NewStatsService(repos StatsRepos, logger *slog.Logger) *StatsService {
	return &StatsService{
		repos:  repos,
		logger: logger.With(slog.String("component", "stats_service")),
	}
}

// Overview собирает сводную статистику (только admin).
func (s *StatsService) Overview(ctx context.Context, actor Actor) (*model.Stats, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}

	stats := &model.Stats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.repos.Profiles.Count(gctx)
		stats.UsersTotal = n
		return err
	})
	g.Go(func() error {
		byStatus, err := s.repos.Reports.CountByStatus(gctx)
		stats.ReportsByStatus = byStatus
		return err
	})
	g.Go(func() error {
		totals, err := s.repos.Waste.Totals(gctx)
		stats.WasteByType = totals
		return err
	})
	g.Go(func() error {
		issued, redeemed, err := s.repos.Points.Totals(gctx)
		stats.PointsIssued, stats.PointsRedeemed = issued, redeemed
		return err
	})
	g.Go(func() error {
		n, err := s.repos.Rewards.CountRedemptions(gctx)
		stats.RedemptionsTotal = n
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ошибка сбора статистики: %w", err)
	}
	return stats, nil
}

// Dashboard собирает панель пользователя: баланс, последние обращения,
// вес отходов по типам и последние движения баллов.
func (s *StatsService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	d := &Dashboard{Points: model.UserPoints{UserID: userID}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.repos.Points.Get(gctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		d.Points = *p
		return nil
	})
	g.Go(func() error {
		items, err := s.repos.Reports.ListByUser(gctx, userID, dashboardRecent, 0)
		d.Reports = items
		return err
	})
	g.Go(func() error {
		totals, err := s.repos.Waste.TotalsByUser(gctx, userID)
		d.Waste = totals
		return err
	})
	g.Go(func() error {
		txs, err := s.repos.Points.ListTransactions(gctx, userID, dashboardRecent)
		d.Transactions = txs
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ошибка сбора панели пользователя: %w", err)
	}
	return d, nil
}
