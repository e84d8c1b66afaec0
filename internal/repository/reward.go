package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
)

// RewardRepository — интерфейс для таблиц rewards и user_rewards.
type RewardRepository interface {
	// List возвращает каталог; activeOnly — только активные позиции.
	List(ctx context.Context, activeOnly bool) ([]*model.Reward, error)
	// GetByID возвращает позицию каталога.
	GetByID(ctx context.Context, id string) (*model.Reward, error)
	// GetForUpdate возвращает позицию с блокировкой строки (только в транзакции).
	GetForUpdate(ctx context.Context, id string) (*model.Reward, error)
	// DecrementStock уменьшает остаток на единицу; ErrConflict, если остатка нет.
	DecrementStock(ctx context.Context, id string) error
	// CreateRedemption записывает обмен.
	CreateRedemption(ctx context.Context, red *model.Redemption) error
	// ListRedemptions возвращает обмены пользователя, новые первыми.
	ListRedemptions(ctx context.Context, userID string, limit int) ([]*model.Redemption, error)
	// CountRedemptions возвращает общее количество обменов.
	CountRedemptions(ctx context.Context) (int, error)
}

type rewardRepo struct {
	db DBTX
}

// NewRewardRepository создаёт репозиторий вознаграждений.
func NewRewardRepository(db DBTX) RewardRepository {
	return &rewardRepo{db: db}
}

const rewardColumns = `id, title, description, points_cost, stock, active, created_at`

func scanReward(row pgx.Row) (*model.Reward, error) {
	rw := &model.Reward{}
	err := row.Scan(&rw.ID, &rw.Title, &rw.Description, &rw.PointsCost, &rw.Stock, &rw.Active, &rw.CreatedAt)
	return rw, err
}

func (r *rewardRepo) List(ctx context.Context, activeOnly bool) ([]*model.Reward, error) {
	query := fmt.Sprintf(`SELECT %s FROM rewards`, rewardColumns)
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY points_cost, title`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения каталога: %w", err)
	}
	defer rows.Close()

	var result []*model.Reward
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования позиции каталога: %w", err)
		}
		result = append(result, rw)
	}
	return result, rows.Err()
}

func (r *rewardRepo) GetByID(ctx context.Context, id string) (*model.Reward, error) {
	return r.get(ctx, fmt.Sprintf(`SELECT %s FROM rewards WHERE id = $1`, rewardColumns), id)
}

func (r *rewardRepo) GetForUpdate(ctx context.Context, id string) (*model.Reward, error) {
	return r.get(ctx, fmt.Sprintf(`SELECT %s FROM rewards WHERE id = $1 FOR UPDATE`, rewardColumns), id)
}

func (r *rewardRepo) get(ctx context.Context, query, id string) (*model.Reward, error) {
	rw, err := scanReward(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения позиции каталога: %w", err)
	}
	return rw, nil
}

func (r *rewardRepo) DecrementStock(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE rewards SET stock = stock - 1 WHERE id = $1 AND stock > 0`, id)
	if err != nil {
		return fmt.Errorf("ошибка списания остатка: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: позиция закончилась", ErrConflict)
	}
	return nil
}

func (r *rewardRepo) CreateRedemption(ctx context.Context, red *model.Redemption) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO user_rewards (user_id, reward_id, points_spent)
		VALUES ($1, $2, $3)
		RETURNING id, redeemed_at`,
		red.UserID, red.RewardID, red.PointsSpent,
	).Scan(&red.ID, &red.RedeemedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи обмена: %w", err)
	}
	return nil
}

func (r *rewardRepo) ListRedemptions(ctx context.Context, userID string, limit int) ([]*model.Redemption, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ur.id, ur.user_id, ur.reward_id, rw.title, ur.points_spent, ur.redeemed_at
		FROM user_rewards ur
		JOIN rewards rw ON rw.id = ur.reward_id
		WHERE ur.user_id = $1
		ORDER BY ur.redeemed_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения обменов: %w", err)
	}
	defer rows.Close()

	var result []*model.Redemption
	for rows.Next() {
		red := &model.Redemption{}
		if err := rows.Scan(&red.ID, &red.UserID, &red.RewardID, &red.RewardTitle, &red.PointsSpent, &red.RedeemedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования обмена: %w", err)
		}
		result = append(result, red)
	}
	return result, rows.Err()
}

func (r *rewardRepo) CountRedemptions(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_rewards`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта обменов: %w", err)
	}
	return count, nil
}
