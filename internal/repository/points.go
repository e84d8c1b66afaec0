package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
)

// PointsRepository — интерфейс для таблиц user_points и point_transactions.
type PointsRepository interface {
	// Get возвращает баланс пользователя.
	Get(ctx context.Context, userID string) (*model.UserPoints, error)
	// GetForUpdate возвращает баланс с блокировкой строки (только в транзакции).
	GetForUpdate(ctx context.Context, userID string) (*model.UserPoints, error)
	// Credit начисляет баллы (баланс и lifetime_earned).
	Credit(ctx context.Context, userID string, amount int) error
	// Debit списывает баллы; ErrConflict при нехватке.
	Debit(ctx context.Context, userID string, amount int) error
	// AddTransaction записывает движение баллов.
	AddTransaction(ctx context.Context, tx *model.PointTransaction) error
	// ListTransactions возвращает последние движения пользователя.
	ListTransactions(ctx context.Context, userID string, limit int) ([]*model.PointTransaction, error)
	// Totals возвращает суммарно начисленные и списанные баллы.
	Totals(ctx context.Context) (issued, redeemed int, err error)
}

type pointsRepo struct {
	db DBTX
}

// NewPointsRepository создаёт репозиторий баллов.
func NewPointsRepository(db DBTX) PointsRepository {
	return &pointsRepo{db: db}
}

func (r *pointsRepo) Get(ctx context.Context, userID string) (*model.UserPoints, error) {
	return r.get(ctx, `SELECT user_id, balance, lifetime_earned, updated_at FROM user_points WHERE user_id = $1`, userID)
}

func (r *pointsRepo) GetForUpdate(ctx context.Context, userID string) (*model.UserPoints, error) {
	return r.get(ctx, `SELECT user_id, balance, lifetime_earned, updated_at FROM user_points WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *pointsRepo) get(ctx context.Context, query, userID string) (*model.UserPoints, error) {
	p := &model.UserPoints{}
	err := r.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.Balance, &p.LifetimeEarned, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return p, nil
}

func (r *pointsRepo) Credit(ctx context.Context, userID string, amount int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE user_points
		SET balance = balance + $2, lifetime_earned = lifetime_earned + $2, updated_at = NOW()
		WHERE user_id = $1`, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка начисления баллов: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pointsRepo) Debit(ctx context.Context, userID string, amount int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE user_points
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2`, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка списания баллов: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: недостаточно баллов", ErrConflict)
	}
	return nil
}

func (r *pointsRepo) AddTransaction(ctx context.Context, t *model.PointTransaction) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO point_transactions (user_id, amount, kind, reference_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		t.UserID, t.Amount, t.Kind, t.ReferenceID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи движения баллов: %w", err)
	}
	return nil
}

func (r *pointsRepo) ListTransactions(ctx context.Context, userID string, limit int) ([]*model.PointTransaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, amount, kind, reference_id, created_at
		FROM point_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения движений баллов: %w", err)
	}
	defer rows.Close()

	var result []*model.PointTransaction
	for rows.Next() {
		t := &model.PointTransaction{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Kind, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования движения баллов: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *pointsRepo) Totals(ctx context.Context) (issued, redeemed int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = 'earn'), 0),
			COALESCE(-SUM(amount) FILTER (WHERE kind = 'redeem'), 0)
		FROM point_transactions`).Scan(&issued, &redeemed)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка агрегации баллов: %w", err)
	}
	return issued, redeemed, nil
}
