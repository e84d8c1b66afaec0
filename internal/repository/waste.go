package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
)

// WasteRepository — интерфейс для таблицы waste_entries.
type WasteRepository interface {
	// Create сохраняет запись; ID и время заполняются БД.
	Create(ctx context.Context, e *model.WasteEntry) error
	// ListByUser возвращает записи пользователя, новые первыми.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.WasteEntry, error)
	// TotalsByUser возвращает суммарный вес по типам для пользователя.
	TotalsByUser(ctx context.Context, userID string) ([]model.WasteTotal, error)
	// Totals возвращает суммарный вес по типам по всем пользователям.
	Totals(ctx context.Context) ([]model.WasteTotal, error)
}

type wasteRepo struct {
	db DBTX
}

// NewWasteRepository создаёт репозиторий записей об отходах.
func NewWasteRepository(db DBTX) WasteRepository {
	return &wasteRepo{db: db}
}

func (r *wasteRepo) Create(ctx context.Context, e *model.WasteEntry) error {
	query := `
		INSERT INTO waste_entries (user_id, waste_type, weight_kg, collection_point_id, points_earned)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		e.UserID, e.WasteType, e.WeightKg, e.CollectionPointID, e.PointsEarned,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: пункт приёма или профиль не найден", ErrNotFound)
		}
		return fmt.Errorf("ошибка создания записи об отходах: %w", err)
	}
	return nil
}

func (r *wasteRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.WasteEntry, error) {
	query := `
		SELECT id, user_id, waste_type, weight_kg, collection_point_id, points_earned, created_at
		FROM waste_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записей об отходах: %w", err)
	}
	defer rows.Close()

	var result []*model.WasteEntry
	for rows.Next() {
		e := &model.WasteEntry{}
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.WasteType, &e.WeightKg, &e.CollectionPointID, &e.PointsEarned, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи об отходах: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *wasteRepo) TotalsByUser(ctx context.Context, userID string) ([]model.WasteTotal, error) {
	return r.totals(ctx, `
		SELECT waste_type, SUM(weight_kg)
		FROM waste_entries
		WHERE user_id = $1
		GROUP BY waste_type
		ORDER BY waste_type`, userID)
}

func (r *wasteRepo) Totals(ctx context.Context) ([]model.WasteTotal, error) {
	return r.totals(ctx, `
		SELECT waste_type, SUM(weight_kg)
		FROM waste_entries
		GROUP BY waste_type
		ORDER BY waste_type`)
}

func (r *wasteRepo) totals(ctx context.Context, query string, args ...any) ([]model.WasteTotal, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации отходов: %w", err)
	}
	defer rows.Close()

	var result []model.WasteTotal
	for rows.Next() {
		var t model.WasteTotal
		if err := rows.Scan(&t.WasteType, &t.WeightKg); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агрегата отходов: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
