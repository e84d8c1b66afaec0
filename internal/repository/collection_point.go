package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
)

// CollectionPointRepository — интерфейс для таблиц collection_points и collection_schedules.
type CollectionPointRepository interface {
	// List возвращает пункты с расписанием; пустой city — все города.
	List(ctx context.Context, city string) ([]*model.CollectionPoint, error)
	// GetByID возвращает пункт с расписанием.
	GetByID(ctx context.Context, id string) (*model.CollectionPoint, error)
	// Cities возвращает список городов, где есть пункты.
	Cities(ctx context.Context) ([]string, error)
}

type collectionPointRepo struct {
	db DBTX
}

// NewCollectionPointRepository создаёт репозиторий пунктов приёма.
func NewCollectionPointRepository(db DBTX) CollectionPointRepository {
	return &collectionPointRepo{db: db}
}

const cpColumns = `id, name, address, city, region, waste_types, created_at`

func scanCollectionPoint(row pgx.Row) (*model.CollectionPoint, error) {
	cp := &model.CollectionPoint{}
	var types []string
	if err := row.Scan(&cp.ID, &cp.Name, &cp.Address, &cp.City, &cp.Region, &types, &cp.CreatedAt); err != nil {
		return nil, err
	}
	cp.WasteTypes = make([]model.WasteType, 0, len(types))
	for _, t := range types {
		cp.WasteTypes = append(cp.WasteTypes, model.WasteType(t))
	}
	return cp, nil
}

func (r *collectionPointRepo) List(ctx context.Context, city string) ([]*model.CollectionPoint, error) {
	query := fmt.Sprintf(`SELECT %s FROM collection_points`, cpColumns)
	var args []any
	if city != "" {
		query += ` WHERE city = $1`
		args = append(args, city)
	}
	query += ` ORDER BY city, name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пунктов приёма: %w", err)
	}

	var points []*model.CollectionPoint
	byID := make(map[string]*model.CollectionPoint)
	for rows.Next() {
		cp, err := scanCollectionPoint(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("ошибка сканирования пункта приёма: %w", err)
		}
		points = append(points, cp)
		byID[cp.ID] = cp
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка получения пунктов приёма: %w", err)
	}
	if len(points) == 0 {
		return points, nil
	}

	ids := make([]string, 0, len(points))
	for _, cp := range points {
		ids = append(ids, cp.ID)
	}
	if err := r.loadSchedules(ctx, ids, byID); err != nil {
		return nil, err
	}
	return points, nil
}

func (r *collectionPointRepo) GetByID(ctx context.Context, id string) (*model.CollectionPoint, error) {
	query := fmt.Sprintf(`SELECT %s FROM collection_points WHERE id = $1`, cpColumns)
	cp, err := scanCollectionPoint(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пункта приёма: %w", err)
	}
	if err := r.loadSchedules(ctx, []string{cp.ID}, map[string]*model.CollectionPoint{cp.ID: cp}); err != nil {
		return nil, err
	}
	return cp, nil
}

// loadSchedules дополняет пункты расписанием одним запросом.
func (r *collectionPointRepo) loadSchedules(ctx context.Context, ids []string, byID map[string]*model.CollectionPoint) error {
	rows, err := r.db.Query(ctx, `
		SELECT collection_point_id::text, weekday,
			to_char(opens_at, 'HH24:MI'), to_char(closes_at, 'HH24:MI')
		FROM collection_schedules
		WHERE collection_point_id = ANY($1::uuid[])
		ORDER BY weekday, opens_at`, ids)
	if err != nil {
		return fmt.Errorf("ошибка получения расписания: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pointID string
			weekday int
			slot    model.ScheduleSlot
		)
		if err := rows.Scan(&pointID, &weekday, &slot.Opens, &slot.Closes); err != nil {
			return fmt.Errorf("ошибка сканирования расписания: %w", err)
		}
		slot.Weekday = time.Weekday(weekday)
		if cp, ok := byID[pointID]; ok {
			cp.Schedule = append(cp.Schedule, slot)
		}
	}
	return rows.Err()
}

func (r *collectionPointRepo) Cities(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT city FROM collection_points ORDER BY city`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения городов: %w", err)
	}
	defer rows.Close()

	var cities []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, fmt.Errorf("ошибка сканирования города: %w", err)
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}
