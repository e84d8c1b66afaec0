package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
)

// ProfileRepository — интерфейс для таблицы profiles.
type ProfileRepository interface {
	// Get возвращает профиль по user_id.
	Get(ctx context.Context, userID string) (*model.Profile, error)
	// Ensure создаёт профиль и счёт баллов, если их нет, и возвращает профиль.
	Ensure(ctx context.Context, p *model.Profile) (*model.Profile, error)
	// Update применяет частичное обновление.
	Update(ctx context.Context, userID string, upd model.ProfileUpdate) error
	// Count возвращает количество профилей.
	Count(ctx context.Context) (int, error)
}

type profileRepo struct {
	db DBTX
}

// NewProfileRepository создаёт репозиторий профилей.
func NewProfileRepository(db DBTX) ProfileRepository {
	return &profileRepo{db: db}
}

const profileColumns = `user_id, email, display_name, city, region, created_at, updated_at`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(&p.UserID, &p.Email, &p.DisplayName, &p.City, &p.Region, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *profileRepo) Get(ctx context.Context, userID string) (*model.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE user_id = $1`, profileColumns)
	p, err := scanProfile(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения профиля: %w", err)
	}
	return p, nil
}

func (r *profileRepo) Ensure(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO profiles (user_id, email, display_name, city, region)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING`,
		p.UserID, p.Email, p.DisplayName, p.City, p.Region,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания профиля: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO user_points (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания счёта баллов: %w", err)
	}

	return r.Get(ctx, p.UserID)
}

func (r *profileRepo) Update(ctx context.Context, userID string, upd model.ProfileUpdate) error {
	var sets []string
	args := []any{userID}

	add := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("display_name", upd.DisplayName)
	add("city", upd.City)
	add("region", upd.Region)

	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE profiles SET %s, updated_at = NOW() WHERE user_id = $1`,
		strings.Join(sets, ", "))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления профиля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта профилей: %w", err)
	}
	return count, nil
}
