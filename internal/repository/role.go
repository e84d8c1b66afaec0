package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/cleancity/portal/internal/domain/rbac"
)

// RoleRepository — интерфейс для таблицы user_roles и функции has_role.
type RoleRepository interface {
	// HasRole вызывает SQL-функцию has_role(user_id, role).
	HasRole(ctx context.Context, userID string, role rbac.Role) (bool, error)
	// Grant назначает роль (идемпотентно).
	Grant(ctx context.Context, userID string, role rbac.Role) error
}

type roleRepo struct {
	db DBTX
}

// NewRoleRepository создаёт репозиторий ролей.
func NewRoleRepository(db DBTX) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) HasRole(ctx context.Context, userID string, role rbac.Role) (bool, error) {
	if !role.IsValid() {
		return false, fmt.Errorf("%w: %q", rbac.ErrUnknownRole, role)
	}
	var has bool
	if err := r.db.QueryRow(ctx, `SELECT has_role($1, $2)`, userID, string(role)).Scan(&has); err != nil {
		return false, fmt.Errorf("ошибка проверки роли: %w", err)
	}
	return has, nil
}

func (r *roleRepo) Grant(ctx context.Context, userID string, role rbac.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: %q", rbac.ErrUnknownRole, role)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING`, userID, string(role))
	if err != nil {
		return fmt.Errorf("ошибка назначения роли: %w", err)
	}
	return nil
}
