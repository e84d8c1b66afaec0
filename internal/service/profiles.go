// profiles.go — профили и роли пользователей.
// ProfileService реализует session.ProfileSource и session.RoleChecker.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/domain/rbac"
	"github.com/bigkaa/cleancity/portal/internal/identity"
	"github.com/bigkaa/cleancity/portal/internal/repository"
)

// ProfileService — сервис профилей пользователей.
type ProfileService struct {
	profiles repository.ProfileRepository
	roles    repository.RoleRepository
	// bootstrapAdmins — email (нижний регистр), получающие admin при входе
	bootstrapAdmins map[string]bool
	logger          *slog.Logger
}

// NewProfileService создаёт сервис профилей.
func NewProfileService(
	profiles repository.ProfileRepository,
	roles repository.RoleRepository,
	bootstrapAdmins []string,
	logger *slog.Logger,
) *ProfileService {
	admins := make(map[string]bool, len(bootstrapAdmins))
	for _, email := range bootstrapAdmins {
		admins[strings.ToLower(email)] = true
	}
	return &ProfileService{
		profiles:        profiles,
		roles:           roles,
		bootstrapAdmins: admins,
		logger:          logger.With(slog.String("component", "profile_service")),
	}
}

// LoadProfile возвращает профиль пользователя, создавая его при первом входе.
// Имя из метаданных провайдера используется только для нового профиля.
func (s *ProfileService) LoadProfile(ctx context.Context, user identity.User) (*model.Profile, error) {
	p, err := s.profiles.Ensure(ctx, &model.Profile{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: strings.TrimSpace(user.DisplayName),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки профиля %s: %w", user.ID, err)
	}

	if s.bootstrapAdmins[strings.ToLower(user.Email)] {
		if err := s.roles.Grant(ctx, user.ID, rbac.RoleAdmin); err != nil {
			s.logger.Warn("Не удалось выдать роль admin",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return p, nil
}

// UpdateProfile сохраняет изменения профиля пользователя userID.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	if err := s.profiles.Update(ctx, userID, upd); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: профиль %s", ErrNotFound, userID)
		}
		return fmt.Errorf("ошибка обновления профиля: %w", err)
	}

	s.logger.Info("Профиль обновлён", slog.String("user_id", userID))
	return nil
}

// HasRole проверяет роль через SQL-функцию has_role.
func (s *ProfileService) HasRole(ctx context.Context, userID string, role rbac.Role) (bool, error) {
	return s.roles.HasRole(ctx, userID, role)
}
