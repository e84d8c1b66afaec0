package model

import "time"

// Profile — денормализованные атрибуты пользователя.
// Хранится в таблице profiles, user_id совпадает с subject в Keycloak.
type Profile struct {
	// UserID — идентификатор пользователя (sub)
	UserID string
	// Email — адрес электронной почты на момент регистрации
	Email string
	// DisplayName — отображаемое имя
	DisplayName string
	// City — город проживания
	City string
	// Region — регион
	Region string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// ProfileUpdate — частичное обновление профиля.
// nil-поля не изменяются.
type ProfileUpdate struct {
	DisplayName *string
	City        *string
	Region      *string
}

// IsEmpty — true, если обновление не меняет ни одного поля.
func (u ProfileUpdate) IsEmpty() bool {
	return u.DisplayName == nil && u.City == nil && u.Region == nil
}
