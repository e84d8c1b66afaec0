// Пакет identity — контракт внешнего провайдера идентификации портала
// и его реализация поверх Keycloak.
//
// Провайдер хранит сессию одного клиента (браузера): вход по паролю,
// регистрация, выход, восстановление сессии и push-уведомления
// о смене состояния (SIGNED_IN, SIGNED_OUT, TOKEN_REFRESHED).
package identity

import (
	"context"
	"errors"
	"time"
)

// Ошибки провайдера.
var (
	// ErrInvalidCredentials — неверный email или пароль.
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	// ErrUserExists — пользователь с таким email уже зарегистрирован.
	ErrUserExists = errors.New("пользователь уже существует")
	// ErrUnavailable — провайдер идентификации недоступен.
	ErrUnavailable = errors.New("провайдер идентификации недоступен")
)

// Event — тип push-уведомления о смене состояния аутентификации.
type Event string

const (
	SignedIn       Event = "SIGNED_IN"
	SignedOut      Event = "SIGNED_OUT"
	TokenRefreshed Event = "TOKEN_REFRESHED"
)

// User — пользователь, известный провайдеру.
type User struct {
	// ID — subject токена (UUID пользователя Keycloak).
	ID string
	// Email — адрес электронной почты.
	Email string
	// DisplayName — отображаемое имя из атрибутов пользователя.
	DisplayName string
}

// Session — действующая сессия пользователя.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// Metadata — метаданные профиля, передаваемые при регистрации.
type Metadata struct {
	DisplayName string
}

// AuthStateListener получает событие и новую сессию (nil для SIGNED_OUT).
type AuthStateListener func(event Event, session *Session)

// Provider — внешний провайдер идентификации одного клиента.
type Provider interface {
	// SignInWithPassword выполняет вход и оповещает подписчиков SIGNED_IN.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignUp регистрирует пользователя и сразу выполняет вход.
	SignUp(ctx context.Context, email, password string, meta Metadata) (*Session, error)
	// SignOut завершает сессию. Локальная сессия сбрасывается всегда.
	SignOut(ctx context.Context) error
	// GetSession возвращает текущую сессию или nil, если её нет.
	GetSession(ctx context.Context) (*Session, error)
	// OnAuthStateChange подписывает listener; возвращает функцию отписки.
	OnAuthStateChange(listener AuthStateListener) (unsubscribe func())
}
