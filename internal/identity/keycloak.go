package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bigkaa/cleancity/portal/internal/keycloak"
)

const (
	// defaultRefreshMargin — за сколько до истечения обновлять access token.
	defaultRefreshMargin = 30 * time.Second
	// retryDelay — пауза перед повтором обновления после временной ошибки.
	retryDelay = 10 * time.Second
	// refreshTimeout — таймаут фонового обновления токенов.
	refreshTimeout = 15 * time.Second
)

// TokenClient — OIDC token/logout endpoints (реализует keycloak.OIDCClient).
type TokenClient interface {
	PasswordGrant(ctx context.Context, username, password string) (*keycloak.OIDCTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*keycloak.OIDCTokens, error)
	Logout(ctx context.Context, refreshToken string) error
}

// UserAdmin — регистрация пользователей (реализует keycloak.Client).
type UserAdmin interface {
	CreateUser(ctx context.Context, user keycloak.NewUser) (string, error)
}

// TokenVerifier — проверка access token (реализует *Verifier).
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (User, time.Time, error)
}

// KeycloakDeps — общие для всех клиентов зависимости провайдера.
type KeycloakDeps struct {
	Tokens        TokenClient
	Users         UserAdmin
	Verifier      TokenVerifier
	Logger        *slog.Logger
	RefreshMargin time.Duration
	// Now — источник времени (nil — time.Now).
	Now func() time.Time
}

// KeycloakProvider — Provider одного клиента поверх Keycloak.
// Держит сессию в памяти и обновляет access token по таймеру.
type KeycloakProvider struct {
	deps   KeycloakDeps
	logger *slog.Logger

	mu        sync.Mutex
	session   *Session
	seed      string
	timer     *time.Timer
	listeners map[int]AuthStateListener
	nextID    int
	closed    bool
}

// NewKeycloakProvider создаёт провайдер. seedRefreshToken — refresh token
// из cookie клиента, по нему GetSession восстанавливает сессию.
func NewKeycloakProvider(deps KeycloakDeps, seedRefreshToken string) *KeycloakProvider {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.RefreshMargin <= 0 {
		deps.RefreshMargin = defaultRefreshMargin
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &KeycloakProvider{
		deps:      deps,
		logger:    deps.Logger.With(slog.String("component", "identity")),
		seed:      seedRefreshToken,
		listeners: make(map[int]AuthStateListener),
	}
}

// SignInWithPassword выполняет вход по паролю.
func (p *KeycloakProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	tokens, err := p.deps.Tokens.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, mapTokenError(err)
	}

	sess, err := p.sessionFromTokens(ctx, tokens)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.setSessionLocked(sess)
	p.mu.Unlock()

	p.logger.Info("Пользователь вошёл", slog.String("user_id", sess.User.ID))
	p.emit(SignedIn, sess)
	return copySession(sess), nil
}

// SignUp регистрирует пользователя в realm и выполняет вход.
func (p *KeycloakProvider) SignUp(ctx context.Context, email, password string, meta Metadata) (*Session, error) {
	_, err := p.deps.Users.CreateUser(ctx, keycloak.NewUser{
		Email:       email,
		Password:    password,
		DisplayName: meta.DisplayName,
	})
	if err != nil {
		if errors.Is(err, keycloak.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("%w: регистрация: %w", ErrUnavailable, err)
	}

	return p.SignInWithPassword(ctx, email, password)
}

// SignOut завершает сессию в Keycloak. Локальная сессия сбрасывается
// и SIGNED_OUT рассылается даже при ошибке удалённого вызова.
func (p *KeycloakProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	refreshToken := p.seed
	if p.session != nil {
		refreshToken = p.session.RefreshToken
	}
	p.mu.Unlock()

	var remoteErr error
	if refreshToken != "" {
		if err := p.deps.Tokens.Logout(ctx, refreshToken); err != nil {
			p.logger.Warn("Ошибка завершения сессии в Keycloak", slog.String("error", err.Error()))
			remoteErr = fmt.Errorf("%w: выход: %w", ErrUnavailable, err)
		}
	}

	p.mu.Lock()
	p.clearSessionLocked()
	p.mu.Unlock()

	p.emit(SignedOut, nil)
	return remoteErr
}

// GetSession возвращает действующую сессию. Если сессия истекла или
// известен только refresh token из cookie, выполняет обновление.
// Отсутствие сессии — (nil, nil).
func (p *KeycloakProvider) GetSession(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.session != nil && p.deps.Now().Before(p.session.ExpiresAt) {
		sess := copySession(p.session)
		p.mu.Unlock()
		return sess, nil
	}
	refreshToken := p.seed
	current := p.session
	if current != nil {
		refreshToken = current.RefreshToken
	}
	p.mu.Unlock()

	if refreshToken == "" {
		return nil, nil
	}

	tokens, err := p.deps.Tokens.RefreshTokens(ctx, refreshToken)
	if err != nil {
		mapped := mapTokenError(err)
		if errors.Is(mapped, ErrInvalidCredentials) {
			p.mu.Lock()
			if p.session == current {
				p.clearSessionLocked()
			}
			p.mu.Unlock()
			return nil, nil
		}
		return nil, mapped
	}

	sess, err := p.sessionFromTokens(ctx, tokens)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != current {
		// Пока шло обновление, состояние сменилось через SignIn/SignOut.
		return copySession(p.session), nil
	}
	p.setSessionLocked(sess)
	return copySession(sess), nil
}

// OnAuthStateChange подписывает listener на события провайдера.
func (p *KeycloakProvider) OnAuthStateChange(listener AuthStateListener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = listener

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Current возвращает текущую сессию без обращения к Keycloak.
func (p *KeycloakProvider) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copySession(p.session)
}

// RefreshToken возвращает refresh token для сохранения в cookie клиента.
func (p *KeycloakProvider) RefreshToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		return p.session.RefreshToken
	}
	return p.seed
}

// Close останавливает таймер обновления и отписывает всех слушателей.
func (p *KeycloakProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	clear(p.listeners)
}

// refresh — обработчик таймера обновления access token.
func (p *KeycloakProvider) refresh() {
	p.mu.Lock()
	current := p.session
	if current == nil || p.closed {
		p.mu.Unlock()
		return
	}
	refreshToken := current.RefreshToken
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	tokens, err := p.deps.Tokens.RefreshTokens(ctx, refreshToken)
	var sess *Session
	if err == nil {
		sess, err = p.sessionFromTokens(ctx, tokens)
	}

	p.mu.Lock()
	if p.session != current || p.closed {
		p.mu.Unlock()
		return
	}

	if err != nil {
		expired := !p.deps.Now().Before(current.ExpiresAt)
		if !errors.Is(mapTokenError(err), ErrInvalidCredentials) && !expired {
			p.logger.Warn("Временная ошибка обновления токена, повтор",
				slog.String("user_id", current.User.ID),
				slog.String("error", err.Error()),
			)
			p.timer = time.AfterFunc(retryDelay, p.refresh)
			p.mu.Unlock()
			return
		}
		p.logger.Info("Сессия завершена: обновление токена невозможно",
			slog.String("user_id", current.User.ID),
			slog.String("error", err.Error()),
		)
		p.clearSessionLocked()
		p.mu.Unlock()
		p.emit(SignedOut, nil)
		return
	}

	p.setSessionLocked(sess)
	p.mu.Unlock()
	p.emit(TokenRefreshed, sess)
}

// sessionFromTokens проверяет access token и собирает Session.
func (p *KeycloakProvider) sessionFromTokens(ctx context.Context, tokens *keycloak.OIDCTokens) (*Session, error) {
	user, expiresAt, err := p.deps.Verifier.Verify(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if expiresAt.IsZero() {
		expiresAt = tokens.ExpiresAt(p.deps.Now())
	}
	return &Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

// setSessionLocked сохраняет сессию и планирует обновление. Вызывается под mu.
func (p *KeycloakProvider) setSessionLocked(sess *Session) {
	p.session = sess
	p.seed = ""
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.closed {
		return
	}
	// Для коротких токенов обновление в середине срока жизни.
	until := sess.ExpiresAt.Sub(p.deps.Now())
	delay := until - p.deps.RefreshMargin
	if delay < until/2 {
		delay = until / 2
	}
	if delay < 0 {
		delay = 0
	}
	p.timer = time.AfterFunc(delay, p.refresh)
}

// clearSessionLocked сбрасывает сессию. Вызывается под mu.
func (p *KeycloakProvider) clearSessionLocked() {
	p.session = nil
	p.seed = ""
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// emit вызывает слушателей вне блокировки.
func (p *KeycloakProvider) emit(event Event, sess *Session) {
	p.mu.Lock()
	listeners := make([]AuthStateListener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l(event, copySession(sess))
	}
}

// mapTokenError переводит ошибки token endpoint в ошибки провайдера.
func mapTokenError(err error) error {
	if errors.Is(err, keycloak.ErrInvalidGrant) {
		return ErrInvalidCredentials
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func copySession(s *Session) *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
