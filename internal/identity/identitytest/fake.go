// Пакет identitytest — управляемый in-memory identity.Provider для тестов.
package identitytest

import (
	"context"
	"sync"

	"github.com/bigkaa/cleancity/portal/internal/identity"
)

// Account — зарегистрированный в Fake пользователь.
type Account struct {
	Password string
	User     identity.User
}

// Fake — identity.Provider в памяти.
// GetSessionGate, если задан, блокирует GetSession до закрытия канала.
type Fake struct {
	mu        sync.Mutex
	accounts  map[string]Account
	session   *identity.Session
	listeners map[int]identity.AuthStateListener
	nextID    int

	// Ошибки, возвращаемые соответствующими методами.
	SignInErr     error
	SignUpErr     error
	SignOutErr    error
	GetSessionErr error

	// GetSessionGate — канал, который GetSession ждёт перед ответом.
	GetSessionGate chan struct{}
	// GetSessionCalled закрывается при первом вызове GetSession.
	GetSessionCalled chan struct{}
	getCalledOnce    sync.Once

	SignOutCalls int
}

// NewFake создаёт пустой Fake.
func NewFake() *Fake {
	return &Fake{
		accounts:         make(map[string]Account),
		listeners:        make(map[int]identity.AuthStateListener),
		GetSessionCalled: make(chan struct{}),
	}
}

// AddUser регистрирует пользователя с паролем.
func (f *Fake) AddUser(email, password string, user identity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.Email == "" {
		user.Email = email
	}
	f.accounts[email] = Account{Password: password, User: user}
}

// SetSession задаёт текущую сессию без событий (восстановление из cookie).
func (f *Fake) SetSession(user identity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = &identity.Session{AccessToken: "token-" + user.ID, RefreshToken: "rt-" + user.ID, User: user}
}

// Push рассылает событие подписчикам, как это делает настоящий провайдер.
func (f *Fake) Push(event identity.Event, user *identity.User) {
	f.mu.Lock()
	if user == nil {
		f.session = nil
	} else {
		f.session = &identity.Session{AccessToken: "token-" + user.ID, RefreshToken: "rt-" + user.ID, User: *user}
	}
	sess := f.session
	f.mu.Unlock()
	f.emit(event, sess)
}

// Listeners возвращает число активных подписчиков.
func (f *Fake) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *Fake) SignInWithPassword(_ context.Context, email, password string) (*identity.Session, error) {
	f.mu.Lock()
	if f.SignInErr != nil {
		err := f.SignInErr
		f.mu.Unlock()
		return nil, err
	}
	acc, ok := f.accounts[email]
	if !ok || acc.Password != password {
		f.mu.Unlock()
		return nil, identity.ErrInvalidCredentials
	}
	f.session = &identity.Session{AccessToken: "token-" + acc.User.ID, RefreshToken: "rt-" + acc.User.ID, User: acc.User}
	sess := f.session
	f.mu.Unlock()

	f.emit(identity.SignedIn, sess)
	return sess, nil
}

func (f *Fake) SignUp(ctx context.Context, email, password string, meta identity.Metadata) (*identity.Session, error) {
	f.mu.Lock()
	if f.SignUpErr != nil {
		err := f.SignUpErr
		f.mu.Unlock()
		return nil, err
	}
	if _, exists := f.accounts[email]; exists {
		f.mu.Unlock()
		return nil, identity.ErrUserExists
	}
	id := "00000000-0000-4000-8000-" + padID(len(f.accounts)+1)
	f.accounts[email] = Account{Password: password, User: identity.User{ID: id, Email: email, DisplayName: meta.DisplayName}}
	f.mu.Unlock()

	return f.SignInWithPassword(ctx, email, password)
}

func (f *Fake) SignOut(_ context.Context) error {
	f.mu.Lock()
	f.SignOutCalls++
	err := f.SignOutErr
	f.session = nil
	f.mu.Unlock()

	f.emit(identity.SignedOut, nil)
	return err
}

func (f *Fake) GetSession(ctx context.Context) (*identity.Session, error) {
	f.getCalledOnce.Do(func() { close(f.GetSessionCalled) })

	f.mu.Lock()
	gate := f.GetSessionGate
	// Ответ фиксируется в момент вызова: дальнейшие Push его не меняют.
	sess := f.session
	err := f.GetSessionErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	c := *sess
	return &c, nil
}

func (f *Fake) OnAuthStateChange(listener identity.AuthStateListener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = listener
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *Fake) emit(event identity.Event, sess *identity.Session) {
	f.mu.Lock()
	ls := make([]identity.AuthStateListener, 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()

	for _, l := range ls {
		var c *identity.Session
		if sess != nil {
			cp := *sess
			c = &cp
		}
		l(event, c)
	}
}

func padID(n int) string {
	const digits = "000000000000"
	s := []byte(digits)
	for i := len(s) - 1; n > 0 && i >= 0; i-- {
		s[i] = byte('0' + n%10)
		n /= 10
	}
	return string(s)
}

// RefreshToken возвращает refresh token текущей сессии.
func (f *Fake) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return ""
	}
	return f.session.RefreshToken
}

// Close ничего не освобождает.
func (f *Fake) Close() {}
