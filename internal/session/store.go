// Пакет session — состояние аутентификации одного клиента портала.
//
// Store объединяет сессию провайдера идентификации, профиль и роль
// пользователя. Профиль и роль загружаются асинхронно после входа;
// результаты устаревших загрузок отбрасываются по (userID, generation).
// Роль admin никогда не выдаётся при ошибке проверки или во время загрузки.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/domain/rbac"
	"github.com/bigkaa/cleancity/portal/internal/identity"
)

// ErrNotAuthenticated — операция требует вошедшего пользователя.
var ErrNotAuthenticated = errors.New("пользователь не аутентифицирован")

// defaultFetchTimeout — таймаут фоновой загрузки профиля и роли.
const defaultFetchTimeout = 10 * time.Second

var transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cc_session_transitions_total",
	Help: "Количество переходов состояния сессии.",
}, []string{"from", "to"})

// ProfileSource — хранилище профилей.
type ProfileSource interface {
	// LoadProfile возвращает профиль, создавая его при первом входе.
	LoadProfile(ctx context.Context, user identity.User) (*model.Profile, error)
	// UpdateProfile обновляет профиль пользователя userID.
	UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) error
}

// RoleChecker — удалённая проверка роли (SQL-функция has_role).
type RoleChecker interface {
	HasRole(ctx context.Context, userID string, role rbac.Role) (bool, error)
}

// Snapshot — неизменяемая копия состояния сессии.
type Snapshot struct {
	State State
	// UserID — пусто для анонимного пользователя.
	UserID string
	Email  string
	// Token — access token провайдера (непрозрачен для портала).
	Token string
	// Profile — nil, пока не загружен или при ошибке загрузки.
	Profile *model.Profile
	// Role — пусто, пока UserID неизвестен.
	Role rbac.Role
	// Loading — идёт начальная проверка, вход/выход или загрузка роли.
	Loading bool
}

// IsAuthenticated — известен идентификатор пользователя.
func (s Snapshot) IsAuthenticated() bool {
	return s.UserID != ""
}

// IsAdmin — роль admin подтверждена и ничего не загружается.
func (s Snapshot) IsAdmin() bool {
	return !s.Loading && s.Role == rbac.RoleAdmin
}

// Options — параметры Store.
type Options struct {
	FetchTimeout time.Duration
}

// signupIntent — имя, указанное при регистрации, до создания профиля.
type signupIntent struct {
	email       string
	displayName string
}

// Store — конечный автомат сессии клиента.
type Store struct {
	provider identity.Provider
	profiles ProfileSource
	roles    RoleChecker
	logger   *slog.Logger
	timeout  time.Duration

	mu             sync.Mutex
	state          State
	user           *identity.User
	token          string
	profile        *model.Profile
	role           rbac.Role
	initialPending bool
	profilePending bool
	rolePending    bool
	generation     uint64
	eventSeq       uint64
	signup         *signupIntent
	changed        chan struct{}
	listeners      map[int]func(Snapshot)
	nextID         int
	unsubscribe    func()
	closed         bool
	version        uint64

	// notifyMu упорядочивает доставку слушателям; delivered — последняя
	// доставленная версия.
	notifyMu  sync.Mutex
	delivered uint64

	ready    chan struct{}
	initOnce sync.Once
}

// NewStore создаёт Store в состоянии Anonymous с ожидающей начальной проверкой.
func NewStore(provider identity.Provider, profiles ProfileSource, roles RoleChecker, logger *slog.Logger, opts Options) *Store {
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Store{
		provider:       provider,
		profiles:       profiles,
		roles:          roles,
		logger:         logger.With(slog.String("component", "session")),
		timeout:        timeout,
		state:          Anonymous,
		initialPending: true,
		changed:        make(chan struct{}),
		listeners:      make(map[int]func(Snapshot)),
		ready:          make(chan struct{}),
	}
}

// Initialize подписывается на события провайдера и выполняет начальную
// проверку сессии. Событие, пришедшее во время проверки, приоритетнее
// её результата. Повторные вызовы ничего не делают.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		unsubscribe := s.provider.OnAuthStateChange(s.handleEvent)

		s.mu.Lock()
		s.unsubscribe = unsubscribe
		seq := s.eventSeq
		s.mu.Unlock()

		sess, err := s.provider.GetSession(ctx)

		s.mu.Lock()
		switch {
		case s.eventSeq != seq:
			s.logger.Debug("Результат начальной проверки отброшен: получено событие провайдера")
		case err != nil:
			s.logger.Warn("Ошибка начальной проверки сессии", slog.String("error", err.Error()))
		case sess != nil:
			s.applySessionLocked(sess, true)
		}
		s.initialPending = false
		s.commitLocked()
		s.mu.Unlock()

		close(s.ready)
		s.notify()
	})
}

// Ready закрывается после завершения начальной проверки.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// SignIn выполняет вход. Ошибка возвращается вызывающему, состояние
// откатывается к предыдущему устойчивому.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	return s.authenticate(func() (*identity.Session, error) {
		return s.provider.SignInWithPassword(ctx, email, password)
	})
}

// SignUp регистрирует пользователя. Имя попадает в метаданные провайдера
// и в создаваемую запись профиля.
func (s *Store) SignUp(ctx context.Context, email, password, displayName string) error {
	s.mu.Lock()
	s.signup = &signupIntent{email: email, displayName: displayName}
	s.mu.Unlock()

	err := s.authenticate(func() (*identity.Session, error) {
		return s.provider.SignUp(ctx, email, password, identity.Metadata{DisplayName: displayName})
	})

	s.mu.Lock()
	s.signup = nil
	s.mu.Unlock()
	return err
}

// authenticate — общий путь входа и регистрации.
func (s *Store) authenticate(call func() (*identity.Session, error)) error {
	s.mu.Lock()
	prev := s.state
	if err := s.transitionLocked(Authenticating); err != nil {
		s.mu.Unlock()
		return err
	}
	s.commitLocked()
	s.mu.Unlock()
	s.notify()

	sess, err := call()

	s.mu.Lock()
	if err != nil {
		if s.state == Authenticating {
			_ = s.transitionLocked(prev)
		}
		s.commitLocked()
		s.mu.Unlock()
		s.notify()
		return err
	}
	// Провайдер обычно уже прислал SIGNED_IN.
	if s.state == Authenticating {
		s.applySessionLocked(sess, true)
	}
	s.commitLocked()
	s.mu.Unlock()
	s.notify()
	return nil
}

// SignOut выполняет выход. Локальное состояние сбрасывается всегда,
// ошибка провайдера возвращается вызывающему.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Anonymous {
		s.mu.Unlock()
		return nil
	}
	if err := s.transitionLocked(SigningOut); err != nil {
		s.mu.Unlock()
		return err
	}
	s.commitLocked()
	s.mu.Unlock()
	s.notify()

	err := s.provider.SignOut(ctx)

	s.mu.Lock()
	s.resetLocked()
	s.commitLocked()
	s.mu.Unlock()
	s.notify()

	if err != nil {
		return fmt.Errorf("ошибка выхода: %w", err)
	}
	return nil
}

// RefreshProfile заново загружает профиль и роль текущего пользователя.
// Профиль читается синхронно, ошибка возвращается вызывающему; роль
// проверяется в фоне. Для анонимного пользователя — no-op.
func (s *Store) RefreshProfile(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Authenticated || s.user == nil {
		s.mu.Unlock()
		return nil
	}
	user := *s.user
	s.generation++
	gen := s.generation
	s.profilePending = true
	s.rolePending = true
	s.commitLocked()
	s.mu.Unlock()
	s.notify()

	go s.fetchRole(user.ID, gen)

	p, err := s.profiles.LoadProfile(ctx, user)

	s.mu.Lock()
	if !s.currentLocked(user.ID, gen) {
		s.mu.Unlock()
		return nil
	}
	s.profilePending = false
	if err == nil {
		s.profile = p
	}
	s.commitLocked()
	s.mu.Unlock()
	s.notify()

	if err != nil {
		return fmt.Errorf("ошибка загрузки профиля: %w", err)
	}
	return nil
}

// UpdateProfile записывает изменения профиля текущего пользователя
// и перечитывает его. Локальное состояние до ответа не меняется.
func (s *Store) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) error {
	s.mu.Lock()
	if s.state != Authenticated || s.user == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	userID := s.user.ID
	s.mu.Unlock()

	if upd.IsEmpty() {
		return nil
	}
	if err := s.profiles.UpdateProfile(ctx, userID, upd); err != nil {
		return fmt.Errorf("ошибка обновления профиля: %w", err)
	}
	return s.RefreshProfile(ctx)
}

// Snapshot возвращает копию текущего состояния.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// WaitSettled ждёт завершения начальной проверки и фоновых загрузок.
func (s *Store) WaitSettled(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.pendingLocked() {
			s.mu.Unlock()
			return nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// OnChange подписывает fn на изменения состояния; возвращает отписку.
// fn вызывается последовательно с последним снимком и не должна
// вызывать методы Store, меняющие состояние.
func (s *Store) OnChange(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close отписывается от провайдера и слушателей.
func (s *Store) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.closed = true
	clear(s.listeners)
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// handleEvent применяет push-уведомление провайдера.
func (s *Store) handleEvent(event identity.Event, sess *identity.Session) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.eventSeq++

	switch event {
	case identity.SignedIn:
		if sess != nil {
			s.applySessionLocked(sess, true)
		}
	case identity.TokenRefreshed:
		if sess != nil {
			s.applySessionLocked(sess, false)
		}
	case identity.SignedOut:
		s.resetLocked()
	default:
		s.logger.Warn("Неизвестное событие провайдера", slog.String("event", string(event)))
	}

	s.commitLocked()
	s.mu.Unlock()
	s.notify()
}

// applySessionLocked переводит Store в Authenticated. Для нового пользователя
// (или refetch) запускает загрузку профиля и роли нового поколения.
func (s *Store) applySessionLocked(sess *identity.Session, refetch bool) {
	sameUser := s.state == Authenticated && s.user != nil && s.user.ID == sess.User.ID
	if s.state == SigningOut {
		s.logger.Debug("Сессия проигнорирована: идёт выход", slog.String("user_id", sess.User.ID))
		return
	}
	if err := s.transitionLocked(Authenticated); err != nil {
		s.logger.Error("Ошибка перехода сессии", slog.String("error", err.Error()))
		return
	}

	user := sess.User
	s.user = &user
	s.token = sess.AccessToken
	if sameUser && !refetch {
		return
	}

	if s.signup != nil && s.signup.email == user.Email && user.DisplayName == "" {
		user.DisplayName = s.signup.displayName
	}

	s.generation++
	gen := s.generation
	if !sameUser {
		s.profile = nil
	}
	s.role = rbac.RoleCitizen
	s.profilePending = true
	s.rolePending = true

	go s.fetchProfile(user, gen)
	go s.fetchRole(user.ID, gen)
}

// fetchProfile загружает профиль в фоне.
func (s *Store) fetchProfile(user identity.User, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	p, err := s.profiles.LoadProfile(ctx, user)

	s.mu.Lock()
	if !s.currentLocked(user.ID, gen) {
		s.mu.Unlock()
		s.logger.Debug("Устаревший результат загрузки профиля отброшен", slog.String("user_id", user.ID))
		return
	}
	s.profilePending = false
	if err != nil {
		s.logger.Warn("Ошибка загрузки профиля",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		s.profile = nil
	} else {
		s.profile = p
	}
	s.commitLocked()
	s.mu.Unlock()
	s.notify()
}

// fetchRole проверяет роль admin в фоне. Ошибка даёт citizen.
func (s *Store) fetchRole(userID string, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	isAdmin, err := s.roles.HasRole(ctx, userID, rbac.RoleAdmin)

	s.mu.Lock()
	if !s.currentLocked(userID, gen) {
		s.mu.Unlock()
		s.logger.Debug("Устаревший результат проверки роли отброшен", slog.String("user_id", userID))
		return
	}
	if err != nil {
		s.logger.Warn("Ошибка проверки роли, назначена citizen",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	s.role = rbac.FromAdminCheck(isAdmin, err)
	s.rolePending = false
	s.commitLocked()
	s.mu.Unlock()
	s.notify()
}

// resetLocked возвращает Store в Anonymous и делает текущие загрузки устаревшими.
func (s *Store) resetLocked() {
	if s.state != Anonymous {
		if err := s.transitionLocked(Anonymous); err != nil {
			s.logger.Error("Ошибка перехода сессии", slog.String("error", err.Error()))
		}
	}
	s.generation++
	s.user = nil
	s.token = ""
	s.profile = nil
	s.role = ""
	s.profilePending = false
	s.rolePending = false
}

// transitionLocked выполняет переход с проверкой матрицы.
func (s *Store) transitionLocked(to State) error {
	if !CanTransition(s.state, to) {
		return &TransitionError{From: s.state, To: to}
	}
	transitionsTotal.WithLabelValues(s.state.String(), to.String()).Inc()
	s.state = to
	return nil
}

func (s *Store) currentLocked(userID string, gen uint64) bool {
	return s.generation == gen && s.user != nil && s.user.ID == userID
}

func (s *Store) pendingLocked() bool {
	return s.initialPending || s.profilePending || s.rolePending || s.state.IsTransient()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:   s.state,
		Token:   s.token,
		Role:    s.role,
		Loading: s.initialPending || s.rolePending || s.state.IsTransient(),
	}
	if s.user != nil {
		snap.UserID = s.user.ID
		snap.Email = s.user.Email
	}
	if s.profile != nil {
		p := *s.profile
		snap.Profile = &p
	}
	return snap
}

// commitLocked фиксирует новую версию состояния и будит ожидающих WaitSettled.
func (s *Store) commitLocked() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

// notify доставляет слушателям актуальный снимок вне s.mu. Доставка
// последовательна; версия, уже перекрытая более новой, пропускается.
func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	version := s.version
	snap := s.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if version <= s.delivered {
		return
	}
	s.delivered = version
	for _, l := range listeners {
		l(snap)
	}
}
