package client

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/cleancity/portal/internal/access"
	"github.com/bigkaa/cleancity/portal/internal/session"
	"github.com/bigkaa/cleancity/portal/internal/ui/i18n"
	"github.com/bigkaa/cleancity/portal/internal/ui/locale"
	"github.com/bigkaa/cleancity/portal/internal/ui/notify"
)

// initTimeout — таймаут начальной проверки сессии клиента.
const initTimeout = 15 * time.Second

var (
	clientsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cc_ui_clients_created_total",
		Help: "Количество созданных контекстов клиентов.",
	})
	clientsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cc_ui_clients_evicted_total",
		Help: "Количество вытесненных или просроченных контекстов клиентов.",
	})
)

// Deps — зависимости реестра.
type Deps struct {
	// NewProvider создаёт провайдер идентификации клиента с refresh token из cookie.
	NewProvider func(seedRefreshToken string) Provider
	Profiles    session.ProfileSource
	Roles       session.RoleChecker
	Bundle      *i18n.Bundle
	Codec       *Codec

	DefaultLanguage locale.Code
	LocaleOptions   locale.Options
	SecureCookies   bool

	// Size — максимальное количество контекстов.
	Size int
	// TTL — время жизни контекста с последнего создания.
	TTL time.Duration

	Logger *slog.Logger
}

// Registry — LRU-реестр контекстов клиентов с TTL.
type Registry struct {
	deps   Deps
	cache  *expirable.LRU[string, *Client]
	mu     sync.Mutex
	logger *slog.Logger
}

// NewRegistry создаёт реестр.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{
		deps:   deps,
		logger: deps.Logger.With(slog.String("component", "client_registry")),
	}
	r.cache = expirable.NewLRU[string, *Client](deps.Size, func(_ string, c *Client) {
		clientsEvictedTotal.Inc()
		go c.Close()
	}, deps.TTL)
	return r
}

// RegisterMetrics регистрирует gauge с количеством активных контекстов.
func (r *Registry) RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cc_ui_clients",
		Help: "Количество активных контекстов клиентов.",
	}, func() float64 { return float64(r.cache.Len()) }))
}

// Len возвращает количество активных контекстов.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Resolve возвращает контекст клиента запроса, создавая его при необходимости.
func (r *Registry) Resolve(req *http.Request) *Client {
	data, err := r.deps.Codec.FromRequest(req)
	if err != nil {
		r.logger.Debug("Cookie клиента отвергнут", slog.String("error", err.Error()))
		data = nil
	}

	if data != nil {
		if c, ok := r.cache.Get(data.ClientID); ok {
			return c
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	seed := ""
	if data != nil {
		if c, ok := r.cache.Get(data.ClientID); ok {
			return c
		}
		id = data.ClientID
		seed = data.RefreshToken
	}

	lang := r.deps.DefaultLanguage
	if code, ok := locale.FromRequest(req); ok {
		lang = code
	}

	c := r.newClient(id, lang, seed)
	r.cache.Add(id, c)
	clientsCreatedTotal.Inc()
	r.logger.Debug("Создан контекст клиента",
		slog.String("client_id", id),
		slog.String("lang", string(lang)),
		slog.Bool("restored", seed != ""),
	)
	return c
}

// newClient собирает контекст и запускает начальную проверку сессии.
func (r *Registry) newClient(id string, lang locale.Code, seed string) *Client {
	engine := locale.NewEngine(lang, r.deps.LocaleOptions)
	provider := r.deps.NewProvider(seed)
	store := session.NewStore(provider, r.deps.Profiles, r.deps.Roles, r.logger, session.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	c := &Client{
		ID:         id,
		Locale:     engine,
		Translator: i18n.NewTranslator(r.deps.Bundle, engine),
		Session:    store,
		Gate:       access.NewGate(store),
		Notices:    &notify.Queue{},
		provider:   provider,
		cancel:     cancel,
	}

	go func() {
		defer cancel()
		store.Initialize(ctx)
	}()
	return c
}

// SaveCookie записывает cookie клиента с актуальным refresh token.
func (r *Registry) SaveCookie(w http.ResponseWriter, c *Client) {
	err := r.deps.Codec.Write(w, CookieData{ClientID: c.ID, RefreshToken: c.RefreshToken()})
	if err != nil {
		r.logger.Error("Ошибка записи cookie клиента", slog.String("error", err.Error()))
	}
}

// Middleware находит контекст клиента, обновляет cookie и передаёт
// Client обработчикам через context запроса.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		c := r.Resolve(req)
		r.SaveCookie(w, c)

		ctx := WithClient(req.Context(), c)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// Purge закрывает все контексты (при остановке портала).
func (r *Registry) Purge() {
	r.cache.Purge()
}
