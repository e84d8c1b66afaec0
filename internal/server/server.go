// Пакет server — HTTP-сервер портала CleanCity с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	apihandlers "github.com/bigkaa/cleancity/portal/internal/api/handlers"
	"github.com/bigkaa/cleancity/portal/internal/api/middleware"
	"github.com/bigkaa/cleancity/portal/internal/access"
	"github.com/bigkaa/cleancity/portal/internal/config"
	uihandlers "github.com/bigkaa/cleancity/portal/internal/ui/handlers"
	"github.com/bigkaa/cleancity/portal/internal/ui/static"
)

// UIComponents — обработчики и middleware страниц портала.
type UIComponents struct {
	// ClientMiddleware — контекст клиента (client.Registry.Middleware)
	ClientMiddleware func(http.Handler) http.Handler
	// Access — gate защищённых страниц
	Access access.Middleware

	Base             *uihandlers.Base
	Auth             *uihandlers.AuthHandler
	Dashboard        *uihandlers.DashboardHandler
	Reports          *uihandlers.ReportsHandler
	Waste            *uihandlers.WasteHandler
	CollectionPoints *uihandlers.CollectionPointsHandler
	Rewards          *uihandlers.RewardsHandler
	Profile          *uihandlers.ProfileHandler
	Admin            *uihandlers.AdminHandler

	// Files — отдача загруженных фото (префикс /storage уже снят)
	Files http.Handler
}

// Server — HTTP-сервер портала.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// ui == nil — только служебные endpoints (health, metrics).
func New(cfg *config.Config, logger *slog.Logger, health *apihandlers.HealthHandler, ui *UIComponents) *Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(logger, health, ui),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты портала.
func NewRouter(logger *slog.Logger, health *apihandlers.HealthHandler, ui *UIComponents) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger, "/static/", "/storage/", "/health/", "/metrics"))

	// Health и metrics проверяются Kubernetes напрямую, без контекста клиента.
	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)
	router.Get("/metrics", health.GetMetrics)

	if ui == nil {
		return router
	}

	router.Handle("/static/*", http.StripPrefix("/static", http.FileServer(static.FileSystem())))
	if ui.Files != nil {
		router.Handle("/storage/*", http.StripPrefix("/storage", ui.Files))
	}

	router.Group(func(r chi.Router) {
		r.Use(ui.ClientMiddleware)
		r.NotFound(ui.Base.NotFound)

		// Публичные страницы
		r.Get("/login", ui.Auth.HandleLoginPage)
		r.Post("/login", ui.Auth.HandleLogin)
		r.Get("/signup", ui.Auth.HandleSignupPage)
		r.Post("/signup", ui.Auth.HandleSignup)
		r.Post("/logout", ui.Auth.HandleLogout)
		r.Post("/language", ui.Base.HandleSetLanguage)
		r.Get("/collection-points", ui.CollectionPoints.HandleList)

		// Страницы пользователя
		r.Group(func(r chi.Router) {
			r.Use(ui.Access.RequireAuth)

			r.Get("/", ui.Dashboard.HandleDashboard)
			r.Get("/reports", ui.Reports.HandleList)
			r.Get("/reports/new", ui.Reports.HandleNew)
			r.Post("/reports", ui.Reports.HandleCreate)
			r.Get("/waste", ui.Waste.HandleList)
			r.Post("/waste", ui.Waste.HandleSubmit)
			r.Get("/rewards", ui.Rewards.HandleCatalog)
			r.Post("/rewards/{id}/redeem", ui.Rewards.HandleRedeem)
			r.Get("/profile", ui.Profile.HandleView)
			r.Post("/profile", ui.Profile.HandleUpdate)
		})

		// Страницы администратора
		r.Route("/admin", func(r chi.Router) {
			r.Use(ui.Access.RequireAdmin)

			r.Get("/", ui.Admin.HandleOverview)
			r.Get("/reports", ui.Admin.HandleReports)
			r.Post("/reports/{id}/status", ui.Admin.HandleUpdateStatus)
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
