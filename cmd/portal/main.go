// Точка входа портала CleanCity — муниципального портала учёта отходов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// инициализирует Keycloak (вход, регистрация, проверка токенов), сервисный
// слой, локализацию и реестр клиентских контекстов, запускает
// topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bigkaa/cleancity/portal/internal/access"
	apihandlers "github.com/bigkaa/cleancity/portal/internal/api/handlers"
	"github.com/bigkaa/cleancity/portal/internal/config"
	"github.com/bigkaa/cleancity/portal/internal/database"
	"github.com/bigkaa/cleancity/portal/internal/identity"
	"github.com/bigkaa/cleancity/portal/internal/keycloak"
	"github.com/bigkaa/cleancity/portal/internal/repository"
	"github.com/bigkaa/cleancity/portal/internal/server"
	"github.com/bigkaa/cleancity/portal/internal/service"
	"github.com/bigkaa/cleancity/portal/internal/storage/filestore"
	"github.com/bigkaa/cleancity/portal/internal/ui/client"
	uihandlers "github.com/bigkaa/cleancity/portal/internal/ui/handlers"
	"github.com/bigkaa/cleancity/portal/internal/ui/i18n"
	"github.com/bigkaa/cleancity/portal/internal/ui/locale"
	"github.com/bigkaa/cleancity/portal/internal/ui/pages"
)

// accessWaitTimeout — сколько защищённая страница ждёт загрузки сессии
// перед показом страницы ожидания.
const accessWaitTimeout = 3 * time.Second

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Портал CleanCity запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv(config.EnvPrefix+"DEPHEALTH_GROUP") == "" {
		logger.Warn("CC_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("CC_SESSION_SECRET не задан, сессии не сохраняются между рестартами")
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RegisterPoolMetrics(pool, prometheus.DefaultRegisterer); err != nil {
		logger.Warn("Метрики пула соединений не зарегистрированы", slog.String("error", err.Error()))
	}

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. HTTP-клиент с кастомным CA (для Keycloak)
	var httpClientCA *http.Client
	if cfg.CACertPath != "" {
		httpClientCA, err = buildHTTPClientWithCA(cfg.CACertPath)
		if err != nil {
			logger.Error("Ошибка загрузки CA-сертификата", slog.String("path", cfg.CACertPath), slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("CA-сертификат загружен", slog.String("path", cfg.CACertPath))
	}

	// 6. Keycloak: Admin API (регистрация), OIDC (вход), JWKS (проверка токенов)
	kcClient := keycloak.New(
		cfg.KeycloakURL,
		cfg.KeycloakRealm,
		cfg.KeycloakClientID,
		cfg.KeycloakClientSecret,
		httpClientCA, // nil — стандартный пул CA
		logger,
	)
	oidcClient := keycloak.NewOIDCClient(keycloak.OIDCConfig{
		KeycloakURL: cfg.KeycloakURL,
		Realm:       cfg.KeycloakRealm,
		ClientID:    cfg.KeycloakPortalClientID,
		HTTPClient:  httpClientCA,
	})
	verifier, err := identity.NewVerifier(identity.VerifierConfig{
		JWKSURL:         cfg.JWTJWKSURL,
		Issuer:          cfg.JWTIssuer,
		Leeway:          cfg.JWTLeeway,
		RefreshInterval: cfg.JWKSRefreshInterval,
		HTTPClient:      httpClientCA,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания JWT verifier", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Keycloak клиенты созданы",
		slog.String("url", cfg.KeycloakURL),
		slog.String("realm", cfg.KeycloakRealm),
		slog.String("portal_client_id", cfg.KeycloakPortalClientID),
	)

	// 7. Repositories
	txRunner := repository.NewTxRunner(pool)
	profileRepo := repository.NewProfileRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	wasteRepo := repository.NewWasteRepository(pool)
	pointsRepo := repository.NewPointsRepository(pool)
	rewardRepo := repository.NewRewardRepository(pool)
	collectionPointRepo := repository.NewCollectionPointRepository(pool)

	// 8. Файловое хранилище фото обращений
	files, err := filestore.New(cfg.StorageDir, "/storage", cfg.UploadMaxBytes)
	if err != nil {
		logger.Error("Ошибка инициализации файлового хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Services
	profilesSvc := service.NewProfileService(profileRepo, roleRepo, cfg.BootstrapAdmins, logger)
	reportsSvc := service.NewReportService(reportRepo, files, cfg.UploadMaxBytes, logger)
	wasteSvc := service.NewWasteService(txRunner, wasteRepo, collectionPointRepo, logger)
	rewardsSvc := service.NewRewardService(txRunner, rewardRepo, pointsRepo, logger)
	pointsSvc := service.NewCollectionPointService(collectionPointRepo, logger)
	statsSvc := service.NewStatsService(service.StatsRepos{
		Profiles: profileRepo,
		Reports:  reportRepo,
		Waste:    wasteRepo,
		Points:   pointsRepo,
		Rewards:  rewardRepo,
	}, logger)

	// 10. Локализация и шаблоны
	bundle := i18n.NewBundle(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	renderer, err := pages.NewRenderer(logger)
	if err != nil {
		logger.Error("Ошибка разбора шаблонов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defaultLang, _ := locale.ParseCode(cfg.DefaultLanguage)

	// 11. Реестр клиентских контекстов (locale + сессия на браузер)
	codec, err := client.NewCodec(cfg.SessionSecret, cfg.SecureCookies(), cfg.SessionTTL)
	if err != nil {
		logger.Error("Ошибка создания cookie codec", slog.String("error", err.Error()))
		os.Exit(1)
	}
	providerDeps := identity.KeycloakDeps{
		Tokens:   oidcClient,
		Users:    kcClient,
		Verifier: verifier,
		Logger:   logger,
	}
	registry := client.NewRegistry(client.Deps{
		NewProvider: func(seed string) client.Provider {
			return identity.NewKeycloakProvider(providerDeps, seed)
		},
		Profiles:        profilesSvc,
		Roles:           profilesSvc,
		Bundle:          bundle,
		Codec:           codec,
		DefaultLanguage: defaultLang,
		LocaleOptions:   locale.Options{ArabicDigits: locale.ParseDigitMode(cfg.ArabicDigits)},
		SecureCookies:   cfg.SecureCookies(),
		Size:            cfg.SessionCacheSize,
		TTL:             cfg.SessionTTL,
		Logger:          logger,
	})
	if err := registry.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		logger.Warn("Метрика клиентских контекстов не зарегистрирована", slog.String("error", err.Error()))
	}

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL + Keycloak)
	var depHealth apihandlers.DependencyHealth
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "cleancity-portal",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PostgresURL:   cfg.DatabaseURL(),
		JWKSURL:       cfg.JWTJWKSURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		depHealth = dephealthSvc
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 13. Health endpoints
	healthHandler := apihandlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		kcClient,
		depHealth,
	)

	// 14. Страницы портала
	base := uihandlers.NewBase(renderer, registry, cfg.SecureCookies(), logger)
	ui := &server.UIComponents{
		ClientMiddleware: registry.Middleware,
		Access: access.Middleware{
			GateFor: func(r *http.Request) *access.Gate {
				if c := client.FromContext(r.Context()); c != nil {
					return c.Gate
				}
				return nil
			},
			Responder:   base,
			WaitTimeout: accessWaitTimeout,
		},
		Base:             base,
		Auth:             uihandlers.NewAuthHandler(base),
		Dashboard:        uihandlers.NewDashboardHandler(base, statsSvc),
		Reports:          uihandlers.NewReportsHandler(base, reportsSvc, cfg.UploadMaxBytes),
		Waste:            uihandlers.NewWasteHandler(base, wasteSvc, pointsSvc),
		CollectionPoints: uihandlers.NewCollectionPointsHandler(base, pointsSvc),
		Rewards:          uihandlers.NewRewardsHandler(base, rewardsSvc),
		Profile:          uihandlers.NewProfileHandler(base),
		Admin:            uihandlers.NewAdminHandler(base, statsSvc, reportsSvc),
		Files:            files.Handler(),
	}
	logger.Info("Портал инициализирован",
		slog.String("default_language", cfg.DefaultLanguage),
		slog.String("arabic_digits", cfg.ArabicDigits),
		slog.Bool("secure_cookie", cfg.SecureCookies()),
	)

	// 15. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, healthHandler, ui)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 16. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	registry.Purge()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Портал CleanCity остановлен")
}

// buildHTTPClientWithCA создаёт HTTP-клиент с кастомным CA-сертификатом.
func buildHTTPClientWithCA(caCertPath string) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:    caCertPool,
				MinVersion: tls.VersionTLS12,
			},
		},
	}, nil
}
