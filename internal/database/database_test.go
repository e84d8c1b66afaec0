package database

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/cleancity/portal/internal/config"
)

// setupTestDB запускает PostgreSQL в Docker-контейнере через testcontainers.
// Возвращает конфиг и функцию для очистки.
func setupTestDB(t *testing.T) *config.Config {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("cleancity_test"),
		postgres.WithUsername("cleancity"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("CC_DB_HOST", host)
	t.Setenv("CC_DB_PORT", port.Port())
	t.Setenv("CC_DB_NAME", "cleancity_test")
	t.Setenv("CC_DB_USER", "cleancity")
	t.Setenv("CC_DB_PASSWORD", "test-password")
	t.Setenv("CC_DB_SSL_MODE", "disable")
	t.Setenv("CC_KEYCLOAK_URL", "http://localhost:8081")
	t.Setenv("CC_KEYCLOAK_CLIENT_ID", "test")
	t.Setenv("CC_KEYCLOAK_CLIENT_SECRET", "test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	return cfg
}

// TestConnect проверяет подключение к PostgreSQL через pgxpool.
func TestConnect(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	// Проверяем ping
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("pool.Ping() вернул ошибку: %v", err)
	}
}

// TestMigrate проверяет применение миграций.
func TestMigrate(t *testing.T) {
	cfg := setupTestDB(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Migrate() вернул ошибку: %v", err)
	}

	// Повторное применение — должно быть без ошибки (ErrNoChange)
	if err := Migrate(cfg, logger); err != nil {
		t.Fatalf("Повторный Migrate() вернул ошибку: %v", err)
	}

	// Проверяем, что таблицы созданы
	ctx := context.Background()
	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	tables := []string{
		"profiles",
		"user_roles",
		"collection_points",
		"collection_schedules",
		"issue_reports",
		"waste_entries",
		"user_points",
		"rewards",
		"user_rewards",
		"point_transactions",
	}

	for _, table := range tables {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)`, table).Scan(&exists)
		if err != nil {
			t.Fatalf("Ошибка проверки таблицы %s: %v", table, err)
		}
		if !exists {
			t.Errorf("Таблица %s не создана", table)
		}
	}

	// Проверяем начальный каталог вознаграждений
	var rewards int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM rewards`).Scan(&rewards); err != nil {
		t.Fatalf("Ошибка подсчёта rewards: %v", err)
	}
	if rewards == 0 {
		t.Error("Начальный каталог rewards пуст")
	}

	// has_role без записи в user_roles возвращает false
	var isAdmin bool
	err = pool.QueryRow(ctx, `SELECT has_role($1, 'admin')`,
		"00000000-0000-0000-0000-000000000001").Scan(&isAdmin)
	if err != nil {
		t.Fatalf("Ошибка вызова has_role: %v", err)
	}
	if isAdmin {
		t.Error("has_role() = true для пользователя без ролей")
	}
}

// TestReadinessChecker проверяет ReadinessChecker.
func TestReadinessChecker(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	checker := NewReadinessChecker(pool)

	// Проверяем готовность — должен вернуть "ok"
	status, msg := checker.CheckReady()
	if status != "ok" {
		t.Errorf("CheckReady() status = %q, message = %q; ожидали status = %q",
			status, msg, "ok")
	}
}

// TestRegisterPoolMetrics проверяет регистрацию метрик пула.
func TestRegisterPoolMetrics(t *testing.T) {
	cfg := setupTestDB(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Connect() вернул ошибку: %v", err)
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	if err := RegisterPoolMetrics(pool, reg); err != nil {
		t.Fatalf("RegisterPoolMetrics() вернул ошибку: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() вернул ошибку: %v", err)
	}
	if len(families) != 4 {
		t.Errorf("Количество метрик = %d, ожидалось 4", len(families))
	}

	// Повторная регистрация в том же реестре — ошибка
	if err := RegisterPoolMetrics(pool, reg); err == nil {
		t.Error("Повторный RegisterPoolMetrics() не вернул ошибку")
	}
}
