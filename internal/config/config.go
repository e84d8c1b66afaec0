// Пакет config — загрузка и валидация конфигурации портала CleanCity
// из переменных окружения с префиксом CC_.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// EnvPrefix — общий префикс переменных окружения портала.
const EnvPrefix = "CC_"

// Режимы отображения цифр для арабской локали.
const (
	DigitsNative = "native"
	DigitsLatin  = "latin"
)

// Config содержит все параметры конфигурации портала.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int `env:"PORT" envDefault:"8080"`
	// Уровень логирования (debug, info, warn, error)
	LogLevelName string `env:"LOG_LEVEL" envDefault:"info"`
	// Формат логов (json, text)
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	// Публичный базовый URL портала (для secure cookie и ссылок на файлы)
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	// Разобранный уровень логирования (вычисляется в Load)
	LogLevel slog.Level `env:"-"`

	// --- PostgreSQL ---

	DBHost     string `env:"DB_HOST,required"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBName     string `env:"DB_NAME,required"`
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string `env:"DB_SSL_MODE" envDefault:"disable"`

	// --- Keycloak ---

	// URL Keycloak (например, https://keycloak.example.org)
	KeycloakURL string `env:"KEYCLOAK_URL,required"`
	// Имя realm в Keycloak
	KeycloakRealm string `env:"KEYCLOAK_REALM" envDefault:"cleancity"`
	// Публичный клиент портала (password grant)
	KeycloakPortalClientID string `env:"KEYCLOAK_PORTAL_CLIENT_ID" envDefault:"cleancity-portal"`
	// Confidential-клиент для Admin API (регистрация пользователей)
	KeycloakClientID     string `env:"KEYCLOAK_CLIENT_ID,required"`
	KeycloakClientSecret string `env:"KEYCLOAK_CLIENT_SECRET,required"`

	// --- JWT ---

	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string `env:"JWT_ISSUER"`
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string `env:"JWT_JWKS_URL"`
	// Допуск расхождения часов при проверке exp/nbf
	JWTLeeway time.Duration `env:"JWT_LEEWAY" envDefault:"5s"`
	// Интервал обновления JWKS
	JWKSRefreshInterval time.Duration `env:"JWKS_REFRESH_INTERVAL" envDefault:"15m"`
	// CA-сертификат для TLS к Keycloak (пусто — системный пул)
	CACertPath string `env:"CA_CERT_PATH"`

	// --- Клиентские сессии ---

	// Ключ шифрования cookie клиента (hex, 64 символа). Пустой — случайный ключ.
	SessionSecret string `env:"SESSION_SECRET"`
	// Время жизни неактивного клиентского контекста
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	// Максимальное количество клиентских контекстов в памяти
	SessionCacheSize int `env:"SESSION_CACHE_SIZE" envDefault:"10000"`

	// --- Роли ---

	// Email пользователей, которым роль admin выдаётся при входе
	BootstrapAdmins []string `env:"BOOTSTRAP_ADMINS" envSeparator:","`

	// --- Локализация ---

	// Язык по умолчанию (ar, fr, en)
	DefaultLanguage string `env:"DEFAULT_LANGUAGE" envDefault:"ar"`
	// Цифры арабской локали: native (٠١٢…) или latin (012…)
	ArabicDigits string `env:"ARABIC_DIGITS" envDefault:"native"`

	// --- Файловое хранилище ---

	// Корневой каталог загружаемых файлов
	StorageDir string `env:"STORAGE_DIR" envDefault:"/var/lib/cleancity/storage"`
	// Максимальный размер загружаемого фото
	UploadMaxBytes int64 `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`

	// --- topologymetrics ---

	DephealthGroup         string        `env:"DEPHEALTH_GROUP" envDefault:"cleancity"`
	DephealthCheckInterval time.Duration `env:"DEPHEALTH_CHECK_INTERVAL" envDefault:"15s"`

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("ошибка разбора переменных окружения: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate проверяет допустимость значений и вычисляет производные поля.
func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("CC_PORT: значение %d вне допустимого диапазона 1-65535", c.Port)
	}

	level, err := parseLogLevel(c.LogLevelName)
	if err != nil {
		return fmt.Errorf("CC_LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("CC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", c.LogFormat)
	}

	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[c.DBSSLMode] {
		return fmt.Errorf("CC_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", c.DBSSLMode)
	}

	c.KeycloakURL = strings.TrimRight(c.KeycloakURL, "/")
	if c.JWTIssuer == "" {
		c.JWTIssuer = fmt.Sprintf("%s/realms/%s", c.KeycloakURL, c.KeycloakRealm)
	}
	if c.JWTJWKSURL == "" {
		c.JWTJWKSURL = fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", c.KeycloakURL, c.KeycloakRealm)
	}

	if c.SessionSecret != "" {
		key, err := hex.DecodeString(c.SessionSecret)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("CC_SESSION_SECRET: ожидается 32 байта в hex (64 символа)")
		}
	}
	if c.SessionCacheSize < 1 {
		return fmt.Errorf("CC_SESSION_CACHE_SIZE: значение %d должно быть положительным", c.SessionCacheSize)
	}

	switch c.DefaultLanguage {
	case "ar", "fr", "en":
	default:
		return fmt.Errorf("CC_DEFAULT_LANGUAGE: недопустимое значение %q, допустимые: ar, fr, en", c.DefaultLanguage)
	}
	if c.ArabicDigits != DigitsNative && c.ArabicDigits != DigitsLatin {
		return fmt.Errorf("CC_ARABIC_DIGITS: недопустимое значение %q, допустимые: native, latin", c.ArabicDigits)
	}

	if c.UploadMaxBytes < 1 {
		return fmt.Errorf("CC_UPLOAD_MAX_BYTES: значение %d должно быть положительным", c.UploadMaxBytes)
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")

	admins := c.BootstrapAdmins[:0]
	for _, email := range c.BootstrapAdmins {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			admins = append(admins, email)
		}
	}
	c.BootstrapAdmins = admins
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL (для migrate и topologymetrics).
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SecureCookies — true, если портал опубликован по HTTPS.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.PublicURL, "https://")
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
