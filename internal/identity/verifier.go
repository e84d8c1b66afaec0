package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// keycloakClaims — claims access token Keycloak, нужные порталу.
type keycloakClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	DisplayName       string `json:"display_name"`
}

// Verifier проверяет подпись access token через JWKS Keycloak
// и извлекает из него пользователя.
type Verifier struct {
	jwks   keyfunc.Keyfunc
	issuer string
	leeway time.Duration
	logger *slog.Logger
}

// VerifierConfig — параметры Verifier.
type VerifierConfig struct {
	JWKSURL         string
	Issuer          string
	Leeway          time.Duration
	RefreshInterval time.Duration
	HTTPClient      *http.Client
}

// NewVerifier создаёт Verifier с фоновым обновлением JWKS.
// Старт не блокируется недоступностью Keycloak.
func NewVerifier(cfg VerifierConfig, logger *slog.Logger) (*Verifier, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           cfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", cfg.JWKSURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewVerifierWithKeyfunc(k, cfg.Issuer, cfg.Leeway, logger), nil
}

// NewVerifierWithKeyfunc создаёт Verifier с готовой keyfunc (тесты).
func NewVerifierWithKeyfunc(kf keyfunc.Keyfunc, issuer string, leeway time.Duration, logger *slog.Logger) *Verifier {
	return &Verifier{
		jwks:   kf,
		issuer: issuer,
		leeway: leeway,
		logger: logger.With(slog.String("component", "jwt_verifier")),
	}
}

// Verify проверяет RS256-подпись, срок действия и issuer токена.
func (v *Verifier) Verify(ctx context.Context, token string) (User, time.Time, error) {
	claims := &keycloakClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, v.jwks.KeyfuncCtx(ctx), opts...)
	if err != nil {
		v.logger.Debug("JWT валидация не пройдена", slog.String("error", err.Error()))
		return User{}, time.Time{}, fmt.Errorf("невалидный токен: %w", err)
	}
	if !parsed.Valid {
		return User{}, time.Time{}, fmt.Errorf("невалидный токен")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return User{}, time.Time{}, fmt.Errorf("отсутствует sub в токене")
	}

	user := User{
		ID:          subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
	}
	if user.DisplayName == "" {
		user.DisplayName = claims.Name
	}
	if user.Email == "" {
		user.Email = claims.PreferredUsername
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return user, expiresAt, nil
}
