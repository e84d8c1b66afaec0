// oidc.go — клиент OIDC endpoints Keycloak для портала.
// Public client (без client_secret): вход по паролю (Resource Owner
// Password Credentials), обновление токенов и завершение сессии.
package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OIDCClient — клиент для token/logout endpoints realm.
type OIDCClient struct {
	// clientID — OIDC Client ID портала (public client).
	clientID string
	// tokenURL — endpoint выдачи токенов.
	tokenURL string
	// logoutURL — endpoint завершения сессии.
	logoutURL string
	// httpClient — HTTP-клиент.
	httpClient *http.Client
}

// OIDCConfig — конфигурация OIDC-клиента.
type OIDCConfig struct {
	// KeycloakURL — базовый URL Keycloak.
	KeycloakURL string
	// Realm — имя realm в Keycloak.
	Realm string
	// ClientID — OIDC Client ID (public client с Direct Access Grants).
	ClientID string
	// HTTPClient — HTTP-клиент (nil — создаётся новый с Timeout).
	HTTPClient *http.Client
	// Timeout — таймаут HTTP-запросов при HTTPClient == nil.
	Timeout time.Duration
}

// NewOIDCClient создаёт OIDC-клиент на основе конфигурации.
func NewOIDCClient(cfg OIDCConfig) *OIDCClient {
	oidcBase := fmt.Sprintf("%s/realms/%s/protocol/openid-connect",
		strings.TrimRight(cfg.KeycloakURL, "/"), cfg.Realm)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &OIDCClient{
		clientID:   cfg.ClientID,
		tokenURL:   oidcBase + "/token",
		logoutURL:  oidcBase + "/logout",
		httpClient: httpClient,
	}
}

// OIDCTokens — ответ от token endpoint Keycloak.
type OIDCTokens struct {
	AccessToken      string `json:"access_token"`  //nolint:gosec // G117: структура токена OAuth2
	RefreshToken     string `json:"refresh_token"` //nolint:gosec // G117: структура токена OAuth2
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
}

// ExpiresAt вычисляет момент истечения access token относительно now.
func (t *OIDCTokens) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// TokenError — ошибка от token endpoint Keycloak.
type TokenError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
	Status      int    `json:"-"`
}

// Error реализует интерфейс error.
func (e *TokenError) Error() string {
	return fmt.Sprintf("token endpoint error: %s (%s)", e.Code, e.Description)
}

// Unwrap позволяет errors.Is(err, ErrInvalidGrant).
func (e *TokenError) Unwrap() error {
	if e.Code == "invalid_grant" {
		return ErrInvalidGrant
	}
	return nil
}

// PasswordGrant получает токены по email и паролю пользователя.
func (c *OIDCClient) PasswordGrant(ctx context.Context, username, password string) (*OIDCTokens, error) {
	data := url.Values{
		"grant_type": {"password"},
		"client_id":  {c.clientID},
		"username":   {username},
		"password":   {password},
		"scope":      {"openid profile email"},
	}

	return c.doTokenRequest(ctx, data)
}

// RefreshTokens обновляет access token через refresh token.
// Возвращает новую пару access_token + refresh_token.
func (c *OIDCClient) RefreshTokens(ctx context.Context, refreshToken string) (*OIDCTokens, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.clientID},
		"refresh_token": {refreshToken},
	}

	return c.doTokenRequest(ctx, data)
}

// Logout завершает сессию Keycloak по refresh token (back-channel).
func (c *OIDCClient) Logout(ctx context.Context, refreshToken string) error {
	data := url.Values{
		"client_id":     {c.clientID},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.logoutURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации OIDC
	if err != nil {
		return fmt.Errorf("ошибка запроса к logout endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("logout endpoint вернул статус %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// doTokenRequest выполняет POST-запрос к token endpoint Keycloak.
func (c *OIDCClient) doTokenRequest(ctx context.Context, data url.Values) (*OIDCTokens, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации OIDC
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		tokenErr := &TokenError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, tokenErr); jsonErr == nil && tokenErr.Code != "" {
			return nil, tokenErr
		}
		return nil, fmt.Errorf("token endpoint вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var tokens OIDCTokens
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("ошибка парсинга token response: %w", err)
	}

	return &tokens, nil
}
