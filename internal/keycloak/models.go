// Пакет keycloak — HTTP-клиенты к Keycloak: Admin REST API
// и OIDC token endpoint.
// models.go — модели данных Keycloak.
package keycloak

import "errors"

// Ошибки Keycloak, на которые реагирует вызывающий код.
var (
	// ErrUserExists — пользователь с таким username/email уже существует (409).
	ErrUserExists = errors.New("пользователь уже существует")
	// ErrInvalidGrant — неверные учётные данные или отозванный refresh token.
	ErrInvalidGrant = errors.New("invalid_grant")
)

// TokenResponse — ответ на запрос токена через Client Credentials flow.
type TokenResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // G117: структура токена OAuth2
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewUser — данные для регистрации пользователя.
type NewUser struct {
	Email       string
	Password    string //nolint:gosec // G117: пароль передаётся в Keycloak при регистрации
	DisplayName string
}

// RealmRepresentation — краткая информация о realm.
type RealmRepresentation struct {
	Realm   string `json:"realm"`
	Enabled bool   `json:"enabled"`
}

// userCreateRequest — запрос на создание пользователя в Keycloak.
type userCreateRequest struct {
	Username      string                     `json:"username"`
	Email         string                     `json:"email"`
	FirstName     string                     `json:"firstName,omitempty"`
	Enabled       bool                       `json:"enabled"`
	EmailVerified bool                       `json:"emailVerified"`
	Attributes    map[string][]string        `json:"attributes,omitempty"`
	Credentials   []credentialRepresentation `json:"credentials,omitempty"`
}

// credentialRepresentation — учётные данные пользователя.
type credentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"` //nolint:gosec // G117: пароль передаётся в Keycloak при регистрации
	Temporary bool   `json:"temporary"`
}
