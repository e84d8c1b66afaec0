package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockKeycloak создаёт mock HTTP-сервер Keycloak.
// tokenHandler обрабатывает запросы на получение токена.
// adminHandler обрабатывает запросы к Admin REST API.
func setupMockKeycloak(t *testing.T, tokenHandler, adminHandler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/realms/cleancity/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenHandler != nil {
			tokenHandler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "test-access-token",
			TokenType:   "Bearer",
			ExpiresIn:   300,
		})
	})

	mux.HandleFunc("/admin/realms/cleancity", func(w http.ResponseWriter, r *http.Request) {
		if adminHandler != nil {
			adminHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/admin/realms/cleancity/", func(w http.ResponseWriter, r *http.Request) {
		if adminHandler != nil {
			adminHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := New(server.URL, "cleancity", "cleancity-admin", "test-secret", server.Client(), testLogger())
	return server, client
}

// TestClient_TokenCaching проверяет кэширование токена.
func TestClient_TokenCaching(t *testing.T) {
	tokenRequests := 0

	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			tokenRequests++
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "cached-token", TokenType: "Bearer", ExpiresIn: 300})
		},
		nil,
	)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		token, err := client.getToken(ctx)
		if err != nil {
			t.Fatalf("Ошибка получения токена: %v", err)
		}
		if token != "cached-token" {
			t.Errorf("ожидался cached-token, получен %s", token)
		}
	}

	if tokenRequests != 1 {
		t.Errorf("ожидался 1 запрос токена, было %d", tokenRequests)
	}
}

// TestClient_TokenRefreshBefore30s проверяет обновление за 30 секунд до истечения.
func TestClient_TokenRefreshBefore30s(t *testing.T) {
	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "new-token", TokenType: "Bearer", ExpiresIn: 300})
		},
		nil,
	)

	client.accessToken = "expiring-token"
	client.tokenExpiry = time.Now().Add(20 * time.Second)

	token, err := client.getToken(context.Background())
	if err != nil {
		t.Fatalf("Ошибка обновления токена: %v", err)
	}
	if token != "new-token" {
		t.Errorf("ожидался new-token, получен %s", token)
	}
}

// TestClient_TokenError проверяет обработку ошибки получения токена.
func TestClient_TokenError(t *testing.T) {
	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
		},
		nil,
	)

	_, err := client.getToken(context.Background())
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("ожидалась ошибка со статусом 401, получена: %v", err)
	}
}

// TestClient_CreateUser проверяет формат запроса регистрации и разбор Location.
func TestClient_CreateUser(t *testing.T) {
	var received userCreateRequest

	server, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/users") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-access-token" {
				t.Errorf("ожидался Bearer test-access-token, получен %s", auth)
			}
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Fatalf("Ошибка декодирования тела: %v", err)
			}
			w.Header().Set("Location", "http://kc/admin/realms/cleancity/users/user-42")
			w.WriteHeader(http.StatusCreated)
		},
	)
	_ = server

	id, err := client.CreateUser(context.Background(), NewUser{
		Email:       "amina@example.org",
		Password:    "s3cret-pass",
		DisplayName: "Amina",
	})
	if err != nil {
		t.Fatalf("Ошибка CreateUser: %v", err)
	}
	if id != "user-42" {
		t.Errorf("ожидался id=user-42, получен %s", id)
	}
	if received.Username != "amina@example.org" || received.Email != "amina@example.org" {
		t.Errorf("username/email = %q/%q", received.Username, received.Email)
	}
	if len(received.Credentials) != 1 || received.Credentials[0].Value != "s3cret-pass" {
		t.Errorf("credentials = %+v", received.Credentials)
	}
	if got := received.Attributes["display_name"]; len(got) != 1 || got[0] != "Amina" {
		t.Errorf("attributes.display_name = %v", got)
	}
}

// TestClient_CreateUserConflict проверяет маппинг 409 → ErrUserExists.
func TestClient_CreateUserConflict(t *testing.T) {
	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"errorMessage":"User exists with same username"}`))
		},
	)

	_, err := client.CreateUser(context.Background(), NewUser{Email: "a@b.c", Password: "x"})
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("ожидалась ErrUserExists, получена %v", err)
	}
}

// TestClient_CheckReady проверяет readiness через realm info.
func TestClient_CheckReady(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		status  int
		want    string
	}{
		{"realm доступен", true, http.StatusOK, "ok"},
		{"realm отключён", false, http.StatusOK, "degraded"},
		{"ошибка API", true, http.StatusInternalServerError, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := setupMockKeycloak(t, nil,
				func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					json.NewEncoder(w).Encode(RealmRepresentation{Realm: "cleancity", Enabled: tt.enabled})
				},
			)
			if status, msg := client.CheckReady(); status != tt.want {
				t.Errorf("CheckReady() = %q (%s), ожидался %q", status, msg, tt.want)
			}
		})
	}
}
