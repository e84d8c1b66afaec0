package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticChecker struct{ status, msg string }

func (c staticChecker) CheckReady() (string, string) { return c.status, c.msg }

type staticDeps map[string]bool

func (d staticDeps) Health() map[string]bool { return d }

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)
	rec := httptest.NewRecorder()
	h.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус %d", rec.Code)
	}
	var resp healthLiveResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Service != "cleancity-portal" {
		t.Errorf("ответ = %+v", resp)
	}
}

func TestHealthReady(t *testing.T) {
	ok := staticChecker{"ok", "подключение активно"}
	tests := []struct {
		name       string
		pg, kc     ReadinessChecker
		wantStatus string
		wantCode   int
	}{
		{"всё доступно", ok, ok, "ok", http.StatusOK},
		{"keycloak деградировал", ok, staticChecker{"degraded", "медленно"}, "degraded", http.StatusOK},
		{"postgres недоступен", staticChecker{"fail", "нет соединения"}, ok, "fail", http.StatusServiceUnavailable},
		{"не инициализирован", nil, ok, "fail", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.pg, tt.kc, staticDeps{"postgresql": true})
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("статус %d, хотели %d", rec.Code, tt.wantCode)
			}
			var resp healthReadyResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, хотели %q", resp.Status, tt.wantStatus)
			}
			if !resp.Dependencies["postgresql"] {
				t.Error("состояние зависимостей не передано")
			}
		})
	}
}

func TestOverallStatus(t *testing.T) {
	if got := overallStatus(); got != "ok" {
		t.Errorf("overallStatus() = %q", got)
	}
	if got := overallStatus("ok", "degraded", "ok"); got != "degraded" {
		t.Errorf("overallStatus(degraded) = %q", got)
	}
	if got := overallStatus("degraded", "fail"); got != "fail" {
		t.Errorf("overallStatus(fail) = %q", got)
	}
}
