package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apihandlers "github.com/bigkaa/cleancity/portal/internal/api/handlers"
)

type okChecker struct{}

func (okChecker) CheckReady() (string, string) { return "ok", "" }

func TestRouter_OperationalEndpoints(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(logger, apihandlers.NewHealthHandler(okChecker{}, okChecker{}, nil), nil)

	tests := []struct {
		path string
		want int
	}{
		{"/health/live", http.StatusOK},
		{"/health/ready", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/rewards", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s: статус %d, хотели %d", tt.path, rec.Code, tt.want)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "cc_http_requests_total") {
		t.Error("метрики HTTP не опубликованы")
	}
}
