package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"/", "/"},
		{"/health/ready", "/health/ready"},
		{"/metrics", "/metrics"},
		{"/static/css/portal.css", "/static/*"},
		{"/storage/reports/u1/a.jpg", "/storage/*"},
		{"/wp-login.php", "other"},
		{"/rewards/5b9e0c20-0000-4000-8000-000000000001/redeem", "other"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, хотели %q", tt.path, got, tt.want)
		}
	}
}

func TestMetricsMiddleware_RoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(MetricsMiddleware())
	router.Post("/rewards/{id}/redeem", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/rewards", http.StatusSeeOther)
	})
	router.Handle("/static/*", http.NotFoundHandler())

	counter := httpRequestsTotal.WithLabelValues(http.MethodPost, "/rewards/{id}/redeem", "303")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rewards/"+id+"/redeem", nil))
	}
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("счётчик вырос на %v, хотели 2", got)
	}

	static := httpRequestsTotal.WithLabelValues(http.MethodGet, "/static/*", "404")
	before = testutil.ToFloat64(static)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/static/css/missing.css", nil))
	if got := testutil.ToFloat64(static) - before; got != 1 {
		t.Errorf("счётчик статики вырос на %v, хотели 1", got)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := RequestLogger(logger, "/static/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/static/css/portal.css", nil))
	if buf.Len() != 0 {
		t.Errorf("запрос к статике залогирован на INFO: %s", buf.String())
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/waste", nil))
	out := buf.String()
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "path=/waste") || !strings.Contains(out, "bytes=2") {
		t.Errorf("неожиданная запись лога: %s", out)
	}

	buf.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/broken", nil))
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "status=500") {
		t.Errorf("ошибка сервера не залогирована на ERROR: %s", buf.String())
	}
}
