// metrics.go — Prometheus HTTP метрики портала.
// Регистрирует метрики: cc_http_requests_total, cc_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cc_http_requests_total",
			Help: "Общее количество HTTP-запросов к порталу",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cc_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к порталу в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Лейбл path — шаблон маршрута chi (/rewards/{id}/redeem), а не реальный путь.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			// Шаблон известен только после маршрутизации
			path := routeLabel(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// routeLabel возвращает шаблон маршрута chi или нормализованный путь.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "/*") {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath сводит пути без шаблона к ограниченному набору лейблов
// для предотвращения взрывного роста кардинальности метрик.
// /static/css/portal.css → /static/*, /storage/reports/… → /storage/*,
// неизвестные пути (сканеры, опечатки) → other.
func normalizePath(path string) string {
	switch path {
	case "/", "/health/live", "/health/ready", "/metrics":
		return path
	}

	for _, prefix := range []string{"/static/", "/storage/"} {
		if strings.HasPrefix(path, prefix) {
			return prefix + "*"
		}
	}
	return "other"
}
