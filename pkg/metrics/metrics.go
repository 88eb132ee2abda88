// Package metrics exposes Prometheus collectors and request middleware for the
// verification service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Code lifecycle events
const (
	CodeIssued         = "issued"
	CodeAlreadyActive  = "already_active"
	CodeVerified       = "verified"
	CodeIncorrect      = "incorrect"
	CodeNotFound       = "not_found"
	CodeForbidden      = "forbidden"
	CodeDeliveryFailed = "delivery_failed"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verify_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	codeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_code_events_total",
			Help: "Verification code lifecycle events",
		},
		[]string{"event"},
	)
	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_notifications_total",
			Help: "Verification emails handed to a notifier, by method and outcome",
		},
		[]string{"method", "outcome"},
	)
	tokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verify_mail_api_token_refreshes_total",
			Help: "Mail API access token refreshes by outcome",
		},
		[]string{"outcome"},
	)
)

// PrometheusMiddleware records request duration labelled by chi route pattern.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		httpRequestDuration.
			WithLabelValues(r.Method, routePattern(r), strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordCodeEvent(event string) {
	codeEvents.WithLabelValues(event).Inc()
}

func RecordNotification(method string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	notifications.WithLabelValues(method, outcome).Inc()
}

func RecordTokenRefresh(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	tokenRefreshes.WithLabelValues(outcome).Inc()
}

// routePattern avoids one series per raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
