package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/tendant/simple-verify/pkg/client"
)

// Config limits code issuance per client IP and per authenticated owner.
// A zero PerMinute disables that dimension.
type Config struct {
	PerIPPerMinute    int
	PerOwnerPerMinute int
	BucketTTL         time.Duration
}

func DefaultConfig() Config {
	return Config{
		PerIPPerMinute:    30,
		PerOwnerPerMinute: 10,
		BucketTTL:         time.Hour,
	}
}

type Middleware struct {
	config Config
	ip     *Limiter
	owner  *Limiter
}

func NewMiddleware(config Config, opts ...LimiterOption) *Middleware {
	m := &Middleware{config: config}
	if config.PerIPPerMinute > 0 {
		m.ip = NewLimiter(config.PerIPPerMinute, float64(config.PerIPPerMinute)/60.0, opts...)
	}
	if config.PerOwnerPerMinute > 0 {
		m.owner = NewLimiter(config.PerOwnerPerMinute, float64(config.PerOwnerPerMinute)/60.0, opts...)
	}
	return m
}

// Start prunes idle buckets in the background until ctx is done.
func (m *Middleware) Start(ctx context.Context) {
	if m.config.BucketTTL <= 0 {
		return
	}
	for _, l := range []*Limiter{m.ip, m.owner} {
		if l != nil {
			go l.RunPruner(ctx, m.config.BucketTTL)
		}
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if m.ip != nil && ip != "" && !m.ip.Allow(ip) {
			m.rateLimitExceeded(w, r, "ip", ip)
			return
		}

		if authUser, ok := client.GetAuthUser(r); ok && m.owner != nil {
			if !m.owner.Allow(authUser.OwnerID.String()) {
				m.rateLimitExceeded(w, r, "owner", authUser.Subject)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, limitType, key string) {
	slog.Warn("Rate limit exceeded",
		"type", limitType,
		"key", key,
		"path", r.URL.Path,
		"method", r.Method,
	)

	w.Header().Set("Retry-After", strconv.Itoa(60))
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, errorResponse{Error: "Too many requests. Please try again later.", Type: limitType})
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
