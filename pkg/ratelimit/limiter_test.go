package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-verify/pkg/client"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTokenBucket_Allow(t *testing.T) {
	clock := newFakeClock()
	tb := NewTokenBucket(5, 1.0, clock.Now())

	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(clock.Now()), "request %d", i+1)
	}
	assert.False(t, tb.Allow(clock.Now()))

	clock.Advance(2 * time.Second)
	assert.True(t, tb.Allow(clock.Now()))
	assert.True(t, tb.Allow(clock.Now()))
	assert.False(t, tb.Allow(clock.Now()))
}

func TestTokenBucket_CapsAtCapacity(t *testing.T) {
	clock := newFakeClock()
	tb := NewTokenBucket(2, 1.0, clock.Now())

	clock.Advance(time.Hour)
	assert.True(t, tb.Allow(clock.Now()))
	assert.True(t, tb.Allow(clock.Now()))
	assert.False(t, tb.Allow(clock.Now()))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(1, 1.0/60.0, WithClock(clock.Now))

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.Len())
}

func TestLimiter_Prune(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(1, 1.0, WithClock(clock.Now))

	l.Allow("old")
	clock.Advance(2 * time.Hour)
	l.Allow("fresh")

	l.Prune(time.Hour)
	assert.Equal(t, 1, l.Len())
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("per ip", func(t *testing.T) {
		clock := newFakeClock()
		m := NewMiddleware(Config{PerIPPerMinute: 2}, WithClock(clock.Now))
		h := m.Handler(ok)

		do := func(ip string) int {
			req := httptest.NewRequest(http.MethodPost, "/code/send", nil)
			req.RemoteAddr = ip + ":1234"
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			return rr.Code
		}

		assert.Equal(t, http.StatusOK, do("10.0.0.1"))
		assert.Equal(t, http.StatusOK, do("10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
		assert.Equal(t, http.StatusOK, do("10.0.0.2"))

		clock.Advance(30 * time.Second)
		assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	})

	t.Run("per owner", func(t *testing.T) {
		clock := newFakeClock()
		m := NewMiddleware(Config{PerOwnerPerMinute: 1}, WithClock(clock.Now))
		h := m.Handler(ok)

		owner := uuid.New()
		do := func(ip string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/code/send", nil)
			req.Header.Set("X-Forwarded-For", ip+", 192.168.0.1")
			req = req.WithContext(client.WithAuthUser(req.Context(), &client.AuthUser{Subject: owner.String(), OwnerID: owner}))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			return rr
		}

		assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
		rr := do("10.0.0.2")
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "60", rr.Header().Get("Retry-After"))
		assert.Contains(t, rr.Body.String(), `"owner"`)
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:8080"
	assert.Equal(t, "::1", clientIP(req))

	req.Header.Set("X-Real-IP", " 10.1.1.1 ")
	assert.Equal(t, "10.1.1.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "10.2.2.2, 10.3.3.3")
	assert.Equal(t, "10.2.2.2", clientIP(req))
}
