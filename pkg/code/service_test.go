package code

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-verify/pkg/codehash"
	"github.com/tendant/simple-verify/pkg/notification"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type serviceFixture struct {
	service  *CodeService
	repo     *InMemoryCodeRepository
	notifier *notification.MockNotifier
	clock    *testClock
	owner    uuid.UUID
}

func newServiceFixture(t *testing.T, opts ...CodeServiceOption) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		repo:     NewInMemoryCodeRepository(),
		notifier: &notification.MockNotifier{},
		clock:    &testClock{now: testNow},
		owner:    uuid.New(),
	}

	all := append([]CodeServiceOption{
		WithNotifier(f.notifier),
		WithClock(f.clock.Now),
	}, opts...)
	f.service = NewCodeService(f.repo, codehash.NewBcryptHasher(bcrypt.MinCost), all...)
	return f
}

func forcedCode(code string) CodeServiceOption {
	return WithGenerator(GeneratorFunc(func(length int) (string, error) {
		return code, nil
	}))
}

func (f *serviceFixture) send(t *testing.T, email string, maxAttempts, maxMinutes int) *CodeResponse {
	t.Helper()
	resp, err := f.service.SendCode(context.Background(), SendCodeParams{
		OwnerID:                &f.owner,
		Email:                  email,
		Length:                 6,
		MaximumAttempts:        maxAttempts,
		MaximumDurationMinutes: maxMinutes,
	})
	require.NoError(t, err)
	return resp
}

func (f *serviceFixture) verify(email, code string) error {
	return f.service.VerifyCode(context.Background(), VerifyCodeParams{
		OwnerID: f.owner,
		Email:   email,
		Code:    code,
	})
}

func requireIncorrect(t *testing.T, err error, remaining int) {
	t.Helper()
	var incorrect *IncorrectCodeError
	require.True(t, errors.As(err, &incorrect), "expected IncorrectCodeError, got %v", err)
	assert.Equal(t, remaining, incorrect.Response.RemainingAttempts)
}

func TestCodeService_ForcedCodeScenario(t *testing.T) {
	f := newServiceFixture(t, forcedCode("123"))

	resp, err := f.service.SendCode(context.Background(), SendCodeParams{
		OwnerID:                &f.owner,
		Email:                  "user@example.com",
		Length:                 3,
		MaximumAttempts:        5,
		MaximumDurationMinutes: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.RemainingAttempts)
	assert.Equal(t, 5, resp.MaximumAttempts)
	assert.Equal(t, testNow, resp.CreatedAt)
	assert.Equal(t, testNow.Add(10*time.Minute), resp.ExpiresAt)

	requireIncorrect(t, f.verify("user@example.com", "000"), 4)
	requireIncorrect(t, f.verify("user@example.com", "000"), 3)
	assert.NoError(t, f.verify("user@example.com", "123"))
	assert.ErrorIs(t, f.verify("user@example.com", "123"), ErrNotFound)
}

func TestCodeService_ExhaustedAttempts(t *testing.T) {
	f := newServiceFixture(t, forcedCode("482913"))
	f.send(t, "user@example.com", 5, 5)

	for remaining := 4; remaining >= 0; remaining-- {
		requireIncorrect(t, f.verify("user@example.com", "000000"), remaining)
	}

	// even the correct code is no longer accepted
	assert.ErrorIs(t, f.verify("user@example.com", "482913"), ErrNotFound)

	codes, err := f.repo.FindCodesByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, 5, codes[0].IncorrectAttempts)
	assert.Nil(t, codes[0].FulfilledAt)
}

func TestCodeService_TimeExpiry(t *testing.T) {
	f := newServiceFixture(t, forcedCode("482913"))
	f.send(t, "user@example.com", 5, 5)

	f.clock.Advance(5*time.Minute - time.Second)
	requireIncorrect(t, f.verify("user@example.com", "111111"), 4)

	f.clock.Advance(time.Second)
	assert.ErrorIs(t, f.verify("user@example.com", "482913"), ErrNotFound)
}

func TestCodeService_AlreadyActive(t *testing.T) {
	f := newServiceFixture(t)
	f.send(t, "user@example.com", 5, 5)

	_, err := f.service.SendCode(context.Background(), SendCodeParams{
		OwnerID:                &f.owner,
		Email:                  "user@example.com",
		Length:                 6,
		MaximumAttempts:        5,
		MaximumDurationMinutes: 5,
	})
	assert.ErrorIs(t, err, ErrAlreadyActive)

	_, err = f.service.SendCustomCode(context.Background(), SendCustomCodeParams{
		OwnerID:                &f.owner,
		Email:                  "USER@example.com",
		Code:                   "custom",
		MaximumAttempts:        5,
		MaximumDurationMinutes: 5,
	})
	assert.ErrorIs(t, err, ErrAlreadyActive)

	assert.Equal(t, 1, f.notifier.Count())

	// another email is unaffected
	f.send(t, "other@example.com", 5, 5)
}

func TestCodeService_ReissueAfterInactive(t *testing.T) {
	t.Run("fulfilled", func(t *testing.T) {
		f := newServiceFixture(t, forcedCode("482913"))
		f.send(t, "user@example.com", 5, 5)
		require.NoError(t, f.verify("user@example.com", "482913"))
		f.send(t, "user@example.com", 5, 5)
	})

	t.Run("expired", func(t *testing.T) {
		f := newServiceFixture(t)
		f.send(t, "user@example.com", 5, 5)
		f.clock.Advance(5 * time.Minute)
		f.send(t, "user@example.com", 5, 5)
	})

	t.Run("exhausted", func(t *testing.T) {
		f := newServiceFixture(t, forcedCode("482913"))
		f.send(t, "user@example.com", 1, 5)
		requireIncorrect(t, f.verify("user@example.com", "000000"), 0)
		f.send(t, "user@example.com", 1, 5)
	})
}

func TestCodeService_VerifiesNewestActiveCode(t *testing.T) {
	codes := []string{"111111", "222222"}
	next := 0
	f := newServiceFixture(t, WithGenerator(GeneratorFunc(func(int) (string, error) {
		c := codes[next]
		next++
		return c, nil
	})))

	f.send(t, "user@example.com", 5, 5)
	f.clock.Advance(5 * time.Minute)
	f.send(t, "user@example.com", 5, 5)

	// the first code expired; only the second is accepted
	requireIncorrect(t, f.verify("user@example.com", "111111"), 4)
	assert.NoError(t, f.verify("user@example.com", "222222"))
}

func TestCodeService_Forbidden(t *testing.T) {
	f := newServiceFixture(t, forcedCode("482913"))
	f.send(t, "user@example.com", 5, 5)

	err := f.service.VerifyCode(context.Background(), VerifyCodeParams{
		OwnerID: uuid.New(),
		Email:   "user@example.com",
		Code:    "482913",
	})
	assert.ErrorIs(t, err, ErrForbidden)

	// a foreign attempt neither fulfills nor consumes an attempt
	codes, err := f.repo.FindCodesByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, codes[0].IncorrectAttempts)
	assert.Nil(t, codes[0].FulfilledAt)

	assert.NoError(t, f.verify("user@example.com", "482913"))
}

func TestCodeService_NoOwnerIsForbidden(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.service.SendCustomCode(context.Background(), SendCustomCodeParams{
		Email:                  "user@example.com",
		Code:                   "abc",
		MaximumAttempts:        5,
		MaximumDurationMinutes: 5,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.verify("user@example.com", "abc"), ErrForbidden)
}

func TestCodeService_NotFound(t *testing.T) {
	f := newServiceFixture(t)
	assert.ErrorIs(t, f.verify("nobody@example.com", "123456"), ErrNotFound)
}

func TestCodeService_CustomCode(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.service.SendCustomCode(context.Background(), SendCustomCodeParams{
		OwnerID:                &f.owner,
		Email:                  "user@example.com",
		Code:                   "tangerine-42",
		MaximumAttempts:        3,
		MaximumDurationMinutes: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.RemainingAttempts)

	sent, ok := f.notifier.Last()
	require.True(t, ok)
	assert.Equal(t, "tangerine-42", sent.Code)
	assert.Equal(t, 2, sent.DurationMinutes)

	assert.NoError(t, f.verify("user@example.com", "tangerine-42"))
}

func TestCodeService_NotificationContent(t *testing.T) {
	f := newServiceFixture(t, WithSubject("Your login code"))
	f.send(t, "  User@Example.com ", 5, 7)

	sent, ok := f.notifier.Last()
	require.True(t, ok)
	assert.Equal(t, "user@example.com", sent.To)
	assert.Equal(t, "Your login code", sent.Subject)
	assert.Len(t, sent.Code, 6)
	assert.Regexp(t, `^[0-9]{6}$`, sent.Code)
	assert.Equal(t, 7, sent.DurationMinutes)

	assert.NoError(t, f.verify("USER@example.com", sent.Code))
}

func TestCodeService_StoresOnlyHash(t *testing.T) {
	f := newServiceFixture(t, forcedCode("482913"))
	f.send(t, "user@example.com", 5, 5)

	codes, err := f.repo.FindCodesByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.NotEqual(t, "482913", codes[0].CodeHash)
	assert.NotContains(t, codes[0].CodeHash, "482913")
	assert.NotEqual(t, uuid.Nil, codes[0].ID)
	assert.Equal(t, f.owner, *codes[0].OwnerID)
}

func TestCodeService_DeliveryFailureKeepsCode(t *testing.T) {
	f := newServiceFixture(t, forcedCode("482913"))
	f.notifier.Err = &notification.DeliveryError{Op: "mail api send", StatusCode: 500, Body: "down"}

	resp, err := f.service.SendCode(context.Background(), SendCodeParams{
		OwnerID:                &f.owner,
		Email:                  "user@example.com",
		Length:                 6,
		MaximumAttempts:        5,
		MaximumDurationMinutes: 5,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, notification.ErrDelivery)
	require.NotNil(t, resp)
	assert.Equal(t, 5, resp.RemainingAttempts)

	// the stored code is still verifiable
	assert.NoError(t, f.verify("user@example.com", "482913"))
}

func TestCodeService_InvalidInput(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	sendTests := []struct {
		name   string
		params SendCodeParams
	}{
		{"length too short", SendCodeParams{Email: "a@example.com", Length: 1, MaximumAttempts: 5, MaximumDurationMinutes: 5}},
		{"length too long", SendCodeParams{Email: "a@example.com", Length: 11, MaximumAttempts: 5, MaximumDurationMinutes: 5}},
		{"empty email", SendCodeParams{Email: " ", Length: 6, MaximumAttempts: 5, MaximumDurationMinutes: 5}},
		{"zero attempts", SendCodeParams{Email: "a@example.com", Length: 6, MaximumAttempts: 0, MaximumDurationMinutes: 5}},
		{"zero duration", SendCodeParams{Email: "a@example.com", Length: 6, MaximumAttempts: 5, MaximumDurationMinutes: 0}},
	}
	for _, tt := range sendTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.SendCode(ctx, tt.params)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	customTests := []struct {
		name string
		code string
	}{
		{"custom code too short", "a"},
		{"custom code too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{"custom code over bcrypt limit", "ééééééééééééééééééééééééééééééééééééééé"},
	}
	for _, tt := range customTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.SendCustomCode(ctx, SendCustomCodeParams{
				Email: "a@example.com", Code: tt.code, MaximumAttempts: 5, MaximumDurationMinutes: 5,
			})
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	t.Run("verify empty code", func(t *testing.T) {
		assert.ErrorIs(t, f.verify("a@example.com", ""), ErrInvalidInput)
	})

	t.Run("verify empty email", func(t *testing.T) {
		assert.ErrorIs(t, f.verify("", "123456"), ErrInvalidInput)
	})

	assert.Zero(t, f.notifier.Count())
}

func TestCodeService_ConcurrentIssueYieldsOneActiveCode(t *testing.T) {
	f := newServiceFixture(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.SendCode(context.Background(), SendCodeParams{
				OwnerID:                &f.owner,
				Email:                  "user@example.com",
				Length:                 6,
				MaximumAttempts:        5,
				MaximumDurationMinutes: 5,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrAlreadyActive):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 7, conflicts)
}

func TestCodeService_ConcurrentWrongSubmissionsDoNotOvercount(t *testing.T) {
	f := newServiceFixture(t, forcedCode("482913"))
	f.send(t, "user@example.com", 3, 5)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.verify("user@example.com", "000000")
			assert.True(t, errors.Is(err, ErrIncorrect) || errors.Is(err, ErrNotFound), "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	codes, err := f.repo.FindCodesByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, codes[0].IncorrectAttempts)
}

func TestCodeService_APINotifierRefreshesTokenTwice(t *testing.T) {
	var (
		mu          sync.Mutex
		refreshes   int
		sends       int
		authHeaders []string
		delivered   map[string]string
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		refreshes++
		token := fmt.Sprintf("tok-%d", refreshes)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": token})
	})
	mux.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		sends++
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		if sends == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewDecoder(r.Body).Decode(&delivered)
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	apiNotifier, err := notification.NewAPINotifier(notification.APIConfig{
		FromAddress:     "no-reply@example.com",
		SendEmailURL:    server.URL + "/send",
		RefreshTokenURL: server.URL + "/refresh",
		Timeout:         2 * time.Second,
	})
	require.NoError(t, err)

	f := newServiceFixture(t, WithNotifier(apiNotifier), forcedCode("123456"))
	resp := f.send(t, "user@example.com", 5, 5)
	require.NotNil(t, resp)
	assert.Equal(t, 5, resp.RemainingAttempts)

	mu.Lock()
	assert.Equal(t, 2, refreshes, "one refresh for the empty cache, one after the 401")
	assert.Equal(t, 2, sends)
	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-2"}, authHeaders)
	assert.Equal(t, "user@example.com", delivered["toAddress"])
	assert.Contains(t, delivered["content"], "123456")
	mu.Unlock()

	assert.Empty(t, f.notifier.Sent)
	require.NoError(t, f.verify("user@example.com", "123456"))
}
