package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/tendant/simple-verify/pkg/metrics"
)

const (
	defaultAPITimeout = 10 * time.Second
	defaultAuthScheme = "Bearer"

	// cap on how much of an error body is kept for diagnostics
	maxErrorBody = 64 << 10

	opSend    = "mail api send"
	opRefresh = "mail api token refresh"
)

// APIConfig configures an APINotifier.
type APIConfig struct {
	FromAddress     string
	SendEmailURL    string
	RefreshTokenURL string
	AuthScheme      string
	Timeout         time.Duration
}

// APINotifier sends code emails through a bearer-token protected HTTP mail API.
//
// The access token is cached without an expiry. It is fetched when the cache
// is empty, and refreshed when the mail API answers a send with a 4xx status,
// after which the send is retried exactly once. Network errors and timeouts are
// not retried.
type APINotifier struct {
	config APIConfig
	client *http.Client

	// refreshMu serializes token refreshes; mu guards token and generation.
	refreshMu  sync.Mutex
	mu         sync.RWMutex
	token      string
	generation uint64
}

// APINotifierOption configures APINotifier.
type APINotifierOption func(*APINotifier)

// WithHTTPClient replaces the pooled client. Its Timeout bounds each call.
func WithHTTPClient(c *http.Client) APINotifierOption {
	return func(n *APINotifier) {
		n.client = c
	}
}

type sendEmailRequest struct {
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
}

type refreshTokenResponse struct {
	AccessToken *string `json:"access_token"`
}

func NewAPINotifier(config APIConfig, opts ...APINotifierOption) (*APINotifier, error) {
	if config.SendEmailURL == "" {
		return nil, fmt.Errorf("send email url is required")
	}
	if config.RefreshTokenURL == "" {
		return nil, fmt.Errorf("refresh token url is required")
	}
	if config.AuthScheme == "" {
		config.AuthScheme = defaultAuthScheme
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultAPITimeout
	}

	client := cleanhttp.DefaultPooledClient()
	client.Timeout = config.Timeout

	n := &APINotifier{
		config: config,
		client: client,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

func (n *APINotifier) Send(ctx context.Context, toAddress, subject, code string, durationMinutes int) error {
	err := n.send(ctx, toAddress, subject, code, durationMinutes)
	metrics.RecordNotification(MethodAPI, err == nil)
	return err
}

func (n *APINotifier) send(ctx context.Context, toAddress, subject, code string, durationMinutes int) error {
	token, generation := n.currentToken()
	if token == "" {
		slog.Info("No cached mail API token, refreshing")
		var err error
		if token, generation, err = n.refreshToken(ctx, generation); err != nil {
			return err
		}
	}

	content, err := RenderCodeEmail(code, durationMinutes)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(sendEmailRequest{
		FromAddress: n.config.FromAddress,
		ToAddress:   toAddress,
		Subject:     subject,
		Content:     content,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mail api request: %w", err)
	}

	status, body, err := n.postEmail(ctx, payload, token)
	if err != nil {
		return &DeliveryError{Op: opSend, Err: err}
	}

	if status >= 400 && status < 500 {
		slog.Warn("Mail API rejected send, refreshing token and retrying once", "status", status)
		if token, _, err = n.refreshToken(ctx, generation); err != nil {
			return err
		}
		status, body, err = n.postEmail(ctx, payload, token)
		if err != nil {
			return &DeliveryError{Op: opSend, Err: err}
		}
	}

	if status >= 400 {
		slog.Error("Mail API send failed", "status", status)
		return &DeliveryError{Op: opSend, StatusCode: status, Body: body}
	}

	slog.Info("Verification email sent through mail API", "status", status)
	return nil
}

func (n *APINotifier) postEmail(ctx context.Context, payload []byte, token string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.SendEmailURL, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", n.config.AuthScheme+" "+token)

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}

func (n *APINotifier) currentToken() (string, uint64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.token, n.generation
}

// refreshToken fetches a new token unless another caller already replaced the
// token seen at generation seen, in which case that newer token is returned.
func (n *APINotifier) refreshToken(ctx context.Context, seen uint64) (string, uint64, error) {
	n.refreshMu.Lock()
	defer n.refreshMu.Unlock()

	if token, generation := n.currentToken(); generation != seen && token != "" {
		return token, generation, nil
	}

	token, err := n.fetchToken(ctx)
	metrics.RecordTokenRefresh(err == nil)
	if err != nil {
		slog.Error("Failed to refresh mail API token", "error", err)
		return "", seen, err
	}

	n.mu.Lock()
	n.token = token
	n.generation++
	generation := n.generation
	n.mu.Unlock()

	return token, generation, nil
}

func (n *APINotifier) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.RefreshTokenURL, nil)
	if err != nil {
		return "", &DeliveryError{Op: opRefresh, Err: err}
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return "", &DeliveryError{Op: opRefresh, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", &DeliveryError{Op: opRefresh, Err: err}
	}

	if resp.StatusCode >= 400 {
		return "", &DeliveryError{Op: opRefresh, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload refreshTokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.AccessToken == nil {
		return "", fmt.Errorf("%w: access_token missing", ErrMalformedResponse)
	}
	if *payload.AccessToken == "" {
		return "", fmt.Errorf("%w: access_token is empty", ErrMalformedResponse)
	}

	return *payload.AccessToken, nil
}

var _ Notifier = (*APINotifier)(nil)
