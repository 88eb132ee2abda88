package notification

import (
	"fmt"
	"strings"
)

// Config selects and configures a Notifier. Only the section matching Method
// is read.
type Config struct {
	Method string
	API    APIConfig
	SMTP   SMTPConfig
	Resend ResendConfig
}

type ResendConfig struct {
	APIKey string
	From   string
}

// NewNotifier builds the Notifier named by cfg.Method. An empty method selects
// the no-op notifier.
func NewNotifier(cfg Config) (Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Method)) {
	case "", MethodNoOp, "noop":
		return NewNoOpNotifier(), nil
	case MethodAPI:
		return NewAPINotifier(cfg.API)
	case MethodSMTP, MethodMailtrap:
		return NewEmailNotifier(cfg.SMTP, WithMethod(cfg.Method))
	case MethodResend:
		return NewResendNotifier(cfg.Resend.APIKey, cfg.Resend.From)
	default:
		return nil, fmt.Errorf("unsupported emailer method: %s (supported: no-op, api, smtp, mailtrap, resend)", cfg.Method)
	}
}
