package config

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/tendant/simple-verify/pkg/notification"
)

// EmailerConfig selects how verification codes are delivered. Method is one
// of no-op, api, smtp, mailtrap or resend.
type EmailerConfig struct {
	Method      string `env:"EMAILER_METHOD" env-default:"no-op"`
	FromAddress string `env:"EMAILER_FROM_ADDRESS" env-default:"noreply@example.com"`
	API         APIEmailerConfig
	SMTP        SMTPEmailerConfig
	Resend      ResendEmailerConfig
}

type APIEmailerConfig struct {
	SendEmailURL    string        `env:"EMAILER_API_SEND_EMAIL_URL"`
	RefreshTokenURL string        `env:"EMAILER_API_REFRESH_TOKEN_URL"`
	AuthScheme      string        `env:"EMAILER_API_AUTH_SCHEME" env-default:"Bearer"`
	Timeout         time.Duration `env:"EMAILER_API_TIMEOUT" env-default:"10s"`
}

// SMTPEmailerConfig holds SMTP settings for the smtp and mailtrap methods.
type SMTPEmailerConfig struct {
	Host     string        `env:"EMAIL_HOST" env-default:"localhost"`
	Port     int           `env:"EMAIL_PORT" env-default:"1025"`
	Username string        `env:"EMAIL_USERNAME"`
	Password string        `env:"EMAIL_PASSWORD"`
	TLS      bool          `env:"EMAIL_TLS" env-default:"false"`
	Timeout  time.Duration `env:"EMAIL_TIMEOUT" env-default:"30s"`
}

type ResendEmailerConfig struct {
	APIKey string `env:"RESEND_API_KEY"`
}

// ToNotificationConfig maps the emailer settings onto notification.Config.
// FromAddress is shared by every method.
func (e EmailerConfig) ToNotificationConfig() (notification.Config, error) {
	cfg := notification.Config{Method: e.Method}

	if err := copier.Copy(&cfg.API, &e.API); err != nil {
		return notification.Config{}, fmt.Errorf("failed to map api emailer config: %w", err)
	}
	if err := copier.Copy(&cfg.SMTP, &e.SMTP); err != nil {
		return notification.Config{}, fmt.Errorf("failed to map smtp emailer config: %w", err)
	}
	if err := copier.Copy(&cfg.Resend, &e.Resend); err != nil {
		return notification.Config{}, fmt.Errorf("failed to map resend emailer config: %w", err)
	}

	cfg.API.FromAddress = e.FromAddress
	cfg.SMTP.From = e.FromAddress
	cfg.Resend.From = e.FromAddress
	return cfg, nil
}
