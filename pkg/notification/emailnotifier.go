package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-verify/pkg/metrics"
	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 30 * time.Second

type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// EmailNotifier sends code emails directly over SMTP.
type EmailNotifier struct {
	SMTPConfig SMTPConfig
	client     *mail.Client
	method     string
}

type EmailOption func(*EmailNotifier)

// WithMethod sets the method label recorded in metrics, e.g. MethodMailtrap.
func WithMethod(method string) EmailOption {
	return func(e *EmailNotifier) {
		e.method = method
	}
}

func NewEmailNotifier(config SMTPConfig, opts ...EmailOption) (*EmailNotifier, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if config.From == "" {
		return nil, fmt.Errorf("from address is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultSMTPTimeout
	}

	mailOpts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(config.Timeout),
	}

	// Only authenticate when credentials are configured
	if config.Username != "" && config.Password != "" {
		mailOpts = append(mailOpts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if config.TLS {
		mailOpts = append(mailOpts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		mailOpts = append(mailOpts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(config.Host, mailOpts...)
	if err != nil {
		slog.Error("Failed to create mail client", "host", config.Host, "port", config.Port, "error", err)
		return nil, err
	}

	e := &EmailNotifier{SMTPConfig: config, client: client, method: MethodSMTP}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *EmailNotifier) Send(ctx context.Context, toAddress, subject, code string, durationMinutes int) error {
	err := e.send(ctx, toAddress, subject, code, durationMinutes)
	metrics.RecordNotification(e.method, err == nil)
	return err
}

func (e *EmailNotifier) send(ctx context.Context, toAddress, subject, code string, durationMinutes int) error {
	msg, err := e.newMessage(toAddress, subject, code, durationMinutes)
	if err != nil {
		return err
	}

	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		slog.Error("Failed to send email", "host", e.SMTPConfig.Host, "error", err)
		return &DeliveryError{Op: "smtp send", Err: err}
	}

	slog.Info("Verification email sent over SMTP", "host", e.SMTPConfig.Host, "port", e.SMTPConfig.Port)
	return nil
}

func (e *EmailNotifier) newMessage(toAddress, subject, code string, durationMinutes int) (*mail.Msg, error) {
	if toAddress == "" {
		return nil, fmt.Errorf("email notification requires a to address")
	}

	body, err := RenderCodeEmail(code, durationMinutes)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(e.SMTPConfig.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(toAddress); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	return msg, nil
}

var _ Notifier = (*EmailNotifier)(nil)
