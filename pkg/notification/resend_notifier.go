package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/tendant/simple-verify/pkg/metrics"
)

// ResendNotifier sends code emails through the Resend REST API.
type ResendNotifier struct {
	from   string
	client *resend.Client
}

func NewResendNotifier(apiKey, from string) (*ResendNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("from address is required")
	}
	return &ResendNotifier{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (n *ResendNotifier) Send(ctx context.Context, toAddress, subject, code string, durationMinutes int) error {
	err := n.send(ctx, toAddress, subject, code, durationMinutes)
	metrics.RecordNotification(MethodResend, err == nil)
	return err
}

func (n *ResendNotifier) send(ctx context.Context, toAddress, subject, code string, durationMinutes int) error {
	html, err := RenderCodeEmail(code, durationMinutes)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{toAddress},
		Subject: subject,
		Html:    html,
	}

	sent, err := n.client.Emails.SendWithOptions(ctx, params, &resend.SendEmailOptions{})
	if err != nil {
		slog.Error("Resend send failed", "error", err)
		return &DeliveryError{Op: "resend send", Err: err}
	}

	slog.Info("Verification email sent through Resend", "email_id", sent.Id)
	return nil
}

var _ Notifier = (*ResendNotifier)(nil)
