package notification

import (
	"context"
	"log/slog"
)

// NoOpNotifier logs that a code would have been sent and delivers nothing.
type NoOpNotifier struct{}

func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

func (n *NoOpNotifier) Send(ctx context.Context, toAddress, subject, code string, durationMinutes int) error {
	slog.Info("Skipping verification email", "subject", subject, "duration_minutes", durationMinutes)
	return nil
}

var _ Notifier = (*NoOpNotifier)(nil)
