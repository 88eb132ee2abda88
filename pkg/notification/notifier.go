package notification

import "context"

// Notification methods accepted by NewNotifier
const (
	MethodNoOp     = "no-op"
	MethodAPI      = "api"
	MethodSMTP     = "smtp"
	MethodMailtrap = "mailtrap"
	MethodResend   = "resend"
)

// Notifier delivers a verification code to an email address.
type Notifier interface {
	Send(ctx context.Context, toAddress, subject, code string, durationMinutes int) error
}
