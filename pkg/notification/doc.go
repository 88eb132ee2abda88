// Package notification delivers verification codes to an email address.
//
// Every provider implements Notifier:
//
//	type Notifier interface {
//	    Send(ctx context.Context, toAddress, subject, code string, durationMinutes int) error
//	}
//
// The message body is rendered from the embedded verification_code.html
// template by RenderCodeEmail.
//
// # Providers
//
//   - APINotifier: a bearer-token protected HTTP mail API. The token is cached
//     and refreshed when the API answers with a 4xx, after which the send is
//     retried once.
//   - EmailNotifier: direct SMTP through go-mail (also used for Mailtrap).
//   - ResendNotifier: the Resend REST API.
//   - NoOpNotifier: logs and drops the message.
//   - MockNotifier: records sends for tests.
//
// NewNotifier picks one by Config.Method:
//
//	n, err := notification.NewNotifier(notification.Config{
//	    Method: notification.MethodAPI,
//	    API: notification.APIConfig{
//	        FromAddress:     "noreply@example.com",
//	        SendEmailURL:    "https://mail.example.com/v1/send",
//	        RefreshTokenURL: "https://mail.example.com/v1/token",
//	    },
//	})
//
// Failed deliveries are reported as *DeliveryError, which matches ErrDelivery
// with errors.Is.
package notification
