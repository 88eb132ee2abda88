package notification

import (
	"errors"
	"fmt"
)

var (
	// ErrDelivery matches any *DeliveryError via errors.Is
	ErrDelivery = errors.New("email delivery failed")

	// ErrMalformedResponse is returned when the token endpoint answers
	// successfully but without a usable access_token
	ErrMalformedResponse = errors.New("malformed response from mail api")
)

// DeliveryError describes a failed call to a mail provider. StatusCode and Body
// are set when the provider answered with an error status; Err is set when no
// usable answer arrived at all (network failure, timeout).
type DeliveryError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrDelivery
}
