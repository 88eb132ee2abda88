package code

import "errors"

var (
	// ErrInvalidInput is returned when issue or verify parameters are out of range
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyActive is returned when the email already has an active code
	ErrAlreadyActive = errors.New("email already has an active verification code")

	// ErrNotFound is returned when the email has no active code to verify against
	ErrNotFound = errors.New("no active verification code found")

	// ErrForbidden is returned when the active code belongs to another owner
	ErrForbidden = errors.New("verification code belongs to another owner")

	// ErrIncorrect matches any *IncorrectCodeError via errors.Is
	ErrIncorrect = errors.New("incorrect verification code")
)

// IncorrectCodeError is returned by VerifyCode when the submitted code does not
// match. Response reflects the attempt counter after the failed submission.
type IncorrectCodeError struct {
	Response CodeResponse
}

func (e *IncorrectCodeError) Error() string {
	return ErrIncorrect.Error()
}

func (e *IncorrectCodeError) Is(target error) bool {
	return target == ErrIncorrect
}
