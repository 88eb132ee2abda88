package api

import "github.com/tendant/simple-verify/pkg/code"

// SendCodeRequest asks for a generated numeric code. Omitted numbers fall
// back to the handler's defaults.
type SendCodeRequest struct {
	Email                  string `json:"email" validate:"required,email"`
	Length                 *int   `json:"length,omitempty" validate:"omitempty,min=2,max=10"`
	MaximumAttempts        *int   `json:"maximum_attempts,omitempty" validate:"omitempty,min=1"`
	MaximumDurationMinutes *int   `json:"maximum_duration_in_minutes,omitempty" validate:"omitempty,min=1,max=10"`
}

// SendCustomCodeRequest carries a caller-chosen code.
type SendCustomCodeRequest struct {
	Email                  string `json:"email" validate:"required,email"`
	Code                   string `json:"code" validate:"required,min=2,max=64"`
	MaximumAttempts        *int   `json:"maximum_attempts,omitempty" validate:"omitempty,min=1"`
	MaximumDurationMinutes *int   `json:"maximum_duration_in_minutes,omitempty" validate:"omitempty,min=1,max=10"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// IncorrectCodeResponse is returned with 400 when a submitted code does not match.
type IncorrectCodeResponse struct {
	Error string `json:"error"`
	code.CodeResponse
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
