package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/tendant/simple-verify/pkg/client"
	"github.com/tendant/simple-verify/pkg/code"
	"github.com/tendant/simple-verify/pkg/notification"
)

// Defaults fill numeric request fields the caller omitted.
type Defaults struct {
	Length                 int
	MaximumAttempts        int
	MaximumDurationMinutes int
}

var DefaultDefaults = Defaults{
	Length:                 6,
	MaximumAttempts:        5,
	MaximumDurationMinutes: 5,
}

type Handle struct {
	service  *code.CodeService
	validate *validator.Validate
	defaults Defaults
}

type HandleOption func(*Handle)

func WithDefaults(d Defaults) HandleOption {
	return func(h *Handle) {
		h.defaults = d
	}
}

func NewHandle(service *code.CodeService, opts ...HandleOption) Handle {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	h := Handle{
		service:  service,
		validate: validate,
		defaults: DefaultDefaults,
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// Routes mounts the code endpoints. The router must already resolve the
// caller through client.AuthUserMiddleware. issue wraps only the two send
// endpoints.
func Routes(r chi.Router, h Handle, issue ...func(http.Handler) http.Handler) {
	r.With(issue...).Post("/code/send", h.SendCode)
	r.With(issue...).Post("/custom/code/send", h.SendCustomCode)
	r.Post("/code/verify", h.VerifyCode)
}

// SendCode handles POST /code/send
func (h Handle) SendCode(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.GetAuthUser(r)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req SendCodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.SendCode(r.Context(), code.SendCodeParams{
		OwnerID:                &authUser.OwnerID,
		Email:                  req.Email,
		Length:                 valueOr(req.Length, h.defaults.Length),
		MaximumAttempts:        valueOr(req.MaximumAttempts, h.defaults.MaximumAttempts),
		MaximumDurationMinutes: valueOr(req.MaximumDurationMinutes, h.defaults.MaximumDurationMinutes),
	})
	if err != nil {
		writeIssueError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// SendCustomCode handles POST /custom/code/send
func (h Handle) SendCustomCode(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.GetAuthUser(r)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req SendCustomCodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.service.SendCustomCode(r.Context(), code.SendCustomCodeParams{
		OwnerID:                &authUser.OwnerID,
		Email:                  req.Email,
		Code:                   req.Code,
		MaximumAttempts:        valueOr(req.MaximumAttempts, h.defaults.MaximumAttempts),
		MaximumDurationMinutes: valueOr(req.MaximumDurationMinutes, h.defaults.MaximumDurationMinutes),
	})
	if err != nil {
		writeIssueError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// VerifyCode handles POST /code/verify
func (h Handle) VerifyCode(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.GetAuthUser(r)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req VerifyCodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.VerifyCode(r.Context(), code.VerifyCodeParams{
		OwnerID: authUser.OwnerID,
		Email:   req.Email,
		Code:    req.Code,
	})
	if err != nil {
		var incorrect *code.IncorrectCodeError
		status := http.StatusBadRequest
		message := "Failed to verify code"

		switch {
		case errors.As(err, &incorrect):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, IncorrectCodeResponse{
				Error:        "Incorrect verification code",
				CodeResponse: incorrect.Response,
			})
			return
		case errors.Is(err, code.ErrInvalidInput):
			message = err.Error()
		case errors.Is(err, code.ErrNotFound):
			status = http.StatusNotFound
			message = "No active verification code for this email"
		case errors.Is(err, code.ErrForbidden):
			status = http.StatusForbidden
			message = "Verification code belongs to another customer"
		default:
			slog.Error("Failed to verify code", "error", err)
			status = http.StatusInternalServerError
			message = "An error occurred while verifying code"
		}

		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: message})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h Handle) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return false
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: validationMessage(err)})
		return false
	}
	return true
}

func writeIssueError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	message := "Failed to send code"

	switch {
	case errors.Is(err, code.ErrInvalidInput):
		message = err.Error()
	case errors.Is(err, code.ErrAlreadyActive):
		status = http.StatusConflict
		message = "An active verification code already exists for this email"
	case errors.Is(err, notification.ErrDelivery), errors.Is(err, notification.ErrMalformedResponse):
		status = http.StatusBadGateway
		message = "Verification code was created but could not be delivered"
	default:
		slog.Error("Failed to send code", "error", err)
		status = http.StatusInternalServerError
		message = "An error occurred while sending code"
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			fields = append(fields, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return "Invalid request: " + strings.Join(fields, ", ")
}

func valueOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
