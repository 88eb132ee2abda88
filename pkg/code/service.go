package code

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tendant/simple-verify/pkg/codehash"
	"github.com/tendant/simple-verify/pkg/metrics"
	"github.com/tendant/simple-verify/pkg/notification"
)

const (
	MinCodeLength       = 2
	MaxCodeLength       = 10
	MinCustomCodeLength = 2
	MaxCustomCodeLength = 64

	// bcrypt ignores input past 72 bytes
	maxCustomCodeBytes = 72

	DefaultSubject = "Verification Code"
)

// CodeService issues verification codes and checks submissions against them.
type CodeService struct {
	repo      CodeRepository
	hasher    codehash.Hasher
	notifier  notification.Notifier
	generator Generator
	locker    Locker
	now       func() time.Time
	subject   string
}

// CodeServiceOption defines configuration options
type CodeServiceOption func(*CodeService)

// WithNotifier sets where issued codes are delivered. Defaults to a no-op notifier.
func WithNotifier(n notification.Notifier) CodeServiceOption {
	return func(s *CodeService) {
		s.notifier = n
	}
}

// WithGenerator replaces the crypto/rand digit generator.
func WithGenerator(g Generator) CodeServiceOption {
	return func(s *CodeService) {
		s.generator = g
	}
}

// WithLocker replaces the process-local per-email lock.
func WithLocker(l Locker) CodeServiceOption {
	return func(s *CodeService) {
		s.locker = l
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CodeServiceOption {
	return func(s *CodeService) {
		s.now = now
	}
}

// WithSubject sets the subject line of code emails.
func WithSubject(subject string) CodeServiceOption {
	return func(s *CodeService) {
		if subject != "" {
			s.subject = subject
		}
	}
}

func NewCodeService(repo CodeRepository, hasher codehash.Hasher, opts ...CodeServiceOption) *CodeService {
	s := &CodeService{
		repo:      repo,
		hasher:    hasher,
		notifier:  notification.NewNoOpNotifier(),
		generator: DigitGenerator{},
		locker:    NewMutexLocker(),
		now:       time.Now,
		subject:   DefaultSubject,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type SendCodeParams struct {
	OwnerID                *uuid.UUID
	Email                  string
	Length                 int
	MaximumAttempts        int
	MaximumDurationMinutes int
}

type SendCustomCodeParams struct {
	OwnerID                *uuid.UUID
	Email                  string
	Code                   string
	MaximumAttempts        int
	MaximumDurationMinutes int
}

type VerifyCodeParams struct {
	OwnerID uuid.UUID
	Email   string
	Code    string
}

// SendCode generates a numeric code of params.Length digits, stores its hash
// and emails the plaintext.
//
// When delivery fails the code stays stored and verifiable: SendCode then
// returns both the CodeResponse and an error wrapping the notifier's failure.
func (s *CodeService) SendCode(ctx context.Context, params SendCodeParams) (*CodeResponse, error) {
	if params.Length < MinCodeLength || params.Length > MaxCodeLength {
		return nil, fmt.Errorf("%w: code length must be between %d and %d", ErrInvalidInput, MinCodeLength, MaxCodeLength)
	}

	plaintext, err := s.generator.Generate(params.Length)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, params.OwnerID, params.Email, plaintext, params.MaximumAttempts, params.MaximumDurationMinutes)
}

// SendCustomCode stores and emails a caller-chosen code. Delivery failures are
// reported the same way as in SendCode.
func (s *CodeService) SendCustomCode(ctx context.Context, params SendCustomCodeParams) (*CodeResponse, error) {
	n := utf8.RuneCountInString(params.Code)
	if n < MinCustomCodeLength || n > MaxCustomCodeLength || len(params.Code) > maxCustomCodeBytes {
		return nil, fmt.Errorf("%w: code must be between %d and %d characters", ErrInvalidInput, MinCustomCodeLength, MaxCustomCodeLength)
	}

	return s.issue(ctx, params.OwnerID, params.Email, params.Code, params.MaximumAttempts, params.MaximumDurationMinutes)
}

func (s *CodeService) issue(ctx context.Context, ownerID *uuid.UUID, email, plaintext string, maximumAttempts, maximumDurationMinutes int) (*CodeResponse, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if maximumAttempts < 1 {
		return nil, fmt.Errorf("%w: maximum attempts must be at least 1", ErrInvalidInput)
	}
	if maximumDurationMinutes < 1 {
		return nil, fmt.Errorf("%w: maximum duration must be at least 1 minute", ErrInvalidInput)
	}

	saved, err := s.createCode(ctx, ownerID, email, plaintext, maximumAttempts, maximumDurationMinutes)
	if err != nil {
		return nil, err
	}

	metrics.RecordCodeEvent(metrics.CodeIssued)
	slog.Info("Verification code issued", "code_id", saved.ID, "owner_id", saved.OwnerID, "expires_at", saved.ExpiresAt())

	resp := NewCodeResponse(saved)

	if err := s.notifier.Send(ctx, saved.Email, s.subject, plaintext, saved.MaximumDurationMinutes); err != nil {
		metrics.RecordCodeEvent(metrics.CodeDeliveryFailed)
		slog.Error("Failed to deliver verification code", "code_id", saved.ID, "error", err)
		return &resp, fmt.Errorf("verification code %s stored but not delivered: %w", saved.ID, err)
	}

	return &resp, nil
}

// createCode runs the active-code check and the insert under the email's lock.
func (s *CodeService) createCode(ctx context.Context, ownerID *uuid.UUID, email, plaintext string, maximumAttempts, maximumDurationMinutes int) (*VerificationCode, error) {
	unlock, err := s.locker.Lock(ctx, lockKey(email))
	if err != nil {
		return nil, fmt.Errorf("failed to lock email: %w", err)
	}
	defer unlock()

	now := s.now()

	codes, err := s.repo.FindCodesByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find codes: %w", err)
	}
	if active := firstActive(codes, now); active != nil {
		metrics.RecordCodeEvent(metrics.CodeAlreadyActive)
		slog.Info("Active verification code exists", "code_id", active.ID)
		return nil, ErrAlreadyActive
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	vc, err := NewVerificationCode(ownerID, email, hash, now, maximumAttempts, maximumDurationMinutes)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, vc)
	if err != nil {
		slog.Error("Failed to save verification code", "error", err)
		return nil, fmt.Errorf("failed to save code: %w", err)
	}
	return saved, nil
}

// VerifyCode checks params.Code against the email's active code.
//
// It returns nil when the code matches, ErrNotFound when there is no active
// code, ErrForbidden when the active code belongs to someone else, and an
// *IncorrectCodeError carrying the updated attempt counter on a mismatch.
func (s *CodeService) VerifyCode(ctx context.Context, params VerifyCodeParams) error {
	email := normalizeEmail(params.Email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if params.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidInput)
	}

	unlock, err := s.locker.Lock(ctx, lockKey(email))
	if err != nil {
		return fmt.Errorf("failed to lock email: %w", err)
	}
	defer unlock()

	now := s.now()

	codes, err := s.repo.FindCodesByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find codes: %w", err)
	}

	active := firstActive(codes, now)
	if active == nil {
		metrics.RecordCodeEvent(metrics.CodeNotFound)
		return ErrNotFound
	}

	if !active.IsOwnedBy(params.OwnerID) {
		metrics.RecordCodeEvent(metrics.CodeForbidden)
		slog.Warn("Verification attempted by non-owner", "code_id", active.ID, "owner_id", params.OwnerID)
		return ErrForbidden
	}

	ok, err := s.hasher.Matches(params.Code, active.CodeHash)
	if err != nil {
		return fmt.Errorf("failed to compare code: %w", err)
	}

	if ok {
		active.Fulfill(now)
		if _, err := s.repo.Save(ctx, active); err != nil {
			return fmt.Errorf("failed to save code: %w", err)
		}
		metrics.RecordCodeEvent(metrics.CodeVerified)
		slog.Info("Verification code fulfilled", "code_id", active.ID)
		return nil
	}

	active.IncrementIncorrectAttempts()
	saved, err := s.repo.Save(ctx, active)
	if err != nil {
		return fmt.Errorf("failed to save code: %w", err)
	}
	metrics.RecordCodeEvent(metrics.CodeIncorrect)
	slog.Info("Incorrect verification code", "code_id", saved.ID, "remaining_attempts", saved.RemainingAttempts())

	return &IncorrectCodeError{Response: NewCodeResponse(saved)}
}

// firstActive returns the newest active code, or nil.
func firstActive(codes []*VerificationCode, now time.Time) *VerificationCode {
	sorted := make([]*VerificationCode, len(codes))
	copy(sorted, codes)
	sortNewestFirst(sorted)

	for _, c := range sorted {
		if c.IsActive(now) {
			return c
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func lockKey(email string) string {
	return "code:" + email
}
