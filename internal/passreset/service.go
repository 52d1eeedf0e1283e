package passreset

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// tokenTTL is how long a freshly issued token stays valid.
const tokenTTL = time.Hour

// createRetries bounds how often issuance retries after losing the insert
// race against a concurrent request for the same email.
const createRetries = 3

// tokenPattern matches the wire form of a token: 32 random bytes rendered
// as 64 lowercase hex characters.
var tokenPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// TokenStore is the persistence surface the service depends on. Create runs
// opportunistic cleanup, removal of prior unused tokens for the email, and
// the insert inside one transaction. Consume must be atomic: it marks the
// token used only if it is still unused and reports whether it did.
type TokenStore interface {
	Create(ctx context.Context, tok *Token) error
	GetByToken(ctx context.Context, token string) (*Token, error)
	Consume(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, token string) error
}

// UserLookup answers whether an account exists for an email.
type UserLookup interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Service issues, validates and consumes single-use password reset tokens.
type Service struct {
	store TokenStore
	users UserLookup
	now   func() time.Time
}

// NewService creates a password reset service.
func NewService(store TokenStore, users UserLookup) *Service {
	return &Service{store: store, users: users, now: time.Now}
}

// RequestReset issues a fresh token for the account matching the email.
// When no account matches it returns ErrUserNotFound without touching the
// database; callers must hide that outcome behind a generic success message
// so account existence is not leaked.
func (s *Service) RequestReset(ctx context.Context, in RequestResetInput) (*ResetRequest, error) {
	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating reset token: %w", err)
	}
	token := hex.EncodeToString(b)

	now := s.now()
	tok := &Token{
		ID:             uuid.NewString(),
		UserEmail:      in.Email,
		ResetToken:     token,
		TokenExpiresAt: now.Add(tokenTTL),
		CreatedAt:      now,
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
	}
	// Create deletes any prior unused token for the email before inserting.
	// When two requests race, the unique index rejects the loser's insert;
	// the retry's delete then removes the winner's committed token.
	var createErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		createErr = s.store.Create(ctx, tok)
		if createErr == nil {
			return &ResetRequest{Token: token, ExpiresAt: tok.TokenExpiresAt}, nil
		}
		if !errors.Is(createErr, errUnusedTokenExists) {
			return nil, createErr
		}
	}
	return nil, fmt.Errorf("issuing reset token: %w", createErr)
}

// VerifyToken checks a token without consuming it and returns the email it
// belongs to. Validation order: syntax, existence, unused, unexpired.
func (s *Service) VerifyToken(ctx context.Context, token string) (string, error) {
	tok, err := s.lookup(ctx, token)
	if err != nil {
		return "", err
	}
	return tok.UserEmail, nil
}

// ResetPassword validates the new password and the token, then marks the
// token used. The conditional consume closes the check-then-act race: when
// a concurrent request already consumed the token, this returns
// ErrTokenAlreadyUsed even though the read above saw it unused. Updating
// the actual credential is the caller's responsibility after success.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) (*ResetResult, error) {
	if err := ValidatePassword(in.NewPassword); err != nil {
		return nil, err
	}

	tok, err := s.lookup(ctx, in.Token)
	if err != nil {
		return nil, err
	}

	consumed, err := s.store.Consume(ctx, tok.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrTokenAlreadyUsed
	}

	return &ResetResult{TokenID: tok.ID, Email: tok.UserEmail}, nil
}

// DeleteToken removes a token unconditionally. Callers use it to roll back
// issuance when a downstream step fails after RequestReset succeeded.
func (s *Service) DeleteToken(ctx context.Context, token string) error {
	return s.store.Delete(ctx, token)
}

func (s *Service) lookup(ctx context.Context, token string) (*Token, error) {
	if !tokenPattern.MatchString(token) {
		return nil, ErrInvalidToken
	}
	tok, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if tok.UsedAt != nil {
		return nil, ErrTokenAlreadyUsed
	}
	if !tok.TokenExpiresAt.After(s.now()) {
		return nil, ErrTokenExpired
	}
	return tok, nil
}

// ValidatePassword enforces the password policy: at least 8 characters with
// one uppercase letter, one lowercase letter and one digit. Only the first
// violated rule is reported.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: must be at least 8 characters", ErrWeakPassword)
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("%w: must contain an uppercase letter", ErrWeakPassword)
	}
	if !hasLower {
		return fmt.Errorf("%w: must contain a lowercase letter", ErrWeakPassword)
	}
	if !hasDigit {
		return fmt.Errorf("%w: must contain a digit", ErrWeakPassword)
	}
	return nil
}
