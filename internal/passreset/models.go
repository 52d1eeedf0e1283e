package passreset

import (
	"errors"
	"time"
)

// Token is a single-use password reset token row.
type Token struct {
	ID             string     `json:"id"`
	UserEmail      string     `json:"user_email"`
	ResetToken     string     `json:"-"`
	TokenExpiresAt time.Time  `json:"token_expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UsedAt         *time.Time `json:"used_at"`
	IPAddress      string     `json:"ip_address"`
	UserAgent      string     `json:"user_agent"`
}

// RequestResetInput carries a reset request and its client metadata.
type RequestResetInput struct {
	Email     string
	IPAddress string
	UserAgent string
}

// ResetRequest is the result of a successful reset request.
type ResetRequest struct {
	Token     string
	ExpiresAt time.Time
}

// ResetPasswordInput consumes a token and sets a new credential.
type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

// ResetResult identifies the consumed token and its account.
type ResetResult struct {
	TokenID string `json:"token_id"`
	Email   string `json:"email"`
}

// Sentinel errors for the token lifecycle. The API layer matches these with
// errors.Is to pick a machine code.
var (
	ErrUserNotFound     = errors.New("no account matches this email")
	ErrInvalidToken     = errors.New("reset token is invalid")
	ErrTokenAlreadyUsed = errors.New("reset token has already been used")
	ErrTokenExpired     = errors.New("reset token has expired")
	ErrWeakPassword     = errors.New("password does not meet requirements")
)
