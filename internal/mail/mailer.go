package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Mailer delivers password-reset instructions to an account.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

// LogMailer renders the reset link and writes it to the structured log
// instead of sending mail. Used in development and test environments.
type LogMailer struct {
	BaseURL string
}

// NewLogMailer creates a LogMailer that renders links under baseURL.
func NewLogMailer(baseURL string) *LogMailer {
	return &LogMailer{BaseURL: baseURL}
}

// SendPasswordReset logs the reset link. It never fails.
func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.BaseURL, token)
	slog.Info("password reset link issued",
		"email", email,
		"link", link,
		"expires_at", expiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}
