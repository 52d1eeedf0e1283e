package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ritahq/rita/internal/auth"
	"github.com/ritahq/rita/internal/mail"
	"github.com/ritahq/rita/internal/metrics"
	"github.com/ritahq/rita/internal/passreset"
	"github.com/ritahq/rita/internal/user"
)

// ResetService is the password-reset surface the handlers depend on.
type ResetService interface {
	RequestReset(ctx context.Context, in passreset.RequestResetInput) (*passreset.ResetRequest, error)
	VerifyToken(ctx context.Context, token string) (string, error)
	ResetPassword(ctx context.Context, in passreset.ResetPasswordInput) (*passreset.ResetResult, error)
	DeleteToken(ctx context.Context, token string) error
}

// CredentialStore is the account surface the auth handlers depend on.
type CredentialStore interface {
	GetByID(ctx context.Context, id string) (*user.Profile, error)
	GetByEmail(ctx context.Context, email string) (*user.Profile, error)
	UpdatePasswordByEmail(ctx context.Context, email, password string) error
	CreateSession(ctx context.Context, userID string) (string, *user.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// genericResetMessage hides whether an account exists for the email.
const genericResetMessage = "If an account exists for this email, reset instructions have been sent."

// authHandler groups authentication and password-reset HTTP handlers.
type authHandler struct {
	users   CredentialStore
	resets  ResetService
	mailer  mail.Mailer
	metrics *metrics.Metrics
}

func newAuthHandler(users CredentialStore, resets ResetService, mailer mail.Mailer, m *metrics.Metrics) *authHandler {
	return &authHandler{users: users, resets: resets, mailer: mailer, metrics: m}
}

// Login handles POST /auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email and password are required")
		return
	}

	p, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil || !user.CheckPassword(p, req.Password) {
		if h.metrics != nil {
			h.metrics.AuthFailuresTotal.Inc()
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	token, _, err := h.users.CreateSession(r.Context(), p.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}
	if h.metrics != nil {
		h.metrics.AuthSuccessesTotal.Inc()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":         p.ID,
			"email":      p.Email,
			"first_name": p.FirstName,
			"last_name":  p.LastName,
		},
	})
}

// Me handles GET /auth/me. The profile is re-read so the response carries
// the current active organization pointer, not the snapshot cached in the
// session context.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	p, err := h.users.GetByID(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":                     p.ID,
		"email":                  p.Email,
		"first_name":             p.FirstName,
		"last_name":              p.LastName,
		"active_organization_id": p.ActiveOrganizationID,
	})
}

// Logout handles POST /auth/logout.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractBearerToken(r)
	if token == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	_ = h.users.DeleteSession(r.Context(), token)
	w.WriteHeader(http.StatusNoContent)
}

// ForgotPassword handles POST /auth/forgot-password. The response is the
// same generic success message whether or not an account exists, so the
// endpoint cannot be used to enumerate registered emails.
func (h *authHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email is required")
		return
	}

	reset, err := h.resets.RequestReset(r.Context(), passreset.RequestResetInput{
		Email:     req.Email,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	switch {
	case errors.Is(err, passreset.ErrUserNotFound):
		// Fall through to the generic response.
	case err != nil:
		slog.Error("reset request failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
		return
	default:
		if h.metrics != nil {
			h.metrics.ResetTokensIssuedTotal.Inc()
		}
		if err := h.mailer.SendPasswordReset(r.Context(), req.Email, reset.Token, reset.ExpiresAt); err != nil {
			// Compensate: a token the user will never receive must not
			// stay live.
			slog.Error("reset delivery failed, rolling back token", "error", err)
			if delErr := h.resets.DeleteToken(r.Context(), reset.Token); delErr != nil {
				slog.Error("reset token rollback failed", "error", delErr)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": genericResetMessage,
	})
}

// VerifyResetToken handles POST /auth/verify-reset-token. Token lifecycle
// failures are reported inside a 200 body so the client's polling flow
// stays simple.
func (h *authHandler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	email, err := h.resets.VerifyToken(r.Context(), req.Token)
	if err != nil {
		code := resetErrorCode(err)
		if code == "" {
			slog.Error("token verification failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
			writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"valid":   false,
			"code":    code,
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"email": email,
	})
}

// ResetPassword handles POST /auth/reset-password. On success the token is
// consumed and the account credential is replaced.
func (h *authHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	result, err := h.resets.ResetPassword(r.Context(), passreset.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		if h.metrics != nil {
			h.metrics.ResetTokenConsumptionsTotal.WithLabelValues("failure").Inc()
		}
		code := resetErrorCode(err)
		if code == "" {
			slog.Error("password reset failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
			writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
			return
		}
		writeError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	if err := h.users.UpdatePasswordByEmail(r.Context(), result.Email, req.NewPassword); err != nil {
		slog.Error("credential update failed after token consumption",
			"error", err,
			"token_id", result.TokenID,
			"request_id", RequestIDFromContext(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
		return
	}
	if h.metrics != nil {
		h.metrics.ResetTokenConsumptionsTotal.WithLabelValues("success").Inc()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"email":   result.Email,
	})
}

// clientIP resolves the originating client address for audit metadata.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
