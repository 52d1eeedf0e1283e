package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ritahq/rita/internal/auth"
	"github.com/ritahq/rita/internal/mail"
	"github.com/ritahq/rita/internal/member"
	"github.com/ritahq/rita/internal/metrics"
	"github.com/ritahq/rita/internal/ratelimit"
)

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps carries everything the HTTP layer depends on. All fields are
// interfaces or small concrete types so handler tests can swap in fakes.
type RouterDeps struct {
	Members        MemberService
	Memberships    MembershipLookup
	Resets         ResetService
	Users          CredentialStore
	Sessions       auth.SessionLookup
	Audits         AuditReader
	Hub            EventHub
	Mailer         mail.Mailer
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	DB             Pinger
	AllowedOrigins []string
}

// NewRouter assembles the full HTTP API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger(deps.Metrics))

	r.Get("/health", healthHandler(deps.DB))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.ExpositionHandler())
		r.Get("/metrics/summary", deps.Metrics.SummaryHandler())
	}

	members := newMemberHandler(deps.Members, deps.Metrics)
	authH := newAuthHandler(deps.Users, deps.Resets, deps.Mailer, deps.Metrics)
	events := newEventsHandler(deps.Hub)
	audits := newAuditHandler(deps.Audits)

	onRateLimitReject := func() {
		if deps.Metrics != nil {
			deps.Metrics.RateLimitRejectionsTotal.Inc()
		}
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authH.Login)

		// Public reset endpoints, rate limited per client IP.
		r.Group(func(r chi.Router) {
			if deps.Limiter != nil {
				r.Use(ratelimit.ByIP(deps.Limiter, onRateLimitReject))
			}
			r.Post("/auth/forgot-password", authH.ForgotPassword)
			r.Post("/auth/verify-reset-token", authH.VerifyResetToken)
			r.Post("/auth/reset-password", authH.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.SessionMiddleware(deps.Sessions))

			r.Get("/auth/me", authH.Me)
			r.Post("/auth/logout", authH.Logout)

			r.Route("/organizations/{orgID}", func(r chi.Router) {
				// Session only: a deactivated or removed member must still
				// reach the deferred self-deletion endpoint.
				r.Delete("/members/self/permanent", members.DeleteSelfPermanent)

				r.Group(func(r chi.Router) {
					r.Use(requireOrgRole(deps.Memberships, member.RoleOwner, member.RoleAdmin))
					r.Get("/members", members.ListMembers)
					r.Get("/members/{userID}", members.GetMember)
					r.Patch("/members/{userID}/status", members.UpdateStatus)
					r.Delete("/members/{userID}", members.RemoveMember)
				})

				r.Group(func(r chi.Router) {
					r.Use(requireOrgRole(deps.Memberships, member.RoleOwner))
					r.Patch("/members/{userID}/role", members.UpdateRole)
					r.Delete("/members/{userID}/permanent", members.HardDeleteMember)
					r.Get("/audit-logs", audits.ListAuditLogs)
				})

				// Any active member.
				r.Group(func(r chi.Router) {
					r.Use(requireOrgRole(deps.Memberships))
					r.Get("/events", events.Stream)
				})
			})
		})
	})

	return r
}

// healthHandler reports service and database status.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "connected"
		status := "ok"
		code := http.StatusOK
		if db == nil {
			dbStatus = "unconfigured"
		} else if err := db.Ping(r.Context()); err != nil {
			dbStatus = "unreachable"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]interface{}{
			"status":   status,
			"database": dbStatus,
		})
	}
}
