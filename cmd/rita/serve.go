package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ritahq/rita/internal/api"
	"github.com/ritahq/rita/internal/audit"
	"github.com/ritahq/rita/internal/config"
	"github.com/ritahq/rita/internal/mail"
	"github.com/ritahq/rita/internal/member"
	"github.com/ritahq/rita/internal/metrics"
	"github.com/ritahq/rita/internal/notify"
	"github.com/ritahq/rita/internal/passreset"
	"github.com/ritahq/rita/internal/ratelimit"
	"github.com/ritahq/rita/internal/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Rita API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	m := metrics.New()
	m.RegisterDBStats(pool)

	hub := notify.NewHub()
	hub.OnCountChange(func(n int) {
		m.SSESubscribers.Set(float64(n))
	})

	userStore := user.NewStore(pool)
	go cleanSessions(ctx, userStore)

	memberStore := member.NewStore(pool)
	memberService := member.NewService(memberStore, hub)
	resetStore := passreset.NewStore(pool)
	resetService := passreset.NewService(resetStore, userStore)
	auditStore := audit.NewStore(pool)

	limiter := ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window)
	mailer := mail.NewLogMailer(cfg.Mail.BaseURL)

	router := api.NewRouter(api.RouterDeps{
		Members:        memberService,
		Memberships:    memberStore,
		Resets:         resetService,
		Users:          userStore,
		Sessions:       user.NewAuthAdapter(userStore),
		Audits:         auditStore,
		Hub:            hub,
		Mailer:         mailer,
		Limiter:        limiter,
		Metrics:        m,
		DB:             pool,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// cleanSessions purges expired session rows on an hourly tick until the
// server context is cancelled.
func cleanSessions(ctx context.Context, store *user.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanExpiredSessions(ctx)
			if err != nil {
				slog.Error("session cleanup failed", "error", err)
			} else if n > 0 {
				slog.Info("expired sessions removed", "count", n)
			}
		}
	}
}
