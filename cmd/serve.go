package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/wavechat/wavechat/db"
	"github.com/wavechat/wavechat/internal/api"
	"github.com/wavechat/wavechat/internal/chat"
	"github.com/wavechat/wavechat/internal/config"
	"github.com/wavechat/wavechat/internal/log"
	"github.com/wavechat/wavechat/internal/store"
	"github.com/wavechat/wavechat/internal/upstream"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // upstream calls can be slow
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second

	sessionReapInterval = 1 * time.Hour
)

// runServe initializes and starts the HTTP API server.
func runServe() error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting wavechat", "version", AppVersion)

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	st, err := store.Connect(ctx, cfg.PostgresConnectionString(), logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer st.Close()

	upstreamClient := upstream.NewClient(
		cfg.UpstreamBaseURL,
		time.Duration(cfg.UpstreamTimeoutMS)*time.Millisecond,
		logger,
	)
	chatService := chat.NewService(st, upstreamClient, logger)

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:        logger,
		Store:         st,
		Chat:          chatService,
		Pinger:        st,
		HMACSecret:    []byte(cfg.HMACSecret),
		SessionTTL:    time.Duration(cfg.SessionTTLHours) * time.Hour,
		MessagesLimit: cfg.MessagesLimit,
		CORSOrigins:   cfg.CORSOrigins,
		IsDev:         cfg.PostgresSSLMode == "disable",
		TrustProxy:    cfg.TrustProxy,
		RateBurst:     cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	go reapSessions(ctx, st, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.ListenAddr,
		"api", "/api/v1/*",
		"health", "/health, /ready",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// reapSessions periodically deletes expired sessions. Exits when ctx
// is canceled.
func reapSessions(ctx context.Context, st *store.Store, logger log.Logger) {
	ticker := time.NewTicker(sessionReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.DeleteExpiredSessions(ctx)
			if err != nil {
				logger.Warn("reaping expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired sessions reaped", "count", n)
			}
		}
	}
}
