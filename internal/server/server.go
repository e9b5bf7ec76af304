// Package server assembles the tripmate HTTP server: Connect services, the
// collaboration websocket, metrics and static files.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/devinvista/Trip-sub001/internal/auth"
	"github.com/devinvista/Trip-sub001/internal/config"
	"github.com/devinvista/Trip-sub001/internal/hub"
	"github.com/devinvista/Trip-sub001/internal/idempotency"
	"github.com/devinvista/Trip-sub001/internal/ledger"
	"github.com/devinvista/Trip-sub001/internal/metrics"
	"github.com/devinvista/Trip-sub001/internal/storage/sqlite"
)

const purgeInterval = time.Hour

// Server owns the long-lived resources behind the HTTP handler.
type Server struct {
	cfg     *config.Config
	store   *sqlite.SQLiteStore
	idem    *idempotency.Store
	jwt     *auth.JWTManager
	ledger  *ledger.Ledger
	hub     *hub.Hub
	metrics *metrics.Metrics
	handler http.Handler
}

// New opens the database and idempotency store and wires every component.
func New(cfg *config.Config) (*Server, error) {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	var idem *idempotency.Store
	if cfg.Idempotency.Path != "" {
		idem, err = idempotency.New(cfg.Idempotency.Path, cfg.Idempotency.TTL.Duration)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize idempotency store: %w", err)
		}
		slog.Info("Idempotency store initialized", "path", cfg.Idempotency.Path, "ttl", cfg.Idempotency.TTL.Duration)
	}

	s := &Server{
		cfg:     cfg,
		store:   store,
		idem:    idem,
		jwt:     auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Duration),
		ledger:  ledger.New(store),
		metrics: metrics.New(),
	}
	s.hub = hub.New(s.hubOptions()...)

	handler, err := s.routes()
	if err != nil {
		s.Close()
		return nil, err
	}
	// h2c serves HTTP/2 without TLS, which Connect clients use.
	s.handler = h2c.NewHandler(handler, &http2.Server{})

	return s, nil
}

func (s *Server) hubOptions() []hub.Option {
	opts := []hub.Option{
		hub.WithMetrics(s.metrics),
		hub.WithJoinPolicy(s.ledger.IsAcceptedParticipant),
	}
	if s.cfg.Hub.VerifyTokens {
		opts = append(opts, hub.WithTokenVerifier(hub.TokenVerifierFunc(s.verifyToken)))
	}
	return opts
}

// verifyToken turns the JWT sent in a hub auth event into an identity.
func (s *Server) verifyToken(token string) (hub.Identity, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return hub.Identity{}, err
	}
	return hub.Identity{UserID: claims.UserID, Username: claims.DisplayName}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully within
// the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.idem != nil {
		go s.purgeLoop(ctx, purgeInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server", "timeout", s.cfg.Server.ShutdownTimeout.Duration)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// purgeLoop drops expired idempotency records until ctx is cancelled.
func (s *Server) purgeLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.idem.Purge()
			if err != nil {
				slog.Warn("Failed to purge idempotency records", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Purged idempotency records", "count", n)
			}
		}
	}
}

// Close releases the database and idempotency store.
func (s *Server) Close() error {
	var errs []error
	if s.idem != nil {
		errs = append(errs, s.idem.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}
