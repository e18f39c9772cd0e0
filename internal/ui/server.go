// Package ui serves the mydat web UI: the page shell, the graph endpoints the graph view
// talks to and live sidebar updates.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/mydat/internal/seed"
	"github.com/leapstack-labs/mydat/internal/ui/features/common"
	"github.com/leapstack-labs/mydat/internal/ui/notifier"
	"github.com/leapstack-labs/mydat/internal/ui/router"
	"github.com/leapstack-labs/mydat/internal/workspace"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// Server is the main UI server.
type Server struct {
	workspace       *workspace.Workspace
	sessionStore    *sessions.CookieStore
	port            int
	watch           bool
	seedFile        string
	layout          string
	persistInterval time.Duration
	logger          *slog.Logger
	notifier        *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Workspace *workspace.Workspace
	Port      int
	// Watch reloads SeedFile when it changes.
	Watch    bool
	SeedFile string
	// SessionSecret signs the user cookie. When empty a random key is used and
	// users get a new identity on every restart.
	SessionSecret string
	// SecureCookie marks the session cookie Secure. Browsers then drop it on plain HTTP.
	SecureCookie    bool
	Layout          string
	PersistInterval time.Duration
	Logger          *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		logger.Warn("no session secret configured, sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}

	return &Server{
		workspace:       cfg.Workspace,
		sessionStore:    common.NewCookieStore(secret, cfg.SecureCookie),
		port:            cfg.Port,
		watch:           cfg.Watch,
		seedFile:        cfg.SeedFile,
		layout:          cfg.Layout,
		persistInterval: cfg.PersistInterval,
		logger:          logger,
		notifier:        notifier.New(),
	}
}

// Handler returns the HTTP handler with every route installed.
func (s *Server) Handler() (http.Handler, error) {
	r, err := router.New(router.Deps{
		Workspace:    s.workspace,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		Layout:       s.layout,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve listens on the configured port and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down and persists
// every changed user graph.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	handler, err := s.Handler()
	if err != nil {
		_ = ln.Close()
		return err
	}
	s.logger.Info("starting UI server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.seedFile != "" {
		eg.Go(func() error {
			return seed.Watch(egctx, s.seedFile, s.logger, s.reloadSeed)
		})
	}

	eg.Go(func() error {
		return s.workspace.Run(egctx, s.persistInterval)
	})

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// reloadSeed swaps the graph new users start with and pings every open page.
func (s *Server) reloadSeed(snap core.Snapshot) {
	s.workspace.SetSeed(snap)
	s.logger.Info("seed graph reloaded", "file", s.seedFile, "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	s.notifier.BroadcastAll()
}
