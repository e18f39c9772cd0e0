// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/mydat/internal/ui/features/common"
	filesFeature "github.com/leapstack-labs/mydat/internal/ui/features/files"
	graphFeature "github.com/leapstack-labs/mydat/internal/ui/features/graph"
	homeFeature "github.com/leapstack-labs/mydat/internal/ui/features/home"
	"github.com/leapstack-labs/mydat/internal/ui/notifier"
	"github.com/leapstack-labs/mydat/internal/ui/resources"
	"github.com/leapstack-labs/mydat/internal/workspace"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Workspace    *workspace.Workspace
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	Layout       string
	Logger       *slog.Logger
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, deps Deps) error {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Static assets need no session
	router.Handle("/static/*", resources.Handler(logger))

	var err error
	router.Group(func(r chi.Router) {
		r.Use(common.UserSession(deps.SessionStore, logger))

		if err = homeFeature.SetupRoutes(r, deps.Workspace, logger); err != nil {
			return
		}
		if err = graphFeature.SetupRoutes(r, deps.Workspace, deps.Notifier, deps.Layout, logger); err != nil {
			return
		}
		err = filesFeature.SetupRoutes(r, deps.Workspace, deps.Notifier, logger)
	})
	return err
}

// RequestLogger logs every request with its chi request id.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// New returns a mux with the standard middleware stack and every route installed.
func New(deps Deps) (chi.Router, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		RequestLogger(logger),
		middleware.Recoverer,
		middleware.Compress(5),
	)
	if err := SetupRoutes(r, deps); err != nil {
		return nil, err
	}
	return r, nil
}
