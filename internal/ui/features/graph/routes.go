package graph

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/mydat/internal/ui/notifier"
	"github.com/leapstack-labs/mydat/internal/workspace"
)

// SetupRoutes registers the graph feature routes.
func SetupRoutes(
	router chi.Router,
	ws *workspace.Workspace,
	notify *notifier.Notifier,
	layout string,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(ws, notify, layout, logger)

	// The mounted subrouter answers both /graph and /graph/.
	router.Route("/graph", func(r chi.Router) {
		r.Get("/", handlers.Snapshot)
		r.Get("/view", handlers.View)
		r.Get("/style", handlers.Style)
		r.Get("/updates", handlers.Updates)
		r.Post("/delete", handlers.Delete)
		r.Post("/nodes", handlers.Create)
	})

	return nil
}
