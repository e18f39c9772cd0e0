package files

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/mydat/internal/ui/notifier"
	"github.com/leapstack-labs/mydat/internal/workspace"
)

// SetupRoutes registers the files feature routes.
func SetupRoutes(router chi.Router, ws *workspace.Workspace, notify *notifier.Notifier, logger *slog.Logger) error {
	handlers := NewHandlers(ws, notify, logger)

	router.Route("/files", func(r chi.Router) {
		r.Post("/upload", handlers.Upload)
	})

	return nil
}
