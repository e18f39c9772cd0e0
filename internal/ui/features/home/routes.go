package home

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/mydat/internal/workspace"
)

// SetupRoutes configures routes for the home feature.
func SetupRoutes(router chi.Router, ws *workspace.Workspace, logger *slog.Logger) error {
	handlers := NewHandlers(ws, logger)

	router.Get("/", handlers.HomePage)
	router.Route("/pages", func(r chi.Router) {
		r.Get("/relationships", handlers.RelationshipsPage)
		r.Get("/charts/{id}", handlers.ChartPage)
	})

	return nil
}
