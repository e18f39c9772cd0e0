//go:build dev

package resources

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// getStaticDir derives the absolute path to the static directory from this source file,
// regardless of where the binary is run from.
func getStaticDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return StaticDirectoryPath
	}
	return filepath.Join(filepath.Dir(filename), "static")
}

// Handler serves static files straight from the source tree so edits show up on reload.
func Handler(logger *slog.Logger) http.Handler {
	staticDir := getStaticDir()
	if logger != nil {
		logger.Info("static assets served from filesystem", "path", staticDir)
	}

	fileServer := http.FileServer(http.FS(os.DirFS(staticDir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		http.StripPrefix("/static/", fileServer).ServeHTTP(w, r)
	})
}
