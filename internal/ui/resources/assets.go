// Package resources serves the static assets of the UI: the graph view script and styles.
package resources

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

// Asset paths referenced by the page shell.
const (
	GraphScript = "js/graph.js"
	Stylesheet  = "css/app.css"
)

// StaticPath returns the URL path for a static asset.
func StaticPath(path string) string {
	return "/static/" + path
}
