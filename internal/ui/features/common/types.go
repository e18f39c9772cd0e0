// Package common provides shared types, components and middleware for UI features.
package common

// SidebarItem is one node listed in the sidebar.
type SidebarItem struct {
	ID      string
	Name    string
	Kind    string
	Subkind string
	// Control marks nodes opened through their sidebar control rather than a modal.
	Control bool
	// Href and Target are the htmx request the item issues when clicked.
	Href   string
	Target string
}

// SidebarSection groups the sidebar items of one node kind.
type SidebarSection struct {
	Title string
	Kind  string
	Items []SidebarItem
}

// SidebarData holds everything the sidebar list renders.
type SidebarData struct {
	Sections []SidebarSection
	Total    int
}
