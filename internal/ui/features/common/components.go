package common

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate -path ..

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/mydat/internal/graphview"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// Element ids shared by the page shell and the fragments swapped into it.
const (
	PageContainerID = "page-container"
	ChartsListID    = "charts-list"
	FilesTableID    = "files-table"
)

// AnalysisSubkinds are the analyses that have a dialog of their own.
var AnalysisSubkinds = []string{"filter", "calculate", "aggregate", "join"}

// ModalKeys are the dialogs present on every page, keyed like graphview.ModalSelector.
// An analysis without a subkind opens the generic "analysis" dialog.
var ModalKeys = append(append([]string{"table"}, AnalysisSubkinds...), "analysis")

// ValidAnalysisSubkind reports whether an analysis with subkind has a dialog to open.
func ValidAnalysisSubkind(subkind string) bool {
	return subkind == "" || slices.Contains(AnalysisSubkinds, subkind)
}

// ModalID is the element id of the dialog for key.
func ModalID(key string) string {
	return strings.TrimPrefix(graphview.ModalSelector(key), "#")
}

// ControlID is the element id of the sidebar control of a node.
func ControlID(nodeID string) string {
	return strings.TrimPrefix(graphview.SidebarControlSelector(nodeID), "#")
}

// TableSource describes where a table came from.
func TableSource(n core.Node) string {
	if n.Subkind == "" {
		return "Created"
	}
	return KindTitle(n.Subkind)
}
