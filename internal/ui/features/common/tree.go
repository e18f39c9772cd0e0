package common

import (
	"net/url"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/mydat/internal/dag"
	"github.com/leapstack-labs/mydat/internal/graphview"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// sectionOrder lists sidebar sections top to bottom. Unknown kinds go last.
var sectionOrder = []string{
	string(core.KindTable),
	string(core.KindAnalysis),
	string(core.KindChart),
	string(core.KindData),
}

var sectionTitles = map[string]string{
	string(core.KindTable):    "Tables",
	string(core.KindAnalysis): "Analyses",
	string(core.KindChart):    "Charts",
	string(core.KindData):     "Data",
}

// BuildSidebar groups the nodes of g into sidebar sections by kind.
func BuildSidebar(g *dag.Graph) SidebarData {
	return BuildSidebarFromSnapshot(g.Snapshot())
}

// BuildSidebarFromSnapshot groups snapshot nodes into sidebar sections by kind.
func BuildSidebarFromSnapshot(s core.Snapshot) SidebarData {
	sections := make(map[string]*SidebarSection)

	for _, n := range s.Nodes {
		kind := n.KindLabel()
		sec, ok := sections[kind]
		if !ok {
			title, known := sectionTitles[kind]
			if !known {
				title = KindTitle(kind)
			}
			sec = &SidebarSection{Title: title, Kind: kind}
			sections[kind] = sec
		}
		item := SidebarItem{
			ID:      n.ID,
			Name:    DisplayName(n),
			Kind:    kind,
			Subkind: n.Subkind,
			Control: n.Kind != core.KindTable && n.Kind != core.KindAnalysis,
		}
		if item.Control {
			item.Href = ChartPagePath(n.ID)
			item.Target = "#" + PageContainerID
		} else {
			req := graphview.PrimaryAction(n).Request
			item.Href = req.URL()
			item.Target = req.Target
		}
		sec.Items = append(sec.Items, item)
	}

	data := SidebarData{Total: len(s.Nodes)}
	for _, kind := range sectionOrder {
		if sec, ok := sections[kind]; ok {
			data.Sections = append(data.Sections, *sec)
			delete(sections, kind)
		}
	}
	rest := make([]string, 0, len(sections))
	for kind := range sections {
		rest = append(rest, kind)
	}
	sort.Strings(rest)
	for _, kind := range rest {
		data.Sections = append(data.Sections, *sections[kind])
	}

	for i := range data.Sections {
		items := data.Sections[i].Items
		sort.SliceStable(items, func(a, b int) bool {
			return items[a].Name < items[b].Name
		})
	}
	return data
}

// ChartPagePath is the page a sidebar control loads into the page container.
func ChartPagePath(nodeID string) string {
	return "/pages/charts/" + url.PathEscape(nodeID)
}

// DisplayName returns the node name, or its id when unnamed.
func DisplayName(n core.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// KindTitle turns a kind or subkind into a heading, e.g. "analysis" -> "Analysis".
func KindTitle(kind string) string {
	if kind == "" {
		return "Unknown"
	}
	return cases.Title(language.English).String(kind)
}
