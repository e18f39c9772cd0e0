package graphview

import (
	"sort"

	"github.com/leapstack-labs/mydat/pkg/core"
)

// DefaultLayout is the layout algorithm every refresh uses.
const DefaultLayout = "grid"

// Shape is a node shape understood by the rendering engine.
type Shape string

// Node shapes.
const (
	ShapeEllipse   Shape = "ellipse"
	ShapeSquare    Shape = "square"
	ShapeDiamond   Shape = "diamond"
	ShapeRoundRect Shape = "round-rectangle"
)

// NodeStyle is the resolved look of one node.
type NodeStyle struct {
	Shape Shape
	Color string
}

// Palette.
const (
	colorBackground = "#302D41"
	colorNode       = "#6E5D7E"
	colorText       = "#D9E0EE"
	colorEdge       = "#F2D5CF"
	colorTable      = "#89B4FA"
	colorAnalysis   = "#A6E3A1"
	colorChart      = "#F9E2AF"
)

// analysisColors overrides the analysis color per subkind.
var analysisColors = map[string]string{
	"filter":    "#94E2D5",
	"calculate": "#A6E3A1",
	"aggregate": "#74C7EC",
	"join":      "#CBA6F7",
}

// StyleFor resolves the style of a node. Unknown kinds get the default ellipse.
func StyleFor(n core.Node) NodeStyle {
	switch n.Kind {
	case core.KindTable:
		return NodeStyle{Shape: ShapeSquare, Color: colorTable}
	case core.KindAnalysis:
		if c, ok := analysisColors[n.Subkind]; ok {
			return NodeStyle{Shape: ShapeEllipse, Color: c}
		}
		return NodeStyle{Shape: ShapeEllipse, Color: colorAnalysis}
	case core.KindChart:
		return NodeStyle{Shape: ShapeDiamond, Color: colorChart}
	case core.KindData:
		return NodeStyle{Shape: ShapeRoundRect, Color: colorTable}
	case core.KindUnknown:
		return NodeStyle{Shape: ShapeEllipse, Color: colorNode}
	default:
		return NodeStyle{Shape: ShapeEllipse, Color: colorNode}
	}
}

// StyleRule is one selector/properties pair of a cytoscape style sheet.
type StyleRule struct {
	Selector string         `json:"selector"`
	Style    map[string]any `json:"style"`
}

// Stylesheet returns the style sheet handed to the rendering engine.
func Stylesheet() []StyleRule {
	rules := []StyleRule{
		{Selector: "core", Style: map[string]any{"background-color": colorBackground}},
		{Selector: "node", Style: map[string]any{
			"background-color": colorNode,
			"border-color":     colorText,
			"color":            colorText,
			"label":            "data(name)",
			"shape":            string(ShapeEllipse),
		}},
	}

	for _, k := range core.Kinds {
		st := StyleFor(core.Node{Kind: k})
		rules = append(rules, StyleRule{
			Selector: `node[kind="` + string(k) + `"]`,
			Style:    map[string]any{"shape": string(st.Shape), "background-color": st.Color},
		})
	}

	subkinds := make([]string, 0, len(analysisColors))
	for sub := range analysisColors {
		subkinds = append(subkinds, sub)
	}
	sort.Strings(subkinds)
	for _, sub := range subkinds {
		rules = append(rules, StyleRule{
			Selector: `node[kind="analysis"][subkind="` + sub + `"]`,
			Style:    map[string]any{"background-color": analysisColors[sub]},
		})
	}

	rules = append(rules, StyleRule{Selector: "edge", Style: map[string]any{
		"line-color":                colorEdge,
		"width":                     2,
		"curve-style":               "bezier",
		"target-arrow-shape":        "triangle",
		"target-arrow-color":        colorEdge,
		"mid-target-arrow-shape":    "triangle",
		"mid-target-arrow-color":    colorEdge,
		"source-arrow-shape":        "none",
		"target-distance-from-node": 10,
	}})
	return rules
}
