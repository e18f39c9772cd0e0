package graphview

import (
	"net/url"

	"github.com/leapstack-labs/mydat/pkg/core"
)

// Fixed element ids and backend paths.
const (
	MountID      = "graph-container"
	SnapshotPath = "/graph/"
	ViewPath     = "/graph/view"
	DeletePath   = "/graph/delete"

	// GraphDataID is the JSON script a full page embeds to seed the fallback.
	GraphDataID = "graph-data"

	// ChartsListTarget is the sidebar region replaced after a deletion.
	ChartsListTarget = "#charts-list"
)

// SwapMode is how the partial-update framework applies a response.
type SwapMode string

// Swap modes used by the controller.
const (
	SwapInner SwapMode = "innerHTML"
	SwapOuter SwapMode = "outerHTML"
	SwapNone  SwapMode = "none"
)

// Request is a declarative request descriptor for the partial-update framework.
type Request struct {
	Method  string
	Path    string
	Swap    SwapMode
	Target  string // CSS selector; empty when Swap is SwapNone
	Headers map[string]string
	Values  url.Values
}

// URL returns the path with values encoded as a query string.
func (r Request) URL() string {
	if len(r.Values) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Values.Encode()
}

// FollowUp is a DOM event fired after a request succeeds.
type FollowUp struct {
	Selector string
	Event    string
}

// Action is what one gesture on a node does.
type Action struct {
	Request  Request
	FollowUp *FollowUp
}

const formContentType = "application/x-www-form-urlencoded"

// ModalSelector returns the modal that shows details for a modal key.
func ModalSelector(key string) string {
	return "#modal_" + key
}

// SidebarControlSelector returns the sidebar control bound to a node.
func SidebarControlSelector(nodeID string) string {
	return "#sidebar_chart_" + nodeID
}

func nodeValues(n core.Node) url.Values {
	v := url.Values{}
	v.Set("node_id", n.ID)
	if kind := n.KindLabel(); kind != "" {
		v.Set("node_kind", kind)
	}
	if n.Subkind != "" {
		v.Set("node_subkind", n.Subkind)
	}
	return v
}

// PrimaryAction routes a tap on a node. Analyses open the modal keyed by their subkind,
// tables open the table modal, everything else fires a target-less request and clicks the
// node's sidebar control.
func PrimaryAction(n core.Node) Action {
	req := Request{
		Method:  "GET",
		Path:    ViewPath,
		Headers: map[string]string{"Content-Type": formContentType},
		Values:  nodeValues(n),
	}

	var modalKey string
	switch n.Kind {
	case core.KindAnalysis:
		modalKey = n.Subkind
		if modalKey == "" {
			modalKey = string(core.KindAnalysis)
		}
	case core.KindTable:
		modalKey = string(core.KindTable)
	case core.KindChart, core.KindData, core.KindUnknown:
	}

	if modalKey == "" {
		req.Swap = SwapNone
		return Action{
			Request:  req,
			FollowUp: &FollowUp{Selector: SidebarControlSelector(n.ID), Event: "click"},
		}
	}

	req.Swap = SwapInner
	req.Target = ModalSelector(modalKey)
	return Action{
		Request:  req,
		FollowUp: &FollowUp{Selector: req.Target, Event: "showModal"},
	}
}

// SecondaryAction routes a context tap: delete the node and refresh the sidebar list.
func SecondaryAction(n core.Node) Action {
	v := url.Values{}
	v.Set("node_id", n.ID)
	return Action{
		Request: Request{
			Method:  "POST",
			Path:    DeletePath,
			Swap:    SwapOuter,
			Target:  ChartsListTarget,
			Headers: map[string]string{"Content-Type": formContentType},
			Values:  v,
		},
	}
}
