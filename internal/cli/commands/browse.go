package commands

import (
	"context"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mydat/internal/cli/output"
	"github.com/leapstack-labs/mydat/internal/graphview/headless"
)

// BrowseOptions holds options for the browse command.
type BrowseOptions struct {
	Page        string
	Tap         []string
	Delete      []string
	Interactive bool
}

type browseNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	Shape string `json:"shape"`
	Color string `json:"color"`
}

type edgeRow struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type browseAction struct {
	Gesture string `json:"gesture"`
	NodeID  string `json:"node_id"`
	// Selector and Event are the follow-up fired after the request, if any.
	Selector string `json:"selector,omitempty"`
	Event    string `json:"event,omitempty"`
	// Content is the opened modal as markdown.
	Content string `json:"content,omitempty"`
}

type browseResult struct {
	BaseURL string         `json:"base_url"`
	Page    string         `json:"page"`
	Layout  string         `json:"layout"`
	Outcome string         `json:"outcome"`
	Nodes   []browseNode   `json:"nodes"`
	Edges   []edgeRow      `json:"edges"`
	Actions []browseAction `json:"actions,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	opts := &BrowseOptions{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Render a running server's graph view in the terminal",
		Long: `Open a page of a running mydat server without a browser.

The page is loaded the same way a browser tab would load it: the shell
first, then the page fragment swapped into the page container. The graph
view reacts to every swap, so the nodes and edges printed are the ones a
user would see. Nodes can be tapped or deleted, in that order.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the graph of a fresh session
  mydat browse --base-url http://localhost:8080

  # Tap a table node and print its modal
  mydat browse --tap orders

  # Delete a node and everything downstream of it
  mydat browse --delete filter1 -o json

  # Explore the graph from a prompt
  mydat browse -i`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBrowse(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Page, "page", "/pages/relationships", "Page fragment that holds the graph")
	cmd.Flags().StringSliceVar(&opts.Tap, "tap", nil, "Node to tap (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Delete, "delete", nil, "Node to delete with a context tap (repeatable)")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Keep the page open and read gestures from a prompt")

	return cmd
}

func runBrowse(cmd *cobra.Command, opts *BrowseOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	client, err := headless.NewClient(cfg.Client.BaseURL, cmdCtx.Logger)
	if err != nil {
		return err
	}
	page := headless.NewPage(client, cmdCtx.Logger, headless.WithLayout(cfg.Client.Layout))
	defer page.Close()

	if err := page.Load(ctx, "/"); err != nil {
		return err
	}
	if err := page.Navigate(ctx, opts.Page); err != nil {
		return err
	}

	res := browseResult{
		BaseURL: cfg.Client.BaseURL,
		Page:    opts.Page,
		Layout:  cfg.Client.Layout,
	}
	for _, id := range opts.Tap {
		a, err := gesture(ctx, page, "tap", id)
		if err != nil {
			return err
		}
		res.Actions = append(res.Actions, a)
	}
	for _, id := range opts.Delete {
		a, err := gesture(ctx, page, "cxttap", id)
		if err != nil {
			return err
		}
		res.Actions = append(res.Actions, a)
	}

	if opts.Interactive {
		return runBrowseREPL(cmd, cmdCtx, page, res)
	}

	collect(page, &res)
	return renderBrowse(r, res)
}

// collect fills in what the page currently shows.
func collect(page *headless.Page, res *browseResult) {
	res.Outcome = ""
	res.Error = ""
	res.Nodes = nil
	res.Edges = nil

	if outcomes := page.Outcomes(); len(outcomes) > 0 {
		res.Outcome = outcomes[len(outcomes)-1].String()
	}
	if err := page.Err(); err != nil {
		res.Error = err.Error()
	}
	s := page.Surface()
	if s == nil {
		return
	}
	for _, n := range s.Nodes() {
		res.Nodes = append(res.Nodes, browseNode{
			ID:    n.ID,
			Label: n.Label,
			Kind:  n.Kind,
			Shape: string(n.Shape),
			Color: n.Color,
		})
	}
	for _, e := range s.Edges() {
		res.Edges = append(res.Edges, edgeRow{ID: e.ID, Source: e.Source, Target: e.Target})
	}
}

func renderBrowse(r *output.Renderer, res browseResult) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(res)
	case output.ModeMarkdown:
		return browseMarkdown(r, res)
	default:
		return browseText(r, res)
	}
}

// gesture delivers a tap or context tap to the surface currently shown and records
// what the page did in response.
func gesture(ctx context.Context, page *headless.Page, name, nodeID string) (browseAction, error) {
	s := page.Surface()
	if s == nil {
		return browseAction{}, fmt.Errorf("no graph is rendered, cannot %s %s", name, nodeID)
	}

	before := len(page.Document.Triggered())
	var err error
	if name == "cxttap" {
		err = s.ContextTap(ctx, nodeID)
	} else {
		err = s.Tap(ctx, nodeID)
	}
	if err != nil {
		return browseAction{}, err
	}

	a := browseAction{Gesture: name, NodeID: nodeID}
	triggered := page.Document.Triggered()
	if len(triggered) > before {
		last := triggered[len(triggered)-1]
		a.Selector = last.Selector
		a.Event = last.Event
	}
	if a.Event == "showModal" {
		id := strings.TrimPrefix(a.Selector, "#")
		if markup, ok := page.Document.HTML(id); ok && page.Document.IsOpen(id) {
			md, err := htmltomarkdown.ConvertString(markup)
			if err != nil {
				return browseAction{}, fmt.Errorf("failed to convert %s: %w", id, err)
			}
			a.Content = strings.TrimSpace(md)
		}
	}
	return a, nil
}

func browseTables(r *output.Renderer, res browseResult) {
	rows := make([][]string, 0, len(res.Nodes))
	for _, n := range res.Nodes {
		rows = append(rows, []string{n.ID, n.Label, n.Kind, n.Shape, n.Color})
	}
	r.Table([]string{"ID", "Label", "Kind", "Shape", "Color"}, rows)

	if len(res.Edges) == 0 {
		return
	}
	rows = make([][]string, 0, len(res.Edges))
	for _, e := range res.Edges {
		rows = append(rows, []string{e.ID, e.Source, e.Target})
	}
	r.Println("")
	r.Table([]string{"Edge", "Source", "Target"}, rows)
}

func describeAction(a browseAction) string {
	if a.Selector == "" {
		return fmt.Sprintf("%s %s", a.Gesture, a.NodeID)
	}
	return fmt.Sprintf("%s %s -> %s %s", a.Gesture, a.NodeID, a.Event, a.Selector)
}

func browseText(r *output.Renderer, res browseResult) error {
	styles := r.Styles()

	r.Header(1, "Graph")
	r.Println(styles.Muted.Render(fmt.Sprintf("%s%s (layout %s, %s)", res.BaseURL, res.Page, res.Layout, res.Outcome)))
	r.Println("")

	if len(res.Nodes) == 0 {
		r.Muted("Nothing rendered.")
	} else {
		browseTables(r, res)
	}

	for _, a := range res.Actions {
		r.Println("")
		r.Println(styles.Header2.Render(describeAction(a)))
		if a.Content != "" {
			r.Println(a.Content)
		}
	}

	if res.Error != "" {
		r.Warning(res.Error)
	}
	return nil
}

func browseMarkdown(r *output.Renderer, res browseResult) error {
	r.Println(output.FormatHeader(1, "Graph"))
	r.Println("")
	r.Println(output.FormatKeyValue("Page", res.BaseURL+res.Page))
	r.Println(output.FormatKeyValue("Layout", res.Layout))
	r.Println(output.FormatKeyValue("Outcome", res.Outcome))
	r.Println("")

	if len(res.Nodes) > 0 {
		browseTables(r, res)
		r.Println("")
	}

	if len(res.Actions) > 0 {
		r.Println(output.FormatHeader(2, "Actions"))
		r.Println("")
		for _, a := range res.Actions {
			r.Println(output.FormatHeader(3, describeAction(a)))
			r.Println("")
			if a.Content != "" {
				r.Println(a.Content)
				r.Println("")
			}
		}
	}

	if res.Error != "" {
		r.Println(output.FormatKeyValue("Error", res.Error))
	}
	return nil
}
