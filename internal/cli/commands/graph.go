package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mydat/internal/cli/output"
	"github.com/leapstack-labs/mydat/internal/dag"
	"github.com/leapstack-labs/mydat/internal/seed"
	"github.com/leapstack-labs/mydat/internal/state"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// GraphOptions holds options for the graph command.
type GraphOptions struct {
	Export bool
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	opts := &GraphOptions{}

	cmd := &cobra.Command{
		Use:   "graph [user-id]",
		Short: "Inspect stored user graphs",
		Long: `List every user with a stored graph, or show the graph of one user.

For each node the number of nodes downstream of it is shown: that many
nodes disappear together with it when it is deleted in the UI.`,
		Example: `  # List users
  mydat graph

  # Show one user's graph as JSON
  mydat graph 0b5e9c9e-0c5a-4a53-9d7e-4e8f0f1c2d3a -o json

  # Turn a user's graph into a seed file
  mydat graph 0b5e9c9e-0c5a-4a53-9d7e-4e8f0f1c2d3a --export > seed.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Export, "export", false, "Print the graph as a seed file")

	return cmd
}

type userRow struct {
	UserID    string    `json:"user_id"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	UpdatedAt time.Time `json:"updated_at"`
}

type nodeRow struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Subkind    string   `json:"subkind,omitempty"`
	Parents    []string `json:"parents"`
	Downstream int      `json:"downstream"`
}

type graphView struct {
	UserID string    `json:"user_id"`
	Nodes  []nodeRow `json:"nodes"`
	Edges  []edgeRow `json:"edges"`
}

func runGraph(cmd *cobra.Command, args []string, opts *GraphOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	st, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	if len(args) == 0 {
		if opts.Export {
			return fmt.Errorf("--export needs a user id")
		}
		users, err := st.ListUsers(ctx)
		if err != nil {
			return err
		}
		return renderUsers(r, users)
	}

	userID := args[0]
	snap, err := st.LoadGraph(ctx, userID)
	if errors.Is(err, state.ErrNotFound) {
		return fmt.Errorf("no graph stored for user %s", userID)
	}
	if err != nil {
		return err
	}

	if opts.Export {
		data, err := seed.Encode(snap)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	view, err := buildGraphView(userID, snap)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(view)
	case output.ModeMarkdown:
		return graphMarkdown(r, view)
	default:
		return graphText(r, view)
	}
}

func buildGraphView(userID string, snap core.Snapshot) (graphView, error) {
	g, err := dag.FromSnapshot(snap)
	if err != nil {
		return graphView{}, err
	}
	view := graphView{UserID: userID, Edges: make([]edgeRow, 0, len(snap.Edges))}
	for _, n := range snap.Nodes {
		parents := g.GetParents(n.ID)
		if parents == nil {
			parents = []string{}
		}
		view.Nodes = append(view.Nodes, nodeRow{
			ID:         n.ID,
			Name:       n.Name,
			Kind:       n.KindLabel(),
			Subkind:    n.Subkind,
			Parents:    parents,
			Downstream: len(g.Descendants(n.ID)) - 1,
		})
	}
	for _, e := range snap.Edges {
		view.Edges = append(view.Edges, edgeRow{ID: e.EdgeID(), Source: e.Source, Target: e.Target})
	}
	return view, nil
}

func renderUsers(r *output.Renderer, users []state.UserSummary) error {
	if r.EffectiveMode() == output.ModeJSON {
		rows := make([]userRow, 0, len(users))
		for _, u := range users {
			rows = append(rows, userRow(u))
		}
		return r.JSON(rows)
	}

	r.Header(1, "Users")
	if len(users) == 0 {
		r.Muted("No graphs stored yet.")
		return nil
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			u.UserID,
			strconv.Itoa(u.Nodes),
			strconv.Itoa(u.Edges),
			u.UpdatedAt.Format(time.RFC3339),
		})
	}
	r.Table([]string{"User", "Nodes", "Edges", "Updated"}, rows)
	return nil
}

func nodeRows(view graphView) [][]string {
	rows := make([][]string, 0, len(view.Nodes))
	for _, n := range view.Nodes {
		rows = append(rows, []string{
			n.ID,
			n.Name,
			n.Kind,
			n.Subkind,
			strings.Join(n.Parents, ", "),
			strconv.Itoa(n.Downstream),
		})
	}
	return rows
}

var nodeHeaders = []string{"ID", "Name", "Kind", "Subkind", "Inputs", "Downstream"}

func graphText(r *output.Renderer, view graphView) error {
	styles := r.Styles()

	r.Header(1, "Graph of "+view.UserID)
	if len(view.Nodes) == 0 {
		r.Muted("The graph is empty.")
		return nil
	}
	r.Table(nodeHeaders, nodeRows(view))
	r.Println("")
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d nodes, %d edges", len(view.Nodes), len(view.Edges))))
	return nil
}

func graphMarkdown(r *output.Renderer, view graphView) error {
	r.Println(output.FormatHeader(1, "Graph of "+view.UserID))
	r.Println("")
	if len(view.Nodes) > 0 {
		r.Table(nodeHeaders, nodeRows(view))
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Nodes", strconv.Itoa(len(view.Nodes))))
	r.Println(output.FormatKeyValue("Total Edges", strconv.Itoa(len(view.Edges))))
	return nil
}
