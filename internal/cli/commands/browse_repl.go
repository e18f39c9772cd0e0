package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mydat/internal/cli/output"
	"github.com/leapstack-labs/mydat/internal/graphview/headless"
)

const browsePrompt = "mydat> "

// browseSession is the state of an interactive browse prompt.
type browseSession struct {
	page   *headless.Page
	r      *output.Renderer
	res    browseResult
	out    io.Writer
	errOut io.Writer
}

func runBrowseREPL(cmd *cobra.Command, cmdCtx *CommandContext, page *headless.Page, res browseResult) error {
	ctx := cmd.Context()
	s := &browseSession{
		page:   page,
		r:      cmdCtx.Renderer,
		res:    res,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}

	// History lives next to the local store
	historyDir := filepath.Dir(cmdCtx.Cfg.Store.Path)
	_ = os.MkdirAll(historyDir, 0750)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          browsePrompt,
		HistoryFile:     filepath.Join(historyDir, "browse_history"),
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          s.out,
		Stderr:          s.errOut,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize prompt: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(s.out, "Browsing %s%s\n", res.BaseURL, res.Page)
	_, _ = fmt.Fprintln(s.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(s.out)
	s.showNodes()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if s.handle(ctx, line) {
			break
		}
	}
	return nil
}

func (s *browseSession) completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("tap", readline.PcItemDynamic(s.nodeIDs)),
		readline.PcItem("delete", readline.PcItemDynamic(s.nodeIDs)),
		readline.PcItem("nodes"),
		readline.PcItem("open"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

// nodeIDs lists the ids currently drawn, for completion.
func (s *browseSession) nodeIDs(string) []string {
	surface := s.page.Surface()
	if surface == nil {
		return nil
	}
	var ids []string
	for _, n := range surface.Nodes() {
		ids = append(ids, n.ID)
	}
	return ids
}

// handle runs one prompt line and reports whether the session should end.
func (s *browseSession) handle(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	switch command := strings.ToLower(parts[0]); command {
	case ".quit", ".exit":
		return true

	case ".help":
		printBrowseHelp(s.out)

	case "nodes":
		s.showNodes()

	case "tap", "delete":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(s.errOut, "Usage: %s <node-id>\n", command)
			return false
		}
		g := "tap"
		if command == "delete" {
			g = "cxttap"
		}
		a, err := gesture(ctx, s.page, g, parts[1])
		if err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
			return false
		}
		_, _ = fmt.Fprintln(s.out, describeAction(a))
		if a.Content != "" {
			_, _ = fmt.Fprintln(s.out, a.Content)
		}
		if command == "delete" {
			s.showNodes()
		}

	case "open":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(s.errOut, "Usage: open <path>")
			return false
		}
		if err := s.page.Navigate(ctx, parts[1]); err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
			return false
		}
		s.res.Page = parts[1]
		s.showNodes()

	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func (s *browseSession) showNodes() {
	collect(s.page, &s.res)
	if len(s.res.Nodes) == 0 {
		s.r.Muted(fmt.Sprintf("Nothing rendered on %s (%s).", s.res.Page, s.res.Outcome))
		return
	}
	browseTables(s.r, s.res)
	_, _ = fmt.Fprintln(s.out)
}

func printBrowseHelp(w io.Writer) {
	help := `
Commands:
  nodes           List the nodes currently drawn
  tap <id>        Tap a node, as a left click would
  delete <id>     Context tap a node, deleting it and everything downstream
  open <path>     Load another page fragment into the page container
  .help           Show this help message
  .quit / .exit   Leave the prompt

Tips:
  - Tab completion works for node ids
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}
