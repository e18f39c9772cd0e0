package headless

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/leapstack-labs/mydat/internal/graphview"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// PageContainerID is the region page navigation swaps into.
const PageContainerID = "page-container"

// Page is a browser tab without a browser: a document, an engine, the transports and a
// controller listening for swaps. Every full page load starts a new controller seeded from
// the graph the page embeds.
type Page struct {
	Document *Document
	Engine   *Engine

	client *Client
	cfg    graphview.Config
	logger *slog.Logger

	mu         sync.Mutex
	controller *graphview.Controller
	outcomes   []graphview.Outcome
	lastErr    error
}

// PageOption configures a Page.
type PageOption func(*graphview.Config)

// WithLayout overrides the layout name handed to the engine.
func WithLayout(layout string) PageOption {
	return func(c *graphview.Config) { c.Layout = layout }
}

// NewPage wires a controller to a fresh document talking to the server behind client.
func NewPage(client *Client, logger *slog.Logger, opts ...PageOption) *Page {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	doc := NewDocument()
	engine := NewEngine()

	cfg := graphview.Config{
		Document:   doc,
		Fetcher:    NewHTTPFetcher(client),
		Engine:     engine,
		Dispatcher: NewHTTPDispatcher(client, doc),
		Logger:     logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Page{
		Document:   doc,
		Engine:     engine,
		client:     client,
		cfg:        cfg,
		logger:     logger,
		controller: graphview.New(cfg),
	}
	doc.OnAfterSwap(p.afterSwap)
	return p
}

// Controller returns the controller of the current page load.
func (p *Page) Controller() *graphview.Controller {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller
}

func (p *Page) afterSwap(ctx context.Context, target string) {
	if target == RootID {
		p.boot()
	}
	outcome, err := p.Controller().HandleSwap(ctx)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, outcome)
	if err != nil {
		p.lastErr = err
	}
	p.logger.Debug("swap handled", "target", target, "outcome", outcome.String())
}

// boot replaces the controller after a full page load, seeding it from the embedded graph.
func (p *Page) boot() {
	cfg := p.cfg
	if raw, ok := p.Document.Text(graphview.GraphDataID); ok {
		seed, err := core.DecodeSnapshot([]byte(raw))
		if err != nil {
			p.logger.Warn("ignoring embedded graph", "error", err)
		} else {
			cfg.Seed = &seed
		}
	}

	p.mu.Lock()
	old := p.controller
	p.controller = graphview.New(cfg)
	p.mu.Unlock()
	old.Close()
}

// Load fetches the full page at path into the document body.
func (p *Page) Load(ctx context.Context, path string) error {
	return p.load(ctx, path, "#"+RootID, nil)
}

// Navigate fetches a page fragment into the page container, as a sidebar link would.
func (p *Page) Navigate(ctx context.Context, path string) error {
	h := http.Header{}
	h.Set("HX-Request", "true")
	h.Set("HX-Target", PageContainerID)
	return p.load(ctx, path, "#"+PageContainerID, h)
}

func (p *Page) load(ctx context.Context, path, target string, h http.Header) error {
	status, body, err := p.client.Get(ctx, path, h)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("load %s: unexpected status %d", path, status)
	}
	return p.Document.Swap(ctx, target, graphview.SwapInner, string(body))
}

// Surface returns the surface currently rendered, if any. A surface whose container
// left the document is no longer visible and is not returned.
func (p *Page) Surface() *Surface {
	s := p.Engine.Current()
	if s == nil || s.Destroyed() || !s.Container().Attached() {
		return nil
	}
	return s
}

// Outcomes returns the outcome of every refresh run so far.
func (p *Page) Outcomes() []graphview.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]graphview.Outcome(nil), p.outcomes...)
}

// Err returns the last rendering error, if any.
func (p *Page) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Close tears down the rendered surface.
func (p *Page) Close() {
	p.Controller().Close()
}
