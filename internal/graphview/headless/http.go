package headless

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/leapstack-labs/mydat/internal/graphview"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// Client talks to a mydat server. It keeps cookies so the server sees one user.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		base:   u,
		http:   &http.Client{Jar: jar, Timeout: 30 * time.Second},
		logger: logger,
	}, nil
}

// URL resolves a server path.
func (c *Client) URL(path string) string {
	return c.base.String() + path
}

// Get fetches a path and returns status and body.
func (c *Client) Get(ctx context.Context, path string, header http.Header) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return 0, nil, err
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("http request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"bytes", len(body))
	return resp.StatusCode, body, nil
}

// HTTPFetcher fetches snapshots from GET /graph/.
type HTTPFetcher struct {
	client *Client
}

// NewHTTPFetcher creates a fetcher.
func NewHTTPFetcher(c *Client) *HTTPFetcher {
	return &HTTPFetcher{client: c}
}

// FetchSnapshot implements graphview.Fetcher.
func (f *HTTPFetcher) FetchSnapshot(ctx context.Context) (core.Snapshot, error) {
	h := http.Header{}
	h.Set("Accept", "application/json")
	status, body, err := f.client.Get(ctx, graphview.SnapshotPath, h)
	if err != nil && status == 0 {
		return core.Snapshot{}, &graphview.FetchError{Class: graphview.TransportFailure, Err: err}
	}
	if err != nil {
		return core.Snapshot{}, &graphview.FetchError{Class: graphview.ResponseFailure, Status: status, Err: err}
	}
	if status < 200 || status > 299 {
		return core.Snapshot{}, &graphview.FetchError{
			Class:  graphview.ResponseFailure,
			Status: status,
			Err:    fmt.Errorf("unexpected status %s", http.StatusText(status)),
		}
	}

	s, err := core.DecodeSnapshot(body)
	if err != nil {
		return core.Snapshot{}, &graphview.FetchError{Class: graphview.ResponseFailure, Status: status, Err: err}
	}
	return s, nil
}

// HTTPDispatcher performs partial-update requests and applies them to a Document.
type HTTPDispatcher struct {
	client *Client
	doc    *Document
}

// NewHTTPDispatcher creates a dispatcher that swaps responses into doc.
func NewHTTPDispatcher(c *Client, doc *Document) *HTTPDispatcher {
	return &HTTPDispatcher{client: c, doc: doc}
}

// Ajax implements graphview.Dispatcher.
func (d *HTTPDispatcher) Ajax(ctx context.Context, r graphview.Request) error {
	var (
		req *http.Request
		err error
	)
	switch r.Method {
	case http.MethodGet, "":
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, d.client.URL(r.URL()), nil)
	default:
		req, err = http.NewRequestWithContext(ctx, r.Method, d.client.URL(r.Path), strings.NewReader(r.Values.Encode()))
	}
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("HX-Request", "true")
	if r.Target != "" {
		req.Header.Set("HX-Target", strings.TrimPrefix(r.Target, "#"))
	}

	status, body, err := d.client.do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, r.Path, err)
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, r.Path, status)
	}
	if status == http.StatusNoContent || r.Swap == graphview.SwapNone || r.Target == "" {
		return nil
	}
	return d.doc.Swap(ctx, r.Target, r.Swap, string(body))
}

// Trigger implements graphview.Dispatcher.
func (d *HTTPDispatcher) Trigger(ctx context.Context, selector, event string) error {
	return d.doc.Trigger(ctx, selector, event)
}
