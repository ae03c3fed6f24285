package hmr

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/dom"
)

// Fetch defaults.
const (
	DefaultRoute   = "/__hmr"
	DefaultTimeout = 10 * time.Second
	RequestHeader  = "X-HMR-Request"
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	// BaseURL is the dev server origin, e.g. "http://localhost:3000".
	BaseURL string

	// Route is the HMR endpoint prefix. Defaults to DefaultRoute.
	Route string

	// Timeout bounds one fetch. Defaults to DefaultTimeout; negative disables it.
	Timeout time.Duration

	// Client defaults to a new http.Client.
	Client *http.Client
}

// Fetcher requests replacement documents from the dev server.
type Fetcher struct {
	base    string
	route   string
	timeout time.Duration
	client  *http.Client
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Route == "" {
		cfg.Route = DefaultRoute
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &Fetcher{
		base:    strings.TrimSuffix(cfg.BaseURL, "/"),
		route:   "/" + strings.Trim(cfg.Route, "/"),
		timeout: cfg.Timeout,
		client:  cfg.Client,
	}
}

// URL returns the endpoint URL for a page route.
func (f *Fetcher) URL(route string) string {
	return f.base + f.route + "/" + strings.TrimPrefix(route, "/")
}

// Fetch requests and parses the replacement document for route.
func (f *Fetcher) Fetch(ctx context.Context, route string) (*dom.Document, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(route), nil)
	if err != nil {
		return nil, errors.New("E040").WithDetail(route).Wrap(err)
	}
	req.Header.Set(RequestHeader, "true")
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.New("E040").WithDetail(route).Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("E041").WithDetail(fmt.Sprintf("%s: %s", route, resp.Status))
	}

	doc, err := dom.Parse(resp.Body)
	if err != nil {
		return nil, errors.New("E040").WithDetail(route).Wrap(err)
	}
	return doc, nil
}
