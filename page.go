package enhance

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/binding"
	"github.com/vango-dev/enhance/pkg/component"
	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/format"
	"github.com/vango-dev/enhance/pkg/hmr"
	"github.com/vango-dev/enhance/pkg/loop"
	"github.com/vango-dev/enhance/pkg/render"
	"github.com/vango-dev/enhance/pkg/state"
	"github.com/vango-dev/enhance/pkg/transport"
)

// Config configures a Page.
type Config struct {
	// Document is the server-rendered page. Required.
	Document *dom.Document

	// DevMode enables the error overlay and hot updates.
	DevMode bool

	// DevURL is the dev server origin, e.g. "http://localhost:3000".
	// Hot updates are fetched from it when DevMode is set.
	DevURL string

	// HMRRoute is the update endpoint prefix (default: "/__hmr").
	HMRRoute string

	// SocketURL enables the transport, e.g. "ws://localhost:3000/__enhance/ws".
	SocketURL string

	// FetchTimeout bounds one update fetch (default: 10s).
	FetchTimeout time.Duration

	// Debounce is the update coalescing window (default: 100ms).
	Debounce time.Duration

	// Route returns the current page route (default: "/").
	Route func() string

	// Executor runs inline scripts after an update. Optional.
	Executor hmr.Executor

	// Formatters are registered by name before the first mount.
	Formatters map[string]format.Func

	// Components are defined before the first mount.
	Components []component.Definition

	// Metrics records update cycles. Optional.
	Metrics *hmr.Metrics

	// HTTPClient is used for update fetches.
	HTTPClient *http.Client

	// QueueSize bounds the loop task queue.
	QueueSize int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Page is the reactive context of one document.
type Page struct {
	loop       *loop.Loop
	doc        *dom.Document
	store      *state.Store
	renderer   *render.Renderer
	formats    *format.Registry
	binder     *binding.Binder
	components *component.Registry
	overlay    *hmr.Overlay
	pipeline   *hmr.Pipeline
	router     *transport.Router
	client     *transport.Client
	logger     *slog.Logger
}

// NewPage wires a page around cfg.Document. Nothing is bound until Mount.
func NewPage(cfg Config) (*Page, error) {
	if cfg.Document == nil {
		return nil, errors.New("E120").WithDetail("page has no document")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := &Page{
		loop:   loop.New(loop.Config{QueueSize: cfg.QueueSize, Logger: cfg.Logger}),
		doc:    cfg.Document,
		logger: cfg.Logger.With("component", "page"),
	}
	p.store = state.New(state.Config{Logger: cfg.Logger})
	p.renderer = render.New(render.Config{
		Document:  p.doc,
		Scheduler: p.loop,
		Logger:    cfg.Logger,
	})

	p.formats = format.NewRegistry()
	for name, fn := range cfg.Formatters {
		p.formats.Register(name, fn)
	}
	p.binder = binding.New(binding.Config{
		Document: p.doc,
		Store:    p.store,
		Renderer: p.renderer,
		Formats:  p.formats,
		Logger:   cfg.Logger,
	})

	p.components = component.New(component.Config{
		Document: p.doc,
		Renderer: p.renderer,
		Logger:   cfg.Logger,
	})
	for _, def := range cfg.Components {
		p.components.Define(def)
	}

	p.overlay = hmr.NewOverlay(hmr.OverlayConfig{
		DevMode:  cfg.DevMode,
		Document: p.doc,
		Renderer: p.renderer,
	})

	if cfg.DevMode && cfg.DevURL != "" {
		p.pipeline = hmr.New(hmr.Config{
			Document: p.doc,
			Loop:     p.loop,
			Fetcher: hmr.NewFetcher(hmr.FetcherConfig{
				BaseURL: cfg.DevURL,
				Route:   cfg.HMRRoute,
				Timeout: cfg.FetchTimeout,
				Client:  cfg.HTTPClient,
			}),
			Binder:     p.binder,
			Components: p.components,
			Executor:   cfg.Executor,
			Overlay:    p.overlay,
			Metrics:    cfg.Metrics,
			Debounce:   cfg.Debounce,
			Route:      cfg.Route,
			Logger:     cfg.Logger,
		})
	}

	routerCfg := transport.RouterConfig{Store: p.store, Logger: cfg.Logger}
	if p.pipeline != nil {
		routerCfg.HMR = p.pipeline
	}
	p.router = transport.NewRouter(routerCfg)

	if cfg.SocketURL != "" {
		p.client = transport.NewClient(transport.ClientConfig{
			URL:    cfg.SocketURL,
			Loop:   p.loop,
			Router: p.router,
			Logger: cfg.Logger,
		})
		p.store.SetSyncer(p.client)
	}
	return p, nil
}

// =============================================================================
// Lifecycle
// =============================================================================

// Mount binds every state-binding element and initializes every component
// under the document body. Call it again after replacing page content.
// It must run on the page loop.
func (p *Page) Mount() (bindings, components int) {
	root := p.doc.Body()
	if root == nil {
		root = p.doc.Root()
	}
	bindings = p.binder.Mount(root)
	components = p.components.Init(root)
	p.logger.Debug("mounted", "bindings", bindings, "components", components)
	return bindings, components
}

// Do runs fn on the page loop. It reports false when the page is closed.
func (p *Page) Do(fn func()) bool {
	return p.loop.Post(fn)
}

// Run runs the page loop, and the socket client when configured, until
// ctx is cancelled or Close is called.
func (p *Page) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.loop.Run(ctx)
	})
	if p.client != nil {
		g.Go(func() error {
			return p.client.Run(ctx)
		})
		g.Go(func() error {
			// Close stops the loop with a nil error; take the client down too.
			select {
			case <-p.loop.Done():
				return context.Canceled
			case <-ctx.Done():
				return nil
			}
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RunPending runs queued tasks without blocking. See loop.Loop.RunPending.
func (p *Page) RunPending() int {
	return p.loop.RunPending()
}

// Close stops the page. Pending updates are abandoned.
func (p *Page) Close() {
	p.Do(func() {
		if p.pipeline != nil {
			p.pipeline.Close()
		}
	})
	p.loop.Close()
}

// =============================================================================
// State
// =============================================================================

// UseState returns a handle to key, creating it with initial on first use.
func (p *Page) UseState(key string, initial any) *state.State {
	return p.store.UseState(key, initial)
}

// UseReducer returns a reducer over key.
func (p *Page) UseReducer(key string, reducer state.ReducerFunc, initial any) *state.Reducer {
	return p.store.UseReducer(key, reducer, initial)
}

// UseEffect runs fn now and whenever one of deps changes.
func (p *Page) UseEffect(fn func() state.Cleanup, deps ...string) (dispose func()) {
	return p.store.UseEffect(fn, deps...)
}

// Subscribe registers fn for changes of key.
func (p *Page) Subscribe(key string, fn func(state.Change)) (unsubscribe func()) {
	return p.store.Subscribe(key, fn)
}

// Handle applies an inbound transport message on the loop.
func (p *Page) Handle(msg transport.Message) error {
	return p.router.Handle(msg)
}

// =============================================================================
// Accessors
// =============================================================================

// Document returns the page document.
func (p *Page) Document() *dom.Document { return p.doc }

// Loop returns the page loop.
func (p *Page) Loop() *loop.Loop { return p.loop }

// Store returns the state store.
func (p *Page) Store() *state.Store { return p.store }

// Renderer returns the renderer.
func (p *Page) Renderer() *render.Renderer { return p.renderer }

// Formats returns the formatter registry.
func (p *Page) Formats() *format.Registry { return p.formats }

// Binder returns the binding layer.
func (p *Page) Binder() *binding.Binder { return p.binder }

// Components returns the component registry.
func (p *Page) Components() *component.Registry { return p.components }

// Overlay returns the error overlay.
func (p *Page) Overlay() *hmr.Overlay { return p.overlay }

// HMR returns the update pipeline, or nil outside dev mode.
func (p *Page) HMR() *hmr.Pipeline { return p.pipeline }

// Transport returns the socket client, or nil when no socket is configured.
func (p *Page) Transport() *transport.Client { return p.client }
