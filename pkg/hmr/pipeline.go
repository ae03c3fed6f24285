package hmr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/loop"
)

// EventUpdated is dispatched on the window after every update cycle.
const EventUpdated = "hmr:updated"

// DefaultDebounce is the notification coalescing window.
const DefaultDebounce = 100 * time.Millisecond

// UpdatedDetail is the detail of an EventUpdated event.
type UpdatedDetail struct {
	Success bool
	Path    string
	Error   string
}

// Mounter re-binds state bindings under a replaced root.
type Mounter interface {
	Mount(root *html.Node) int
}

// Initializer re-initializes components under a replaced root.
type Initializer interface {
	Init(root *html.Node) int
}

// Config configures a Pipeline.
type Config struct {
	// Document is the live page.
	Document *dom.Document

	// Loop is required by Notify; Update and Apply work without it.
	Loop *loop.Loop

	// Fetcher requests replacement documents.
	Fetcher *Fetcher

	Binder     Mounter
	Components Initializer
	Executor   Executor

	// Overlay receives cycle errors. Optional.
	Overlay *Overlay

	// Metrics records cycles. Optional.
	Metrics *Metrics

	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// Route returns the route of the current page. Defaults to "/".
	Route func() string

	// Now defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Result describes one update cycle.
type Result struct {
	Path        string
	Success     bool
	Err         error
	ReloadHint  bool
	Change      Change
	Scripts     ScriptReport
	Stylesheets int
	Restore     RestoreReport
}

// Pipeline patches the live page with fresh server markup while keeping
// form values, focus and scroll. All methods run on the page loop.
type Pipeline struct {
	doc        *dom.Document
	loop       *loop.Loop
	fetcher    *Fetcher
	binder     Mounter
	components Initializer
	exec       Executor
	overlay    *Overlay
	metrics    *Metrics
	tracer     trace.Tracer
	debounce   time.Duration
	route      func() string
	now        func() time.Time
	logger     *slog.Logger

	phase       Phase
	transitions []Phase
	timer       *loop.Timer
	pending     string
	inFlight    bool
	followUp    bool
	followPath  string
	cancel      context.CancelFunc
	listeners   []listener
	nextID      int
}

type listener struct {
	id int
	fn func(Result)
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("enhance/hmr")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Route == nil {
		cfg.Route = func() string { return "/" }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		doc:        cfg.Document,
		loop:       cfg.Loop,
		fetcher:    cfg.Fetcher,
		binder:     cfg.Binder,
		components: cfg.Components,
		exec:       cfg.Executor,
		overlay:    cfg.Overlay,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		debounce:   cfg.Debounce,
		route:      cfg.Route,
		now:        cfg.Now,
		logger:     cfg.Logger.With("component", "hmr"),
	}
}

// Phase returns the current phase.
func (p *Pipeline) Phase() Phase {
	return p.phase
}

// LastTransitions returns the phases entered by the most recent cycle.
func (p *Pipeline) LastTransitions() []Phase {
	out := make([]Phase, len(p.transitions))
	copy(out, p.transitions)
	return out
}

// OnUpdate registers fn to run after every cycle. Listeners run in
// registration order.
func (p *Pipeline) OnUpdate(fn func(Result)) (remove func()) {
	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range p.listeners {
			if l.id == id {
				p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

// Notify reports a changed file. Notifications inside the debounce window
// coalesce into one cycle; a notification during a running cycle schedules
// exactly one follow-up cycle once it completes.
func (p *Pipeline) Notify(path string) {
	if p.loop == nil {
		p.logger.Warn("notify without loop, ignoring", "path", path)
		return
	}
	if p.inFlight {
		p.followUp = true
		p.followPath = path
		return
	}
	p.pending = path
	if p.timer != nil {
		p.timer.Stop()
	}
	p.enter(PhaseDebounce)
	p.timer = p.loop.AfterFunc(p.debounce, p.start)
}

func (p *Pipeline) start() {
	p.timer = nil
	if p.inFlight || p.fetcher == nil {
		return
	}
	p.inFlight = true
	path := p.pending
	route := p.route()
	started := p.now()

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	ctx, span := p.startSpan(ctx, path, route)
	p.enter(PhaseFetch)

	go func() {
		doc, err := p.fetcher.Fetch(ctx, route)
		// The completion must reach the loop or the pipeline never leaves
		// PhaseFetch, so wait for queue space instead of dropping it.
		posted := p.loop.PostWait(context.Background(), func() {
			p.complete(p.finish(ctx, path, doc, err, started))
			span.End()
		})
		if !posted {
			p.abandon(ctx, path, started)
			span.End()
		}
	}()
}

// abandon ends a cycle whose completion could not be delivered because the
// loop closed. Nothing runs on the loop after that, so the cycle is closed
// out from the fetch goroutine.
func (p *Pipeline) abandon(ctx context.Context, path string, started time.Time) {
	err := errors.New("E040").WithDetail("page loop closed during update")
	p.logger.Warn("update abandoned", "path", path, "error", err)
	p.inFlight = false
	p.followUp = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.enter(PhaseIdle)

	res := Result{Path: path, Err: err}
	p.metrics.observeCycle(false, p.now().Sub(started))
	p.record(ctx, res)
	p.publish(res)
}

func (p *Pipeline) complete(Result) {
	p.inFlight = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.followUp {
		p.followUp = false
		p.Notify(p.followPath)
	}
}

// Update runs one cycle synchronously: it fetches the current route and
// applies it. It blocks the loop for the duration of the fetch and is meant
// for tooling and tests.
func (p *Pipeline) Update(ctx context.Context, path string) Result {
	started := p.now()
	route := p.route()
	ctx, span := p.startSpan(ctx, path, route)
	defer span.End()

	p.transitions = p.transitions[:0]
	p.enter(PhaseFetch)
	if p.fetcher == nil {
		return p.finish(ctx, path, nil, errors.New("E040").WithDetail("no fetcher configured"), started)
	}
	doc, err := p.fetcher.Fetch(ctx, route)
	return p.finish(ctx, path, doc, err, started)
}

// Apply runs the capture, replace, restore and reinitialize phases with an
// already fetched replacement document.
func (p *Pipeline) Apply(path string, next *dom.Document) Result {
	started := p.now()
	ctx, span := p.startSpan(context.Background(), path, p.route())
	defer span.End()

	p.transitions = p.transitions[:0]
	return p.finish(ctx, path, next, nil, started)
}

// Close stops a pending debounce and abandons an in-flight fetch.
func (p *Pipeline) Close() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.followUp = false
}

func (p *Pipeline) finish(ctx context.Context, path string, next *dom.Document, fetchErr error, started time.Time) Result {
	var res Result
	if fetchErr != nil {
		p.metrics.phaseError(PhaseFetch)
		p.enter(PhaseError)
		res = Result{Path: path, Err: fetchErr}
		p.logger.Warn("update fetch failed", "path", path, "error", fetchErr)
	} else {
		res = p.apply(path, next)
	}
	p.enter(PhaseIdle)

	if res.Err != nil {
		p.overlay.Report(res.Err)
	}
	p.metrics.observeCycle(res.Success, p.now().Sub(started))
	p.record(ctx, res)
	p.publish(res)
	return res
}

func (p *Pipeline) apply(path string, next *dom.Document) Result {
	res := Result{Path: path}
	var errs []error
	failed := false

	p.enter(PhaseCapture)
	var snap *Snapshot
	if err := p.guard(PhaseCapture, func() (err error) {
		snap, err = Capture(p.doc)
		return err
	}); err != nil {
		errs = append(errs, err)
	}

	p.enter(PhaseReplace)
	var root *html.Node
	if err := p.guard(PhaseReplace, func() (err error) {
		root, res.Change, err = Replace(p.doc, next)
		return err
	}); err != nil {
		errs = append(errs, err)
		failed = true
	}

	// Restore is attempted even after a failed replace.
	p.enter(PhaseRestore)
	if err := p.guard(PhaseRestore, func() error {
		res.Restore = Restore(p.doc, snap)
		return nil
	}); err != nil {
		errs = append(errs, err)
	}

	if failed {
		p.enter(PhaseError)
	} else {
		p.enter(PhaseReinitialize)
		res.Scripts = ReexecuteScripts(root, p.exec)
		res.ReloadHint = res.Scripts.ReloadHint
		errs = append(errs, res.Scripts.Errors...)
		p.metrics.observeScripts(res.Scripts)

		res.Stylesheets = SwapStylesheets(p.doc, p.now().UnixMilli())
		p.metrics.observeStylesheets(res.Stylesheets)

		if err := p.guard(PhaseReinitialize, func() error {
			bound, mounted := 0, 0
			if p.binder != nil {
				bound = p.binder.Mount(root)
			}
			if p.components != nil {
				mounted = p.components.Init(root)
			}
			released := 0
			if p.doc != nil {
				released = p.doc.Collect()
			}
			p.logger.Debug("reinitialized", "bindings", bound, "components", mounted, "released", released)
			return nil
		}); err != nil {
			errs = append(errs, err)
		}
		p.overlay.Refresh()
	}

	res.Err = errors.Join(errs...)
	res.Success = res.Err == nil
	if res.Success {
		p.logger.Info("page updated",
			"path", path,
			"inserted", res.Change.Inserted,
			"deleted", res.Change.Deleted,
			"restored", res.Restore.Restored)
	} else {
		p.logger.Warn("page update incomplete", "path", path, "error", res.Err)
	}
	return res
}

var phaseCodes = map[Phase]string{
	PhaseCapture:      "E042",
	PhaseReplace:      "E043",
	PhaseRestore:      "E044",
	PhaseReinitialize: "E049",
}

// guard runs one phase, converting a panic into that phase's error.
func (p *Pipeline) guard(phase Phase, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(phaseCodes[phase]).WithDetail(fmt.Sprint(r))
		}
		if err != nil {
			p.metrics.phaseError(phase)
		}
	}()
	return fn()
}

func (p *Pipeline) enter(phase Phase) {
	p.phase = phase
	if phase == PhaseDebounce {
		p.transitions = p.transitions[:0]
	}
	p.transitions = append(p.transitions, phase)
}

func (p *Pipeline) startSpan(ctx context.Context, path, route string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "hmr.update",
		trace.WithAttributes(
			attribute.String("hmr.path", path),
			attribute.String("hmr.route", route),
		),
	)
}

func (p *Pipeline) record(ctx context.Context, res Result) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Bool("hmr.success", res.Success),
		attribute.Int("hmr.scripts.executed", res.Scripts.Executed),
		attribute.Int("hmr.stylesheets", res.Stylesheets),
		attribute.Int("hmr.restored", res.Restore.Restored),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, errors.Summarize(res.Err))
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

func (p *Pipeline) publish(res Result) {
	detail := UpdatedDetail{Success: res.Success, Path: res.Path}
	if res.Err != nil {
		detail.Error = res.Err.Error()
	}
	if p.doc != nil {
		p.doc.Window().DispatchCustom(EventUpdated, detail)
	}
	listeners := make([]listener, len(p.listeners))
	copy(listeners, p.listeners)
	for _, l := range listeners {
		l.fn(res)
	}
}
