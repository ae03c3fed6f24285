package render

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/vdom"
)

// Scheduler queues a callback to run after the current task.
// *loop.Loop satisfies it.
type Scheduler interface {
	QueueMicrotask(fn func())
}

// Config configures a Renderer.
type Config struct {
	// Document is the live document containers belong to. Required.
	Document *dom.Document

	// Scheduler runs batched flushes. Without one every render is synchronous.
	Scheduler Scheduler

	// Logger receives per-container commit errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// Option modifies a single Render call.
type Option func(*renderOptions)

type renderOptions struct {
	sync bool
}

// Sync commits the render immediately instead of batching it.
func Sync() Option {
	return func(o *renderOptions) { o.sync = true }
}

// Renderer commits VNode trees into containers of one document.
type Renderer struct {
	doc    *dom.Document
	sched  Scheduler
	logger *slog.Logger

	trees     map[*html.Node][]*vdom.VNode
	listeners map[*html.Node]map[string]func()

	pending   map[*html.Node][]*vdom.VNode
	order     []*html.Node
	scheduled bool
}

// New creates a renderer.
func New(cfg Config) *Renderer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Renderer{
		doc:       cfg.Document,
		sched:     cfg.Scheduler,
		logger:    cfg.Logger.With("component", "render"),
		trees:     make(map[*html.Node][]*vdom.VNode),
		listeners: make(map[*html.Node]map[string]func()),
		pending:   make(map[*html.Node][]*vdom.VNode),
	}
}

// Document returns the renderer's document.
func (r *Renderer) Document() *dom.Document {
	return r.doc
}

// Render queues v as the only root of container.
func (r *Renderer) Render(v *vdom.VNode, container *html.Node, opts ...Option) {
	var roots []*vdom.VNode
	if v != nil {
		roots = []*vdom.VNode{v}
	}
	r.RenderChildren(roots, container, opts...)
}

// RenderChildren queues roots as the children of container.
func (r *Renderer) RenderChildren(roots []*vdom.VNode, container *html.Node, opts ...Option) {
	var o renderOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.sync || r.sched == nil {
		// A sync commit supersedes anything already queued for the container.
		delete(r.pending, container)
		r.commit(container, roots)
		return
	}

	if _, ok := r.pending[container]; !ok {
		r.order = append(r.order, container)
	}
	r.pending[container] = roots
	if !r.scheduled {
		r.scheduled = true
		r.sched.QueueMicrotask(r.Flush)
	}
}

// Flush commits every queued render now.
func (r *Renderer) Flush() {
	r.scheduled = false
	order := r.order
	r.order = nil
	for _, container := range order {
		roots, ok := r.pending[container]
		if !ok {
			continue
		}
		delete(r.pending, container)
		r.commit(container, roots)
	}
	r.prune()
}

// Pending reports how many containers have a queued render.
func (r *Renderer) Pending() int {
	return len(r.pending)
}

// Tree returns the last committed roots for container.
func (r *Renderer) Tree(container *html.Node) ([]*vdom.VNode, bool) {
	roots, ok := r.trees[container]
	return roots, ok
}

// Forget drops the committed tree for container so the next render mounts.
func (r *Renderer) Forget(container *html.Node) {
	delete(r.trees, container)
}

func (r *Renderer) commit(container *html.Node, roots []*vdom.VNode) {
	if container == nil || !r.doc.Contains(container) {
		delete(r.trees, container)
		r.logger.Warn("render skipped",
			"error", errors.New("E020").WithDetail("container is not connected to the document"))
		return
	}

	prev, ok := r.trees[container]
	switch {
	case !ok, isRawRoot(prev), isRawRoot(roots):
		if err := r.mount(container, roots); err != nil {
			r.logger.Error("mount failed", "error", err)
			return
		}
	default:
		if err := r.apply(container, vdom.Diff(prev, roots)); err != nil {
			r.logger.Warn("patch failed, remounting", "error", err)
			if err := r.mount(container, roots); err != nil {
				r.logger.Error("mount failed", "error", err)
				return
			}
		}
	}
	r.trees[container] = roots
}

// prune drops trees and listener records for nodes that left the document.
func (r *Renderer) prune() {
	for container := range r.trees {
		if !r.doc.Contains(container) {
			delete(r.trees, container)
		}
	}
	for n, byType := range r.listeners {
		if !r.doc.Contains(n) {
			for _, remove := range byType {
				remove()
			}
			delete(r.listeners, n)
		}
	}
}

func isRawRoot(roots []*vdom.VNode) bool {
	return len(roots) == 1 && roots[0].Kind == vdom.KindRaw
}
