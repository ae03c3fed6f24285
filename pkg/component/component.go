// Package component initialises components declared in markup.
//
// A component root carries component="name". Its data-prop-* attributes
// become string props and descendants carrying ref="name" are collected
// into a refs map when the instance mounts:
//
//	<div component="counter" data-prop-step="2">
//	    <button ref="inc">+</button>
//	</div>
package component

import (
	"log/slog"
	"maps"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/render"
	"github.com/vango-dev/enhance/pkg/vdom"
)

// Markup attributes and events of the component protocol.
const (
	AttrComponent = "component"
	AttrRef       = "ref"
	PropPrefix    = "data-prop-"
	EventUpdated  = "component:updated"
)

// Props are the string props read from data-prop-* attributes.
type Props map[string]string

// Definition describes a component type.
type Definition struct {
	Name string

	// InitialState seeds the instance state. Optional.
	InitialState func(props Props) map[string]any

	// Render returns the root's content for the current state. When nil the
	// server-rendered content is left alone and SetState only emits events.
	Render func(c *Instance) *vdom.VNode

	// Mount runs once after the instance is created. Optional.
	Mount func(c *Instance)
}

// Updated is the detail of a component:updated event.
type Updated struct {
	State map[string]any
}

// Config configures a Registry.
type Config struct {
	Document *dom.Document
	Renderer *render.Renderer
	Logger   *slog.Logger
}

// Registry holds component definitions and live instances.
type Registry struct {
	doc       *dom.Document
	renderer  *render.Renderer
	logger    *slog.Logger
	defs      map[string]Definition
	instances map[*html.Node]*Instance
}

// New creates a registry.
func New(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		doc:       cfg.Document,
		renderer:  cfg.Renderer,
		logger:    cfg.Logger.With("component", "components"),
		defs:      make(map[string]Definition),
		instances: make(map[*html.Node]*Instance),
	}
}

// Define registers def, replacing any definition with the same name.
func (r *Registry) Define(def Definition) {
	r.defs[def.Name] = def
}

// Defined returns the registered component names, sorted.
func (r *Registry) Defined() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Init creates instances for every component root under root that does not
// have one yet, and forgets instances whose root left the document.
// It returns the number of new instances.
func (r *Registry) Init(root *html.Node) int {
	for el := range r.instances {
		if !r.doc.Contains(el) {
			delete(r.instances, el)
		}
	}
	if root == nil {
		root = r.doc.Root()
	}

	created := 0
	for _, el := range dom.FindAll(root, dom.ByAttr(AttrComponent)) {
		if _, ok := r.instances[el]; ok {
			continue
		}
		name := dom.AttrOr(el, AttrComponent, "")
		def, ok := r.defs[name]
		if !ok {
			r.logger.Warn("component not initialised",
				"error", errors.New("E006").WithDetail(name))
			continue
		}
		r.instances[el] = r.mount(def, el)
		created++
	}
	return created
}

// Instance returns the instance rooted at el.
func (r *Registry) Instance(el *html.Node) (*Instance, bool) {
	c, ok := r.instances[el]
	return c, ok
}

// Instances returns the number of live instances.
func (r *Registry) Instances() int {
	return len(r.instances)
}

func (r *Registry) mount(def Definition, el *html.Node) *Instance {
	c := &Instance{
		registry: r,
		def:      def,
		root:     el,
		props:    ReadProps(el),
		state:    make(map[string]any),
	}
	if def.InitialState != nil {
		maps.Copy(c.state, def.InitialState(c.props))
	}
	if def.Render != nil {
		r.renderer.Render(def.Render(c), el, render.Sync())
	}
	c.refs = CollectRefs(el)
	if def.Mount != nil {
		def.Mount(c)
	}
	return c
}

// Instance is a live component.
type Instance struct {
	registry *Registry
	def      Definition
	root     *html.Node
	props    Props
	refs     map[string]*html.Node
	state    map[string]any
}

// Name returns the component name.
func (c *Instance) Name() string { return c.def.Name }

// Root returns the component root element.
func (c *Instance) Root() *html.Node { return c.root }

// Props returns the component props.
func (c *Instance) Props() Props { return c.props }

// Ref returns the element registered under name.
func (c *Instance) Ref(name string) *html.Node { return c.refs[name] }

// Refs returns a copy of the refs map.
func (c *Instance) Refs() map[string]*html.Node { return maps.Clone(c.refs) }

// State returns a copy of the instance state.
func (c *Instance) State() map[string]any { return maps.Clone(c.state) }

// Get returns one state entry.
func (c *Instance) Get(key string) any { return c.state[key] }

// Document returns the document the component lives in.
func (c *Instance) Document() *dom.Document { return c.registry.doc }

// SetState merges patch into the state, re-renders the root and fires
// component:updated on it.
func (c *Instance) SetState(patch map[string]any) {
	maps.Copy(c.state, patch)
	if c.def.Render != nil {
		c.registry.renderer.Render(c.def.Render(c), c.root, render.Sync())
		c.refs = CollectRefs(c.root)
	}
	c.registry.doc.DispatchCustom(c.root, EventUpdated, Updated{State: c.State()})
}

// ReadProps returns the data-prop-* attributes of el keyed by suffix.
func ReadProps(el *html.Node) Props {
	props := Props{}
	for _, a := range el.Attr {
		if a.Namespace == "" && strings.HasPrefix(a.Key, PropPrefix) {
			props[strings.TrimPrefix(a.Key, PropPrefix)] = a.Val
		}
	}
	return props
}

// CollectRefs maps ref names to elements under root. Refs of nested
// component roots belong to those components and are skipped.
func CollectRefs(root *html.Node) map[string]*html.Node {
	refs := make(map[string]*html.Node)
	dom.Walk(root, func(n *html.Node) bool {
		if n != root && dom.HasAttr(n, AttrComponent) {
			return false
		}
		if name, ok := dom.Attr(n, AttrRef); ok && n != root {
			if _, dup := refs[name]; !dup {
				refs[name] = n
			}
		}
		return true
	})
	return refs
}
