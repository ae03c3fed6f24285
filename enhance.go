// Package enhance adds reactive state, components and hot reload to
// server-rendered HTML pages.
//
// A Page owns one document and everything that mutates it: the event loop,
// the state store, the renderer, the binding layer, component instances
// and, in development, the update pipeline and its socket. All of them are
// confined to the page loop; use Page.Do to touch them from elsewhere.
//
// Usage:
//
//	page, err := enhance.NewPage(enhance.Config{
//	    Document: doc,
//	    DevMode:  true,
//	    DevURL:   "http://localhost:3000",
//	})
//	if err != nil {
//	    return err
//	}
//	page.Do(func() {
//	    page.Mount()
//	    page.UseState("count", 0)
//	})
//	return page.Run(ctx)
package enhance

import (
	"github.com/vango-dev/enhance/pkg/component"
	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/format"
	"github.com/vango-dev/enhance/pkg/hmr"
	"github.com/vango-dev/enhance/pkg/state"
	"github.com/vango-dev/enhance/pkg/vdom"
)

// =============================================================================
// Re-exported types
// =============================================================================

// VNode is a virtual DOM node.
type VNode = vdom.VNode

// Props are element properties.
type Props = vdom.Props

// Event is a DOM event.
type Event = dom.Event

// State is a handle to one store key.
type State = state.State

// Change is a store change event.
type Change = state.Change

// Action is a reducer action.
type Action = state.Action

// Formatter turns a bound value into display content.
type Formatter = format.Func

// HTML marks a formatter result as trusted markup.
type HTML = format.HTML

// ComponentDefinition describes a component.
type ComponentDefinition = component.Definition

// UpdateResult describes one hot update cycle.
type UpdateResult = hmr.Result

// =============================================================================
// Element helpers
// =============================================================================

// H creates an element node.
func H(tag string, props Props, children ...any) *VNode {
	return vdom.CreateElement(tag, props, children...)
}

// Text creates a text node.
func Text(v any) *VNode {
	return vdom.Text(v)
}

// Raw creates a node that renders trusted markup verbatim.
func Raw(markup string) *VNode {
	return vdom.Raw(markup)
}

// NoSync keeps a Set from being published to the dev server.
func NoSync() state.SetOption {
	return state.NoSync()
}
