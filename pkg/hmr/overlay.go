package hmr

import (
	"strconv"
	"time"

	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/render"
	"github.com/vango-dev/enhance/pkg/vdom"
)

// OverlayID is the id of the overlay container element.
const OverlayID = "enhance-error-overlay"

// OverlayConfig configures an Overlay.
type OverlayConfig struct {
	// DevMode enables the overlay. When false every method is a no-op.
	DevMode bool

	// Document and Renderer are used to show the overlay on the page.
	// Without them the overlay only queues entries.
	Document *dom.Document
	Renderer *render.Renderer

	// Now defaults to time.Now.
	Now func() time.Time
}

// OverlayEntry is one distinct error shown by the overlay.
type OverlayEntry struct {
	Summary string
	Count   int
	First   time.Time
	Last    time.Time
}

// Overlay is the development error panel. Entries are deduplicated by their
// formatted message, can be paged through, and stay until Clear.
type Overlay struct {
	enabled  bool
	doc      *dom.Document
	renderer *render.Renderer
	now      func() time.Time

	entries []OverlayEntry
	index   map[string]int
	current int
}

// NewOverlay creates an overlay.
func NewOverlay(cfg OverlayConfig) *Overlay {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Overlay{
		enabled:  cfg.DevMode,
		doc:      cfg.Document,
		renderer: cfg.Renderer,
		now:      cfg.Now,
		index:    make(map[string]int),
	}
}

// Enabled reports whether the overlay is active.
func (o *Overlay) Enabled() bool {
	return o != nil && o.enabled
}

// Report queues err and shows it. A repeat of an error already queued only
// bumps its count. Joined errors are queued one by one. It reports false
// when the overlay is disabled.
func (o *Overlay) Report(err error) bool {
	if !o.Enabled() || err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			o.add(e)
		}
	} else {
		o.add(err)
	}
	o.show()
	return true
}

func (o *Overlay) add(err error) {
	if err == nil {
		return
	}
	summary := errors.Summarize(err)
	now := o.now()
	if i, ok := o.index[summary]; ok {
		o.entries[i].Count++
		o.entries[i].Last = now
		o.current = i
	} else {
		o.index[summary] = len(o.entries)
		o.entries = append(o.entries, OverlayEntry{Summary: summary, Count: 1, First: now, Last: now})
		o.current = len(o.entries) - 1
	}
}

// Entries returns a copy of the queued entries.
func (o *Overlay) Entries() []OverlayEntry {
	if !o.Enabled() {
		return nil
	}
	out := make([]OverlayEntry, len(o.entries))
	copy(out, o.entries)
	return out
}

// Current returns the entry on display.
func (o *Overlay) Current() (OverlayEntry, bool) {
	if !o.Enabled() || len(o.entries) == 0 {
		return OverlayEntry{}, false
	}
	return o.entries[o.current], true
}

// Next shows the following entry, wrapping around.
func (o *Overlay) Next() {
	o.step(1)
}

// Prev shows the preceding entry, wrapping around.
func (o *Overlay) Prev() {
	o.step(-1)
}

func (o *Overlay) step(delta int) {
	if !o.Enabled() || len(o.entries) == 0 {
		return
	}
	n := len(o.entries)
	o.current = ((o.current+delta)%n + n) % n
	o.show()
}

// Clear removes every entry and hides the overlay.
func (o *Overlay) Clear() {
	if !o.Enabled() {
		return
	}
	o.entries = nil
	o.index = make(map[string]int)
	o.current = 0
	if el := o.container(false); el != nil {
		if o.renderer != nil {
			o.renderer.Forget(el)
		}
		dom.Remove(el)
	}
}

// Refresh re-shows the overlay after its container was replaced.
func (o *Overlay) Refresh() {
	if o.Enabled() && len(o.entries) > 0 {
		o.show()
	}
}

func (o *Overlay) container(create bool) *html.Node {
	if o.doc == nil {
		return nil
	}
	if el := o.doc.GetElementByID(OverlayID); el != nil {
		return el
	}
	if !create || o.doc.Body() == nil {
		return nil
	}
	el := dom.CreateElement("div")
	dom.SetAttr(el, "id", OverlayID)
	o.doc.Body().AppendChild(el)
	return el
}

func (o *Overlay) show() {
	if o.renderer == nil {
		return
	}
	el := o.container(true)
	if el == nil {
		return
	}
	o.renderer.Render(o.view(), el, render.Sync())
}

func (o *Overlay) view() *vdom.VNode {
	e := o.entries[o.current]
	count := ""
	if e.Count > 1 {
		count = " (x" + strconv.Itoa(e.Count) + ")"
	}
	return vdom.CreateElement("div", vdom.Props{"className": "enhance-overlay", "role": "alert"},
		vdom.CreateElement("h2", nil, "Update failed"+count),
		vdom.CreateElement("pre", nil, e.Summary),
		vdom.CreateElement("nav", nil,
			vdom.CreateElement("button", vdom.Props{"data-action": "prev", "onClick": func(dom.Event) { o.Prev() }}, "‹"),
			vdom.CreateElement("span", nil, strconv.Itoa(o.current+1)+" / "+strconv.Itoa(len(o.entries))),
			vdom.CreateElement("button", vdom.Props{"data-action": "next", "onClick": func(dom.Event) { o.Next() }}, "›"),
			vdom.CreateElement("button", vdom.Props{"data-action": "clear", "onClick": func(dom.Event) { o.Clear() }}, "Dismiss"),
		),
		vdom.CreateElement("p", nil, "Fix the error and save to retry."),
	)
}
