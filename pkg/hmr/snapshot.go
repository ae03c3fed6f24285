package hmr

import (
	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/dom"
)

// RootAttr marks the element whose content an update replaces.
const RootAttr = "data-enhance-root"

// FormState is the captured state of one form control.
type FormState struct {
	Selector       dom.Selector
	Value          string
	Checked        bool
	Checkable      bool
	HasSelection   bool
	SelectionStart int
	SelectionEnd   int
}

// FocusState is the captured focus.
type FocusState struct {
	Selector       dom.Selector
	HasSelection   bool
	SelectionStart int
	SelectionEnd   int
}

// Snapshot is the interactive state of a page at the start of a cycle.
// It must not outlive the cycle.
type Snapshot struct {
	StateText map[string]string
	Forms     []FormState
	Focus     *FocusState
	Scroll    dom.Point
}

// FindRoot returns the replaceable root under n: the first element marked
// with RootAttr, else <main>, else <body>.
func FindRoot(n *html.Node) *html.Node {
	if root := dom.First(n, dom.ByAttr(RootAttr)); root != nil {
		return root
	}
	if root := dom.First(n, dom.ByTag("main")); root != nil {
		return root
	}
	return dom.First(n, dom.ByTag("body"))
}

// Capture records the state of doc before any DOM is replaced.
func Capture(doc *dom.Document) (*Snapshot, error) {
	root := FindRoot(doc.Root())
	if root == nil {
		return nil, errors.New("E042").WithDetail("document has no body")
	}

	snap := &Snapshot{
		StateText: make(map[string]string),
		Scroll:    doc.Window().Scroll(),
	}

	for _, el := range dom.FindAll(root, dom.ByAttr("state-binding")) {
		if dom.IsFormControl(el) {
			continue
		}
		key := dom.AttrOr(el, "state-binding", "")
		if _, seen := snap.StateText[key]; !seen && key != "" {
			snap.StateText[key] = dom.TextContent(el)
		}
	}

	for _, el := range dom.FindAll(root, dom.IsFormControl) {
		sel, ok := dom.SelectorFor(el)
		if !ok {
			continue
		}
		fs := FormState{
			Selector:  sel,
			Value:     doc.Value(el),
			Checkable: dom.IsCheckable(el),
		}
		if fs.Checkable {
			fs.Checked = doc.Checked(el)
		}
		if start, end, ok := doc.SelectionRange(el); ok {
			fs.HasSelection = true
			fs.SelectionStart, fs.SelectionEnd = start, end
		}
		snap.Forms = append(snap.Forms, fs)
	}

	if active := doc.ActiveElement(); active != nil {
		if sel, ok := dom.SelectorFor(active); ok {
			focus := &FocusState{Selector: sel}
			if start, end, ok := doc.SelectionRange(active); ok {
				focus.HasSelection = true
				focus.SelectionStart, focus.SelectionEnd = start, end
			}
			snap.Focus = focus
		}
	}
	return snap, nil
}

// RestoreReport counts what Restore could and could not reapply.
type RestoreReport struct {
	Restored int
	Dropped  int
}

// Restore reapplies snap to doc. Pieces whose element no longer exists are
// dropped silently.
func Restore(doc *dom.Document, snap *Snapshot) RestoreReport {
	var report RestoreReport
	if snap == nil {
		return report
	}
	root := FindRoot(doc.Root())
	if root == nil {
		root = doc.Root()
	}

	for key, text := range snap.StateText {
		els := dom.FindAll(root, dom.ByAttrValue("state-binding", key))
		restored := false
		for _, el := range els {
			if dom.IsFormControl(el) {
				continue
			}
			if dom.TextContent(el) != text {
				dom.SetTextContent(el, text)
			}
			restored = true
		}
		report.count(restored)
	}

	for _, fs := range snap.Forms {
		el := fs.Selector.Find(root)
		if el == nil {
			report.count(false)
			continue
		}
		if fs.Checkable {
			doc.SetChecked(el, fs.Checked)
		} else {
			doc.SetValue(el, fs.Value)
		}
		if fs.HasSelection {
			doc.SetSelectionRange(el, fs.SelectionStart, fs.SelectionEnd)
		}
		report.count(true)
	}

	if f := snap.Focus; f != nil {
		el := f.Selector.Find(doc.Root())
		if el != nil && doc.Focus(el) {
			if f.HasSelection {
				doc.SetSelectionRange(el, f.SelectionStart, f.SelectionEnd)
			}
			report.count(true)
		} else {
			report.count(false)
		}
	}

	doc.Window().ScrollTo(snap.Scroll.X, snap.Scroll.Y)
	return report
}

func (r *RestoreReport) count(ok bool) {
	if ok {
		r.Restored++
	} else {
		r.Dropped++
	}
}
