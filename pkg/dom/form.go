package dom

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// control is the property state of a form control.
type control struct {
	value        string
	valueDirty   bool
	checked      bool
	checkedDirty bool
	selStart     int
	selEnd       int
	hasSelection bool
}

// IsFormControl reports whether n is an input, textarea or select element.
func IsFormControl(n *html.Node) bool {
	return IsElement(n, "input", "textarea", "select")
}

// InputType returns the lower-cased type of an input element ("text" by default).
func InputType(n *html.Node) string {
	if !IsElement(n, "input") {
		return ""
	}
	t := strings.ToLower(strings.TrimSpace(AttrOr(n, "type", "text")))
	if t == "" {
		return "text"
	}
	return t
}

// IsCheckable reports whether n is a checkbox or radio input.
func IsCheckable(n *html.Node) bool {
	t := InputType(n)
	return t == "checkbox" || t == "radio"
}

// SupportsSelection reports whether n exposes a text selection range.
func SupportsSelection(n *html.Node) bool {
	if IsElement(n, "textarea") {
		return true
	}
	switch InputType(n) {
	case "text", "search", "url", "tel", "password":
		return true
	}
	return false
}

func (d *Document) control(n *html.Node) *control {
	c := d.controls[n]
	if c == nil {
		c = &control{}
		d.controls[n] = c
	}
	return c
}

// Value returns the current value property of a form control.
func (d *Document) Value(n *html.Node) string {
	if c := d.controls[n]; c != nil && c.valueDirty {
		return c.value
	}
	return defaultValue(n)
}

func defaultValue(n *html.Node) string {
	switch {
	case IsElement(n, "textarea"):
		return TextContent(n)
	case IsElement(n, "select"):
		options := FindAll(n, ByTag("option"))
		for _, o := range options {
			if HasAttr(o, "selected") {
				return optionValue(o)
			}
		}
		if len(options) > 0 {
			return optionValue(options[0])
		}
		return ""
	case IsCheckable(n):
		return AttrOr(n, "value", "on")
	default:
		return AttrOr(n, "value", "")
	}
}

func optionValue(o *html.Node) string {
	if v, ok := Attr(o, "value"); ok {
		return v
	}
	return strings.TrimSpace(TextContent(o))
}

// SetValue sets the value property. A changed value moves the selection to
// the end of the text, as browsers do for programmatic writes.
func (d *Document) SetValue(n *html.Node, value string) {
	if IsCheckable(n) {
		SetAttr(n, "value", value)
		return
	}
	old := d.Value(n)
	c := d.control(n)
	c.value = value
	c.valueDirty = true
	if old != value {
		end := utf8.RuneCountInString(value)
		c.selStart, c.selEnd = end, end
		c.hasSelection = true
	}
}

// Checked returns the checked property of a checkbox or radio input.
func (d *Document) Checked(n *html.Node) bool {
	if c := d.controls[n]; c != nil && c.checkedDirty {
		return c.checked
	}
	return HasAttr(n, "checked")
}

// SetChecked sets the checked property. Checking a radio unchecks the other
// radios of its group in the same document.
func (d *Document) SetChecked(n *html.Node, checked bool) {
	c := d.control(n)
	c.checked = checked
	c.checkedDirty = true
	if !checked || InputType(n) != "radio" {
		return
	}
	name, ok := Attr(n, "name")
	if !ok || name == "" {
		return
	}
	for _, other := range FindAll(d.root, ByAttrValue("name", name)) {
		if other != n && InputType(other) == "radio" {
			oc := d.control(other)
			oc.checked = false
			oc.checkedDirty = true
		}
	}
}

// SelectionRange returns the selection of a text control.
func (d *Document) SelectionRange(n *html.Node) (start, end int, ok bool) {
	if !SupportsSelection(n) {
		return 0, 0, false
	}
	if c := d.controls[n]; c != nil && c.hasSelection {
		return c.selStart, c.selEnd, true
	}
	l := utf8.RuneCountInString(d.Value(n))
	return l, l, true
}

// SetSelectionRange sets the selection of a text control, clamped to its value.
func (d *Document) SetSelectionRange(n *html.Node, start, end int) bool {
	if !SupportsSelection(n) {
		return false
	}
	l := utf8.RuneCountInString(d.Value(n))
	start = clamp(start, 0, l)
	end = clamp(end, start, l)
	c := d.control(n)
	c.selStart, c.selEnd = start, end
	c.hasSelection = true
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Focus makes n the active element if it is connected.
func (d *Document) Focus(n *html.Node) bool {
	if n == nil || !d.Contains(n) {
		return false
	}
	d.active = n
	return true
}

// Blur clears the active element.
func (d *Document) Blur() {
	d.active = nil
}

// ActiveElement returns the focused element, or nil when focus was lost
// because the element left the document.
func (d *Document) ActiveElement() *html.Node {
	if d.active != nil && !d.Contains(d.active) {
		d.active = nil
	}
	return d.active
}

// Selector identifies an element across document replacements.
type Selector struct {
	ID    string
	Name  string
	Value string // disambiguates checkbox and radio groups
}

// SelectorFor returns a selector for n by id, else by name.
func SelectorFor(n *html.Node) (Selector, bool) {
	if id, ok := Attr(n, "id"); ok && id != "" {
		return Selector{ID: id}, true
	}
	if name, ok := Attr(n, "name"); ok && name != "" {
		s := Selector{Name: name}
		if IsCheckable(n) {
			s.Value = AttrOr(n, "value", "on")
		}
		return s, true
	}
	return Selector{}, false
}

// IsZero reports whether the selector is empty.
func (s Selector) IsZero() bool {
	return s.ID == "" && s.Name == ""
}

// String renders the selector in CSS syntax.
func (s Selector) String() string {
	switch {
	case s.ID != "":
		return "#" + s.ID
	case s.Value != "":
		return "[name=" + strconv.Quote(s.Name) + "][value=" + strconv.Quote(s.Value) + "]"
	case s.Name != "":
		return "[name=" + strconv.Quote(s.Name) + "]"
	}
	return ""
}

// Find returns the first element under root matching the selector.
func (s Selector) Find(root *html.Node) *html.Node {
	switch {
	case s.ID != "":
		return First(root, ByAttrValue("id", s.ID))
	case s.Name != "":
		return First(root, func(n *html.Node) bool {
			if !ByAttrValue("name", s.Name)(n) {
				return false
			}
			if s.Value == "" {
				return true
			}
			return IsCheckable(n) && AttrOr(n, "value", "on") == s.Value
		})
	}
	return nil
}
