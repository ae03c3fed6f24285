package vdom

import "sort"

// Diff compares two root lists and returns the patches that transform prev
// into next. Children are matched by index only.
func Diff(prev, next []*VNode) []Patch {
	var patches []Patch
	diffChildren(prev, next, nil, &patches)
	return patches
}

// Changed reports whether next must replace prev rather than patch it.
func Changed(prev, next *VNode) bool {
	if prev.Kind != next.Kind {
		return true
	}
	switch prev.Kind {
	case KindText:
		return prev.Text != next.Text
	case KindRaw:
		return prev.HTML != next.HTML
	default:
		return prev.Tag != next.Tag
	}
}

func diff(prev, next *VNode, path Path, patches *[]Patch) {
	if Changed(prev, next) {
		// Text nodes keep their identity; only the data changes.
		if prev.Kind == KindText && next.Kind == KindText {
			*patches = append(*patches, Patch{Op: PatchSetText, Path: path, Value: next.Text})
			return
		}
		*patches = append(*patches, Patch{Op: PatchReplace, Path: path, Node: next})
		return
	}
	if prev.Kind != KindElement {
		return
	}
	diffProps(prev, next, path, patches)
	diffChildren(prev.Children, next.Children, path, patches)
}

// diffChildren walks both lists up to the longer length. Removals are
// emitted last and in descending index order so earlier indexes stay valid.
func diffChildren(prev, next []*VNode, parent Path, patches *[]Patch) {
	maxLen := len(prev)
	if len(next) > maxLen {
		maxLen = len(next)
	}

	var removals []Patch
	for i := 0; i < maxLen; i++ {
		switch {
		case i >= len(prev):
			*patches = append(*patches, Patch{Op: PatchInsert, Path: parent.child(i), Node: next[i]})
		case i >= len(next):
			removals = append(removals, Patch{Op: PatchRemove, Path: parent.child(i)})
		default:
			diff(prev[i], next[i], parent.child(i), patches)
		}
	}
	for i := len(removals) - 1; i >= 0; i-- {
		*patches = append(*patches, removals[i])
	}
}

// diffProps patches attributes in place. Handlers are always rebound since
// closures cannot be compared; the applier removes the old listener first.
func diffProps(prev, next *VNode, path Path, patches *[]Patch) {
	prevAttrs := prev.Attrs()
	nextAttrs := next.Attrs()

	for _, key := range sortedKeys(prevAttrs) {
		if _, ok := nextAttrs[key]; !ok {
			*patches = append(*patches, Patch{Op: PatchRemoveAttr, Path: path, Key: key})
		}
	}
	for _, key := range sortedKeys(nextAttrs) {
		val := nextAttrs[key]
		if old, ok := prevAttrs[key]; !ok || old != val {
			*patches = append(*patches, Patch{Op: PatchSetAttr, Path: path, Key: key, Value: val})
		}
	}

	prevHandlers := prev.Handlers()
	nextHandlers := next.Handlers()
	for _, typ := range sortedKeys(prevHandlers) {
		if _, ok := nextHandlers[typ]; !ok {
			*patches = append(*patches, Patch{Op: PatchRemoveEvent, Path: path, Key: typ})
		}
	}
	for _, typ := range sortedKeys(nextHandlers) {
		*patches = append(*patches, Patch{Op: PatchSetEvent, Path: path, Key: typ, Handler: nextHandlers[typ]})
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
