package vdom

import (
	"testing"

	"github.com/vango-dev/enhance/pkg/dom"
)

func TestCreateElementFlattensChildren(t *testing.T) {
	items := []*VNode{Text("a"), nil, Text("b")}
	node := CreateElement("UL", nil,
		items,
		[]any{"c", []any{3, nil, false}},
		true,
		nil,
		CreateElement("li", nil, "d"),
	)

	if node.Tag != "ul" {
		t.Errorf("Tag = %q, want ul", node.Tag)
	}
	want := []string{"Text(a)", "Text(b)", "Text(c)", "Text(3)", "<li>Text(d)</li>"}
	if len(node.Children) != len(want) {
		t.Fatalf("len(Children) = %d, want %d: %v", len(node.Children), len(want), node.Children)
	}
	for i, w := range want {
		if got := node.Children[i].String(); got != w {
			t.Errorf("Children[%d] = %s, want %s", i, got, w)
		}
	}
}

func TestCreateElementProps(t *testing.T) {
	clicked := false
	node := CreateElement("button", Props{
		"className": "btn primary",
		"style":     map[string]any{"backgroundColor": "red", "fontSize": "12px"},
		"disabled":  true,
		"hidden":    false,
		"tabIndex":  2,
		"children":  "ignored",
		"onClick":   func(dom.Event) { clicked = true },
	})

	if _, ok := node.Props["children"]; ok {
		t.Error("Props contains children")
	}

	attrs := node.Attrs()
	tests := map[string]string{
		"class":    "btn primary",
		"style":    "background-color: red; font-size: 12px;",
		"disabled": "",
		"tabIndex": "2",
	}
	for k, want := range tests {
		if got, ok := attrs[k]; !ok || got != want {
			t.Errorf("attrs[%q] = %q (present %v), want %q", k, got, ok, want)
		}
	}
	if _, ok := attrs["hidden"]; ok {
		t.Error("false boolean prop should be absent")
	}
	if _, ok := attrs["onClick"]; ok {
		t.Error("handler leaked into attributes")
	}

	handlers := node.Handlers()
	if len(handlers) != 1 || handlers["click"] == nil {
		t.Fatalf("Handlers() = %v, want click", handlers)
	}
	handlers["click"](dom.Event{Type: "click"})
	if !clicked {
		t.Error("click handler not invoked")
	}
}

func TestKebab(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"color", "color"},
		{"backgroundColor", "background-color"},
		{"borderTopLeftRadius", "border-top-left-radius"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Kebab(tc.in); got != tc.want {
			t.Errorf("Kebab(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"x", "x"},
		{5, "5"},
		{2.5, "2.5"},
		{float64(3), "3"},
		{true, "true"},
		{nil, ""},
	}
	for _, tc := range tests {
		if got := Stringify(tc.in); got != tc.want {
			t.Errorf("Stringify(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDiffUnchanged(t *testing.T) {
	build := func() []*VNode {
		return []*VNode{CreateElement("p", Props{"id": "x"}, "hello")}
	}
	if patches := Diff(build(), build()); len(patches) != 0 {
		t.Errorf("Diff of identical trees = %v, want none", patches)
	}
}

func TestDiffTextChange(t *testing.T) {
	prev := []*VNode{CreateElement("p", nil, "a", CreateElement("b", nil, "old"))}
	next := []*VNode{CreateElement("p", nil, "a", CreateElement("b", nil, "new"))}

	patches := Diff(prev, next)
	if len(patches) != 1 {
		t.Fatalf("len(patches) = %d, want 1: %v", len(patches), patches)
	}
	p := patches[0]
	if p.Op != PatchSetText || p.Path.String() != "0/1/0" || p.Value != "new" {
		t.Errorf("patch = %s, want SetText 0/1/0 \"new\"", p)
	}
}

func TestDiffReplace(t *testing.T) {
	tests := []struct {
		name       string
		prev, next *VNode
	}{
		{"tag", CreateElement("p", nil), CreateElement("div", nil)},
		{"kind", Text("x"), CreateElement("span", nil)},
		{"raw", Raw("<b>1</b>"), Raw("<b>2</b>")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			patches := Diff([]*VNode{tc.prev}, []*VNode{tc.next})
			if len(patches) != 1 || patches[0].Op != PatchReplace {
				t.Fatalf("patches = %v, want one Replace", patches)
			}
			if patches[0].Node != tc.next {
				t.Error("Replace patch does not carry the new node")
			}
		})
	}
}

func TestDiffAttributes(t *testing.T) {
	prev := []*VNode{CreateElement("a", Props{"href": "/a", "title": "t", "className": "x"})}
	next := []*VNode{CreateElement("a", Props{"href": "/b", "className": "x", "target": "_blank"})}

	patches := Diff(prev, next)
	got := make([]string, len(patches))
	for i, p := range patches {
		got[i] = p.String()
	}
	want := []string{
		`RemoveAttr 0 title`,
		`SetAttr 0 href="/b"`,
		`SetAttr 0 target="_blank"`,
	}
	if len(got) != len(want) {
		t.Fatalf("patches = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("patch[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDiffEvents(t *testing.T) {
	h := func(dom.Event) {}
	prev := []*VNode{CreateElement("button", Props{"onClick": h, "onFocus": h})}
	next := []*VNode{CreateElement("button", Props{"onClick": h})}

	patches := Diff(prev, next)
	if len(patches) != 2 {
		t.Fatalf("patches = %v, want RemoveEvent focus + SetEvent click", patches)
	}
	if patches[0].Op != PatchRemoveEvent || patches[0].Key != "focus" {
		t.Errorf("patch[0] = %s, want RemoveEvent focus", patches[0])
	}
	if patches[1].Op != PatchSetEvent || patches[1].Key != "click" || patches[1].Handler == nil {
		t.Errorf("patch[1] = %s, want SetEvent click", patches[1])
	}
}

func TestDiffInsertAndRemove(t *testing.T) {
	three := []*VNode{Text("a"), Text("b"), Text("c")}
	one := []*VNode{Text("a")}

	patches := Diff(one, three)
	if len(patches) != 2 {
		t.Fatalf("grow patches = %v", patches)
	}
	for i, p := range patches {
		if p.Op != PatchInsert || p.Path[0] != i+1 {
			t.Errorf("grow patch[%d] = %s, want Insert %d", i, p, i+1)
		}
	}

	patches = Diff(three, one)
	if len(patches) != 2 {
		t.Fatalf("shrink patches = %v", patches)
	}
	if patches[0].Op != PatchRemove || patches[0].Path[0] != 2 {
		t.Errorf("shrink patch[0] = %s, want Remove 2", patches[0])
	}
	if patches[1].Op != PatchRemove || patches[1].Path[0] != 1 {
		t.Errorf("shrink patch[1] = %s, want Remove 1", patches[1])
	}
}

func TestPatchOpString(t *testing.T) {
	if PatchInsert.String() != "Insert" || PatchOp(0).String() != "Unknown" {
		t.Error("unexpected PatchOp strings")
	}
	if KindRaw.String() != "Raw" {
		t.Errorf("KindRaw.String() = %q", KindRaw.String())
	}
}
