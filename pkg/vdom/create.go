package vdom

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CreateElement builds an element node. Children may be *VNode, []*VNode,
// []any, strings, numbers or fmt.Stringers; nested slices are flattened and
// nil or boolean children are dropped.
func CreateElement(tag string, props Props, children ...any) *VNode {
	return &VNode{
		Kind:     KindElement,
		Tag:      strings.ToLower(tag),
		Props:    normalizeProps(props),
		Children: Flatten(children...),
	}
}

// Text creates a text node from a string or number.
func Text(v any) *VNode {
	return &VNode{Kind: KindText, Text: Stringify(v)}
}

// Raw creates a raw HTML node. The caller is responsible for sanitising html.
func Raw(html string) *VNode {
	return &VNode{Kind: KindRaw, HTML: html}
}

// Flatten converts a heterogeneous child list into nodes.
func Flatten(children ...any) []*VNode {
	var out []*VNode
	flattenInto(&out, children)
	return out
}

func flattenInto(out *[]*VNode, items []any) {
	for _, item := range items {
		switch c := item.(type) {
		case nil, bool:
			continue
		case *VNode:
			if c != nil {
				*out = append(*out, c)
			}
		case []*VNode:
			for _, n := range c {
				if n != nil {
					*out = append(*out, n)
				}
			}
		case []any:
			flattenInto(out, c)
		case []string:
			for _, s := range c {
				*out = append(*out, Text(s))
			}
		default:
			*out = append(*out, Text(c))
		}
	}
}

// Stringify formats a value the way it appears as text content.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// AttrValue converts a prop value to its attribute string. ok is false when
// the attribute should be absent (nil, false).
func AttrValue(name string, v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case bool:
		return "", val
	case string:
		return val, true
	case map[string]string:
		if name == "style" {
			m := make(map[string]any, len(val))
			for k, s := range val {
				m[k] = s
			}
			return StyleString(m), true
		}
	case map[string]any:
		if name == "style" {
			return StyleString(val), true
		}
	}
	return Stringify(v), true
}

// StyleString serialises a style map to CSS, converting camelCase keys to
// kebab-case. Keys are sorted so output is stable.
func StyleString(style map[string]any) string {
	keys := make([]string, 0, len(style))
	for k := range style {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		v := style[k]
		if v == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(Kebab(k))
		b.WriteString(": ")
		b.WriteString(Stringify(v))
		b.WriteString(";")
	}
	return b.String()
}

// Kebab converts camelCase to kebab-case ("backgroundColor" -> "background-color").
func Kebab(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeProps applies the prop conventions once at creation so diffing
// compares plain attribute strings.
func normalizeProps(props Props) Props {
	if len(props) == 0 {
		return nil
	}
	out := make(Props, len(props))
	for key, val := range props {
		if key == "children" || key == "key" {
			continue
		}
		if IsEventProp(key) {
			if h := toHandler(val); h != nil {
				out["on"+EventName(key)] = h
			}
			continue
		}
		name := AttrName(key)
		if s, ok := AttrValue(name, val); ok {
			out[name] = s
		}
	}
	return out
}
