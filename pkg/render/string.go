package render

import (
	"bytes"
	"io"

	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/pkg/vdom"
)

// RenderToString renders roots to HTML without touching the document.
func (r *Renderer) RenderToString(roots ...*vdom.VNode) (string, error) {
	return RenderToString(roots...)
}

// RenderToString renders roots to HTML.
func RenderToString(roots ...*vdom.VNode) (string, error) {
	var buf bytes.Buffer
	if err := RenderToWriter(&buf, roots...); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams roots to w. Raw roots are written verbatim.
func RenderToWriter(w io.Writer, roots ...*vdom.VNode) error {
	for _, v := range roots {
		if v == nil {
			continue
		}
		if v.Kind == vdom.KindRaw {
			if _, err := io.WriteString(w, v.HTML); err != nil {
				return err
			}
			continue
		}
		if err := html.Render(w, build(v)); err != nil {
			return err
		}
	}
	return nil
}
