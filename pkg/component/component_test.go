package component

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/render"
	"github.com/vango-dev/enhance/pkg/vdom"
)

const markup = `<!DOCTYPE html><html><body>
<div id="counter" component="counter" data-prop-step="2" data-prop-label="Clicks">
  <span ref="out">0</span>
  <div component="inner"><i ref="out">nested</i></div>
</div>
<div id="ghost" component="missing"></div>
</body></html>`

func setup(t *testing.T) (*dom.Document, *Registry, *bytes.Buffer) {
	t.Helper()
	doc, err := dom.ParseString(markup)
	require.NoError(t, err)
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	r := New(Config{
		Document: doc,
		Renderer: render.New(render.Config{Document: doc, Logger: logger}),
		Logger:   logger,
	})
	return doc, r, logs
}

func TestInitPropsRefsAndMount(t *testing.T) {
	doc, r, logs := setup(t)
	mounted := 0
	r.Define(Definition{Name: "counter", Mount: func(c *Instance) { mounted++ }})
	r.Define(Definition{Name: "inner"})

	assert.Equal(t, 2, r.Init(nil))
	assert.Equal(t, 0, r.Init(nil), "Init must not re-create instances")
	assert.Equal(t, 1, mounted)
	assert.Contains(t, logs.String(), "E006")

	c, ok := r.Instance(doc.GetElementByID("counter"))
	require.True(t, ok)
	assert.Equal(t, Props{"step": "2", "label": "Clicks"}, c.Props())
	require.NotNil(t, c.Ref("out"))
	assert.Equal(t, "span", c.Ref("out").Data, "nested component refs are not collected")
	assert.Equal(t, []string{"counter", "inner"}, r.Defined())
}

func TestSetStateRendersAndNotifies(t *testing.T) {
	doc, r, _ := setup(t)
	r.Define(Definition{
		Name:         "counter",
		InitialState: func(p Props) map[string]any { return map[string]any{"count": 0, "label": p["label"]} },
		Render: func(c *Instance) *vdom.VNode {
			return vdom.CreateElement("span", vdom.Props{"ref": "out"}, c.Get("label"), ": ", c.Get("count"))
		},
	})
	r.Init(nil)

	root := doc.GetElementByID("counter")
	c, ok := r.Instance(root)
	require.True(t, ok)
	assert.Equal(t, "Clicks: 0", dom.TextContent(root))

	var got []Updated
	doc.AddEventListener(root, EventUpdated, func(ev dom.Event) {
		got = append(got, ev.Detail.(Updated))
	})

	c.SetState(map[string]any{"count": 1})
	assert.Equal(t, "Clicks: 1", dom.TextContent(root))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].State["count"])
	assert.Equal(t, root.FirstChild, c.Ref("out"))
}

func TestInitForgetsDetachedInstances(t *testing.T) {
	doc, r, _ := setup(t)
	r.Define(Definition{Name: "counter"})
	r.Define(Definition{Name: "inner"})
	r.Init(nil)
	require.Equal(t, 2, r.Instances())

	dom.Remove(doc.GetElementByID("counter"))
	r.Init(nil)
	assert.Equal(t, 0, r.Instances())
}
