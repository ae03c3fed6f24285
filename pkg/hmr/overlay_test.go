package hmr

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/render"
)

type overlayFixture struct {
	doc     *dom.Document
	overlay *Overlay
	clock   time.Time
}

func newOverlayFixture(t *testing.T, devMode bool) *overlayFixture {
	t.Helper()
	f := &overlayFixture{doc: parseDoc(t, `<body><main></main></body>`), clock: time.Unix(100, 0)}
	f.overlay = NewOverlay(OverlayConfig{
		DevMode:  devMode,
		Document: f.doc,
		Renderer: render.New(render.Config{Document: f.doc}),
		Now:      func() time.Time { return f.clock },
	})
	return f
}

func (f *overlayFixture) panel() string {
	el := f.doc.GetElementByID(OverlayID)
	if el == nil {
		return ""
	}
	return dom.TextContent(el)
}

func (f *overlayFixture) click(t *testing.T, action string) {
	t.Helper()
	btn := dom.First(f.doc.Root(), dom.ByAttrValue("data-action", action))
	require.NotNil(t, btn, "button %s", action)
	f.doc.Dispatch(btn, dom.Event{Type: "click", Target: btn})
}

func TestOverlayDeduplicates(t *testing.T) {
	f := newOverlayFixture(t, true)

	require.True(t, f.overlay.Report(errors.New("E040").WithDetail("/")))
	f.clock = f.clock.Add(time.Second)
	f.overlay.Report(errors.New("E040").WithDetail("/"))
	f.overlay.Report(fmt.Errorf("plain failure"))

	entries := f.overlay.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "E040: HMR fetch failed (/)", entries[0].Summary)
	assert.Equal(t, 2, entries[0].Count)
	assert.Equal(t, time.Unix(100, 0), entries[0].First)
	assert.Equal(t, time.Unix(101, 0), entries[0].Last)
	assert.Equal(t, "plain failure", entries[1].Summary)

	cur, ok := f.overlay.Current()
	require.True(t, ok)
	assert.Equal(t, "plain failure", cur.Summary)
	assert.Contains(t, f.panel(), "2 / 2")
}

func TestOverlayNavigationAndClear(t *testing.T) {
	f := newOverlayFixture(t, true)
	f.overlay.Report(errors.Join(errors.New("E043"), errors.New("E045").WithDetail("script#a")))
	require.Len(t, f.overlay.Entries(), 2)

	f.click(t, "next")
	cur, _ := f.overlay.Current()
	assert.Equal(t, "E043: HMR replace failed", cur.Summary)
	assert.Contains(t, f.panel(), "1 / 2")

	f.click(t, "prev")
	cur, _ = f.overlay.Current()
	assert.Contains(t, cur.Summary, "E045")

	f.click(t, "clear")
	assert.Empty(t, f.overlay.Entries())
	assert.Nil(t, f.doc.GetElementByID(OverlayID))
	_, ok := f.overlay.Current()
	assert.False(t, ok)
}

func TestOverlayRecreatesDetachedContainer(t *testing.T) {
	f := newOverlayFixture(t, true)
	f.overlay.Report(errors.New("E042"))
	dom.Remove(f.doc.GetElementByID(OverlayID))

	f.overlay.Refresh()
	assert.Contains(t, f.panel(), "E042")
}

func TestOverlayDisabled(t *testing.T) {
	f := newOverlayFixture(t, false)

	assert.False(t, f.overlay.Report(errors.New("E040")))
	assert.Nil(t, f.overlay.Entries())
	assert.Nil(t, f.doc.GetElementByID(OverlayID))

	var nilOverlay *Overlay
	assert.False(t, nilOverlay.Report(errors.New("E040")))
	nilOverlay.Next()
	nilOverlay.Refresh()
}
