package enhance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/hmr"
	"github.com/vango-dev/enhance/pkg/transport"
)

const pageMarkup = `<!DOCTYPE html><html><head></head><body>
<main>
<h1 state-binding="name" format="upper">ada</h1>
<input state-binding="name" value="ada">
<div component="greeting"></div>
</main>
</body></html>`

func newTestPage(t *testing.T, cfg Config) *Page {
	t.Helper()
	doc, err := dom.ParseString(pageMarkup)
	require.NoError(t, err)
	cfg.Document = doc
	page, err := NewPage(cfg)
	require.NoError(t, err)
	return page
}

func text(page *Page, m dom.Matcher) string {
	return dom.TextContent(dom.First(page.Document().Root(), m))
}

func TestNewPageRequiresDocument(t *testing.T) {
	_, err := NewPage(Config{})
	require.Error(t, err)
}

func TestPageMountBindsAndSyncs(t *testing.T) {
	page := newTestPage(t, Config{
		Components: []ComponentDefinition{{Name: "greeting"}},
	})

	var bindings, components int
	page.Do(func() { bindings, components = page.Mount() })
	page.RunPending()
	assert.Equal(t, 2, bindings)
	assert.Equal(t, 1, components)
	assert.Equal(t, "ada", text(page, dom.ByTag("h1")), "server markup is kept until the first set")

	page.Do(func() { page.UseState("name", "").Set("grace") })
	page.RunPending()
	assert.Equal(t, "GRACE", text(page, dom.ByTag("h1")))
	input := dom.First(page.Document().Root(), dom.ByTag("input"))
	assert.Equal(t, "grace", page.Document().Value(input))

	page.Do(func() {
		page.Document().SetValue(input, "lin")
		page.Document().Dispatch(input, Event{Type: "input", Target: input})
	})
	page.RunPending()
	assert.Equal(t, "LIN", text(page, dom.ByTag("h1")))
	assert.Equal(t, "lin", page.Store().Get("name"))
}

func TestPageHandlesStateMessages(t *testing.T) {
	page := newTestPage(t, Config{})
	page.Do(func() { page.Mount() })

	frame, err := transport.Encode(transport.TypeStateUpdate, transport.StateUpdate{Key: "name", Value: "remote"})
	require.NoError(t, err)
	msg, err := transport.Decode(frame)
	require.NoError(t, err)

	var handleErr error
	page.Do(func() { handleErr = page.Handle(msg) })
	page.RunPending()
	require.NoError(t, handleErr)
	assert.Equal(t, "REMOTE", text(page, dom.ByTag("h1")))
	assert.Nil(t, page.HMR(), "no pipeline outside dev mode")
	assert.Nil(t, page.Transport())
}

func TestPageHotUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<!DOCTYPE html><html><head></head><body>
<main>
<h2>Welcome</h2>
<h1 state-binding="name" format="upper">server</h1>
<input state-binding="name">
</main>
</body></html>`))
	}))
	defer srv.Close()

	page := newTestPage(t, Config{
		DevMode:  true,
		DevURL:   srv.URL,
		Debounce: 10 * time.Millisecond,
	})
	require.NotNil(t, page.HMR())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- page.Run(ctx) }()

	updated := make(chan hmr.UpdatedDetail, 1)
	page.Do(func() {
		page.Mount()
		page.UseState("name", "").Set("kept")
		page.Document().Window().AddEventListener(hmr.EventUpdated, func(ev Event) {
			updated <- ev.Detail.(hmr.UpdatedDetail)
		})
		frame, _ := transport.Encode(transport.TypeHMRUpdate, transport.HMRUpdate{Path: "index.html"})
		msg, _ := transport.Decode(frame)
		page.Handle(msg)
	})

	select {
	case detail := <-updated:
		assert.True(t, detail.Success, detail.Error)
		assert.Equal(t, "index.html", detail.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no hmr:updated event")
	}

	type snapshot struct{ heading, title, value string }
	got := make(chan snapshot, 1)
	page.Do(func() {
		page.Store().Set("name", "after")
	})
	page.Do(func() {
		input := dom.First(page.Document().Root(), dom.ByTag("input"))
		got <- snapshot{
			heading: text(page, dom.ByTag("h2")),
			title:   text(page, dom.ByTag("h1")),
			value:   page.Document().Value(input),
		}
	})
	s := <-got
	assert.Equal(t, "Welcome", s.heading)
	assert.Equal(t, "AFTER", s.title, "replaced elements are bound again")
	assert.Equal(t, "after", s.value)

	page.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	cancel()
}
