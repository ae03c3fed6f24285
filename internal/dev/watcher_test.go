package dev

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string) (*Watcher, <-chan []Change) {
	t.Helper()
	w, err := NewWatcher(WatcherConfig{
		Paths:    []string{dir},
		Debounce: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	batches := make(chan []Change, 10)
	w.OnChange(func(c []Change) { batches <- c })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Start(ctx)

	require.Eventually(t, w.IsRunning, time.Second, 10*time.Millisecond)
	// Let the recursive registration finish.
	time.Sleep(50 * time.Millisecond)
	return w, batches
}

func waitBatch(t *testing.T, batches <-chan []Change) []Change {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change batch")
		return nil
	}
}

func TestWatcher_ReportsWrite(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(page, []byte("<p>a</p>"), 0644))

	w, batches := startWatcher(t, dir)
	defer w.Stop()

	require.NoError(t, os.WriteFile(page, []byte("<p>b</p>"), 0644))

	batch := waitBatch(t, batches)
	require.Len(t, batch, 1)
	assert.Equal(t, page, batch[0].Path)
	assert.Equal(t, ChangeTemplate, batch[0].Type)
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	w, batches := startWatcher(t, dir)
	defer w.Stop()

	a := filepath.Join(dir, "a.css")
	b := filepath.Join(dir, "b.html")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(a, []byte{byte('a' + i)}, 0644))
		require.NoError(t, os.WriteFile(b, []byte{byte('a' + i)}, 0644))
	}

	batch := waitBatch(t, batches)
	paths := make([]string, len(batch))
	for i, c := range batch {
		paths[i] = c.Path
	}
	assert.Equal(t, []string{a, b}, paths)
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir := t.TempDir()
	w, batches := startWatcher(t, dir)
	defer w.Stop()

	sub := filepath.Join(dir, "blog")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(100 * time.Millisecond)

	post := filepath.Join(sub, "post.html")
	require.NoError(t, os.WriteFile(post, []byte("<p>post</p>"), 0644))

	for {
		batch := waitBatch(t, batches)
		for _, c := range batch {
			if c.Path == post {
				return
			}
		}
	}
}

func TestWatcher_Ignore(t *testing.T) {
	w := &Watcher{config: WatcherConfig{Ignore: append(DefaultIgnore, "build/out", "assets/*.map")}}

	tests := []struct {
		path   string
		ignore bool
	}{
		{"/p/templates/index.html", false},
		{"/p/.git/HEAD", true},
		{"/p/node_modules/x/index.js", true},
		{"/p/templates/index.html.swp", true},
		{"/p/templates/index.html~", true},
		{"/p/build/out/page.html", true},
		{"/p/build/page.html", false},
		{"assets/app.map", true},
		{"/p/distribution/index.html", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.ignore, w.shouldIgnore(filepath.FromSlash(tt.path)))
		})
	}
}

func TestClassifyChange(t *testing.T) {
	tests := map[string]ChangeType{
		"index.html": ChangeTemplate,
		"page.TMPL":  ChangeTemplate,
		"app.css":    ChangeCSS,
		"theme.scss": ChangeCSS,
		"main.js":    ChangeScript,
		"logo.png":   ChangeAsset,
		"README":     ChangeAsset,
	}
	for name, want := range tests {
		assert.Equal(t, want, classifyChange(name), name)
	}
	assert.Equal(t, "css", ChangeCSS.String())
}
