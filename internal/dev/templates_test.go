package dev

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/enhance/internal/config"
	"github.com/vango-dev/enhance/internal/errors"
)

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0644))
	}
	return dir
}

func TestTemplateNames(t *testing.T) {
	tests := []struct {
		route string
		want  []string
	}{
		{"/", []string{"index.html"}},
		{"", []string{"index.html"}},
		{"/about", []string{"about.html", "about/index.html"}},
		{"/blog/post/", []string{"blog/post.html", "blog/post/index.html"}},
		{"/app.css", []string{"app.css"}},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, templateNames(tt.route))
		})
	}
}

func TestDirSource_Read(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"index.html":      "<p>home</p>",
		"about.html":      "<p>about</p>",
		"docs/index.html": "<p>docs</p>",
	})
	src := NewDirSource(dir)
	ctx := context.Background()

	tests := map[string]string{
		"/":      "<p>home</p>",
		"/about": "<p>about</p>",
		"/docs":  "<p>docs</p>",
	}
	for route, want := range tests {
		data, err := src.Read(ctx, route)
		require.NoError(t, err, route)
		assert.Equal(t, want, string(data), route)
	}
}

func TestDirSource_Errors(t *testing.T) {
	src := NewDirSource(writeTemplates(t, map[string]string{"index.html": "x"}))
	ctx := context.Background()

	_, err := src.Read(ctx, "/missing")
	require.Error(t, err)
	assert.Equal(t, "E048", errors.Code(err))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = src.Read(ctx, "/../secret")
	require.Error(t, err)
	assert.Equal(t, "E047", errors.Code(err))
}

func TestOpenTemplates(t *testing.T) {
	cfg := config.New()
	cfg.Templates.Dir = t.TempDir()

	src, err := OpenTemplates(context.Background(), cfg)
	require.NoError(t, err)
	dir, ok := src.(*DirSource)
	require.True(t, ok)
	assert.Equal(t, cfg.Templates.Dir, dir.Root())

	cfg.Templates.Driver = "ftp"
	_, err = OpenTemplates(context.Background(), cfg)
	assert.Equal(t, "E120", errors.Code(err))

	cfg.Templates.Driver = config.DriverS3
	_, err = OpenTemplates(context.Background(), cfg)
	assert.Equal(t, "E120", errors.Code(err))
}

// fakeBucket answers path-style GetObject requests from an in-memory map.
func fakeBucket(t *testing.T, bucket string, objects map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/"+bucket+"/")
		body, ok := objects[key]
		if r.Method != http.MethodGet || !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newS3Client(t *testing.T, endpoint string) *s3.Client {
	t.Helper()
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(endpoint)
	})
}

func TestS3Source_Read(t *testing.T) {
	srv := fakeBucket(t, "pages", map[string]string{
		"site/index.html":      "<p>home</p>",
		"site/docs/index.html": "<p>docs</p>",
	})
	src := NewS3SourceFromClient(newS3Client(t, srv.URL), "pages", "/site/")
	ctx := context.Background()

	data, err := src.Read(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "<p>home</p>", string(data))

	data, err = src.Read(ctx, "/docs")
	require.NoError(t, err)
	assert.Equal(t, "<p>docs</p>", string(data))

	_, err = src.Read(ctx, "/missing")
	assert.Equal(t, "E048", errors.Code(err))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = src.Read(ctx, "/a/../../b")
	assert.Equal(t, "E047", errors.Code(err))
}
