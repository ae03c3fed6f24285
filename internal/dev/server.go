package dev

import (
	"context"
	"io/fs"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/enhance/internal/config"
	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/hmr"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 5 * time.Second

// Options configures the development server.
type Options struct {
	// Templates overrides the source selected by the config.
	Templates TemplateSource

	// Registry collects and serves the dev server metrics.
	// Default: a fresh prometheus.Registry.
	Registry *prometheus.Registry

	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer

	// OnChange is called after every broadcast batch.
	OnChange func(changes []Change, clients int)

	// Now defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Server is the development server.
type Server struct {
	config    *config.Config
	options   Options
	templates TemplateSource
	hub       *Hub
	watcher   *Watcher
	metrics   *Metrics
	registry  *prometheus.Registry
	tracer    trace.Tracer
	logger    *slog.Logger
	handler   http.Handler
	now       func() time.Time
}

// NewServer creates a development server for cfg.
func NewServer(ctx context.Context, cfg *config.Config, options Options) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Registry == nil {
		options.Registry = prometheus.NewRegistry()
	}
	if options.Tracer == nil {
		options.Tracer = otel.Tracer("enhance/dev")
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	templates := options.Templates
	if templates == nil {
		var err error
		templates, err = OpenTemplates(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	s := &Server{
		config:    cfg,
		options:   options,
		templates: templates,
		metrics:   NewMetrics(options.Registry),
		registry:  options.Registry,
		tracer:    options.Tracer,
		logger:    options.Logger.With("component", "dev"),
		now:       options.Now,
	}
	s.hub = NewHub(s.metrics, options.Logger)

	if cfg.Dev.HotReload {
		watcher, err := NewWatcher(WatcherConfig{
			Paths:    s.watchPaths(),
			Ignore:   append(append([]string{}, DefaultIgnore...), cfg.Dev.Ignore...),
			Debounce: cfg.Dev.Debounce,
			Logger:   options.Logger,
		})
		if err != nil {
			return nil, err
		}
		watcher.OnChange(s.handleChanges)
		s.watcher = watcher
	}

	s.handler = s.routes()
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.handler }

// Hub returns the socket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Close releases the watcher and disconnects socket clients. Serve does
// this itself on return.
func (s *Server) Close() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.hub.Close()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	hmrRoute := "/" + strings.Trim(s.config.Dev.HMRRoute, "/")
	r.Get(hmrRoute+"/*", s.handleUpdate)
	r.Get(hmrRoute, s.handleUpdate)
	if s.config.Dev.HotReload {
		r.Get(s.config.Dev.SocketPath, s.hub.HandleWebSocket)
	}
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/*", s.handlePage)
	return r
}

// watchPaths returns the configured watch list plus the template root.
func (s *Server) watchPaths() []string {
	paths := s.config.WatchPaths()
	if dir, ok := s.templates.(*DirSource); ok {
		paths = append(paths, dir.Root())
	}
	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		clean := filepath.Clean(p)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}
	return unique
}

// Run serves on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.DevAddress())
	if err != nil {
		return errors.New("E122").WithDetail(s.config.DevAddress()).Wrap(err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server running", "addr", ln.Addr().String(), "hotReload", s.config.Dev.HotReload)
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if s.watcher != nil {
		g.Go(func() error {
			if err := s.watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// handleChanges broadcasts one hmr:update per changed file.
func (s *Server) handleChanges(changes []Change) {
	at := s.now()
	for _, change := range changes {
		s.metrics.change(change)
		rel := change.Path
		if r, err := filepath.Rel(s.config.Dir(), change.Path); err == nil && !strings.HasPrefix(r, "..") {
			rel = filepath.ToSlash(r)
		}
		if err := s.hub.NotifyUpdate(rel, at); err != nil {
			s.logger.Error("broadcast failed", "path", rel, "error", err)
		}
	}
	clients := s.hub.ClientCount()
	s.logger.Info("update broadcast", "files", len(changes), "clients", clients)
	if s.options.OnChange != nil {
		s.options.OnChange(changes, clients)
	}
}

// handleUpdate serves the replacement document for a hot update.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	route := "/" + chi.URLParam(r, "*")
	ctx, span := s.tracer.Start(r.Context(), "dev.hmr",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("hmr.route", route)),
	)
	defer span.End()

	if r.Header.Get(hmr.RequestHeader) == "" {
		span.SetStatus(codes.Error, "missing "+hmr.RequestHeader)
		s.fail(w, http.StatusBadRequest, "missing "+hmr.RequestHeader+" header")
		return
	}

	data, err := s.templates.Read(ctx, route)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.Summarize(err))
		s.fail(w, statusFor(err), errors.Summarize(err))
		return
	}

	span.SetAttributes(attribute.Int("hmr.bytes", len(data)))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
	s.metrics.request(http.StatusOK)
}

// handlePage serves pages and assets for a normal browser request.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	route := r.URL.Path
	data, err := s.templates.Read(r.Context(), route)
	if err != nil {
		http.Error(w, errors.Summarize(err), statusFor(err))
		return
	}
	ctype := "text/html; charset=utf-8"
	if ext := path.Ext(route); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			ctype = t
		}
	}
	w.Header().Set("Content-Type", ctype)
	w.Write(data)
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string) {
	s.metrics.request(status)
	http.Error(w, msg, status)
}

func statusFor(err error) int {
	switch errors.Code(err) {
	case "E047":
		return http.StatusBadRequest
	case "E048":
		if errors.Is(err, fs.ErrNotExist) {
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}
