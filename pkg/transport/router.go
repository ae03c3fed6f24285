package transport

import (
	"log/slog"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/state"
)

// Notifier receives changed file paths. *hmr.Pipeline implements it.
type Notifier interface {
	Notify(path string)
}

// RouterConfig configures a Router.
type RouterConfig struct {
	Store  *state.Store
	HMR    Notifier
	Logger *slog.Logger
}

// Router applies inbound messages. It must run on the page loop.
type Router struct {
	store  *state.Store
	hmr    Notifier
	logger *slog.Logger
}

// NewRouter creates a router.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Router{
		store:  cfg.Store,
		hmr:    cfg.HMR,
		logger: cfg.Logger.With("component", "transport"),
	}
}

// Handle dispatches msg by type. Unknown types return E061.
func (r *Router) Handle(msg Message) error {
	switch msg.Type {
	case TypeHMRUpdate:
		var u HMRUpdate
		if err := msg.Payload(&u); err != nil {
			return err
		}
		if r.hmr != nil {
			r.hmr.Notify(u.Path)
		}
		return nil

	case TypeStateUpdate:
		var u StateUpdate
		if err := msg.Payload(&u); err != nil {
			return err
		}
		if u.Key == "" {
			return errors.New("E062").WithDetail("state:update without key")
		}
		if r.store != nil {
			r.store.Set(u.Key, u.Value, state.NoSync())
		}
		return nil

	case TypeBatchUpdate:
		var b BatchUpdate
		if err := msg.Payload(&b); err != nil {
			return err
		}
		if r.store == nil {
			return nil
		}
		r.store.Batch(func() {
			for _, u := range b.Updates {
				if u.Key == "" {
					r.logger.Warn("batch entry without key")
					continue
				}
				r.store.Set(u.Key, u.Value, state.NoSync())
			}
		})
		return nil
	}
	return errors.New("E061").WithDetail(msg.Type)
}
