package transport

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/loop"
)

// Client defaults.
const (
	DefaultMinBackoff = time.Second
	DefaultMaxBackoff = 30 * time.Second
	DefaultSendQueue  = 64
	writeWait         = 10 * time.Second
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// URL is the socket endpoint, e.g. "ws://localhost:3000/__enhance/ws".
	URL string

	// Loop receives inbound messages. Required.
	Loop *loop.Loop

	// Router applies inbound messages on the loop. Required.
	Router *Router

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// MinBackoff and MaxBackoff bound the reconnect delay, which doubles
	// after every failed attempt.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// SendQueue bounds frames waiting for a connection.
	SendQueue int

	Logger *slog.Logger
}

// Client is a reconnecting socket client. It implements state.Syncer.
type Client struct {
	url    string
	loop   *loop.Loop
	router *Router
	dialer *websocket.Dialer
	min    time.Duration
	max    time.Duration
	logger *slog.Logger

	send      chan []byte
	connected atomic.Bool
}

// NewClient creates a client. Call Run to connect.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = DefaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = DefaultSendQueue
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		url:    cfg.URL,
		loop:   cfg.Loop,
		router: cfg.Router,
		dialer: cfg.Dialer,
		min:    cfg.MinBackoff,
		max:    cfg.MaxBackoff,
		logger: cfg.Logger.With("component", "transport"),
		send:   make(chan []byte, cfg.SendQueue),
	}
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Publish sends a state:update frame. It implements state.Syncer.
func (c *Client) Publish(key string, value any) {
	if err := c.Send(TypeStateUpdate, StateUpdate{Key: key, Value: value}); err != nil {
		c.logger.Warn("publish failed", "key", key, "error", err)
	}
}

// Send queues a frame. Frames queued while disconnected are sent after the
// next connect.
func (c *Client) Send(typ string, data any) error {
	frame, err := Encode(typ, data)
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errors.New("E060").WithDetail("send queue full")
	}
}

// Run connects and reconnects until ctx is cancelled or the loop closes.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.min
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err == nil {
			backoff = c.min
			c.logger.Info("connected", "url", c.url)
			err = c.serve(ctx, conn)
			c.logger.Info("disconnected", "error", err)
		} else {
			c.logger.Warn("connect failed", "url", c.url, "error", err, "retry", backoff)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-c.loop.Done():
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.max)
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	c.connected.Store(true)
	defer c.connected.Store(false)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readPump(ctx, conn) })
	g.Go(func() error { return c.writePump(ctx, conn) })
	g.Go(func() error {
		<-ctx.Done()
		conn.Close()
		return nil
	})
	return g.Wait()
}

func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return errors.New("E060").Wrap(err)
		}
		msg, err := Decode(frame)
		if err != nil {
			c.logger.Warn("dropping frame", "error", err)
			continue
		}
		// Inbound state must not be lost, so wait for room on the loop.
		posted := c.loop.PostWait(ctx, func() {
			if err := c.router.Handle(msg); err != nil {
				c.logger.Warn("message rejected", "type", msg.Type, "error", err)
			}
		})
		if !posted {
			return errors.New("E060").WithDetail("page loop closed")
		}
	}
}

func (c *Client) writePump(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return ctx.Err()
		case frame := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return errors.New("E060").Wrap(err)
			}
		}
	}
}
