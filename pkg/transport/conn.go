// Package transport owns the single persistent websocket to the chat
// backend. One Conn exists per logged-in session; every open conversation
// shares it through the event dispatcher.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wayfare-social/wayfare-chat/pkg/config"
	"github.com/wayfare-social/wayfare-chat/pkg/dispatch"
	"github.com/wayfare-social/wayfare-chat/pkg/logger"
	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

const component = "transport"

var (
	// ErrNotConnected is returned by send operations while the socket is
	// down. Callers surface it as a failed send; they do not retry.
	ErrNotConnected = errors.New("chat connection is not established")

	// ErrConnClosed is returned by Connect after Close (logout) has made
	// the Conn terminal.
	ErrConnClosed = errors.New("chat connection has been closed")
)

const writeWait = 10 * time.Second

// Conn is the transport connection. Construct with NewConn and inject it
// wherever the session-wide connection is needed; there is no package-level
// instance.
type Conn struct {
	cfg        config.ChatConfig
	dispatcher *dispatch.Dispatcher
	dialer     *websocket.Dialer

	mu      sync.Mutex
	state   wire.ConnState
	userID  string
	ws      *websocket.Conn
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	closed  bool

	writeMu sync.Mutex
}

func NewConn(cfg config.ChatConfig, d *dispatch.Dispatcher) *Conn {
	return &Conn{
		cfg:        cfg,
		dispatcher: d,
		dialer:     websocket.DefaultDialer,
		state:      wire.Disconnected,
	}
}

// Connect starts the connection loop for userID. It returns immediately;
// dial failures are logged and retried with backoff, never surfaced here.
// Calling Connect again for the same user while the loop is running is a
// no-op.
func (c *Conn) Connect(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}
	if c.running {
		if c.userID == userID {
			return nil
		}
		return fmt.Errorf("already connected as %q", c.userID)
	}
	if userID == "" {
		return errors.New("user id cannot be empty")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.userID = userID
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.run(runCtx, c.done)
	return nil
}

// State returns the current connection state. Safe to poll; state changes
// are also published as wire.StateChange events.
func (c *Conn) State() wire.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close tears the connection down for good. Only logout calls this; any
// other disconnect goes through the reconnect loop instead.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	done := c.done
	ws := c.ws
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ws != nil {
		ws.Close()
	}
	if done != nil {
		<-done
	}
	c.setState(wire.Disconnected)
	logger.InfoC(component, "Connection closed")
}

func (c *Conn) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		c.setState(wire.Connecting)

		ws, err := c.dial(ctx)
		if err != nil {
			c.setState(wire.Disconnected)
			if ctx.Err() != nil {
				return
			}
			delay := c.backoff(attempt)
			attempt++
			logger.WarnCF(component, "Dial failed, retrying", map[string]any{
				"error": err.Error(),
				"delay": delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			continue
		}

		attempt = 0
		c.mu.Lock()
		c.ws = ws
		c.mu.Unlock()
		c.setState(wire.Connected)
		logger.InfoCF(component, "Connected", map[string]any{"user": c.userID})

		c.readLoop(ctx, ws)

		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
		c.setState(wire.Disconnected)
		if ctx.Err() != nil {
			return
		}
		logger.WarnC(component, "Connection lost, reconnecting")
	}
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid chat server URL: %w", err)
	}
	q := u.Query()
	q.Set("user_id", c.userID)
	u.RawQuery = q.Encode()

	ws, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	return ws, err
}

// readLoop reads frames until the connection dies, dispatching each decoded
// event in arrival order. Heartbeat pings run alongside; a missing pong
// trips the read deadline and ends the loop.
func (c *Conn) readLoop(ctx context.Context, ws *websocket.Conn) {
	interval := time.Duration(c.cfg.HeartbeatSeconds) * time.Second
	deadline := 2 * interval

	ws.SetReadDeadline(time.Now().Add(deadline))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(deadline))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go c.pingLoop(ws, interval, stopPing)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			ws.Close()
			return
		}
		ev, ok := wire.DecodeEvent(data)
		if !ok {
			logger.DebugC(component, "Skipping unrecognized frame")
			continue
		}
		if err := c.dispatcher.Publish(ev); err != nil {
			// Dispatcher closed out from under us: session is over.
			ws.Close()
			return
		}
	}
}

func (c *Conn) pingLoop(ws *websocket.Conn, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil {
				ws.Close()
				return
			}
		case <-stop:
			return
		}
	}
}

func (c *Conn) setState(s wire.ConnState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
	c.dispatcher.Publish(wire.StateChange{State: s})
}

// backoff returns the delay before reconnect attempt n, doubling from the
// configured base up to the configured cap.
func (c *Conn) backoff(attempt int) time.Duration {
	base := time.Duration(c.cfg.ReconnectBaseMillis) * time.Millisecond
	max := time.Duration(c.cfg.ReconnectMaxSeconds) * time.Second
	d := base
	for i := 0; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d
}
