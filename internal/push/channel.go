// Package push manages the websocket connection used for server notifications.
package push

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	apperrors "fraud-monitor/internal/errors"
	"fraud-monitor/internal/logging"
	"fraud-monitor/internal/metrics"
)

// Config holds configuration for the channel.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	Logger           zerolog.Logger
}

// Channel is a single receive-only websocket connection. It does not
// reconnect; callers decide whether to open a new Channel after OnClose.
type Channel struct {
	url    string
	dialer *websocket.Dialer
	logger zerolog.Logger

	// Handlers
	onOpen    func()
	onMessage func([]byte)
	onError   func(error)
	onClose   func()

	// State
	raw       net.Conn
	conn      *websocket.Conn
	connected bool
	closing   bool
	opened    bool
	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

// New creates a channel. Nothing is dialed until Open.
func New(cfg Config) *Channel {
	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Channel{
		url:    cfg.URL,
		logger: logging.WithComponent(cfg.Logger, "push"),
		done:   make(chan struct{}),
	}
	c.dialer = &websocket.Dialer{
		HandshakeTimeout: timeout,
		NetDialContext:   c.netDial,
	}
	return c
}

// netDial keeps the raw connection so Close can abort a handshake that is
// still waiting for the server.
func (c *Channel) netDial(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		raw.Close()
		return nil, apperrors.ErrSessionClosed
	}
	c.raw = raw
	return raw, nil
}

// URLFromBase derives the push endpoint from the API base address:
// same host, ws or wss scheme, path /ws.
func URLFromBase(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// OnOpen sets the handler called once the connection is established.
func (c *Channel) OnOpen(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOpen = handler
}

// OnMessage sets the handler for text frames.
func (c *Channel) OnMessage(handler func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = handler
}

// OnError sets the error handler. Errors do not close the channel unless
// the connection itself has failed, in which case OnClose follows.
func (c *Channel) OnError(handler func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

// OnClose sets the handler called once when the connection ends.
func (c *Channel) OnClose(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = handler
}

// Open dials the endpoint and starts the read loop. A Channel can be
// opened once.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.opened {
		c.mu.Unlock()
		return apperrors.NewChannelError("open", fmt.Errorf("channel already opened"))
	}
	if c.closing {
		c.mu.Unlock()
		return apperrors.NewChannelError("open", apperrors.ErrSessionClosed)
	}
	c.opened = true
	c.mu.Unlock()

	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.finish()
		return apperrors.NewChannelError("dial", err)
	}

	c.mu.Lock()
	if c.closing {
		// Close raced with the dial.
		c.mu.Unlock()
		conn.Close()
		c.finish()
		return apperrors.NewChannelError("open", apperrors.ErrSessionClosed)
	}
	c.conn = conn
	c.connected = true
	onOpen := c.onOpen
	c.mu.Unlock()

	metrics.PushConnected.Set(1)
	c.logger.Info().Str("url", c.url).Msg("Push channel connected")
	if onOpen != nil {
		onOpen()
	}

	go c.readLoop(conn)
	return nil
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	defer c.finish()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.RLock()
			closing := c.closing
			c.mu.RUnlock()
			if !closing && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.emitError(apperrors.NewChannelError("read", err))
			}
			return
		}

		if msgType != websocket.TextMessage {
			c.emitError(apperrors.NewChannelError("frame", fmt.Errorf("unexpected frame type %d", msgType)))
			continue
		}

		c.mu.RLock()
		onMessage := c.onMessage
		c.mu.RUnlock()
		if onMessage != nil {
			onMessage(data)
		}
	}
}

// finish runs exactly once per Channel, after the connection is gone.
func (c *Channel) finish() {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	onClose := c.onClose
	select {
	case <-c.done:
		c.mu.Unlock()
		return
	default:
	}
	close(c.done)
	c.mu.Unlock()

	if wasConnected {
		metrics.PushConnected.Set(0)
		c.logger.Info().Msg("Push channel disconnected")
		if onClose != nil {
			onClose()
		}
	}
}

func (c *Channel) emitError(err error) {
	c.mu.RLock()
	onError := c.onError
	c.mu.RUnlock()
	c.logger.Error().Err(err).Msg("Push channel error")
	if onError != nil {
		onError(err)
	}
}

// Close releases the connection and waits for the read loop to exit.
// It is safe to call at any point and more than once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		conn := c.conn
		raw := c.raw
		opened := c.opened
		c.mu.Unlock()

		switch {
		case conn != nil:
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			conn.Close()
		case raw != nil:
			raw.Close()
		}
		if !opened {
			c.finish()
		}
	})
	<-c.done
	return nil
}

// Done is closed once the connection has ended for any reason.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Connected reports whether the connection is currently open.
func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
