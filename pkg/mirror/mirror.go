// Package mirror forwards captured lines to a live subscriber.
//
// Sends are best effort: callers are expected to ignore the returned error.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	DefaultURL              = "ws://localhost:5000/rx"
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultWriteTimeout     = time.Second
)

// ErrClosed is returned by Send once the connection is gone
var ErrClosed = errors.New("mirror connection closed")

// Sink accepts text messages
type Sink interface {
	Send(text string) error
}

// Nop discards every message. Used when mirroring is disabled.
type Nop struct{}

// Send does nothing
func (Nop) Send(string) error { return nil }

// Config holds websocket mirror configuration
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Logger           zerolog.Logger
}

// Client is a Sink backed by a websocket connection
type Client struct {
	url          string
	writeTimeout time.Duration
	logger       zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

// Dial connects to the subscriber at cfg.URL
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mirror %s: %w", cfg.URL, err)
	}

	c := &Client{
		url:          cfg.URL,
		writeTimeout: cfg.WriteTimeout,
		logger:       cfg.Logger,
		conn:         conn,
		done:         make(chan struct{}),
	}
	go c.readLoop()

	c.logger.Info().Str("url", cfg.URL).Msg("Mirror connected")

	return c, nil
}

// readLoop drains inbound frames so control messages (ping, close) are
// processed. It exits when the connection fails.
func (c *Client) readLoop() {
	defer close(c.done)
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Str("url", c.url).Msg("Mirror connection lost")
			}
			return
		}
	}
}

// Send writes text as a single text frame, bounded by the write timeout
func (c *Client) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("failed to send to mirror: %w", err)
	}
	return nil
}

// Done is closed when the connection's read side has terminated
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))

	return c.conn.Close()
}
