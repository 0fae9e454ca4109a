// Package volumio is a playback source fed by Volumio's socket.io API.
package volumio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quadify/quadify/internal/playback"
	"go.uber.org/zap"
)

const (
	// Sender is the sender name attached to published states.
	Sender = "volumio"

	DefaultReconnect    = 5 * time.Second
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 60 * time.Second
	writeWait           = 10 * time.Second
	handshakeWait       = 10 * time.Second
)

var errServerDisconnect = errors.New("server closed the socket")

// Client keeps a socket.io session to Volumio open, publishes every
// pushState event and emits transport commands.
type Client struct {
	playback.Hub

	socketURL string
	reconnect time.Duration
	dialer    *websocket.Dialer
	logger    *zap.Logger

	connected atomic.Bool

	writeMu sync.Mutex
	conn    *websocket.Conn
}

// SocketURL converts a Volumio base URL (http://host:3000) into the
// Engine.IO v3 websocket endpoint.
func SocketURL(base string) (string, error) {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse volumio url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported volumio url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("volumio url %q has no host", base)
	}
	u.Path = "/socket.io/"
	u.RawQuery = "EIO=3&transport=websocket"
	return u.String(), nil
}

func NewClient(baseURL string, reconnect time.Duration, logger *zap.Logger) (*Client, error) {
	socketURL, err := SocketURL(baseURL)
	if err != nil {
		return nil, err
	}
	if reconnect <= 0 {
		reconnect = DefaultReconnect
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		socketURL: socketURL,
		reconnect: reconnect,
		dialer:    &websocket.Dialer{HandshakeTimeout: handshakeWait},
		logger:    logger.Named("volumio"),
	}, nil
}

func (c *Client) Connected() bool { return c.connected.Load() }

// Run connects and reconnects until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("volumio session ended, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", c.reconnect))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.reconnect):
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.socketURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.socketURL, err)
	}
	defer conn.Close()

	interval, timeout, err := readHandshake(conn)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	c.connected.Store(true)
	c.logger.Info("connected", zap.String("url", c.socketURL))

	sessionCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.connected.Store(false)
		c.writeMu.Lock()
		c.conn = nil
		c.writeMu.Unlock()
	}()

	go func() {
		<-sessionCtx.Done()
		_ = conn.Close()
	}()
	go c.keepAlive(sessionCtx, interval)

	if err := c.RequestState(); err != nil {
		c.logger.Warn("initial state request failed", zap.Error(err))
	}
	return c.readLoop(conn, interval+timeout)
}

// readHandshake reads the open packet and returns the server's ping interval
// and ping timeout.
func readHandshake(conn *websocket.Conn) (interval, timeout time.Duration, err error) {
	if err := conn.SetReadDeadline(time.Now().Add(handshakeWait)); err != nil {
		return 0, 0, err
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return 0, 0, fmt.Errorf("read handshake: %w", err)
	}
	f, err := ParseFrame(msg)
	if err != nil {
		return 0, 0, err
	}
	if f.Engine != engineOpen {
		return 0, 0, fmt.Errorf("expected open packet, got %q", f.Engine)
	}
	var hs Handshake
	if err := json.Unmarshal(f.Data, &hs); err != nil {
		return 0, 0, fmt.Errorf("decode handshake: %w", err)
	}
	interval = time.Duration(hs.PingInterval) * time.Millisecond
	if interval <= 0 {
		interval = defaultPingInterval
	}
	timeout = time.Duration(hs.PingTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	return interval, timeout, nil
}

// keepAlive sends Engine.IO pings; v3 servers drop clients that stay silent
// past the ping timeout.
func (c *Client) keepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.write([]byte{enginePing}); err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

// readLoop handles frames until the socket fails. A server that stays silent
// for longer than silence, pongs included, counts as a dead link.
func (c *Client) readLoop(conn *websocket.Conn, silence time.Duration) error {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(silence)); err != nil {
			return err
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f, err := ParseFrame(msg)
		if err != nil {
			c.logger.Debug("ignoring malformed frame", zap.ByteString("frame", msg), zap.Error(err))
			continue
		}
		switch f.Engine {
		case enginePing:
			if err := c.write([]byte{enginePong}); err != nil {
				return err
			}
		case engineClose:
			return errServerDisconnect
		case engineMessage:
			switch f.Socket {
			case socketConnect:
				c.logger.Debug("socket.io namespace connected")
			case socketDisconnect:
				return errServerDisconnect
			case socketEvent:
				c.handleEvent(f.Data)
			case socketError:
				c.logger.Warn("socket.io error", zap.ByteString("data", f.Data))
			}
		}
	}
}

func (c *Client) handleEvent(data []byte) {
	name, args, err := DecodeEvent(data)
	if err != nil {
		c.logger.Debug("ignoring malformed event", zap.Error(err))
		return
	}
	if name != "pushState" {
		c.logger.Debug("ignoring event", zap.String("event", name))
		return
	}
	if len(args) == 0 {
		c.logger.Debug("pushState without payload")
		return
	}
	m, err := decodeObject(args[0])
	if err != nil {
		c.logger.Warn("pushState payload is not an object", zap.Error(err))
		return
	}
	st := playback.FromMap(m)
	c.logger.Debug("state received",
		zap.String("service", st.Service),
		zap.String("status", string(st.Status)),
		zap.String("title", st.Title))
	c.Publish(Sender, st)
}

func (c *Client) write(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return playback.ErrNotConnected
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *Client) emit(event string, arg any) error {
	msg, err := EncodeEvent(event, arg)
	if err != nil {
		return err
	}
	if err := c.write(msg); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

func (c *Client) RequestState() error { return c.emit("getState", struct{}{}) }

func (c *Client) VolumeUp() error { return c.emit("volume", "+") }

func (c *Client) VolumeDown() error { return c.emit("volume", "-") }

func (c *Client) SetVolume(v int) error { return c.emit("volume", playback.ClampVolume(v)) }

func (c *Client) TogglePlayPause() error { return c.emit("toggle", struct{}{}) }

var _ playback.Source = (*Client)(nil)
