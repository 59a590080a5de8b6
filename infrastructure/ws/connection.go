// Package ws is the live channel: one authenticated WebSocket connection per session,
// a read loop dispatching inbound events in order and a write loop draining a bounded buffer.
package ws

import (
	"chatchat/domain/chat"
	"chatchat/domain/event"
	"chatchat/errors"
	"chatchat/observability"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Config struct {
	MaxFrameBytes       int64
	SendBufferSize      int
	RateLimitBurst      int
	RateLimitRefill     time.Duration
	WriteWait           time.Duration
	PongWait            time.Duration
	PingPeriod          time.Duration
	AllowedOrigins      []string
	AllowQueryParameter bool
}

func DefaultConfig() Config {
	return Config{
		MaxFrameBytes:       8 << 20,
		SendBufferSize:      256,
		RateLimitBurst:      20,
		RateLimitRefill:     time.Second,
		WriteWait:           10 * time.Second,
		PongWait:            60 * time.Second,
		PingPeriod:          54 * time.Second,
		AllowQueryParameter: true,
	}
}

func (c Config) sanitize() Config {
	d := DefaultConfig()
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = d.MaxFrameBytes
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = d.SendBufferSize
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = d.RateLimitBurst
	}
	if c.RateLimitRefill <= 0 {
		c.RateLimitRefill = d.RateLimitRefill
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	return c
}

// Connection is the EventSink of one session.
type Connection struct {
	session   *chat.Session
	identity  chat.Identity
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rateLimiter
	cfg       Config
	log       *slog.Logger
}

func newConnection(conn *websocket.Conn, session *chat.Session, identity chat.Identity, cfg Config, log *slog.Logger) *Connection {
	return &Connection{
		session:  session,
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, cfg.SendBufferSize),
		done:     make(chan struct{}),
		limiter:  newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefill),
		cfg:      cfg,
		log:      log.With("session", session.ID(), "uid", identity.UserID),
	}
}

func (c *Connection) ID() string {
	return c.session.ID()
}

// Consume enqueues e without blocking. A full buffer closes the connection.
func (c *Connection) Consume(_ context.Context, e event.Envelope) error {
	select {
	case <-c.done:
		return errors.ErrSinkClosed
	default:
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		observability.SlowConsumers.Inc()
		c.log.Warn("Send buffer full, closing slow consumer", "buffer", cap(c.send))
		c.Close()
		return errors.ErrSinkFull
	}
}

// Close is idempotent. The write loop notices it and tears the socket down.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.session.Close()
	})
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// readLoop hands every accepted frame to handle, one at a time, until the socket fails or closes.
func (c *Connection) readLoop(handle func(event.Inbound)) {
	c.conn.SetReadLimit(c.cfg.MaxFrameBytes)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		c.log.Debug("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.allow() {
			observability.EventsDropped.WithLabelValues("rate_limited").Inc()
			c.log.Debug("Rate limit exceeded, discarding frame", "burst", c.cfg.RateLimitBurst, "interval", c.cfg.RateLimitRefill)
			continue
		}

		var in event.Inbound
		if err := json.Unmarshal(raw, &in); err != nil || in.Event == "" {
			observability.EventsDropped.WithLabelValues("malformed").Inc()
			_ = c.Consume(context.Background(), event.Failure(errors.PublicMessage(errors.ErrInvalidPayload), errors.Code(errors.ErrInvalidPayload)))
			continue
		}
		handle(in)
	}
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("Error closing connection", "error", err)
		}
	}()

	for {
		select {
		case message := <-c.send:
			if !c.write(websocket.TextMessage, message) {
				return
			}
		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}
		case <-c.done:
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

func (c *Connection) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		c.log.Debug("Error setting write deadline", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug("Error writing frame", "error", err)
		}
		return false
	}
	return true
}

func (c *Connection) logReadError(err error) {
	switch {
	case stderrors.Is(err, websocket.ErrReadLimit):
		observability.EventsDropped.WithLabelValues("too_large").Inc()
		c.log.Info("Frame exceeded maximum size", "max", c.cfg.MaxFrameBytes)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		c.log.Debug("Client disconnected", "error", err)
	case stderrors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Debug("Connection closed", "error", err)
	default:
		c.log.Info("WebSocket read error", "error", err)
	}
}

func isExpectedCloseError(err error) bool {
	return stderrors.Is(err, net.ErrClosed) || stderrors.Is(err, websocket.ErrCloseSent)
}
