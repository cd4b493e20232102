package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
)

// Conn wraps one websocket connection with a buffered outbound queue.
// All pushes go through the queue so a single writer goroutine owns the
// socket; a full queue drops the event rather than blocking the sender.
type Conn struct {
	info ConnInfo

	sock      *websocket.Conn
	send      chan models.SocketEvent
	closeOnce sync.Once
	done      chan struct{}
}

// NewConn wraps an upgraded websocket connection. A nil socket is allowed
// in tests; queued events are then never drained.
func NewConn(sock *websocket.Conn, info ConnInfo) *Conn {
	return &Conn{
		info: info,
		sock: sock,
		send: make(chan models.SocketEvent, sendBufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the connection identifier assigned at handshake.
func (c *Conn) ID() string { return c.info.ConnID }

// UserID returns the authenticated user behind the connection.
func (c *Conn) UserID() int { return c.info.UserID }

// Info returns the handshake metadata.
func (c *Conn) Info() ConnInfo { return c.info }

// Send queues an event for delivery. Delivery is fire-and-forget: when the
// connection is closed or its queue is full the event is dropped and Send
// reports false.
func (c *Conn) Send(event models.SocketEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- event:
		return true
	default:
		observability.IncFanoutDropped(event.Event)
		return false
	}
}

// Close shuts the outbound queue and the underlying socket. Safe to call
// more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.sock != nil {
			_ = c.sock.Close()
		}
	})
}

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with pings. It exits when the queue closes or a write
// fails.
func (c *Conn) writePump(logger *zap.SugaredLogger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case event := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteJSON(event); err != nil {
				logger.Warnw("websocket write failed", "conn_id", c.info.ConnID, "user_id", c.info.UserID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
