// ABOUTME: Per-connection WebSocket lifecycle: reader loop, writer loop,
// ABOUTME: room event forwarding and disconnect cleanup

package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389/parley-gateway/internal/pipeline"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 45 * time.Second
	sendBuffer   = 64
)

// connection is one authenticated WebSocket client.
type connection struct {
	id     string
	userID string
	ws     *websocket.Conn
	send   chan outboundEvent
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(id, userID string, ws *websocket.Conn, logger *slog.Logger) *connection {
	return &connection{
		id:     id,
		userID: userID,
		ws:     ws,
		send:   make(chan outboundEvent, sendBuffer),
		logger: logger.With("conn_id", id, "user_id", userID),
		done:   make(chan struct{}),
	}
}

// enqueue hands an event to the writer. Returns false when the connection is
// closing or the writer is too far behind; either way the event is lost to
// this connection only.
func (c *connection) enqueue(ev outboundEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn("dropping event for slow connection", "event_type", ev.Type)
		return false
	}
}

// close shuts the connection down once. The writer loop exits via done; the
// reader loop exits when the socket closes underneath it.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// writeLoop is the only goroutine that writes to the socket. It drains the
// send channel and keeps the connection alive with pings.
func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(ev); err != nil {
				c.logger.Debug("write failed, closing connection", "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// forwardRoomEvents copies a room subscription channel into the send queue.
// It exits when the subscription closes, which happens on leave, move, or
// disconnect. Pipeline results arrive as their own type and are wrapped in
// a message_result event here.
func (c *connection) forwardRoomEvents(events <-chan any) {
	for ev := range events {
		switch e := ev.(type) {
		case outboundEvent:
			c.enqueue(e)
		case *pipeline.MessageResult:
			c.enqueue(outboundEvent{Type: eventMessageResult, RoomID: e.RoomID, Result: e})
		default:
			c.logger.Warn("unexpected room event type", "event", ev)
		}
	}
}

// readLoop consumes client frames until the socket closes and dispatches
// each one in arrival order.
func (c *connection) readLoop(ctx context.Context, g *Gateway) {
	defer func() {
		g.disconnect(ctx, c)
		c.close()
	}()

	c.ws.SetReadLimit(g.maxFrameBytes)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame inboundFrame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("connection closed unexpectedly", "error", err)
			}
			return
		}
		g.dispatch(ctx, c, frame)
	}
}
