package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hacker-ring/weavespace-relay/internal/metrics"
	"github.com/hacker-ring/weavespace-relay/internal/presence"
	"github.com/hacker-ring/weavespace-relay/internal/ratelimit"
	"github.com/hacker-ring/weavespace-relay/internal/wire"
)

const wsWriteWait = 1 * time.Second

// Client is one WebSocket connection. The read pump feeds events into the
// hub; the write pump drains the send queue. The hub never writes to the
// socket directly.
type Client struct {
	id       presence.ConnID
	username string

	conn    *websocket.Conn
	send    chan wire.Frame
	limiter *ratelimit.TokenBucket

	hub *Hub
	log *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(h *Hub, conn *websocket.Conn, username string) *Client {
	id := presence.NewConnID()
	// MaxMessagesPerSecond == 0 disables rate limiting (nil limiter).
	var limiter *ratelimit.TokenBucket
	if h.cfg.MaxMessagesPerSecond > 0 {
		limiter = ratelimit.NewTokenBucket(
			ratelimit.RealClock{},
			int64(h.cfg.MaxMessagesPerSecond),
			int64(h.cfg.MaxMessagesPerSecond),
		)
	}
	return &Client{
		id:       id,
		username: username,
		conn:     conn,
		send:     make(chan wire.Frame, h.cfg.SendQueueLen),
		limiter:  limiter,
		hub:      h,
		log:      h.log.With("conn_id", id),
		done:     make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking. A full queue
// drops the frame: a slow recipient must never stall the hub, which calls
// this while holding its mutex.
func (c *Client) enqueue(frame wire.Frame) {
	if frame == nil {
		return
	}
	select {
	case c.send <- frame:
	case <-c.done:
	default:
		metrics.DroppedFramesTotal.Inc()
		c.log.Warn("send queue full, dropping frame")
	}
}

// writeClose sends a close control frame. WriteControl is safe to call
// concurrently with the write pump.
func (c *Client) writeClose(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}

// close releases the connection exactly once. Safe to call from either
// pump or from hub teardown.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump consumes frames until the peer goes away, then triggers
// disconnect teardown. Runs on the HTTP handler goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.WSIdleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.WSIdleTimeout))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("read error", "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.WSIdleTimeout))

		if c.limiter != nil && !c.limiter.Allow(1) {
			metrics.DroppedEventsTotal.WithLabelValues(metrics.DropReasonRateLimited).Inc()
			c.log.Warn("rate limit exceeded, closing connection")
			c.writeClose(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}

		ev, err := wire.ParseInbound(msg)
		if err != nil {
			// Malformed input drops the frame, never the connection.
			metrics.DroppedEventsTotal.WithLabelValues(metrics.DropReasonMalformed).Inc()
			c.log.Warn("dropping malformed event", "error", err)
			continue
		}

		c.hub.Handle(c, ev)
	}
}

// writePump owns all socket writes: queued frames plus keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
