package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chatline-im/chatline/internal/hub"
)

const (
	// writeWait is the deadline for a single outbound frame.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before the read
	// pump gives up on it.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxFrameSize accommodates inline base64 image payloads.
	maxFrameSize = 10 << 20

	// sendBuffer is the per-connection outbound queue. A full buffer
	// drops frames rather than blocking the hub.
	sendBuffer = 64
)

// envelope is the wire format in both directions:
// {"event": "<name>", "data": <payload>}.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// outbound is an event queued for the write pump.
type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client is one websocket connection. It implements hub.Conn: the read
// pump feeds inbound envelopes to the hub, the write pump drains the
// send queue.
type Client struct {
	id     string
	h      *hub.Hub
	conn   *websocket.Conn
	logger zerolog.Logger

	send chan outbound
	done chan struct{}
	once sync.Once
}

func newClient(id string, h *hub.Hub, conn *websocket.Conn, logger zerolog.Logger) *Client {
	return &Client{
		id:     id,
		h:      h,
		conn:   conn,
		logger: logger.With().Str("conn", id).Logger(),
		send:   make(chan outbound, sendBuffer),
		done:   make(chan struct{}),
	}
}

// ID returns the connection's unique identifier.
func (c *Client) ID() string { return c.id }

// Send queues an event for delivery. Never blocks: returns false when
// the client's buffer is full or the connection is closing.
func (c *Client) Send(event string, payload any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- outbound{Event: event, Data: payload}:
		return true
	default:
		return false
	}
}

// Close tears the connection down. Idempotent.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// start launches the read and write pumps.
func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

// readPump reads inbound envelopes and posts them to the hub in order.
// On any read error it deregisters the connection, which triggers the
// presence disconnect path.
func (c *Client) readPump() {
	defer func() {
		c.h.Deregister(c.id)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("connection read failed")
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.logger.Warn().Msg("unparseable frame dropped")
			continue
		}

		c.h.Dispatch(c.id, env.Event, env.Data)
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case out := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(out); err != nil {
				c.logger.Debug().Err(err).Msg("connection write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
