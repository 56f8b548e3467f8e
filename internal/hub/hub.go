package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/chatline-im/chatline/internal/metrics"
	"github.com/chatline-im/chatline/internal/store"
)

// storeTimeout bounds every durable-store call made from the dispatch
// goroutine so a hung store cannot wedge the event loop.
const storeTimeout = 5 * time.Second

// commandBuffer is the dispatch mailbox depth. Posts block once it is
// full, which pushes backpressure onto the transport read pumps.
const commandBuffer = 256

// DeliveryPolicy selects which connections receive message and typing
// events.
type DeliveryPolicy int

const (
	// BroadcastAll delivers every message and typing signal to all live
	// connections and leaves filtering to the clients. This matches the
	// legacy wire behavior and is the default.
	BroadcastAll DeliveryPolicy = iota

	// TargetedDelivery scopes message and typing events to the two
	// participants' connections.
	TargetedDelivery
)

// command is a unit of work for the dispatch goroutine.
type command interface{ isCommand() }

type cmdRegister struct{ conn Conn }

type cmdDeregister struct{ connID string }

type cmdEvent struct {
	connID string
	event  string
	data   json.RawMessage
}

type cmdQueryOnline struct{ reply chan []string }

func (cmdRegister) isCommand()    {}
func (cmdDeregister) isCommand()  {}
func (cmdEvent) isCommand()       {}
func (cmdQueryOnline) isCommand() {}

// Hub is the presence-and-message-delivery engine. All registry and
// directory mutation happens on its single dispatch goroutine; the
// exported methods only post commands to the mailbox.
type Hub struct {
	db       store.DataStore
	cache    *store.RedisStore // optional, may be nil
	logger   zerolog.Logger
	validate *validator.Validate
	policy   DeliveryPolicy

	commands chan command
	done     chan struct{}
	reg      *registry
}

// Option configures a Hub.
type Option func(*Hub)

// WithDeliveryPolicy overrides the default BroadcastAll policy.
func WithDeliveryPolicy(p DeliveryPolicy) Option {
	return func(h *Hub) { h.policy = p }
}

// WithCache enables the Redis presence mirror and unread counters.
func WithCache(cache *store.RedisStore) Option {
	return func(h *Hub) { h.cache = cache }
}

// New creates a Hub. Call Run to start dispatching.
func New(db store.DataStore, logger zerolog.Logger, opts ...Option) *Hub {
	h := &Hub{
		db:       db,
		logger:   logger.With().Str("component", "hub").Logger(),
		validate: validator.New(),
		policy:   BroadcastAll,
		commands: make(chan command, commandBuffer),
		done:     make(chan struct{}),
		reg:      newRegistry(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run drains the mailbox until ctx is cancelled. It owns all hub state;
// run it exactly once.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info().Msg("hub dispatch started")
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.commands:
			h.handle(ctx, c)
		}
	}
}

func (h *Hub) handle(ctx context.Context, c command) {
	switch c := c.(type) {
	case cmdRegister:
		h.reg.add(c.conn)
		h.logger.Debug().Str("conn", c.conn.ID()).Msg("connection registered")
	case cmdDeregister:
		h.handleDisconnect(ctx, c.connID)
	case cmdEvent:
		h.handleEvent(ctx, c)
	case cmdQueryOnline:
		c.reply <- h.reg.onlineEmails()
	}
}

func (h *Hub) handleEvent(ctx context.Context, c cmdEvent) {
	switch c.event {
	case EventLogin:
		h.handleLogin(ctx, c)
	case EventSendMessage:
		h.handleSendMessage(ctx, c)
	case EventChatHistory:
		h.handleHistory(ctx, c)
	case EventTyping:
		h.handleTyping(c, true)
	case EventStopTyping:
		h.handleTyping(c, false)
	case EventMessageRead:
		h.handleMessageRead(ctx, c)
	default:
		metrics.MalformedEvents.WithLabelValues("unknown").Inc()
		h.logger.Warn().Str("event", c.event).Str("conn", c.connID).Msg("unknown event dropped")
	}
}

func (h *Hub) shutdown() {
	// Unblock posters first: read pumps deregister on their way out and
	// nothing drains the mailbox once the loop stops.
	close(h.done)
	for _, s := range h.reg.sessions {
		s.conn.Close()
	}
	h.logger.Info().Msg("hub dispatch stopped")
}

// post delivers a command to the dispatch loop, or drops it once the
// hub has stopped.
func (h *Hub) post(c command) {
	select {
	case h.commands <- c:
	case <-h.done:
	}
}

// Register posts a new live connection to the hub.
func (h *Hub) Register(conn Conn) {
	h.post(cmdRegister{conn: conn})
}

// Deregister posts a disconnect. Safe to call more than once for the
// same connection, and after the hub has stopped.
func (h *Hub) Deregister(connID string) {
	h.post(cmdDeregister{connID: connID})
}

// Dispatch posts an inbound client event. Events from one connection
// are processed in the order posted.
func (h *Hub) Dispatch(connID, event string, data json.RawMessage) {
	h.post(cmdEvent{connID: connID, event: event, data: data})
}

// OnlineEmails reports the identities currently holding at least one
// live connection.
func (h *Hub) OnlineEmails(ctx context.Context) []string {
	reply := make(chan []string, 1)
	select {
	case h.commands <- cmdQueryOnline{reply: reply}:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return nil
	}
	select {
	case emails := <-reply:
		return emails
	case <-h.done:
		return nil
	case <-ctx.Done():
		return nil
	}
}

// decode unmarshals and validates an inbound payload. Malformed events
// are counted, logged, and dropped; no error goes back to the client.
func decode[T any](h *Hub, c cmdEvent) (T, bool) {
	var payload T
	if err := json.Unmarshal(c.data, &payload); err != nil {
		metrics.MalformedEvents.WithLabelValues(c.event).Inc()
		h.logger.Warn().Err(err).Str("event", c.event).Str("conn", c.connID).Msg("malformed payload dropped")
		return payload, false
	}
	if err := h.validate.Struct(payload); err != nil {
		metrics.MalformedEvents.WithLabelValues(c.event).Inc()
		h.logger.Warn().Err(err).Str("event", c.event).Str("conn", c.connID).Msg("invalid payload dropped")
		return payload, false
	}
	return payload, true
}

// storeCtx derives the bounded context used for durable-store calls.
func storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}
