package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chatline-im/chatline/internal/metrics"
	"github.com/chatline-im/chatline/internal/models"
)

// handleTyping relays a typing signal to other connections. Fire and
// forget: no server-side state, no expiry timers. Receivers hide the
// indicator on their own schedule.
func (h *Hub) handleTyping(c cmdEvent, typing bool) {
	payload, ok := decode[TypingPayload](h, c)
	if !ok {
		return
	}
	metrics.TypingSignals.Inc()

	event := TypingEvent{From: payload.From, To: payload.To, Typing: typing}

	switch h.policy {
	case TargetedDelivery:
		h.reg.sendToEmails([]string{payload.To}, c.connID, EventUserTyping, event)
	default:
		h.reg.broadcastExcept(c.connID, EventUserTyping, event)
	}
}

// handleMessageRead flips a message's read flag and notifies the other
// connections. Idempotent: a second read of the same message neither
// errors nor re-notifies. Unknown IDs are dropped silently.
func (h *Hub) handleMessageRead(ctx context.Context, c cmdEvent) {
	var id string
	if err := json.Unmarshal(c.data, &id); err != nil || id == "" {
		metrics.MalformedEvents.WithLabelValues(EventMessageRead).Inc()
		h.logger.Warn().Str("conn", c.connID).Msg("message-read without id dropped")
		return
	}

	sctx, cancel := storeCtx(ctx)
	start := time.Now()
	changed, err := h.db.MarkMessageRead(sctx, id)
	cancel()
	metrics.StoreLatency.WithLabelValues("mark_read").Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Error().Err(err).Str("id", id).Msg("read-flag update failed")
		return
	}
	if !changed {
		return
	}
	metrics.MessagesRead.Inc()

	msg := h.loadMessage(ctx, id)
	h.clearUnread(ctx, msg)

	h.logger.Debug().Str("id", id).Msg("message read")
	switch {
	case h.policy == TargetedDelivery && msg != nil:
		emails := []string{msg.From}
		if msg.To != msg.From {
			emails = append(emails, msg.To)
		}
		h.reg.sendToEmails(emails, c.connID, EventMessageReadUpdate, id)
	default:
		h.reg.broadcastExcept(c.connID, EventMessageReadUpdate, id)
	}
}

// loadMessage fetches the message record for participant scoping and
// unread accounting. Best effort: nil on any failure.
func (h *Hub) loadMessage(ctx context.Context, msgID string) *models.Message {
	sctx, cancel := storeCtx(ctx)
	defer cancel()

	msg, err := h.db.GetMessage(sctx, msgID)
	if err != nil {
		h.logger.Warn().Err(err).Str("id", msgID).Msg("message lookup failed")
		return nil
	}
	return msg
}

// clearUnread resets the reader's unread counter for the message's
// sender.
func (h *Hub) clearUnread(ctx context.Context, msg *models.Message) {
	if h.cache == nil || msg == nil {
		return
	}

	sctx, cancel := storeCtx(ctx)
	defer cancel()
	start := time.Now()
	err := h.cache.ClearUnread(sctx, msg.To, msg.From)
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Warn().Err(err).Str("id", msg.ID).Msg("unread counter reset failed")
	}
}
