package hub

import (
	"context"
	"time"

	"github.com/chatline-im/chatline/internal/metrics"
	"github.com/chatline-im/chatline/internal/models"
)

// handleSendMessage persists the message, enriches it with the sender's
// display identity, and fans it out per the delivery policy. The sender
// receives its own message back with the store-assigned ID so optimistic
// UI state can reconcile.
//
// If the store write fails the whole operation is aborted: nothing is
// broadcast, matching the legacy behavior of silently dropping the send.
func (h *Hub) handleSendMessage(ctx context.Context, c cmdEvent) {
	payload, ok := decode[SendMessagePayload](h, c)
	if !ok {
		return
	}

	kind := payload.Type
	if kind == "" {
		if payload.Image != "" {
			kind = models.KindImage
		} else {
			kind = models.KindText
		}
	}

	msg := &models.Message{
		From:  payload.From,
		To:    payload.To,
		Text:  payload.Text,
		Image: payload.Image,
		Kind:  kind,
	}

	sctx, cancel := storeCtx(ctx)
	start := time.Now()
	err := h.db.SaveMessage(sctx, msg)
	cancel()
	metrics.StoreLatency.WithLabelValues("save_message").Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Error().Err(err).Str("from", msg.From).Str("to", msg.To).Msg("message persist failed, send dropped")
		return
	}
	metrics.MessagesSent.WithLabelValues(msg.Kind).Inc()

	h.bumpUnread(ctx, msg.To, msg.From)

	enriched := EnrichedMessage{
		Message: *msg,
		User:    h.resolveSender(ctx, msg.From),
	}

	h.logger.Debug().Str("id", msg.ID).Str("from", msg.From).Str("to", msg.To).Str("kind", msg.Kind).Msg("message sent")
	h.deliver(c.connID, msg.From, msg.To, EventNewMessage, enriched)
}

// handleHistory replies to the requesting connection with the ordered
// message log for a user pair. Read-only.
func (h *Hub) handleHistory(ctx context.Context, c cmdEvent) {
	payload, ok := decode[HistoryPayload](h, c)
	if !ok {
		return
	}

	sctx, cancel := storeCtx(ctx)
	start := time.Now()
	messages, err := h.db.GetConversation(sctx, payload.User1, payload.User2)
	cancel()
	metrics.StoreLatency.WithLabelValues("get_conversation").Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Error().Err(err).Str("user1", payload.User1).Str("user2", payload.User2).Msg("history query failed")
		return
	}

	h.reg.unicast(c.connID, EventChatHistoryReply, messages)
}

// resolveSender loads the sender's directory record for enrichment,
// falling back to the identity captured at login if the store errors or
// the record is missing.
func (h *Hub) resolveSender(ctx context.Context, email string) *models.User {
	sctx, cancel := storeCtx(ctx)
	start := time.Now()
	user, err := h.db.GetUser(sctx, email)
	cancel()
	metrics.StoreLatency.WithLabelValues("get_user").Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Warn().Err(err).Str("email", email).Msg("sender lookup failed, using login identity")
	}
	if user != nil {
		return user
	}

	name, avatar, ok := h.reg.identity(email)
	if !ok {
		return nil
	}
	return &models.User{
		Email:  email,
		Name:   name,
		Avatar: avatar,
		Online: true,
	}
}

// deliver fans an event out according to the delivery policy.
// BroadcastAll sends to every live connection; TargetedDelivery scopes
// the event to the participants' connections plus the originator.
func (h *Hub) deliver(originID, from, to, event string, payload any) {
	switch h.policy {
	case TargetedDelivery:
		emails := []string{from}
		if to != from {
			emails = append(emails, to)
		}
		// Include the originating connection explicitly: it may not have
		// logged in as either participant.
		h.reg.unicast(originID, event, payload)
		h.reg.sendToEmails(emails, originID, event, payload)
	default:
		h.reg.broadcast(event, payload)
	}
}

// bumpUnread increments the recipient's unread counter. Best effort.
func (h *Hub) bumpUnread(ctx context.Context, to, from string) {
	if h.cache == nil {
		return
	}
	sctx, cancel := storeCtx(ctx)
	defer cancel()
	start := time.Now()
	err := h.cache.IncrUnread(sctx, to, from)
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Warn().Err(err).Str("to", to).Msg("unread counter update failed")
	}
}
