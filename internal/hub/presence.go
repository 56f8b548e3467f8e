package hub

import (
	"context"
	"time"

	"github.com/chatline-im/chatline/internal/metrics"
	"github.com/chatline-im/chatline/internal/models"
)

// handleLogin binds the asserted identity to the connection, upserts the
// user directory, and broadcasts a fresh presence snapshot.
//
// Directory write failures are logged and do not stop the registry
// update: live delivery keeps working even if persistence lags.
func (h *Hub) handleLogin(ctx context.Context, c cmdEvent) {
	payload, ok := decode[LoginPayload](h, c)
	if !ok {
		return
	}

	sctx, cancel := storeCtx(ctx)
	start := time.Now()
	_, err := h.db.UpsertUser(sctx, payload.Email, payload.Name, payload.Avatar)
	cancel()
	metrics.StoreLatency.WithLabelValues("upsert_user").Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Error().Err(err).Str("email", payload.Email).Msg("login: directory upsert failed")
	}

	if s := h.reg.bind(c.connID, payload.Email, payload.Name, payload.Avatar); s == nil {
		// Connection vanished between read and dispatch.
		return
	}

	h.mirrorPresence(ctx, payload.Email, true)
	metrics.Logins.Inc()

	h.logger.Info().Str("email", payload.Email).Str("conn", c.connID).Msg("user logged in")
	h.broadcastPresence()
}

// handleDisconnect deregisters the connection. If it was the identity's
// last live connection the user goes offline in the directory and a new
// snapshot is broadcast. Duplicate disconnects are a no-op.
func (h *Hub) handleDisconnect(ctx context.Context, connID string) {
	s, wasLast := h.reg.remove(connID)
	if s == nil {
		return
	}
	s.conn.Close()

	if !s.loggedIn() {
		h.logger.Debug().Str("conn", connID).Msg("anonymous connection closed")
		return
	}
	if !wasLast {
		h.logger.Debug().Str("email", s.email).Str("conn", connID).Msg("connection closed, user still online")
		return
	}

	sctx, cancel := storeCtx(ctx)
	start := time.Now()
	err := h.db.SetUserOffline(sctx, s.email)
	cancel()
	metrics.StoreLatency.WithLabelValues("set_offline").Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Error().Err(err).Str("email", s.email).Msg("disconnect: directory update failed")
	}

	h.mirrorPresence(ctx, s.email, false)

	h.logger.Info().Str("email", s.email).Str("conn", connID).Msg("user went offline")
	h.broadcastPresence()
}

// broadcastPresence sends the full online snapshot to every connection.
// The snapshot is registry-derived so it stays correct during a store
// outage; identity fields come from the login payload.
func (h *Hub) broadcastPresence() {
	now := time.Now().UTC()
	emails := h.reg.onlineEmails()

	snapshot := make([]models.User, 0, len(emails))
	for _, email := range emails {
		name, avatar, ok := h.reg.identity(email)
		if !ok {
			continue
		}
		snapshot = append(snapshot, models.User{
			Email:    email,
			Name:     name,
			Avatar:   avatar,
			Online:   true,
			LastSeen: now,
		})
	}

	h.reg.broadcast(EventOnlineUsers, snapshot)
}

// mirrorPresence updates the optional Redis presence key. Best effort.
func (h *Hub) mirrorPresence(ctx context.Context, email string, online bool) {
	if h.cache == nil {
		return
	}
	sctx, cancel := storeCtx(ctx)
	defer cancel()
	start := time.Now()
	err := h.cache.SetPresence(sctx, email, online)
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		h.logger.Warn().Err(err).Str("email", email).Msg("presence mirror update failed")
	}
}
