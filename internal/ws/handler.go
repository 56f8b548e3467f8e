package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chatline-im/chatline/internal/hub"
)

// Handler upgrades HTTP requests to websocket connections and hands
// them to the hub.
type Handler struct {
	h        *hub.Hub
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket upgrade handler. An empty origin
// list allows all origins (development).
func NewHandler(h *hub.Hub, logger zerolog.Logger, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &Handler{
		h:      h,
		logger: logger.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // non-browser client
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// ServeHTTP upgrades the connection and registers it with the hub.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := newClient(uuid.NewString(), h.h, conn, h.logger)
	h.h.Register(client)
	client.start()

	h.logger.Debug().Str("conn", client.ID()).Str("remote", r.RemoteAddr).Msg("connection established")
}
