package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatline-im/chatline/internal/config"
	"github.com/chatline-im/chatline/internal/hub"
	"github.com/chatline-im/chatline/internal/models"
	"github.com/chatline-im/chatline/internal/store"
)

const readWait = 2 * time.Second

type wireEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// newTestServer assembles the real router over SQLite and a running hub,
// exactly as cmd/server does.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.New(db, zerolog.Nop())
	go h.Run(ctx)

	cfg := &config.Config{Port: "0", Env: "test"}
	srv := httptest.NewServer(NewRouter(zerolog.Nop(), cfg, db, nil, h))
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "websocket upgrade through the router failed")
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

// readUntil discards frames until the named event arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(readWait)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for time.Now().Before(deadline) {
		var env wireEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("reading for %q: %v", event, err)
		}
		if env.Event == event {
			return env.Data
		}
	}
	t.Fatalf("no %q event within %v", event, readWait)
	return nil
}

// The upgrade must survive the full middleware chain; a wrapper that
// hides the hijackable writer breaks every websocket client.
func TestRouterUpgradesWebsocket(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv)

	emit(t, conn, "login", map[string]string{"email": "a@x.com", "name": "Alice"})
	data := readUntil(t, conn, "online-users")

	var users []models.User
	require.NoError(t, json.Unmarshal(data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "a@x.com", users[0].Email)
}

func TestEndToEndLoginSendRead(t *testing.T) {
	srv := newTestServer(t)
	alice := dialWS(t, srv)
	bob := dialWS(t, srv)

	emit(t, alice, "login", map[string]string{"email": "a@x.com", "name": "Alice"})
	readUntil(t, alice, "online-users")
	emit(t, bob, "login", map[string]string{"email": "b@x.com", "name": "Bob"})

	// Both see a snapshot with both users once Bob is in
	for _, conn := range []*websocket.Conn{alice, bob} {
		for {
			data := readUntil(t, conn, "online-users")
			var users []models.User
			require.NoError(t, json.Unmarshal(data, &users))
			if len(users) == 2 {
				break
			}
		}
	}

	emit(t, alice, "send-message", map[string]string{
		"from": "a@x.com", "to": "b@x.com", "text": "hello over the wire",
	})

	var got models.Message
	require.NoError(t, json.Unmarshal(readUntil(t, bob, "new-message"), &got))
	assert.Equal(t, "hello over the wire", got.Text)
	assert.Equal(t, models.KindText, got.Kind)
	assert.False(t, got.Read)
	require.NotEmpty(t, got.ID, "store must assign an id before delivery")

	// Sender reconciles against the same persisted message
	var echo models.Message
	require.NoError(t, json.Unmarshal(readUntil(t, alice, "new-message"), &echo))
	assert.Equal(t, got.ID, echo.ID)

	emit(t, bob, "message-read", got.ID)
	var readID string
	require.NoError(t, json.Unmarshal(readUntil(t, alice, "message-read-update"), &readID))
	assert.Equal(t, got.ID, readID)

	// The log survives a fresh history request
	emit(t, bob, "get-chat-history", map[string]string{"user1": "b@x.com", "user2": "a@x.com"})
	var history []models.Message
	require.NoError(t, json.Unmarshal(readUntil(t, bob, "chat-history"), &history))
	require.Len(t, history, 1)
	assert.True(t, history[0].Read)
}
