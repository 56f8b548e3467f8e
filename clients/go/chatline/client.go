// Package chatline provides a Go client for the chatline real-time
// chat server.
package chatline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// User mirrors the server's identity record.
type User struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar,omitempty"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

// Message mirrors the server's persisted message, optionally enriched
// with the sender's identity.
type Message struct {
	ID        string    `json:"_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text,omitempty"`
	Image     string    `json:"image,omitempty"`
	Kind      string    `json:"type"`
	CreatedAt time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	User      *User     `json:"user,omitempty"`
}

// TypingEvent is a relayed typing indicator.
type TypingEvent struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Typing bool   `json:"typing"`
}

// Handlers holds the callbacks Listen dispatches to. Nil callbacks are
// skipped.
type Handlers struct {
	OnOnlineUsers func([]User)
	OnMessage     func(Message)
	OnTyping      func(TypingEvent)
	OnMessageRead func(messageID string)
	OnHistory     func([]Message)
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is a chatline websocket client. Safe for concurrent sends;
// Listen must run on a single goroutine.
type Client struct {
	BaseURL string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient creates a client for the given server base URL
// (e.g. "http://localhost:5000").
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	return &Client{BaseURL: baseURL}
}

// Connect dials the server's websocket endpoint.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), http.Header{})
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// Close closes the websocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) emit(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(map[string]any{"event": event, "data": data})
}

// Login asserts the client's identity and brings it online.
func (c *Client) Login(email, name, avatar string) error {
	return c.emit("login", map[string]string{"email": email, "name": name, "avatar": avatar})
}

// SendText sends a text message.
func (c *Client) SendText(from, to, text string) error {
	return c.emit("send-message", map[string]string{
		"from": from, "to": to, "text": text, "type": "text",
	})
}

// SendImage sends an image message. The ref is opaque to the server.
func (c *Client) SendImage(from, to, imageRef string) error {
	return c.emit("send-message", map[string]string{
		"from": from, "to": to, "image": imageRef, "type": "image",
	})
}

// RequestHistory asks for the message log of a user pair; the reply
// arrives through Handlers.OnHistory.
func (c *Client) RequestHistory(user1, user2 string) error {
	return c.emit("get-chat-history", map[string]string{"user1": user1, "user2": user2})
}

// Typing signals that the user started or stopped typing.
func (c *Client) Typing(from, to string, typing bool) error {
	event := "typing"
	if !typing {
		event = "stop-typing"
	}
	return c.emit(event, map[string]string{"from": from, "to": to})
}

// MarkRead flips a message's read flag.
func (c *Client) MarkRead(messageID string) error {
	return c.emit("message-read", messageID)
}

// Listen reads server events and dispatches them to the handlers until
// the connection closes or ctx is cancelled.
func (c *Client) Listen(ctx context.Context, h Handlers) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		switch env.Event {
		case "online-users":
			if h.OnOnlineUsers == nil {
				continue
			}
			var users []User
			if err := json.Unmarshal(env.Data, &users); err == nil {
				h.OnOnlineUsers(users)
			}
		case "new-message":
			if h.OnMessage == nil {
				continue
			}
			var msg Message
			if err := json.Unmarshal(env.Data, &msg); err == nil {
				h.OnMessage(msg)
			}
		case "user-typing":
			if h.OnTyping == nil {
				continue
			}
			var ev TypingEvent
			if err := json.Unmarshal(env.Data, &ev); err == nil {
				h.OnTyping(ev)
			}
		case "message-read-update":
			if h.OnMessageRead == nil {
				continue
			}
			var id string
			if err := json.Unmarshal(env.Data, &id); err == nil {
				h.OnMessageRead(id)
			}
		case "chat-history":
			if h.OnHistory == nil {
				continue
			}
			var msgs []Message
			if err := json.Unmarshal(env.Data, &msgs); err == nil {
				h.OnHistory(msgs)
			}
		}
	}
}
