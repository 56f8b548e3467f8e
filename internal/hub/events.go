package hub

import (
	"github.com/chatline-im/chatline/internal/models"
)

// Inbound event names (client to server).
const (
	EventLogin       = "login"
	EventSendMessage = "send-message"
	EventChatHistory = "get-chat-history"
	EventTyping      = "typing"
	EventStopTyping  = "stop-typing"
	EventMessageRead = "message-read"
)

// Outbound event names (server to client).
const (
	EventOnlineUsers       = "online-users"
	EventNewMessage        = "new-message"
	EventUserTyping        = "user-typing"
	EventMessageReadUpdate = "message-read-update"
	EventChatHistoryReply  = "chat-history"
)

// LoginPayload carries the asserted identity of a connecting client.
// The binding is trusted as-is; a real session layer would verify it.
type LoginPayload struct {
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"required"`
	Avatar string `json:"avatar"`
}

// SendMessagePayload is the send-message request body.
type SendMessagePayload struct {
	From  string `json:"from" validate:"required,email"`
	To    string `json:"to" validate:"required,email"`
	Text  string `json:"text"`
	Image string `json:"image"`
	Type  string `json:"type" validate:"omitempty,oneof=text image"`
}

// HistoryPayload requests the message log for a user pair.
type HistoryPayload struct {
	User1 string `json:"user1" validate:"required,email"`
	User2 string `json:"user2" validate:"required,email"`
}

// TypingPayload carries a typing or stop-typing signal.
type TypingPayload struct {
	From string `json:"from" validate:"required,email"`
	To   string `json:"to" validate:"required,email"`
}

// TypingEvent is the relayed user-typing payload. Receivers apply their
// own display expiry; the server keeps no typing state.
type TypingEvent struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Typing bool   `json:"typing"`
}

// EnrichedMessage is a persisted message augmented with the sender's
// current display identity at delivery time.
type EnrichedMessage struct {
	models.Message
	User *models.User `json:"user,omitempty"`
}
