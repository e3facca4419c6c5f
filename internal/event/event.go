package event

import "time"

// Inbound frame types accepted from clients.
const (
	TypeMessage       = "message"
	TypeTyping        = "typing"
	TypeStoppedTyping = "stopped_typing"
	TypePresence      = "presence"
	TypeReadReceipt   = "read_receipt"
)

// Outbound frame types pushed to clients.
const (
	TypeTypingIndicator = "typing_indicator"
	TypePresenceUpdate  = "presence_update"
	TypeMessageRead     = "message_read"
	TypeUserJoined      = "user_joined"
	TypeUserLeft        = "user_left"
	TypeError           = "error"
)

// Frame is a single JSON frame on the socket, both directions.
// Type is always set; the remaining fields depend on it. Outbound
// frames always carry a server-assigned Timestamp.
type Frame struct {
	Type      string    `json:"type"`
	RoomID    string    `json:"room_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	Status    string    `json:"status,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Typing    []string  `json:"typing,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	Error     *Error    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Message is the payload of an outbound "message" frame, echoed to
// every connection in the room after the message has been stored.
type Message struct {
	MessageID string    `json:"message_id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	StoredAt  time.Time `json:"stored_at"`
}

// Error is the payload of an outbound "error" frame. The connection
// stays open; the frame only reports why an inbound frame was refused.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried in error frames.
const (
	CodeEmptyMessage = "empty_message"
	CodeStoreFailed  = "message_not_stored"
)
