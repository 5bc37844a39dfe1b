package codec

import (
	"encoding/json"
	"time"
)

// Kind is the envelope discriminant.
type Kind string

// Known message kinds.
const (
	KindConnected            Kind = "connected"
	KindBookingStatusUpdated Kind = "booking_status_updated"
	KindNotificationNew      Kind = "notification.new"
	KindChatMessage          Kind = "chat.message"
	KindChatTyping           Kind = "chat.typing"
)

// Message is one decoded frame. The concrete type is one of the variants
// below.
type Message interface {
	Kind() Kind
}

// Connected is the server's handshake acknowledgement.
type Connected struct{}

// BookingStatusUpdated reports a saga outcome for a booking.
type BookingStatusUpdated struct {
	BookingID string `json:"booking_id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// NotificationNew carries a user notification.
type NotificationNew struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Category  string         `json:"category"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ChatMessage is a new message in a conversation.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChatTyping signals that a participant is typing.
type ChatTyping struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// Unrecognized is a well-formed frame of a kind this client does not know.
type Unrecognized struct {
	Type    string
	Payload json.RawMessage
}

func (Connected) Kind() Kind            { return KindConnected }
func (BookingStatusUpdated) Kind() Kind { return KindBookingStatusUpdated }
func (NotificationNew) Kind() Kind      { return KindNotificationNew }
func (ChatMessage) Kind() Kind          { return KindChatMessage }
func (ChatTyping) Kind() Kind           { return KindChatTyping }
func (u Unrecognized) Kind() Kind       { return Kind(u.Type) }

// envelope is the outbound wire shape used by Encode.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}
