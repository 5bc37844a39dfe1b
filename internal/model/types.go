package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultNotificationCategory is used when the server omits a category.
const DefaultNotificationCategory = "info"

// PreviewLength is the maximum rune length of a conversation preview.
const PreviewLength = 80

// -----------------------------------------------------------------------------
// Bookings
// -----------------------------------------------------------------------------

// BookingRequest is the body of POST /bookings.
type BookingRequest struct {
	PropertyID string    `json:"property_id"`
	RoomID     string    `json:"room_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Guests     int       `json:"guests"`
	Notes      string    `json:"notes,omitempty"`
}

// Validate checks the fields the server would reject outright.
func (r BookingRequest) Validate() error {
	if r.RoomID == "" {
		return errors.New("room_id is required")
	}
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return errors.New("check_in and check_out are required")
	}
	if !r.CheckOut.After(r.CheckIn) {
		return errors.New("check_out must be after check_in")
	}
	if r.Guests < 1 {
		return errors.New("guests must be >= 1")
	}
	return nil
}

// Booking is the server's view of a booking.
type Booking struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	PaymentID string    `json:"payment_id,omitempty"`
	RoomID    string    `json:"room_id,omitempty"`
	CheckIn   time.Time `json:"check_in,omitempty"`
	CheckOut  time.Time `json:"check_out,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// -----------------------------------------------------------------------------
// Notifications
// -----------------------------------------------------------------------------

// Notification is an entry in the notification list.
type Notification struct {
	ID        string
	Title     string
	Message   string
	Category  string
	Data      map[string]any
	CreatedAt time.Time
	Read      bool
}

// ApplyDefaults fills the fields the server may omit.
func (n *Notification) ApplyDefaults(now time.Time) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Category == "" {
		n.Category = DefaultNotificationCategory
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
}

// -----------------------------------------------------------------------------
// Chat
// -----------------------------------------------------------------------------

// ChatMessage is a message inside a conversation.
type ChatMessage struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	CreatedAt      time.Time
}

// LastMessage is the conversation-list preview of the newest message.
type LastMessage struct {
	MessageID string
	SenderID  string
	Preview   string
	SentAt    time.Time
}

// Preview returns the conversation-list preview for m.
func (m ChatMessage) Preview() LastMessage {
	return LastMessage{
		MessageID: m.ID,
		SenderID:  m.SenderID,
		Preview:   truncate(strings.TrimSpace(m.Content), PreviewLength),
		SentAt:    m.CreatedAt,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
