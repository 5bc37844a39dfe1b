package router

import (
	"time"

	"github.com/stayline/bookingsync/internal/model"
)

// RouterConfig holds configuration for the Message Router.
type RouterConfig struct {
	// TypingWindow is how long a typing indicator stays on after the first
	// chat.typing event. Further events inside the window do not extend it.
	TypingWindow time.Duration // Default: 3s
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		TypingWindow: 3 * time.Second,
	}
}

// BookingTracker is the booking saga as seen by the router.
type BookingTracker interface {
	// CurrentBookingID returns the tracked booking id, or "" if none.
	CurrentBookingID() string

	// HandleStatusUpdate applies a realtime status for bookingID.
	HandleStatusUpdate(bookingID, status string)
}

// NotificationSink receives new notifications.
type NotificationSink interface {
	AddNotification(n model.Notification)
}

// ChatSink receives chat updates.
type ChatSink interface {
	PrependMessage(m model.ChatMessage)
	UpdateLastMessage(conversationID string, last model.LastMessage)
	SetTyping(conversationID string, typing bool)
}

// Sinks are the state owners the router writes to.
type Sinks struct {
	Bookings      BookingTracker
	Notifications NotificationSink
	Chat          ChatSink
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64
	MessagesRouted   int64
	UntrackedStatus  int64 // booking updates for a booking that is not tracked
	InvalidMessages  int64 // known kinds missing the fields needed to route them
	UnknownMessages  int64
	TypingActive     int // conversations with a live typing timer
}
