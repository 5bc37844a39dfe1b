package router

import (
	"context"
	"log/slog"
	"sync"

	"github.com/stayline/bookingsync/internal/clock"
	"github.com/stayline/bookingsync/internal/codec"
	"github.com/stayline/bookingsync/internal/model"
)

// Router applies realtime messages to the application state sinks.
type Router interface {
	// Start begins routing messages from the input channel.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the router and cancels typing timers.
	Stop(ctx context.Context) error

	// Stats returns current router statistics.
	Stats() RouterStats
}

// Option configures a Router.
type Option func(*router)

// WithClock sets the clock used for typing expiry and notification timestamps.
func WithClock(c clock.Clock) Option {
	return func(r *router) {
		r.clock = c
	}
}

// router is the internal implementation.
type router struct {
	cfg    RouterConfig
	sinks  Sinks
	clock  clock.Clock
	logger *slog.Logger

	// Input from Connection Manager
	input <-chan codec.Message

	// Typing expiry events, delivered by timer callbacks
	expired chan string

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu              sync.RWMutex
	typing          map[string]clock.Timer
	received        int64
	routed          int64
	untracked       int64
	invalid         int64
	unknownMessages int64
}

// NewRouter creates a new Message Router.
func NewRouter(cfg RouterConfig, input <-chan codec.Message, sinks Sinks, logger *slog.Logger, opts ...Option) Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TypingWindow <= 0 {
		cfg.TypingWindow = DefaultRouterConfig().TypingWindow
	}

	r := &router{
		cfg:     cfg,
		sinks:   sinks,
		clock:   clock.Real(),
		logger:  logger,
		input:   input,
		expired: make(chan string),
		typing:  make(map[string]clock.Timer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins routing messages.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("message router started", "typing_window", r.cfg.TypingWindow)

	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping message router")

	if r.cancel != nil {
		r.cancel()
	}

	// Wait for goroutine to finish
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}

	r.mu.Lock()
	for conv, t := range r.typing {
		t.Stop()
		delete(r.typing, conv)
	}
	r.mu.Unlock()

	return nil
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RouterStats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		UntrackedStatus:  r.untracked,
		InvalidMessages:  r.invalid,
		UnknownMessages:  r.unknownMessages,
		TypingActive:     len(r.typing),
	}
}

// routeLoop is the main routing goroutine.
func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case msg, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.route(msg)
		case conv := <-r.expired:
			r.expireTyping(conv)
		}
	}
}

// route applies a single message. It is counted as received once applied.
func (r *router) route(msg codec.Message) {
	defer r.count(&r.received)

	switch m := msg.(type) {
	case codec.BookingStatusUpdated:
		r.routeBookingStatus(m)
	case codec.NotificationNew:
		r.routeNotification(m)
	case codec.ChatMessage:
		r.routeChatMessage(m)
	case codec.ChatTyping:
		r.routeTyping(m)
	case codec.Connected:
		r.logger.Debug("realtime handshake acknowledged")
	default:
		r.count(&r.unknownMessages)
		r.logger.Debug("ignoring unknown message", "kind", msg.Kind())
	}
}

func (r *router) routeBookingStatus(m codec.BookingStatusUpdated) {
	if r.sinks.Bookings == nil {
		return
	}
	tracked := r.sinks.Bookings.CurrentBookingID()
	if tracked == "" || m.BookingID != tracked {
		r.count(&r.untracked)
		r.logger.Debug("ignoring status for untracked booking",
			"booking_id", m.BookingID,
			"tracked", tracked,
		)
		return
	}

	r.sinks.Bookings.HandleStatusUpdate(m.BookingID, m.Status)
	r.count(&r.routed)
}

func (r *router) routeNotification(m codec.NotificationNew) {
	if r.sinks.Notifications == nil {
		return
	}
	n := model.Notification{
		ID:        m.ID,
		Title:     m.Title,
		Message:   m.Message,
		Category:  m.Category,
		Data:      m.Data,
		CreatedAt: m.CreatedAt,
	}
	n.ApplyDefaults(r.clock.Now())

	r.sinks.Notifications.AddNotification(n)
	r.count(&r.routed)
}

func (r *router) routeChatMessage(m codec.ChatMessage) {
	if r.sinks.Chat == nil {
		return
	}
	if m.ConversationID == "" {
		r.count(&r.invalid)
		r.logger.Debug("dropping chat message without conversation", "id", m.ID)
		return
	}
	cm := model.ChatMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if cm.CreatedAt.IsZero() {
		cm.CreatedAt = r.clock.Now()
	}

	r.sinks.Chat.PrependMessage(cm)
	r.sinks.Chat.UpdateLastMessage(cm.ConversationID, cm.Preview())
	r.count(&r.routed)
}

func (r *router) routeTyping(m codec.ChatTyping) {
	if r.sinks.Chat == nil {
		return
	}
	if m.ConversationID == "" {
		r.count(&r.invalid)
		return
	}
	conv := m.ConversationID

	r.sinks.Chat.SetTyping(conv, true)
	r.count(&r.routed)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.typing[conv]; ok {
		return
	}
	ctx := r.ctx
	r.typing[conv] = r.clock.AfterFunc(r.cfg.TypingWindow, func() {
		select {
		case r.expired <- conv:
		case <-ctx.Done():
		}
	})
}

func (r *router) expireTyping(conv string) {
	r.mu.Lock()
	delete(r.typing, conv)
	r.mu.Unlock()

	r.sinks.Chat.SetTyping(conv, false)
}

func (r *router) count(n *int64) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}
