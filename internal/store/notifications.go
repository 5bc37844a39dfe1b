package store

import (
	"maps"
	"sync"

	"github.com/stayline/bookingsync/internal/model"
)

// DefaultNotificationLimit bounds the notification list.
const DefaultNotificationLimit = 200

// NotificationStore is the newest-first notification list.
type NotificationStore struct {
	mu    sync.RWMutex
	limit int
	items []model.Notification
	ids   map[string]struct{}
}

// NewNotificationStore creates a store that keeps at most limit entries.
// A limit <= 0 uses DefaultNotificationLimit.
func NewNotificationStore(limit int) *NotificationStore {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return &NotificationStore{
		limit: limit,
		ids:   make(map[string]struct{}),
	}
}

// AddNotification prepends n. A notification whose id is already listed
// is ignored.
func (s *NotificationStore) AddNotification(n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[n.ID]; dup {
		return
	}
	n.Data = maps.Clone(n.Data)

	s.items = append([]model.Notification{n}, s.items...)
	s.ids[n.ID] = struct{}{}

	for len(s.items) > s.limit {
		evicted := s.items[len(s.items)-1]
		s.items = s.items[:len(s.items)-1]
		delete(s.ids, evicted.ID)
	}
}

// MarkRead marks the notification with id as read.
func (s *NotificationStore) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			return true
		}
	}
	return false
}

// List returns a copy of the list, newest first.
func (s *NotificationStore) List() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Unread returns the number of unread notifications.
func (s *NotificationStore) Unread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, item := range s.items {
		if !item.Read {
			n++
		}
	}
	return n
}
