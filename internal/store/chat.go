package store

import (
	"sort"
	"sync"

	"github.com/stayline/bookingsync/internal/model"
)

// Conversation is the conversation-list row.
type Conversation struct {
	ID          string
	LastMessage model.LastMessage
	Typing      bool
}

type conversation struct {
	messages []model.ChatMessage // newest first
	ids      map[string]struct{}
	last     model.LastMessage
	typing   bool
}

// ChatStore holds messages, previews and typing flags per conversation.
type ChatStore struct {
	mu    sync.RWMutex
	convs map[string]*conversation
}

// NewChatStore creates an empty ChatStore.
func NewChatStore() *ChatStore {
	return &ChatStore{convs: make(map[string]*conversation)}
}

func (s *ChatStore) convLocked(id string) *conversation {
	c, ok := s.convs[id]
	if !ok {
		c = &conversation{ids: make(map[string]struct{})}
		s.convs[id] = c
	}
	return c
}

// PrependMessage adds m at the top of its conversation. A message id that
// is already present is ignored.
func (s *ChatStore) PrependMessage(m model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.convLocked(m.ConversationID)
	if m.ID != "" {
		if _, dup := c.ids[m.ID]; dup {
			return
		}
		c.ids[m.ID] = struct{}{}
	}
	c.messages = append([]model.ChatMessage{m}, c.messages...)
}

// UpdateLastMessage sets the conversation preview.
func (s *ChatStore) UpdateLastMessage(conversationID string, last model.LastMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.convLocked(conversationID).last = last
}

// SetTyping sets the typing flag of a conversation.
func (s *ChatStore) SetTyping(conversationID string, typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.convLocked(conversationID).typing = typing
}

// Messages returns a copy of the conversation's messages, newest first.
func (s *ChatStore) Messages(conversationID string) []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return nil
	}
	out := make([]model.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// IsTyping reports the typing flag of a conversation.
func (s *ChatStore) IsTyping(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[conversationID]
	return ok && c.typing
}

// Conversations returns all conversations, most recent message first.
func (s *ChatStore) Conversations() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Conversation, 0, len(s.convs))
	for id, c := range s.convs {
		out = append(out, Conversation{ID: id, LastMessage: c.last, Typing: c.typing})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].LastMessage.SentAt, out[j].LastMessage.SentAt
		if ti.Equal(tj) {
			return out[i].ID < out[j].ID
		}
		return ti.After(tj)
	})
	return out
}
