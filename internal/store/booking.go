package store

import (
	"sync"

	"github.com/stayline/bookingsync/internal/saga"
)

// BookingState is the checkout state shown by the host.
type BookingState struct {
	SagaStatus       saga.Status
	CurrentBookingID string
}

// BookingStore holds the saga status of the current checkout.
type BookingStore struct {
	mu    sync.RWMutex
	state BookingState
}

// NewBookingStore creates an idle BookingStore.
func NewBookingStore() *BookingStore {
	return &BookingStore{state: BookingState{SagaStatus: saga.StatusIdle}}
}

// SetSagaStatus records the saga status.
func (s *BookingStore) SetSagaStatus(st saga.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SagaStatus = st
}

// SetCurrentBookingID records the tracked booking id.
func (s *BookingStore) SetCurrentBookingID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentBookingID = id
}

// Snapshot returns the current state.
func (s *BookingStore) Snapshot() BookingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
