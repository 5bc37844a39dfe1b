package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/stayline/bookingsync/internal/api"
	"github.com/stayline/bookingsync/internal/model"
)

// Status is the saga status of the current checkout.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusFailed     Status = "failed"
)

// Errors
var (
	ErrInvalidTransition = errors.New("invalid saga transition")
	ErrConflict          = errors.New("booking conflict")
	ErrAborted           = errors.New("checkout reset while submitting")
	ErrNoRequest         = errors.New("no booking request to resubmit")
)

// BookingAPI is the REST surface the saga needs.
type BookingAPI interface {
	CreateBooking(ctx context.Context, req model.BookingRequest, idempotencyKey string) (*api.CreateResult, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
}

// BookingSink mirrors the saga into the booking store.
type BookingSink interface {
	SetSagaStatus(s Status)
	SetCurrentBookingID(id string)
}

// ConflictHandler is notified when the create call returns 409.
type ConflictHandler interface {
	HandleConflict()
}

// Tracker owns the saga status and tracked booking id of one checkout.
type Tracker struct {
	api       BookingAPI
	sink      BookingSink
	conflicts ConflictHandler
	logger    *slog.Logger

	mu        sync.Mutex
	status    Status
	bookingID string
	lastReq   *model.BookingRequest
	gen       uint64 // bumped by Submit and Reset; a create result from an older gen is discarded

	// idemKey belongs to keyReq and is reused only while the last attempt
	// for that request got no server answer. It survives Reset.
	idemKey string
	keyReq  model.BookingRequest
}

// NewTracker creates an idle Tracker. sink and conflicts may be nil.
func NewTracker(bookings BookingAPI, sink BookingSink, conflicts ConflictHandler, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		api:       bookings,
		sink:      sink,
		conflicts: conflicts,
		logger:    logger,
		status:    StatusIdle,
	}
	t.mirrorLocked()
	return t
}

// Status returns the current saga status.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// CurrentBookingID returns the tracked booking id, or "" if none.
func (t *Tracker) CurrentBookingID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bookingID
}

// Submit creates the booking. It is only valid from idle.
//
// On success the saga is pending on the returned booking id. On 409 the
// saga goes back to idle, the conflict handler is notified and the
// returned error wraps ErrConflict. Any other failure leaves the saga failed.
func (t *Tracker) Submit(ctx context.Context, req model.BookingRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid booking request: %w", err)
	}

	t.mu.Lock()
	if t.status != StatusIdle {
		st := t.status
		t.mu.Unlock()
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, st)
	}
	if t.idemKey == "" || !sameRequest(t.keyReq, req) {
		t.idemKey = uuid.NewString()
		t.keyReq = req
	}
	r := req
	t.lastReq = &r
	key := t.idemKey
	t.gen++
	gen := t.gen
	t.status = StatusSubmitting
	t.bookingID = ""
	t.mirrorLocked()
	t.mu.Unlock()

	res, err := t.api.CreateBooking(ctx, req, key)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.gen != gen || t.status != StatusSubmitting {
		t.logger.Info("discarding create result after reset", "error", err)
		return ErrAborted
	}

	var apiErr *api.APIError
	if err == nil || errors.As(err, &apiErr) {
		// The server answered; a new attempt gets a new key.
		t.idemKey = ""
	}

	switch {
	case err == nil:
		t.bookingID = res.BookingID
		t.status = StatusPending
		if s, ok := terminal(res.Status); ok {
			t.status = s
		}
		t.mirrorLocked()
		t.logger.Info("booking submitted", "booking_id", res.BookingID, "status", t.status)
		return nil

	case api.IsConflict(err):
		t.status = StatusIdle
		t.mirrorLocked()
		t.logger.Info("booking conflict", "error", err)
		if t.conflicts != nil {
			t.conflicts.HandleConflict()
		}
		return fmt.Errorf("%w: %w", ErrConflict, err)

	default:
		t.status = StatusFailed
		t.mirrorLocked()
		t.logger.Warn("booking submit failed", "error", err)
		return fmt.Errorf("create booking: %w", err)
	}
}

// Resubmit submits the last request again. The saga must be idle.
func (t *Tracker) Resubmit(ctx context.Context) error {
	t.mu.Lock()
	last := t.lastReq
	t.mu.Unlock()

	if last == nil {
		return ErrNoRequest
	}
	return t.Submit(ctx, *last)
}

// HandleStatusUpdate applies a realtime status. It only acts while pending
// and only for the tracked booking; non-terminal statuses are ignored.
func (t *Tracker) HandleStatusUpdate(bookingID, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusPending || bookingID == "" || bookingID != t.bookingID {
		return
	}

	s, ok := terminal(status)
	if !ok {
		t.logger.Debug("ignoring non-terminal booking status", "booking_id", bookingID, "status", status)
		return
	}

	t.status = s
	t.mirrorLocked()
	t.logger.Info("booking saga finished", "booking_id", bookingID, "status", s)
}

// Reconcile re-reads the tracked booking over REST while pending and
// applies its status.
func (t *Tracker) Reconcile(ctx context.Context) error {
	t.mu.Lock()
	if t.status != StatusPending {
		t.mu.Unlock()
		return nil
	}
	id := t.bookingID
	t.mu.Unlock()

	b, err := t.api.GetBooking(ctx, id)
	if err != nil {
		return fmt.Errorf("reconcile booking %s: %w", id, err)
	}

	t.HandleStatusUpdate(id, b.Status)
	return nil
}

// Reset returns to idle and forgets the tracked booking.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	t.status = StatusIdle
	t.bookingID = ""
	t.lastReq = nil
	t.mirrorLocked()
}

func (t *Tracker) mirrorLocked() {
	if t.sink == nil {
		return
	}
	t.sink.SetSagaStatus(t.status)
	t.sink.SetCurrentBookingID(t.bookingID)
}

// terminal maps a server booking status to a final saga status.
func terminal(status string) (Status, bool) {
	switch strings.ToLower(status) {
	case "confirmed":
		return StatusConfirmed, true
	case "failed", "cancelled", "canceled", "rejected", "expired", "payment_failed":
		return StatusFailed, true
	}
	return "", false
}

func sameRequest(a, b model.BookingRequest) bool {
	return a.PropertyID == b.PropertyID &&
		a.RoomID == b.RoomID &&
		a.CheckIn.Equal(b.CheckIn) &&
		a.CheckOut.Equal(b.CheckOut) &&
		a.Guests == b.Guests &&
		a.Notes == b.Notes
}
