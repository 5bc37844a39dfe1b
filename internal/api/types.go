package api

import "github.com/stayline/bookingsync/internal/model"

// createBookingResponse from POST /bookings. Older servers return the id
// as booking_id.
type createBookingResponse struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	PaymentID string `json:"payment_id"`
}

// bookingEnvelope from GET /bookings/{id}. Some deployments return the
// booking bare instead of wrapped.
type bookingEnvelope struct {
	Booking *model.Booking `json:"booking"`
}

// CreateResult is the accepted-intent response of a booking creation.
type CreateResult struct {
	BookingID string
	Status    string
	PaymentID string
}
