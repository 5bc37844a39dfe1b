package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stayline/bookingsync/internal/model"
)

// ErrMissingBookingID is returned when a 2xx response carries no booking id.
var ErrMissingBookingID = errors.New("response missing booking id")

// CreateBooking issues POST /bookings. It is never retried automatically:
// a retry could double-book, and a 409 must reach the user. The
// idempotency key lets the server collapse duplicate submissions of the
// same checkout.
func (c *Client) CreateBooking(ctx context.Context, req model.BookingRequest, idempotencyKey string) (*CreateResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/bookings", requestOptions{
		body:           req,
		idempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	var resp createBookingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("create booking: unmarshal response: %w", err)
	}

	id := resp.ID
	if id == "" {
		id = resp.BookingID
	}
	if id == "" {
		return nil, fmt.Errorf("create booking: %w", ErrMissingBookingID)
	}

	c.logger.Debug("booking created", "booking_id", id, "status", resp.Status)

	return &CreateResult{
		BookingID: id,
		Status:    resp.Status,
		PaymentID: resp.PaymentID,
	}, nil
}

// GetBooking fetches GET /bookings/{id} with retries.
func (c *Client) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, "/bookings/"+url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	var env bookingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("get booking: unmarshal response: %w", err)
	}
	if env.Booking != nil {
		return env.Booking, nil
	}

	var b model.Booking
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("get booking: unmarshal response: %w", err)
	}
	if b.ID == "" {
		return nil, fmt.Errorf("get booking: %w", ErrMissingBookingID)
	}
	return &b, nil
}
