// Package saga tracks the client side of the booking creation saga.
//
// A checkout moves idle -> submitting -> pending on a successful
// POST /bookings, then to confirmed or failed when the matching
// booking_status_updated event arrives over the realtime channel. A 409
// from the create call hands control to the ConflictController instead,
// and the Tracker returns to idle so the user can retry or change dates.
//
// The realtime confirmation is best-effort. Reconcile re-reads the booking
// over REST, which is the source of truth.
package saga
