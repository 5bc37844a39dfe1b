// Package api is the REST collaborator of the realtime layer.
//
// Endpoints used:
//   - POST /bookings        create a booking (saga start)
//   - GET  /bookings/{id}   read the authoritative booking status
//
// A 409 from POST /bookings means the selected inventory was taken by
// someone else; callers detect it with IsConflict.
package api
