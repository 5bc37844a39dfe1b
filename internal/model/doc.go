// Package model defines the domain types shared by the realtime layer,
// the REST client and the state sinks.
//
// Conventions:
//   - IDs are opaque server strings; locally generated IDs are UUIDv4
//   - Timestamps are time.Time in UTC
package model
