// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns at most one realtime WebSocket connection per session
//   - Reads the session credential before every connect and passes it as ?token=
//   - Reconnects after unexpected drops with exponential backoff
//   - Decodes frames and delivers them best-effort to a single subscriber
package connection
