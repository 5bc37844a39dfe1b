// Package router implements the Message Router component.
//
// The router consumes decoded realtime messages from the Connection Manager
// on a single goroutine and applies each one to the state sink that owns it:
//   - booking_status_updated goes to the booking saga, only for the tracked booking
//   - notification.new is normalised and added to the notification store
//   - chat.message is prepended to its conversation and updates the preview
//   - chat.typing sets the typing flag, cleared after the typing window
//
// Because typing expiry is funnelled back through the routing goroutine,
// every sink has exactly one writer.
package router
