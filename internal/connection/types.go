package connection

import (
	"errors"
	"time"

	"github.com/stayline/bookingsync/internal/auth"
	"github.com/stayline/bookingsync/internal/backoff"
	"github.com/stayline/bookingsync/internal/codec"
)

// Errors
var (
	ErrStaleConnection  = errors.New("connection stale (no ping)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrUnknownTransport = errors.New("unknown transport")
)

// Transports
const (
	TransportGorilla = "gorilla"
	TransportCoder   = "coder"
)

// Frame wraps raw frame data with receive timestamp.
type Frame struct {
	Data       []byte    // Raw text frame from the WebSocket
	ReceivedAt time.Time // Local timestamp when the read returned
}

// State is the lifecycle state of the realtime connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Full WebSocket URL including the token query
	HandshakeTimeout time.Duration // Max time for the opening handshake
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for ping and close frames
	BufferSize       int           // Frame channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		BufferSize:       256,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	URL              string         // Realtime endpoint, without credential
	Transport        string         // TransportGorilla (default) or TransportCoder
	CredentialKey    string         // Key of the access token in the credential store
	Backoff          backoff.Policy // Reconnect delay policy
	HandshakeTimeout time.Duration
	PingTimeout      time.Duration
	WriteTimeout     time.Duration
	SubscriberBuffer int // Buffer of the subscription channel
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Transport:        TransportGorilla,
		CredentialKey:    auth.AccessTokenKey,
		Backoff:          backoff.Default(),
		HandshakeTimeout: 10 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		SubscriberBuffer: 256,
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State            State
	Attempt          int   // Current backoff attempt
	Opens            int64 // Successful opens
	Drops            int64 // Unexpected closes and failed handshakes
	ReconnectPending bool
	FramesReceived   int64
	FramesDelivered  int64
	FramesDropped    int64 // No subscriber or subscriber full
	DecodeErrors     int64
}

// Subscription receives decoded messages from the Manager.
//
// Delivery is best-effort: messages that arrive while the channel is full
// are dropped and never redelivered.
type Subscription struct {
	C <-chan codec.Message

	ch    chan codec.Message
	close func()
}

// Close detaches the subscription. C is not closed.
func (s *Subscription) Close() {
	s.close()
}
