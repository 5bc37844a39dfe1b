package connection

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/stayline/bookingsync/internal/auth"
	"github.com/stayline/bookingsync/internal/backoff"
	"github.com/stayline/bookingsync/internal/clock"
	"github.com/stayline/bookingsync/internal/codec"
)

// Manager owns the single realtime connection of an authenticated session.
//
// Transport and decode faults never reach the caller: drops become a
// closed state plus a scheduled reconnect, bad frames are counted and
// discarded.
type Manager interface {
	// Connect opens the connection unless one is already connecting or open.
	// It aborts silently, leaving the manager idle, when no valid credential
	// is stored.
	Connect(ctx context.Context)

	// Disconnect cancels any pending reconnect and closes the connection.
	// It is idempotent.
	Disconnect()

	// State returns the current lifecycle state.
	State() State

	// Subscribe attaches the subscriber, replacing any previous one.
	Subscribe() *Subscription

	// Stats returns current connection statistics.
	Stats() ManagerStats
}

// ClientFactory creates the transport client for one connection attempt.
type ClientFactory func(cfg ClientConfig, logger *slog.Logger) (Client, error)

// ManagerOption configures a Manager.
type ManagerOption func(*manager)

// WithClock sets the clock used to schedule reconnects.
func WithClock(c clock.Clock) ManagerOption {
	return func(m *manager) {
		m.clock = c
	}
}

// WithClientFactory overrides transport selection.
func WithClientFactory(f ClientFactory) ManagerOption {
	return func(m *manager) {
		m.newClient = f
	}
}

// manager implements the Manager interface.
type manager struct {
	cfg       ManagerConfig
	creds     auth.Store
	clock     clock.Clock
	newClient ClientFactory
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	epoch       uint64 // bumped by Connect and Disconnect; stale dials compare against it
	client      Client
	stop        chan struct{} // closes the pump of the current client
	backoff     backoff.State
	timer       clock.Timer
	intentional bool
	sub         *Subscription

	opens           atomic.Int64
	drops           atomic.Int64
	framesReceived  atomic.Int64
	framesDelivered atomic.Int64
	framesDropped   atomic.Int64
	decodeErrors    atomic.Int64
}

// NewManager creates a new Connection Manager.
func NewManager(cfg ManagerConfig, creds auth.Store, logger *slog.Logger, opts ...ManagerOption) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CredentialKey == "" {
		cfg.CredentialKey = auth.AccessTokenKey
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = DefaultManagerConfig().SubscriberBuffer
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = backoff.Default()
	}

	m := &manager{
		cfg:    cfg,
		creds:  creds,
		clock:  clock.Real(),
		logger: logger,
		state:  StateIdle,
	}
	m.newClient = func(cc ClientConfig, l *slog.Logger) (Client, error) {
		return NewTransportClient(m.cfg.Transport, cc, l)
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Connect opens the connection.
func (m *manager) Connect(ctx context.Context) {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateOpen {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	m.intentional = false
	m.state = StateConnecting
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()

	token, err := auth.Token(ctx, m.creds, m.cfg.CredentialKey, m.clock.Now())
	if err != nil {
		if !errors.Is(err, auth.ErrNoCredential) && !errors.Is(err, auth.ErrExpired) {
			m.logger.Warn("read credential failed", "error", err)
		} else {
			m.logger.Debug("no usable credential, not connecting", "reason", err)
		}
		m.mu.Lock()
		if m.epoch == epoch {
			m.state = StateIdle
		}
		m.mu.Unlock()
		return
	}

	target, err := withToken(m.cfg.URL, token)
	if err != nil {
		m.logger.Error("invalid realtime url", "error", err)
		m.mu.Lock()
		if m.epoch == epoch {
			m.state = StateIdle
		}
		m.mu.Unlock()
		return
	}

	c, err := m.newClient(ClientConfig{
		URL:              target,
		HandshakeTimeout: m.cfg.HandshakeTimeout,
		PingTimeout:      m.cfg.PingTimeout,
		WriteTimeout:     m.cfg.WriteTimeout,
		BufferSize:       m.cfg.SubscriberBuffer,
	}, m.logger)
	if err == nil {
		err = c.Connect(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		// Disconnect ran while dialing
		if c != nil {
			c.Close()
		}
		return
	}

	if err != nil {
		m.logger.Warn("realtime connect failed", "error", err, "attempt", m.backoff.Attempt)
		if c != nil {
			c.Close()
		}
		m.drops.Add(1)
		m.state = StateClosed
		m.scheduleReconnectLocked()
		return
	}

	m.client = c
	m.stop = make(chan struct{})
	m.state = StateOpen
	m.backoff.Reset()
	m.opens.Add(1)
	go m.pump(c, m.stop)

	m.logger.Info("realtime connected", "transport", m.cfg.Transport)
}

// Disconnect closes the connection intentionally.
func (m *manager) Disconnect() {
	m.mu.Lock()
	m.intentional = true
	m.stopTimerLocked()
	m.epoch++

	c := m.client
	m.client = nil
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}

	if c == nil {
		m.state = StateClosed
		m.mu.Unlock()
		return
	}

	m.state = StateClosing
	epoch := m.epoch
	m.mu.Unlock()

	if err := c.Close(); err != nil {
		m.logger.Debug("close connection", "error", err)
	}

	m.mu.Lock()
	if m.epoch == epoch {
		m.state = StateClosed
	}
	m.mu.Unlock()

	m.logger.Info("realtime disconnected")
}

// State returns the current lifecycle state.
func (m *manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe attaches a new subscriber.
func (m *manager) Subscribe() *Subscription {
	ch := make(chan codec.Message, m.cfg.SubscriberBuffer)
	sub := &Subscription{C: ch, ch: ch}
	sub.close = func() {
		m.mu.Lock()
		if m.sub == sub {
			m.sub = nil
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.sub = sub
	m.mu.Unlock()

	return sub
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.Lock()
	state := m.state
	attempt := m.backoff.Attempt
	pending := m.timer != nil
	m.mu.Unlock()

	return ManagerStats{
		State:            state,
		Attempt:          attempt,
		Opens:            m.opens.Load(),
		Drops:            m.drops.Load(),
		ReconnectPending: pending,
		FramesReceived:   m.framesReceived.Load(),
		FramesDelivered:  m.framesDelivered.Load(),
		FramesDropped:    m.framesDropped.Load(),
		DecodeErrors:     m.decodeErrors.Load(),
	}
}

// pump decodes frames of one client until it fails or is replaced.
func (m *manager) pump(c Client, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case f := <-c.Frames():
			m.deliver(f)
		case err := <-c.Errors():
			m.handleDrop(c, err)
			return
		}
	}
}

func (m *manager) deliver(f Frame) {
	m.framesReceived.Add(1)

	msg, err := codec.Decode(f.Data)
	if err != nil {
		m.decodeErrors.Add(1)
		m.logger.Debug("dropping undecodable frame", "error", err)
		return
	}

	m.mu.Lock()
	sub := m.sub
	m.mu.Unlock()

	if sub == nil {
		m.framesDropped.Add(1)
		return
	}

	select {
	case sub.ch <- msg:
		m.framesDelivered.Add(1)
	default:
		m.framesDropped.Add(1)
		m.logger.Warn("subscriber full, dropping message", "kind", msg.Kind())
	}
}

// handleDrop reacts to an unexpected close of c.
func (m *manager) handleDrop(c Client, err error) {
	m.mu.Lock()
	if m.client != c || m.intentional {
		m.mu.Unlock()
		return
	}
	m.client = nil
	m.stop = nil
	m.state = StateClosed
	m.drops.Add(1)
	m.logger.Warn("realtime connection dropped", "error", err)
	m.scheduleReconnectLocked()
	m.mu.Unlock()

	c.Close()
}

func (m *manager) scheduleReconnectLocked() {
	delay := m.backoff.Fail(m.cfg.Backoff)
	epoch := m.epoch

	m.logger.Info("reconnect scheduled", "delay", delay, "attempt", m.backoff.Attempt)

	m.timer = m.clock.AfterFunc(delay, func() {
		m.reconnect(epoch)
	})
}

func (m *manager) reconnect(epoch uint64) {
	m.mu.Lock()
	if m.epoch != epoch || m.intentional || m.state != StateClosed {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()

	ctx := context.Background()
	if m.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
		defer cancel()
	}
	m.Connect(ctx)
}

func (m *manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// withToken appends the credential as the token query parameter.
func withToken(raw, token string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
