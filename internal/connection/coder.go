package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const coderReadLimit = 1 << 20

// coderClient implements the Client interface with coder/websocket.
type coderClient struct {
	cfg    ClientConfig
	logger *slog.Logger

	ws     *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc

	frames chan Frame
	errors chan error

	mu     sync.RWMutex
	closed bool
}

// NewCoderClient creates a new coder/websocket client.
func NewCoderClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &coderClient{
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		frames: make(chan Frame, cfg.BufferSize),
		errors: make(chan error, 1),
	}
}

// Connect establishes the WebSocket connection.
func (c *coderClient) Connect(ctx context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrAlreadyClosed
	}

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return err
	}
	ws.SetReadLimit(coderReadLimit)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ws.CloseNow()
		return ErrAlreadyClosed
	}
	c.ws = ws
	c.mu.Unlock()

	go c.readLoop()
	go c.heartbeatLoop()

	c.logger.Debug("websocket connected", "transport", TransportCoder)

	return nil
}

// Close gracefully closes the connection.
func (c *coderClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws := c.ws
	c.mu.Unlock()

	defer c.cancel()

	if ws != nil {
		return ws.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

// Frames returns the frames channel.
func (c *coderClient) Frames() <-chan Frame {
	return c.frames
}

// Errors returns the errors channel.
func (c *coderClient) Errors() <-chan error {
	return c.errors
}

func (c *coderClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *coderClient) fail(err error) {
	select {
	case c.errors <- err:
	default:
	}
}

func (c *coderClient) readLoop() {
	for {
		typ, data, err := c.ws.Read(c.ctx)
		receivedAt := time.Now()

		if err != nil {
			if !c.isClosed() {
				c.fail(err)
			}
			return
		}

		if typ != websocket.MessageText {
			continue
		}

		select {
		case c.frames <- Frame{Data: data, ReceivedAt: receivedAt}:
		case <-c.ctx.Done():
			return
		default:
			c.logger.Warn("frame buffer full, dropping frame")
		}
	}
}

// heartbeatLoop pings the server; a ping that is not answered within
// PingTimeout marks the connection stale.
func (c *coderClient) heartbeatLoop() {
	interval := c.cfg.PingTimeout / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.PingTimeout)
			err := c.ws.Ping(ctx)
			cancel()
			if err == nil {
				continue
			}
			if c.isClosed() {
				return
			}
			c.logger.Warn("ping failed, connection stale", "error", err, "timeout", c.cfg.PingTimeout)
			c.fail(ErrStaleConnection)
			c.ws.CloseNow()
			return
		}
	}
}
