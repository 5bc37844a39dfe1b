package saga

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/stayline/bookingsync/internal/api"
)

// Errors
var (
	ErrRetryInFlight = errors.New("conflict retry already in flight")
	ErrNoConflict    = errors.New("no conflict to retry")
)

// ConflictState is what the conflict prompt renders.
type ConflictState struct {
	Visible  bool
	Retrying bool
	Attempt  int // retries that ended in another conflict
}

// ConflictController drives the user-facing retry prompt after a 409.
// Retries are only ever started by the user; there is no automatic loop.
type ConflictController struct {
	logger *slog.Logger

	mu    sync.Mutex
	state ConflictState
	gen   uint64 // bumped by Dismiss so a late retry result is discarded
}

// NewConflictController creates a hidden controller.
func NewConflictController(logger *slog.Logger) *ConflictController {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConflictController{logger: logger}
}

// State returns a snapshot of the prompt state.
func (c *ConflictController) State() ConflictState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleConflict shows the prompt. While a retry is in flight the retry's
// own result decides the state, so the call is ignored.
func (c *ConflictController) HandleConflict() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Retrying {
		return
	}
	c.state = ConflictState{Visible: true}
}

// Retry runs submit once. A success or a non-conflict failure clears the
// prompt; another conflict keeps it visible and increments Attempt.
func (c *ConflictController) Retry(ctx context.Context, submit func(context.Context) error) error {
	c.mu.Lock()
	switch {
	case c.state.Retrying:
		c.mu.Unlock()
		return ErrRetryInFlight
	case !c.state.Visible:
		c.mu.Unlock()
		return ErrNoConflict
	}
	c.state.Retrying = true
	gen := c.gen
	c.mu.Unlock()

	err := submit(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return err
	}

	switch {
	case err == nil:
		c.state = ConflictState{}
	case errors.Is(err, ErrConflict) || api.IsConflict(err):
		c.state.Retrying = false
		c.state.Attempt++
		c.logger.Info("conflict retry hit another conflict", "attempt", c.state.Attempt)
	default:
		c.state = ConflictState{}
		c.logger.Warn("conflict retry failed", "error", err)
	}
	return err
}

// Dismiss hides the prompt, e.g. when the user changes dates.
func (c *ConflictController) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = ConflictState{}
	c.gen++
}
