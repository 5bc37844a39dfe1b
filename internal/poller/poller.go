package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stayline/bookingsync/internal/clock"
)

// Reconciler re-derives saga state from the REST API. It must be a no-op
// when nothing is pending.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval
	Timeout  time.Duration // Per-reconcile timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	Polls  int64
	Errors int64
}

// Poller periodically reconciles the booking saga.
type Poller struct {
	cfg    Config
	target Reconciler
	clock  clock.Clock
	logger *slog.Logger

	polls  atomic.Int64
	errors atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller. A nil clock uses the real clock.
func New(cfg Config, target Reconciler, clk clock.Clock, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.Real()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Poller{
		cfg:    cfg,
		target: target,
		clock:  clk,
		logger: logger,
	}
}

// Start begins the polling loop. The first poll happens one interval after Start.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	ticker := p.clock.NewTicker(p.cfg.Interval)

	p.wg.Add(1)
	go p.run(ticker)

	p.logger.Info("reconcile poller started", "interval", p.cfg.Interval)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("reconcile poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (p *Poller) Stats() Stats {
	return Stats{
		Polls:  p.polls.Load(),
		Errors: p.errors.Load(),
	}
}

// run is the main polling loop.
func (p *Poller) run(ticker clock.Ticker) {
	defer p.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C():
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	p.polls.Add(1)
	if err := p.target.Reconcile(ctx); err != nil {
		p.errors.Add(1)
		p.logger.Warn("reconcile failed", "error", err)
	}
}
