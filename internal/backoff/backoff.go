// Package backoff computes reconnect delays for the Connection Manager.
//
// Delays grow geometrically from Initial by Multiplier and are capped at
// Ceiling. No jitter is applied.
package backoff

import (
	"math"
	"time"
)

// Default policy values.
const (
	DefaultInitial    = 1 * time.Second
	DefaultMultiplier = 2.0
	DefaultCeiling    = 30 * time.Second
)

// Policy maps an attempt count to a delay.
type Policy struct {
	Initial    time.Duration
	Multiplier float64
	Ceiling    time.Duration
}

// Default returns the 1s / x2 / 30s policy.
func Default() Policy {
	return Policy{
		Initial:    DefaultInitial,
		Multiplier: DefaultMultiplier,
		Ceiling:    DefaultCeiling,
	}
}

// Next returns min(Initial * Multiplier^attempt, Ceiling).
func (p Policy) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(p.Initial) * math.Pow(p.Multiplier, float64(attempt))
	if math.IsInf(delay, 0) || math.IsNaN(delay) || delay >= float64(p.Ceiling) {
		return p.Ceiling
	}
	return time.Duration(delay)
}

// State tracks consecutive failures within one outage episode.
type State struct {
	Attempt int
}

// Delay returns the delay for the current attempt without advancing it.
func (s *State) Delay(p Policy) time.Duration {
	return p.Next(s.Attempt)
}

// Fail returns the delay for the current attempt and advances the counter.
func (s *State) Fail(p Policy) time.Duration {
	d := p.Next(s.Attempt)
	s.Attempt++
	return d
}

// Reset clears the attempt counter after a successful open.
func (s *State) Reset() {
	s.Attempt = 0
}
