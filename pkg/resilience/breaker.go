// Package resilience provides a circuit breaker guarding calls to
// external capabilities.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned while the breaker is rejecting calls.
var ErrOpen = errors.New("resilience: circuit open")

// State of the breaker.
type State int

const (
	Closed   State = iota // normal operation
	Open                  // rejecting calls
	HalfOpen              // allowing probe calls
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Config tunes the breaker. Zero values fall back to the defaults.
type Config struct {
	// Failures is how many consecutive failures trip the breaker.
	Failures int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// Probes is how many calls the half-open state admits.
	Probes int
}

var defaults = Config{Failures: 5, Cooldown: 30 * time.Second, Probes: 1}

// Breaker trips after consecutive failures, rejects calls for a
// cooldown, then lets probe calls decide whether to close again.
type Breaker struct {
	mu       sync.Mutex
	cfg      Config
	state    State
	failures int
	openedAt time.Time
	probes   int
	now      func() time.Time
}

// NewBreaker builds a breaker with the given config.
func NewBreaker(cfg Config) *Breaker {
	if cfg.Failures <= 0 {
		cfg.Failures = defaults.Failures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaults.Cooldown
	}
	if cfg.Probes <= 0 {
		cfg.Probes = defaults.Probes
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// State reports the current state, moving open breakers to half-open
// once the cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tick()
}

func (b *Breaker) tick() State {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.state = HalfOpen
		b.probes = 0
	}
	return b.state
}

// Do runs f unless the breaker is open. The outcome of f updates the
// failure count and state.
func (b *Breaker) Do(ctx context.Context, f func(context.Context) error) error {
	b.mu.Lock()
	switch b.tick() {
	case Open:
		b.mu.Unlock()
		return ErrOpen
	case HalfOpen:
		if b.probes >= b.cfg.Probes {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probes++
	}
	b.mu.Unlock()

	err := f(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		if b.state == HalfOpen || b.failures >= b.cfg.Failures {
			b.state = Open
			b.openedAt = b.now()
			b.failures = 0
			b.probes = 0
		}
		return err
	}
	if b.state == HalfOpen {
		b.state = Closed
	}
	b.failures = 0
	return nil
}
