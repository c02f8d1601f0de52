package tholder

import (
	"time"

	"github.com/zoobzio/clockz"
)

// DefaultCapacity is the slot table's initial size when a Pool is
// lazily created without an explicit Init call, matching the source's
// DEFAULT_MAX_THREADS (tholder.h) and spec.md §3.
const DefaultCapacity = 8

// DefaultIdleTimeout is how long a parked worker waits for new work
// before self-terminating, matching the source's ad hoc ~1ms constant
// (spec.md §9: "the rewrite should expose it as a pool-construction
// parameter with a documented default").
const DefaultIdleTimeout = time.Millisecond

// Option configures a Pool at construction time. Options are applied
// once, in NewPool; the slot table cannot be safely reconfigured once
// workers may already be running, which is why tholder uses
// constructor-time functional options rather than pipz's style of
// post-construction fluent setters.
type Option func(*poolConfig)

type poolConfig struct {
	capacity    int
	idleTimeout time.Duration
	clock       clockz.Clock
}

func defaultPoolConfig() poolConfig {
	return poolConfig{
		capacity:    DefaultCapacity,
		idleTimeout: DefaultIdleTimeout,
		clock:       clockz.RealClock,
	}
}

// WithInitialCapacity pre-sizes the slot table, equivalent to calling
// Init(capacity) immediately after NewPool.
func WithInitialCapacity(capacity int) Option {
	return func(c *poolConfig) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithIdleTimeout overrides the default idle timeout a parked worker
// waits before self-terminating.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *poolConfig) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// WithClock overrides the clock used for idle-timeout deadlines. Tests
// use clockz.NewFakeClock() to assert worker reclamation deterministically
// instead of sleeping on wall-clock time (spec.md §8 property 5).
func WithClock(c clockz.Clock) Option {
	return func(cfg *poolConfig) {
		if c != nil {
			cfg.clock = c
		}
	}
}
