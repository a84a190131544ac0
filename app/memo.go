package app

import (
	"sync"
	"time"

	"sensetrack/domain/core"
)

// memo holds the most recent value for one key until it expires
type memo[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   core.Clock
	key     core.Hash
	value   T
	expires time.Time
	set     bool
}

func newMemo[T any](ttl time.Duration, clock core.Clock) *memo[T] {
	if clock == nil {
		clock = core.SystemClock
	}
	return &memo[T]{ttl: ttl, clock: clock}
}

func (m *memo[T]) get(key core.Hash) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if !m.set || !m.key.Equals(key) || !m.clock().Before(m.expires) {
		return zero, false
	}
	return m.value, true
}

func (m *memo[T]) put(key core.Hash, value T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.key = key
	m.value = value
	m.expires = m.clock().Add(m.ttl)
	m.set = true
}

func (m *memo[T]) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	m.value = zero
	m.set = false
}
