package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is a bounded key/value cache safe for concurrent use.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Len() int
}

// Pruner is a cache that can drop its expired entries on demand.
type Pruner interface {
	Prune() int
}

// Manager prunes registered caches on a fixed interval.
type Manager struct {
	mu       sync.Mutex
	caches   []Pruner
	stop     chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a cache to the manager for pruning
func (m *Manager) Register(c Pruner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// PruneAll prunes every registered cache once and returns the number of
// entries removed.
func (m *Manager) PruneAll() int {
	m.mu.Lock()
	caches := append([]Pruner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.Prune()
	}
	return total
}

// Start prunes every interval until Stop is called. Later calls are
// no-ops.
func (m *Manager) Start(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.run(interval)
}

func (m *Manager) run(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.PruneAll(); n > 0 {
				slog.Debug("Pruned expired cache entries", "removed", n)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop ends the pruning loop started by Start and waits for it to exit.
// It is safe to call more than once, and without Start.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if started {
		<-m.done
	}
}
