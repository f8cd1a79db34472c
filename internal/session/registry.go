package session

import (
	"sync"
	"time"
)

// Closer is live per-session state held by a Registry
type Closer interface {
	Close()
}

type registryEntry[T Closer] struct {
	value    T
	lastUsed time.Time
}

// Registry keeps one value of live state per session id, such as the
// session's list controller and query cache
type Registry[T Closer] struct {
	mu      sync.Mutex
	entries map[string]*registryEntry[T]
	now     func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry[T Closer]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]*registryEntry[T]),
		now:     time.Now,
	}
}

// Get returns the session's value, calling create on first use
func (r *Registry[T]) Get(sessionID string, create func() T) T {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		entry = &registryEntry[T]{value: create()}
		r.entries[sessionID] = entry
	}
	entry.lastUsed = r.now()
	return entry.value
}

// Drop closes and forgets the session's value
func (r *Registry[T]) Drop(sessionID string) {
	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	r.mu.Unlock()

	if ok {
		entry.value.Close()
	}
}

// Sweep drops values idle for longer than maxIdle and returns how many
// went
func (r *Registry[T]) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var stale []T
	for id, entry := range r.entries {
		if entry.lastUsed.Before(cutoff) {
			stale = append(stale, entry.value)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, v := range stale {
		v.Close()
	}
	return len(stale)
}

// Len returns the number of live values
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
