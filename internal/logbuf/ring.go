package logbuf

import "sync"

// Ring is a thread-safe ring buffer holding the last N entries.
type Ring[T any] struct {
	mu      sync.Mutex
	entries []T
	size    int
	pos     int
	full    bool
}

// New creates a ring buffer that stores the last n entries.
func New[T any](n int) *Ring[T] {
	if n <= 0 {
		n = 1000
	}
	return &Ring[T]{
		entries: make([]T, n),
		size:    n,
	}
}

// Add appends an entry, overwriting the oldest one when full.
func (r *Ring[T]) Add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.pos] = v
	r.pos = (r.pos + 1) % r.size
	if r.pos == 0 {
		r.full = true
	}
}

// All returns all stored entries in order, oldest first.
func (r *Ring[T]) All() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		result := make([]T, r.pos)
		copy(result, r.entries[:r.pos])
		return result
	}

	result := make([]T, r.size)
	copy(result, r.entries[r.pos:])
	copy(result[r.size-r.pos:], r.entries[:r.pos])
	return result
}

// Last returns the last n entries. If fewer exist, returns all of them.
func (r *Ring[T]) Last(n int) []T {
	all := r.All()
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Len returns the number of stored entries.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return r.size
	}
	return r.pos
}
