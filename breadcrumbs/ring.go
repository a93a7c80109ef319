package breadcrumbs

import "sync"

// Ring is a fixed-capacity FIFO buffer. When full, each write evicts the
// oldest entry.
type Ring[T any] struct {
	mu sync.RWMutex

	entries  []T
	capacity int

	head  int   // index of the next write once full
	total int64 // entries ever written
}

// NewRing creates a ring holding at most capacity entries. A ring with no
// capacity keeps nothing.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{
		entries:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push appends v, evicting the oldest entry if the ring is full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	if r.capacity == 0 {
		return
	}

	if len(r.entries) < r.capacity {
		r.entries = append(r.entries, v)
	} else {
		r.entries[r.head] = v
	}
	r.head = (r.head + 1) % r.capacity
}

// All returns the entries oldest first.
func (r *Ring[T]) All() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]T, len(r.entries))
	if len(r.entries) < r.capacity {
		copy(result, r.entries)
	} else {
		// full, head points at the oldest entry
		n := copy(result, r.entries[r.head:])
		copy(result[n:], r.entries[:r.head])
	}
	return result
}

// Len returns the number of entries held.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int {
	return r.capacity
}

// Total returns how many entries were ever pushed.
func (r *Ring[T]) Total() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}
