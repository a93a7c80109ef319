// Package intercept replaces patchable members of a page (XHR prototype
// methods, history.pushState, console methods, window handlers) with wrappers.
//
// A member is a Slot. Install wraps a slot at most once per Registry; the
// registry belongs to the page, so a second agent on the same page cannot nest
// wrappers. Installed wrappers are never removed.
package intercept

import "sync"

// Slot holds the current implementation of a patchable member.
type Slot[F any] struct {
	mu sync.RWMutex
	fn F
}

// NewSlot creates a slot holding fn.
func NewSlot[F any](fn F) *Slot[F] {
	return &Slot[F]{fn: fn}
}

// Get returns the current implementation. It may be the zero value.
func (s *Slot[F]) Get() F {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fn
}

// Set replaces the current implementation, like assigning window.onerror.
func (s *Slot[F]) Set(fn F) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
}

// Record describes one installed interception.
type Record struct {
	Target      string
	Member      string
	Original    any
	Replacement any
}

// Registry tracks installed interceptions for one page.
type Registry struct {
	mu      sync.Mutex
	records []Record
	index   map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// Installed reports whether target.member was already wrapped.
func (r *Registry) Installed(target, member string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.index[key(target, member)]
	return ok
}

// Records returns the installed interceptions in installation order.
func (r *Registry) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Install wraps slot with the replacement built by wrap from the current
// implementation. It returns false without touching the slot when
// target.member is already installed in r.
func Install[F any](r *Registry, target, member string, slot *Slot[F], wrap func(original F) F) bool {
	if r == nil || slot == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(target, member)
	if _, ok := r.index[k]; ok {
		return false
	}

	original := slot.Get()
	replacement := wrap(original)
	slot.Set(replacement)

	r.index[k] = len(r.records)
	r.records = append(r.records, Record{
		Target:      target,
		Member:      member,
		Original:    original,
		Replacement: replacement,
	})
	return true
}

func key(target, member string) string {
	return target + "." + member
}
