// Package registry interns backend resources behind small integer handles.
//
// A Registry maps a resource identity to a Handle and back. Identity is Go
// equality on T, which for the pointer and interface types used by the
// backends means "same object", not "same contents". Handles start at 1 and
// are never reused; InvalidHandle (0) is never issued.
package registry

import "sync"

// Handle identifies a resource within one Registry.
type Handle uint32

// InvalidHandle is the zero handle. Lookups of it always miss.
const InvalidHandle Handle = 0

// IsValid reports whether h is non-zero.
func (h Handle) IsValid() bool { return h != InvalidHandle }

// Registry is an append-only bidirectional table between resources of kind T
// and their handles. The zero value is not usable; call New.
type Registry[T comparable] struct {
	mu       sync.RWMutex
	byHandle map[Handle]T
	byRes    map[T]Handle
	order    []Handle
	next     Handle
}

// New creates an empty registry. The first handle it issues is 1.
func New[T comparable]() *Registry[T] {
	return &Registry[T]{
		byHandle: make(map[Handle]T),
		byRes:    make(map[T]Handle),
		next:     1,
	}
}

// Store interns r and returns its handle. Storing the same identity again
// returns the handle issued the first time. The zero value of T is never
// registered and yields InvalidHandle.
func (r *Registry[T]) Store(res T) Handle {
	var zero T
	if res == zero {
		return InvalidHandle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.byRes[res]; ok {
		return h
	}
	h := r.next
	r.next++
	r.byRes[res] = h
	r.byHandle[h] = res
	r.order = append(r.order, h)
	return h
}

// Get returns the resource for h. Unknown handles, including InvalidHandle,
// return the zero value and false.
func (r *Registry[T]) Get(h Handle) (T, bool) {
	if r == nil || h == InvalidHandle {
		var zero T
		return zero, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.byHandle[h]
	return res, ok
}

// Len returns the number of interned resources.
func (r *Registry[T]) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Each calls fn for every entry in the order handles were issued.
// fn must not call back into the registry.
func (r *Registry[T]) Each(fn func(Handle, T)) {
	if r == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.order {
		fn(h, r.byHandle[h])
	}
}
