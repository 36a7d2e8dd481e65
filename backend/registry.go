package backend

import (
	"fmt"
	"sort"

	"github.com/gogpu/gpucontext"
)

// AdapterFactory creates a new, uninitialized adapter.
type AdapterFactory func() Adapter

// adapters holds registered factories keyed by Kind name.
// Native > Software when a caller asks for the best available backend.
var adapters = gpucontext.NewRegistry[Adapter](
	gpucontext.WithPriority(NameNative, NameSoftware),
)

// Register registers an adapter factory for kind.
// This is typically called from init() functions in backend packages.
// If a factory for the same kind is already registered, it is replaced.
func Register(kind Kind, factory AdapterFactory) {
	if !kind.Valid() || factory == nil {
		return
	}
	adapters.Register(kind.String(), factory)
}

// Unregister removes the factory for kind.
// This is useful for testing.
func Unregister(kind Kind) {
	adapters.Unregister(kind.String())
}

// IsRegistered reports whether a factory for kind is registered.
func IsRegistered(kind Kind) bool {
	return kind.Valid() && adapters.Has(kind.String())
}

// Available returns the registered kinds in ascending order.
func Available() []Kind {
	names := adapters.Available()
	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		if k, err := ParseKind(name); err == nil {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// New returns a fresh adapter for kind.
func New(kind Kind) (Adapter, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
	a := adapters.Get(kind.String())
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotAvailable, kind)
	}
	return a, nil
}

// DefaultKind returns the best registered kind based on priority, or
// KindUnknown if nothing is registered.
func DefaultKind() Kind {
	name := adapters.BestName()
	if name == "" {
		return KindUnknown
	}
	k, err := ParseKind(name)
	if err != nil {
		return KindUnknown
	}
	return k
}
