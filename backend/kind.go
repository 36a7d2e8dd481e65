package backend

import (
	"fmt"
	"strings"
)

// Kind identifies a backend implementation. The set is closed: only the
// constants below are valid.
type Kind uint8

const (
	// KindUnknown is the zero Kind. It never matches a registered backend.
	KindUnknown Kind = iota
	// KindSoftware is the CPU reference backend.
	KindSoftware
	// KindNative is the GPU backend built on gogpu/wgpu HAL.
	KindNative
)

// Backend name constants, as accepted by ParseKind and used in config files.
const (
	NameSoftware = "software"
	NameNative   = "native"
)

// String returns the backend name.
func (k Kind) String() string {
	switch k {
	case KindSoftware:
		return NameSoftware
	case KindNative:
		return NameNative
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindSoftware || k == KindNative
}

// ParseKind converts a backend name to a Kind. "wgpu" is accepted as an
// alias for the native backend.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameSoftware, "cpu":
		return KindSoftware, nil
	case NameNative, "wgpu", "gpu":
		return KindNative, nil
	default:
		return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so Kind can be read
// directly from YAML and TOML config files.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
