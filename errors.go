package gfx

import "errors"

// Context errors.
var (
	// ErrNoContext is returned by operations on a nil, zero, closed or
	// orphaned Context. The operation did nothing.
	ErrNoContext = errors.New("gfx: no graphics context")

	// ErrInvalidWindow is returned by InitGraphics for a nil window or a
	// window without a positive size.
	ErrInvalidWindow = errors.New("gfx: invalid window")

	// ErrBootstrap is returned by InitGraphics when a default resource
	// cannot be created.
	ErrBootstrap = errors.New("gfx: default resource bootstrap failed")

	// ErrTextureNotFound is returned by LoadTexture when neither the path
	// nor any fallback can be decoded.
	ErrTextureNotFound = errors.New("gfx: texture not found")

	// ErrNilImage is returned when a nil or empty image is uploaded.
	ErrNilImage = errors.New("gfx: nil or empty image")
)

// Configuration errors.
var (
	// ErrUnsupportedConfig is returned by LoadConfig for an unknown file
	// extension.
	ErrUnsupportedConfig = errors.New("gfx: unsupported config format")

	// ErrInvalidConfig is returned when a config value is out of range or
	// names an unknown backend.
	ErrInvalidConfig = errors.New("gfx: invalid config")
)
