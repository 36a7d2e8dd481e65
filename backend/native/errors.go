package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNoGPU is returned when no HAL variant yields an adapter.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrNoHALBackend is returned when the requested HAL variant is not
	// compiled in.
	ErrNoHALBackend = errors.New("native: HAL backend not registered")

	// ErrNoSurface is returned by Init when the window has no native handle
	// to present to and Config.Headless is off.
	ErrNoSurface = errors.New("native: window has no native surface")

	// ErrStageMismatch is returned when a program is built from shaders of the wrong stages.
	ErrStageMismatch = errors.New("native: shader stage mismatch")

	// ErrInvalidModel is returned for malformed vertex or index data.
	ErrInvalidModel = errors.New("native: invalid model")

	// ErrInvalidBufferSize is returned for constant buffer sizes that are not
	// positive multiples of 16, or updates larger than the buffer.
	ErrInvalidBufferSize = errors.New("native: invalid constant buffer size")

	// ErrEmptyTexture is returned when a texture has no pixels.
	ErrEmptyTexture = errors.New("native: empty texture")

	// ErrFrameDropped is returned by Present when the surface went stale and
	// was reconfigured. The frame is lost; the next one presents normally.
	ErrFrameDropped = errors.New("native: frame dropped on outdated surface")

	// ErrStrideMismatch is returned when the bound input layout and model disagree on stride.
	ErrStrideMismatch = errors.New("native: input layout stride does not match model")
)
