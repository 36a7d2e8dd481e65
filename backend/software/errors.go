package software

import "errors"

// Package errors for the software backend.
var (
	// ErrStageMismatch is returned when a program is built from shaders of the wrong stages.
	ErrStageMismatch = errors.New("software: shader stage mismatch")

	// ErrInvalidSampler is returned for undefined address or filter modes.
	ErrInvalidSampler = errors.New("software: invalid sampler descriptor")

	// ErrInvalidModel is returned for malformed vertex or index data.
	ErrInvalidModel = errors.New("software: invalid model")

	// ErrInvalidBufferSize is returned for constant buffer sizes that are not
	// positive multiples of 16, or updates larger than the buffer.
	ErrInvalidBufferSize = errors.New("software: invalid constant buffer size")

	// ErrEmptyTexture is returned when a texture has no pixels.
	ErrEmptyTexture = errors.New("software: empty texture")

	// ErrStrideMismatch is returned when the bound input layout and model disagree on stride.
	ErrStrideMismatch = errors.New("software: input layout stride does not match model")

	// ErrNoFrame is returned by Snapshot before the first successful present.
	ErrNoFrame = errors.New("software: no frame presented")
)
