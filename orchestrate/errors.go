package orchestrate

import "errors"

// Sentinel errors for request validation and construction.
var (
	// ErrMissingSource is returned when a request carries no source text.
	ErrMissingSource = errors.New("orchestrate: source is required")

	// ErrInvalidOffset is returned when a position-sensitive request
	// carries an offset outside the source.
	ErrInvalidOffset = errors.New("orchestrate: offset is out of range")

	// ErrMissingEngineFactory is returned when no engine factory is
	// configured.
	ErrMissingEngineFactory = errors.New("orchestrate: engine factory is required")
)
