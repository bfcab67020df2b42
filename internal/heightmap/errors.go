package heightmap

import "errors"

var (
	// ErrInvalidShape is returned when an operation requires a square height map.
	ErrInvalidShape = errors.New("height map is not square")

	// ErrDegenerateImage is returned when a map has zero dynamic range (max == min),
	// which would divide by zero during intensity normalization.
	ErrDegenerateImage = errors.New("height map has zero dynamic range")

	// ErrInvalidScale is returned for non-positive scale factors or scan sizes.
	ErrInvalidScale = errors.New("scale factor must be positive")

	// ErrEmpty is returned when a map has no samples.
	ErrEmpty = errors.New("height map is empty")

	// ErrRaggedRows is returned when parsed rows have different lengths.
	ErrRaggedRows = errors.New("height map rows have different lengths")
)
