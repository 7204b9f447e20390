package medvox

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedIndexKind is returned by Build when the requested index
	// kind has no implementation, e.g. KindKDTree.
	ErrUnsupportedIndexKind = errors.New("medvox: unsupported index kind")

	// ErrInvalidBounds is returned by Build when the global bounds are
	// degenerate or inverted.
	ErrInvalidBounds = errors.New("medvox: invalid global bounds")

	// ErrOutOfBounds is returned by Insert when an object's bounding box
	// does not intersect the index's global bounds.
	ErrOutOfBounds = errors.New("medvox: object outside global bounds")

	// ErrNotFound is returned by Update when no object with the given ID
	// exists in the index.
	ErrNotFound = errors.New("medvox: object not found")

	// ErrDuplicateID is returned by Insert when an object with the same ID
	// is already indexed.
	ErrDuplicateID = errors.New("medvox: duplicate object id")

	// ErrSnapshotCorrupt is returned by Restore when a snapshot blob has a
	// bad magic, an unknown version or an undecodable payload.
	ErrSnapshotCorrupt = errors.New("medvox: corrupt snapshot")
)

// ConfigError describes a builder parameter that failed validation.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("medvox: invalid config %q: %s", e.Param, e.Reason)
}
