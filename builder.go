// This file implements the fluent builder API for creating and configuring
// Index instances. Builders are immutable - each method returns a new builder
// with the updated configuration.
package medvox

import (
	"github.com/gchahal1982/medvox/geom"
)

const (
	defaultMaxDepth          = 8
	defaultMaxObjectsPerNode = 16
	defaultMaxChildren       = 8
	defaultGridSize          = 16
	defaultCacheSize         = 256
	defaultCompressionLevel  = 1
)

// Builder is an immutable fluent builder for creating Index instances.
// Each method returns a new builder with the updated configuration.
//
// Example:
//
//	idx, err := medvox.Hybrid(bounds).
//	    MaxDepth(10).
//	    MaxObjectsPerNode(8).
//	    GridSize(32).
//	    Build()
type Builder struct {
	kind              Kind
	bounds            geom.AABB
	maxDepth          int
	maxObjectsPerNode int
	maxChildren       int
	gridSize          int
	adaptiveRefine    bool
	cacheSize         int
	compressionLevel  int
	logger            *Logger
	metrics           MetricsCollector
}

// Of creates a builder for the given index kind over the given global bounds.
func Of(kind Kind, bounds geom.AABB) Builder {
	return Builder{
		kind:              kind,
		bounds:            bounds,
		maxDepth:          defaultMaxDepth,
		maxObjectsPerNode: defaultMaxObjectsPerNode,
		maxChildren:       defaultMaxChildren,
		gridSize:          defaultGridSize,
		adaptiveRefine:    true,
		cacheSize:         defaultCacheSize,
		compressionLevel:  defaultCompressionLevel,
	}
}

// Hybrid creates a builder for a hybrid index that maintains all three
// structures and routes each query to the best suited one.
func Hybrid(bounds geom.AABB) Builder { return Of(KindHybrid, bounds) }

// Octree creates a builder for an octree-only index.
func Octree(bounds geom.AABB) Builder { return Of(KindOctree, bounds) }

// RTree creates a builder for a bounding-volume-tree-only index.
func RTree(bounds geom.AABB) Builder { return Of(KindRTree, bounds) }

// SpatialHash creates a builder for a hash-grid-only index.
func SpatialHash(bounds geom.AABB) Builder { return Of(KindSpatialHash, bounds) }

// MaxDepth sets the octree's maximum subdivision depth.
// Default: 8.
func (b Builder) MaxDepth(d int) Builder {
	b.maxDepth = d
	return b
}

// MaxObjectsPerNode sets the octree leaf capacity before subdivision.
// Default: 16.
func (b Builder) MaxObjectsPerNode(n int) Builder {
	b.maxObjectsPerNode = n
	return b
}

// MaxChildren sets the bounding-volume tree's node fanout before splitting.
// Default: 8.
func (b Builder) MaxChildren(n int) Builder {
	b.maxChildren = n
	return b
}

// GridSize sets the number of hash grid cells per axis.
// Default: 16.
func (b Builder) GridSize(n int) Builder {
	b.gridSize = n
	return b
}

// AdaptiveRefinement enables or disables structure rebuilds during Optimize.
// When disabled, Optimize only recomputes statistics.
// Default: true.
func (b Builder) AdaptiveRefinement(enabled bool) Builder {
	b.adaptiveRefine = enabled
	return b
}

// CacheSize sets the query result cache capacity in entries.
// Zero disables result caching. Default: 256.
func (b Builder) CacheSize(n int) Builder {
	b.cacheSize = n
	return b
}

// CompressionLevel controls snapshot compression. Zero stores snapshots raw;
// any positive level enables block compression. Default: 1.
func (b Builder) CompressionLevel(level int) Builder {
	b.compressionLevel = level
	return b
}

// Logger sets the structured logger for operation tracing.
func (b Builder) Logger(l *Logger) Builder {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b Builder) Metrics(mc MetricsCollector) Builder {
	b.metrics = mc
	return b
}

// Build validates the configuration and creates the Index.
func (b Builder) Build() (*Index, error) {
	switch b.kind {
	case KindHybrid, KindOctree, KindRTree, KindSpatialHash:
	case KindKDTree:
		return nil, ErrUnsupportedIndexKind
	default:
		return nil, ErrUnsupportedIndexKind
	}

	if !b.bounds.Valid() {
		return nil, ErrInvalidBounds
	}
	if b.maxDepth < 0 {
		return nil, &ConfigError{Param: "maxDepth", Reason: "must be >= 0"}
	}
	if b.maxObjectsPerNode < 1 {
		return nil, &ConfigError{Param: "maxObjectsPerNode", Reason: "must be >= 1"}
	}
	if b.maxChildren < 2 {
		return nil, &ConfigError{Param: "maxChildren", Reason: "must be >= 2"}
	}
	if b.gridSize < 1 {
		return nil, &ConfigError{Param: "gridSize", Reason: "must be >= 1"}
	}
	if b.cacheSize < 0 {
		return nil, &ConfigError{Param: "cacheSize", Reason: "must be >= 0"}
	}
	if b.compressionLevel < 0 {
		return nil, &ConfigError{Param: "compressionLevel", Reason: "must be >= 0"}
	}

	return newIndex(b), nil
}

// MustBuild creates the Index, panicking on error.
func (b Builder) MustBuild() *Index {
	idx, err := b.Build()
	if err != nil {
		panic(err)
	}
	return idx
}
