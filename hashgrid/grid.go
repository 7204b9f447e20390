// Package hashgrid implements a uniform 3D grid of buckets over a fixed
// global bound, optimized for overlap/broad-phase lookups.
//
// An object is referenced from every cell its bounding box overlaps, so query
// results are de-duplicated with a seen-set before exact filtering.
package hashgrid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gchahal1982/medvox/geom"
	"github.com/gchahal1982/medvox/object"
)

// Grid is a uniform spatial hash over a fixed bound.
type Grid struct {
	bounds   geom.AABB
	gridSize int // cells per axis
	cellSize mgl64.Vec3
	cells    map[cellKey][]*object.SpatialObject
	entries  int
}

type cellKey struct {
	X, Y, Z int32
}

// New creates a grid with gridSize cells per axis over bounds.
func New(bounds geom.AABB, gridSize int) *Grid {
	if gridSize < 1 {
		gridSize = 1
	}
	return &Grid{
		bounds:   bounds,
		gridSize: gridSize,
		cellSize: bounds.Size.Mul(1.0 / float64(gridSize)),
		cells:    make(map[cellKey][]*object.SpatialObject),
	}
}

// cellIndex maps a coordinate to a cell index on one axis, clamped to the
// grid so boxes poking past the global bound still land in edge cells.
func (g *Grid) cellIndex(v, min, size float64) int32 {
	if size <= 0 {
		return 0
	}
	i := int32(math.Floor((v - min) / size))
	if i < 0 {
		i = 0
	}
	if i >= int32(g.gridSize) {
		i = int32(g.gridSize) - 1
	}
	return i
}

// cellRange returns the inclusive cell index range overlapped by box.
func (g *Grid) cellRange(box geom.AABB) (lo, hi cellKey) {
	lo = cellKey{
		X: g.cellIndex(box.Min.X(), g.bounds.Min.X(), g.cellSize.X()),
		Y: g.cellIndex(box.Min.Y(), g.bounds.Min.Y(), g.cellSize.Y()),
		Z: g.cellIndex(box.Min.Z(), g.bounds.Min.Z(), g.cellSize.Z()),
	}
	hi = cellKey{
		X: g.cellIndex(box.Max.X(), g.bounds.Min.X(), g.cellSize.X()),
		Y: g.cellIndex(box.Max.Y(), g.bounds.Min.Y(), g.cellSize.Y()),
		Z: g.cellIndex(box.Max.Z(), g.bounds.Min.Z(), g.cellSize.Z()),
	}
	return lo, hi
}

// Insert references the object from every cell its box overlaps.
func (g *Grid) Insert(o *object.SpatialObject) {
	lo, hi := g.cellRange(o.Bounds)
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				key := cellKey{x, y, z}
				g.cells[key] = append(g.cells[key], o)
				g.entries++
			}
		}
	}
}

// Remove erases the object's reference from every overlapped cell. Returns
// true if at least one reference was removed.
func (g *Grid) Remove(o *object.SpatialObject) bool {
	removed := false
	lo, hi := g.cellRange(o.Bounds)
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				key := cellKey{x, y, z}
				bucket := g.cells[key]
				for i := 0; i < len(bucket); {
					if bucket[i].ID == o.ID {
						bucket = append(bucket[:i], bucket[i+1:]...)
						g.entries--
						removed = true
						continue
					}
					i++
				}
				if len(bucket) == 0 {
					delete(g.cells, key)
				} else {
					g.cells[key] = bucket
				}
			}
		}
	}
	return removed
}

// collect unions the buckets of every cell overlapped by box, de-duplicating
// by ID, and keeps objects accepted by the exact match predicate.
func (g *Grid) collect(box geom.AABB, match func(*object.SpatialObject) bool) []*object.SpatialObject {
	var out []*object.SpatialObject
	seen := make(map[string]struct{})
	lo, hi := g.cellRange(box)
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				for _, o := range g.cells[cellKey{x, y, z}] {
					if _, ok := seen[o.ID]; ok {
						continue
					}
					seen[o.ID] = struct{}{}
					if match(o) {
						out = append(out, o)
					}
				}
			}
		}
	}
	return out
}

// QueryPoint returns every object whose box contains p.
func (g *Grid) QueryPoint(p mgl64.Vec3) []*object.SpatialObject {
	return g.collect(geom.FromPoint(p), func(o *object.SpatialObject) bool {
		return o.Bounds.ContainsPoint(p)
	})
}

// QueryRange returns every object whose box intersects box.
func (g *Grid) QueryRange(box geom.AABB) []*object.SpatialObject {
	return g.collect(box, func(o *object.SpatialObject) bool {
		return o.Bounds.Intersects(box)
	})
}

// QueryRadius returns every object whose box touches the sphere.
func (g *Grid) QueryRadius(center mgl64.Vec3, radius float64) []*object.SpatialObject {
	return g.collect(geom.FromCenterRadius(center, radius), func(o *object.SpatialObject) bool {
		return o.Bounds.IntersectsSphere(center, radius)
	})
}

// Rebuild reconstructs every bucket from scratch.
func (g *Grid) Rebuild(objects []*object.SpatialObject) {
	g.cells = make(map[cellKey][]*object.SpatialObject)
	g.entries = 0
	for _, o := range objects {
		if g.bounds.Intersects(o.Bounds) {
			g.Insert(o)
		}
	}
}

// BucketCount returns the number of occupied cells.
func (g *Grid) BucketCount() int {
	return len(g.cells)
}

// EntryCount returns the total bucket references, counting spanning objects
// once per cell.
func (g *Grid) EntryCount() int {
	return g.entries
}
