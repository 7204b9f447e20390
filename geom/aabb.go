// Package geom provides axis-aligned bounding box math for the spatial index.
//
// All boxes are closed intervals: touching boxes intersect and boundary points
// are contained. Degenerate (zero-volume) boxes are legal and behave as points
// or slabs under every predicate.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box described by its Min and Max corners.
// Center, Size and Volume are derived fields kept in sync by Recompute; code
// that mutates Min or Max directly must call Recompute afterwards.
type AABB struct {
	Min    mgl64.Vec3 `json:"min"`
	Max    mgl64.Vec3 `json:"max"`
	Center mgl64.Vec3 `json:"center"`
	Size   mgl64.Vec3 `json:"size"`
	Volume float64    `json:"volume"`
}

// New creates a box from its corners and computes the derived fields.
func New(min, max mgl64.Vec3) AABB {
	b := AABB{Min: min, Max: max}
	b.Recompute()
	return b
}

// FromCenterRadius returns the box that tightly encloses a sphere.
func FromCenterRadius(center mgl64.Vec3, radius float64) AABB {
	r := mgl64.Vec3{radius, radius, radius}
	return New(center.Sub(r), center.Add(r))
}

// FromPoint returns the degenerate box covering exactly one point.
func FromPoint(p mgl64.Vec3) AABB {
	return New(p, p)
}

// Recompute refreshes Center, Size and Volume after Min/Max changed.
func (b *AABB) Recompute() {
	b.Center = b.Min.Add(b.Max).Mul(0.5)
	b.Size = b.Max.Sub(b.Min)
	b.Volume = b.Size.X() * b.Size.Y() * b.Size.Z()
}

// Valid reports whether Max >= Min on every axis.
func (b AABB) Valid() bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether the two boxes overlap on all three axes.
// Intervals are closed, so boxes that merely touch count as intersecting.
func (b AABB) Intersects(o AABB) bool {
	return b.Min.X() <= o.Max.X() && b.Max.X() >= o.Min.X() &&
		b.Min.Y() <= o.Max.Y() && b.Max.Y() >= o.Min.Y() &&
		b.Min.Z() <= o.Max.Z() && b.Max.Z() >= o.Min.Z()
}

// ContainsPoint reports whether p lies within [Min, Max] on every axis.
func (b AABB) ContainsPoint(p mgl64.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

// Contains reports whether o lies entirely within b.
func (b AABB) Contains(o AABB) bool {
	return o.Min.X() >= b.Min.X() && o.Max.X() <= b.Max.X() &&
		o.Min.Y() >= b.Min.Y() && o.Max.Y() <= b.Max.Y() &&
		o.Min.Z() >= b.Min.Z() && o.Max.Z() <= b.Max.Z()
}

// IntersectsSphere reports whether the sphere at center with the given radius
// touches the box. Uses the closest point on the box to the sphere center.
func (b AABB) IntersectsSphere(center mgl64.Vec3, radius float64) bool {
	return b.SquaredDistanceToPoint(center) <= radius*radius
}

// SquaredDistanceToPoint returns the squared distance from p to the closest
// point on the box. Zero when p is inside.
func (b AABB) SquaredDistanceToPoint(p mgl64.Vec3) float64 {
	var d float64
	for i := 0; i < 3; i++ {
		v := p[i]
		if v < b.Min[i] {
			d += (b.Min[i] - v) * (b.Min[i] - v)
		} else if v > b.Max[i] {
			d += (v - b.Max[i]) * (v - b.Max[i])
		}
	}
	return d
}

// DistanceToPoint returns the distance from p to the closest point on the box.
func (b AABB) DistanceToPoint(p mgl64.Vec3) float64 {
	return math.Sqrt(b.SquaredDistanceToPoint(p))
}

// Expand grows b so that it covers o and recomputes the derived fields.
func (b *AABB) Expand(o AABB) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], o.Min[i])
		b.Max[i] = math.Max(b.Max[i], o.Max[i])
	}
	b.Recompute()
}

// Union returns the smallest box covering both a and b.
func Union(a, b AABB) AABB {
	a.Expand(b)
	return a
}

// Enlargement returns the volume increase required for b to cover o.
// Used by the bounding-volume tree's insertion heuristic.
func (b AABB) Enlargement(o AABB) float64 {
	return Union(b, o).Volume - b.Volume
}

// Octant returns the i-th of the eight equal children produced by bisecting
// the box at its center. Bit 0 selects the upper X half, bit 1 the upper Y
// half and bit 2 the upper Z half.
func (b AABB) Octant(i int) AABB {
	min := b.Min
	max := b.Center
	if i&1 != 0 {
		min[0] = b.Center[0]
		max[0] = b.Max[0]
	}
	if i&2 != 0 {
		min[1] = b.Center[1]
		max[1] = b.Max[1]
	}
	if i&4 != 0 {
		min[2] = b.Center[2]
		max[2] = b.Max[2]
	}
	return New(min, max)
}

// IntersectsRay reports whether the ray from origin along dir hits the box.
// Standard slab test; dir does not need to be normalized. Zero direction
// components are handled through IEEE infinities.
func (b AABB) IntersectsRay(origin, dir mgl64.Vec3) bool {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)
	for i := 0; i < 3; i++ {
		inv := 1.0 / dir[i]
		t0 := (b.Min[i] - origin[i]) * inv
		t1 := (b.Max[i] - origin[i]) * inv
		if inv < 0 {
			t0, t1 = t1, t0
		}
		if math.IsNaN(t0) || math.IsNaN(t1) {
			// Origin on a zero-thickness slab with a zero direction component.
			if origin[i] < b.Min[i] || origin[i] > b.Max[i] {
				return false
			}
			continue
		}
		tmin = math.Max(tmin, t0)
		tmax = math.Min(tmax, t1)
		if tmax < tmin {
			return false
		}
	}
	return tmax >= 0
}
