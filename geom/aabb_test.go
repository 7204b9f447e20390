package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivedFields(t *testing.T) {
	b := New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 20, 40})

	assert.Equal(t, mgl64.Vec3{5, 10, 20}, b.Center)
	assert.Equal(t, mgl64.Vec3{10, 20, 40}, b.Size)
	assert.Equal(t, 8000.0, b.Volume)
	assert.True(t, b.Valid())
}

func TestIntersects(t *testing.T) {
	a := New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 10, 10})

	tests := []struct {
		name string
		b    AABB
		want bool
	}{
		{"overlapping", New(mgl64.Vec3{5, 5, 5}, mgl64.Vec3{15, 15, 15}), true},
		{"touching face", New(mgl64.Vec3{10, 0, 0}, mgl64.Vec3{20, 10, 10}), true},
		{"touching corner", New(mgl64.Vec3{10, 10, 10}, mgl64.Vec3{20, 20, 20}), true},
		{"disjoint x", New(mgl64.Vec3{11, 0, 0}, mgl64.Vec3{20, 10, 10}), false},
		{"disjoint z only", New(mgl64.Vec3{0, 0, 10.01}, mgl64.Vec3{10, 10, 20}), false},
		{"contained", New(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{2, 2, 2}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Intersects(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersects(a))
		})
	}
}

func TestContainsPoint(t *testing.T) {
	b := New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 10, 10})

	assert.True(t, b.ContainsPoint(mgl64.Vec3{5, 5, 5}))
	assert.True(t, b.ContainsPoint(mgl64.Vec3{0, 0, 0}), "min corner is inside")
	assert.True(t, b.ContainsPoint(mgl64.Vec3{10, 10, 10}), "max corner is inside")
	assert.False(t, b.ContainsPoint(mgl64.Vec3{10.001, 5, 5}))
}

func TestDegenerateBox(t *testing.T) {
	p := mgl64.Vec3{3, 4, 5}
	b := FromPoint(p)

	require.True(t, b.Valid())
	assert.Equal(t, 0.0, b.Volume)
	assert.True(t, b.ContainsPoint(p))
	assert.False(t, b.ContainsPoint(mgl64.Vec3{3, 4, 5.1}))
	assert.True(t, b.Intersects(New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 10, 10})))
	assert.True(t, b.IntersectsSphere(mgl64.Vec3{3, 4, 6}, 1))
}

func TestIntersectsSphere(t *testing.T) {
	b := New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 10, 10})

	assert.True(t, b.IntersectsSphere(mgl64.Vec3{5, 5, 5}, 0.1), "center inside")
	assert.True(t, b.IntersectsSphere(mgl64.Vec3{12, 5, 5}, 2), "touching face")
	assert.False(t, b.IntersectsSphere(mgl64.Vec3{12, 5, 5}, 1.9))
	// Corner case: distance to (10,10,10) is sqrt(3).
	assert.True(t, b.IntersectsSphere(mgl64.Vec3{11, 11, 11}, 1.8))
	assert.False(t, b.IntersectsSphere(mgl64.Vec3{11, 11, 11}, 1.7))
}

func TestExpand(t *testing.T) {
	b := New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b.Expand(New(mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{0, 3, 1}))

	assert.Equal(t, mgl64.Vec3{-1, 0, 0}, b.Min)
	assert.Equal(t, mgl64.Vec3{1, 3, 1}, b.Max)
	assert.Equal(t, mgl64.Vec3{0, 1.5, 0.5}, b.Center)
	assert.Equal(t, 6.0, b.Volume)
	assert.True(t, b.Valid())
}

func TestEnlargement(t *testing.T) {
	b := New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 2, 2})

	assert.Equal(t, 0.0, b.Enlargement(New(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{2, 2, 2})))
	assert.Equal(t, 4.0, b.Enlargement(New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{3, 2, 2})))
}

func TestOctantsTileParent(t *testing.T) {
	b := New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{8, 8, 8})

	var volume float64
	union := b.Octant(0)
	for i := 0; i < 8; i++ {
		o := b.Octant(i)
		require.True(t, o.Valid())
		assert.Equal(t, mgl64.Vec3{4, 4, 4}, o.Size)
		volume += o.Volume
		union.Expand(o)
	}
	assert.Equal(t, b.Volume, volume)
	assert.Equal(t, b.Min, union.Min)
	assert.Equal(t, b.Max, union.Max)
}

func TestIntersectsRay(t *testing.T) {
	b := New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 10, 10})

	assert.True(t, b.IntersectsRay(mgl64.Vec3{-5, 5, 5}, mgl64.Vec3{1, 0, 0}))
	assert.False(t, b.IntersectsRay(mgl64.Vec3{-5, 5, 5}, mgl64.Vec3{-1, 0, 0}), "pointing away")
	assert.False(t, b.IntersectsRay(mgl64.Vec3{-5, 15, 5}, mgl64.Vec3{1, 0, 0}), "misses slab")
	assert.True(t, b.IntersectsRay(mgl64.Vec3{5, 5, 5}, mgl64.Vec3{0, 0, 1}), "origin inside")
	assert.True(t, b.IntersectsRay(mgl64.Vec3{-5, -5, -5}, mgl64.Vec3{1, 1, 1}), "diagonal")
}
