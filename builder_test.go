package medvox

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gchahal1982/medvox/geom"
)

func testBounds() geom.AABB {
	return geom.New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{100, 100, 100})
}

func TestBuildKinds(t *testing.T) {
	tests := []struct {
		name string
		b    Builder
		kind Kind
	}{
		{"hybrid", Hybrid(testBounds()), KindHybrid},
		{"octree", Octree(testBounds()), KindOctree},
		{"rtree", RTree(testBounds()), KindRTree},
		{"spatial hash", SpatialHash(testBounds()), KindSpatialHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := tt.b.Build()
			require.NoError(t, err)
			defer idx.Close()

			s := idx.Stats()
			assert.Equal(t, tt.kind, s.Kind)
			assert.Equal(t, 0, s.TotalObjects)
			assert.Equal(t, testBounds(), s.Bounds)
		})
	}
}

func TestBuildRejectsKDTree(t *testing.T) {
	_, err := Of(KindKDTree, testBounds()).Build()
	assert.ErrorIs(t, err, ErrUnsupportedIndexKind)
}

func TestBuildRejectsInvalidBounds(t *testing.T) {
	inverted := geom.AABB{Min: mgl64.Vec3{10, 0, 0}, Max: mgl64.Vec3{0, 10, 10}}
	_, err := Hybrid(inverted).Build()
	assert.ErrorIs(t, err, ErrInvalidBounds)
}

func TestBuildValidatesConfig(t *testing.T) {
	tests := []struct {
		name  string
		b     Builder
		param string
	}{
		{"negative depth", Hybrid(testBounds()).MaxDepth(-1), "maxDepth"},
		{"zero leaf capacity", Hybrid(testBounds()).MaxObjectsPerNode(0), "maxObjectsPerNode"},
		{"unary fanout", Hybrid(testBounds()).MaxChildren(1), "maxChildren"},
		{"zero grid", Hybrid(testBounds()).GridSize(0), "gridSize"},
		{"negative cache", Hybrid(testBounds()).CacheSize(-1), "cacheSize"},
		{"negative compression", Hybrid(testBounds()).CompressionLevel(-1), "compressionLevel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.param, cfgErr.Param)
		})
	}
}

func TestBuilderIsImmutable(t *testing.T) {
	base := Hybrid(testBounds())
	tuned := base.MaxDepth(3).GridSize(4)

	assert.Equal(t, defaultMaxDepth, base.maxDepth)
	assert.Equal(t, 3, tuned.maxDepth)
	assert.Equal(t, defaultGridSize, base.gridSize)
	assert.Equal(t, 4, tuned.gridSize)
}

func TestMustBuildPanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		Of(KindKDTree, testBounds()).MustBuild()
	})
}
