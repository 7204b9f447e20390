package medvox

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gchahal1982/medvox/geom"
	"github.com/gchahal1982/medvox/object"
	"github.com/gchahal1982/medvox/query"
)

func makeObj(id string, center mgl64.Vec3, radius float64) *object.SpatialObject {
	return &object.SpatialObject{
		ID:       id,
		Type:     object.TypeLesion,
		Bounds:   geom.FromCenterRadius(center, radius),
		Position: center,
		Metadata: object.Metadata{
			MedicalType: object.MedicalPathology,
			Relevance:   object.RelevanceMedium,
		},
	}
}

func TestInsertRejectsOutOfBounds(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	assert.False(t, idx.Insert(makeObj("far", mgl64.Vec3{150, 150, 150}, 5)))
	assert.Equal(t, 0, idx.Stats().TotalObjects, "rejected insert must not change state")

	// Touching the global bound counts as intersecting.
	assert.True(t, idx.Insert(makeObj("edge", mgl64.Vec3{101, 100, 100}, 1)))
	assert.Equal(t, 1, idx.Stats().TotalObjects)
}

func TestInsertRejectsDuplicateAndInvalid(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	o := makeObj("a", mgl64.Vec3{10, 10, 10}, 2)
	require.True(t, idx.Insert(o))
	assert.False(t, idx.Insert(makeObj("a", mgl64.Vec3{20, 20, 20}, 2)))
	assert.False(t, idx.Insert(nil))

	inverted := makeObj("bad", mgl64.Vec3{10, 10, 10}, 2)
	inverted.Bounds = geom.AABB{Min: mgl64.Vec3{5, 5, 5}, Max: mgl64.Vec3{1, 5, 5}}
	inverted.Bounds.Recompute()
	assert.False(t, idx.Insert(inverted))

	assert.Equal(t, 1, idx.Stats().TotalObjects)
}

func TestInsertAssignsID(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	o := makeObj("", mgl64.Vec3{10, 10, 10}, 2)
	require.True(t, idx.Insert(o))
	assert.NotEmpty(t, o.ID)
}

func TestRoundTrip(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	o := makeObj("a", mgl64.Vec3{10, 10, 10}, 2)
	require.True(t, idx.Insert(o))
	require.Equal(t, 1, idx.Stats().TotalObjects)

	assert.True(t, idx.Remove("a"))
	assert.Equal(t, 0, idx.Stats().TotalObjects)
	assert.False(t, idx.Remove("a"), "second remove of same id")

	res, err := idx.Query(query.Point(mgl64.Vec3{10, 10, 10}))
	require.NoError(t, err)
	assert.Empty(t, res.Objects)
}

func TestUpdateEquivalence(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	oldPos := mgl64.Vec3{10, 10, 10}
	newPos := mgl64.Vec3{80, 80, 80}
	require.True(t, idx.Insert(makeObj("a", oldPos, 2)))

	require.True(t, idx.Update(makeObj("a", newPos, 2)))
	assert.Equal(t, 1, idx.Stats().TotalObjects)

	res, err := idx.Query(query.Point(oldPos))
	require.NoError(t, err)
	assert.Empty(t, res.Objects, "old position must no longer match")

	res, err = idx.Query(query.Point(newPos))
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "a", res.Objects[0].ID)
}

// Callers may mutate a held object's geometry and hand the same pointer back
// to Update. Structures locate references by the placement box, so the update
// must still clear every reference placed under the old bounds.
func TestUpdateWithInPlaceMutation(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	oldPos := mgl64.Vec3{10, 10, 10}
	newPos := mgl64.Vec3{80, 80, 80}

	o := makeObj("a", oldPos, 2)
	require.True(t, idx.Insert(o))

	o.Bounds = geom.FromCenterRadius(newPos, 2)
	o.Position = newPos
	require.True(t, idx.Update(o))

	res, err := idx.Query(query.Point(oldPos))
	require.NoError(t, err)
	assert.Empty(t, res.Objects)

	res, err = idx.Query(query.Point(newPos))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.IDs())

	require.True(t, idx.Remove("a"))
	assert.Equal(t, 0, idx.Stats().TotalObjects)

	res, err = idx.Query(query.Nearest(oldPos, 1))
	require.NoError(t, err)
	assert.Empty(t, res.Objects, "no stale structure references after removal")
}

func TestRemoveAfterInPlaceMutation(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	o := makeObj("a", mgl64.Vec3{10, 10, 10}, 2)
	require.True(t, idx.Insert(o))

	// Mutating the live object must not strand the references placed under
	// the original box.
	o.Bounds = geom.FromCenterRadius(mgl64.Vec3{80, 80, 80}, 2)
	require.True(t, idx.Remove("a"))

	res, err := idx.Query(query.Nearest(mgl64.Vec3{10, 10, 10}, 1))
	require.NoError(t, err)
	assert.Empty(t, res.Objects)

	res, err = idx.Query(query.Range(testBounds()))
	require.NoError(t, err)
	assert.Empty(t, res.Objects)
}

func TestUpdateUnknownOrInvalidLeavesStateIntact(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	assert.False(t, idx.Update(makeObj("ghost", mgl64.Vec3{10, 10, 10}, 2)))

	require.True(t, idx.Insert(makeObj("a", mgl64.Vec3{10, 10, 10}, 2)))
	assert.False(t, idx.Update(makeObj("a", mgl64.Vec3{200, 200, 200}, 2)),
		"out-of-bounds update rejected")

	res, err := idx.Query(query.Point(mgl64.Vec3{10, 10, 10}))
	require.NoError(t, err)
	assert.Len(t, res.Objects, 1, "previous placement survives a rejected update")
}

// Five point objects clustered near (1,1,1) in a 100^3 volume with a leaf
// capacity of 4 force the octree to subdivide; a full-volume range query must
// still return each object exactly once.
func TestClusteredSubdivisionScenario(t *testing.T) {
	idx := Hybrid(testBounds()).MaxObjectsPerNode(4).MustBuild()
	defer idx.Close()

	centers := []mgl64.Vec3{
		{1, 1, 1},
		{1.5, 1, 1},
		{1, 1.5, 1},
		{1, 1, 1.5},
		{1.5, 1.5, 1.5},
	}
	for i, c := range centers {
		require.True(t, idx.Insert(makeObj(fmt.Sprintf("o%d", i), c, 0.1)))
	}

	s := idx.Stats()
	assert.Equal(t, 5, s.TotalObjects)
	assert.Greater(t, s.OctreeNodes, 1, "octree must have subdivided")

	res, err := idx.Query(query.Range(testBounds()))
	require.NoError(t, err)
	require.Len(t, res.Objects, 5)

	seen := make(map[string]struct{})
	for _, o := range res.Objects {
		seen[o.ID] = struct{}{}
	}
	assert.Len(t, seen, 5, "each id exactly once")
}

func TestStraddlerDeduplicated(t *testing.T) {
	idx := Hybrid(testBounds()).GridSize(8).MustBuild()
	defer idx.Close()

	// Spans the volume center, so the octree and the grid both hold several
	// references to it.
	require.True(t, idx.Insert(makeObj("big", mgl64.Vec3{50, 50, 50}, 20)))

	for _, q := range []*query.Query{
		query.Range(testBounds()),
		query.Overlap(testBounds()),
		query.Radius(mgl64.Vec3{50, 50, 50}, 30),
	} {
		res, err := idx.Query(q)
		require.NoError(t, err)
		assert.Len(t, res.Objects, 1, "kind %s", q.Kind)
	}
}

func TestCacheCoherence(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	require.True(t, idx.Insert(makeObj("a", mgl64.Vec3{10, 10, 10}, 2)))
	require.True(t, idx.Insert(makeObj("b", mgl64.Vec3{20, 20, 20}, 2)))

	first, err := idx.Query(query.Radius(mgl64.Vec3{15, 15, 15}, 40))
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := idx.Query(query.Radius(mgl64.Vec3{15, 15, 15}, 40))
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.IDs(), second.IDs(), "cached result order identical")

	require.True(t, idx.Insert(makeObj("c", mgl64.Vec3{30, 30, 30}, 2)))

	third, err := idx.Query(query.Radius(mgl64.Vec3{15, 15, 15}, 40))
	require.NoError(t, err)
	assert.False(t, third.CacheHit, "mutation invalidates the cache")
	assert.Len(t, third.Objects, 3)
}

func TestNearestOrdering(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	require.True(t, idx.Insert(makeObj("near", mgl64.Vec3{12, 10, 10}, 1)))
	require.True(t, idx.Insert(makeObj("mid", mgl64.Vec3{30, 10, 10}, 1)))
	require.True(t, idx.Insert(makeObj("far", mgl64.Vec3{90, 90, 90}, 1)))

	res, err := idx.Query(query.Nearest(mgl64.Vec3{10, 10, 10}, 2))
	require.NoError(t, err)
	require.Equal(t, []string{"near", "mid"}, res.IDs())
	require.Len(t, res.Distances, 2)
	assert.LessOrEqual(t, res.Distances[0], res.Distances[1])

	// k = 0 means unbounded: everything, distance-sorted.
	res, err = idx.Query(query.Nearest(mgl64.Vec3{10, 10, 10}, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "mid", "far"}, res.IDs())
}

func TestRayQuery(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	require.True(t, idx.Insert(makeObj("hit", mgl64.Vec3{50, 10, 10}, 2)))
	require.True(t, idx.Insert(makeObj("miss", mgl64.Vec3{50, 80, 80}, 2)))

	res, err := idx.Query(query.Ray(mgl64.Vec3{0, 10, 10}, mgl64.Vec3{1, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, []string{"hit"}, res.IDs())
}

func TestQueryFilters(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	lesion := makeObj("lesion", mgl64.Vec3{10, 10, 10}, 2)
	lesion.Metadata.Density = 0.9

	organ := makeObj("organ", mgl64.Vec3{12, 10, 10}, 2)
	organ.Metadata.MedicalType = object.MedicalAnatomy
	organ.Metadata.Density = 0.2

	require.True(t, idx.Insert(lesion))
	require.True(t, idx.Insert(organ))

	// Indexed equality filter, resolved via posting lists.
	res, err := idx.Query(query.Radius(mgl64.Vec3{10, 10, 10}, 20).
		WithFilters(query.Equals(query.FieldMedicalType, "pathology")))
	require.NoError(t, err)
	assert.Equal(t, []string{"lesion"}, res.IDs())
	assert.Equal(t, 2, res.TotalCandidates, "candidates counted before filtering")

	// Numeric filter, evaluated per object.
	res, err = idx.Query(query.Radius(mgl64.Vec3{10, 10, 10}, 20).
		WithFilters(query.Greater(query.FieldDensity, 0.5)))
	require.NoError(t, err)
	assert.Equal(t, []string{"lesion"}, res.IDs())
}

func TestQuerySortAndTruncate(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	low := makeObj("low", mgl64.Vec3{10, 10, 10}, 2)
	low.Priority = 1
	high := makeObj("high", mgl64.Vec3{20, 20, 20}, 2)
	high.Priority = 9

	require.True(t, idx.Insert(low))
	require.True(t, idx.Insert(high))

	res, err := idx.Query(query.Range(testBounds()).WithSort(query.SortPriority))
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "low"}, res.IDs())

	res, err = idx.Query(query.Range(testBounds()).
		WithSort(query.SortPriority).
		WithMaxResults(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"high"}, res.IDs())
	assert.Equal(t, 2, res.TotalCandidates)
}

func TestSingleStructureModes(t *testing.T) {
	builders := map[string]Builder{
		"octree":       Octree(testBounds()),
		"rtree":        RTree(testBounds()),
		"spatial hash": SpatialHash(testBounds()),
	}

	for name, b := range builders {
		t.Run(name, func(t *testing.T) {
			idx := b.MustBuild()
			defer idx.Close()

			require.True(t, idx.Insert(makeObj("a", mgl64.Vec3{10, 10, 10}, 2)))
			require.True(t, idx.Insert(makeObj("b", mgl64.Vec3{80, 80, 80}, 2)))

			res, err := idx.Query(query.Point(mgl64.Vec3{10, 10, 10}))
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, res.IDs())

			res, err = idx.Query(query.Radius(mgl64.Vec3{80, 80, 80}, 5))
			require.NoError(t, err)
			assert.Equal(t, []string{"b"}, res.IDs())

			res, err = idx.Query(query.Range(testBounds()))
			require.NoError(t, err)
			assert.Len(t, res.Objects, 2)

			res, err = idx.Query(query.Nearest(mgl64.Vec3{12, 10, 10}, 1))
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, res.IDs())

			res, err = idx.Query(query.Ray(mgl64.Vec3{0, 10, 10}, mgl64.Vec3{1, 0, 0}))
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, res.IDs())
		})
	}
}

func TestOptimizeRebuildsUnderChurn(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	idx := Hybrid(testBounds()).
		MaxObjectsPerNode(1).
		Metrics(metrics).
		MustBuild()
	defer idx.Close()

	for i := 0; i < 5; i++ {
		require.True(t, idx.Insert(makeObj(fmt.Sprintf("o%d", i), mgl64.Vec3{1 + 0.3*float64(i), 1, 1}, 0.1)))
	}
	before := idx.Stats().OctreeNodes
	require.Greater(t, before, 1)

	for i := 0; i < 4; i++ {
		require.True(t, idx.Remove(fmt.Sprintf("o%d", i)))
	}

	idx.Optimize()

	assert.Equal(t, 1, idx.Stats().OctreeNodes, "rebuild compacts the octree")
	assert.Equal(t, int64(1), metrics.OptimizeRebuilds.Load())
	assert.Equal(t, 1, idx.Stats().TotalObjects)
}

func TestOptimizeDisabledRefinement(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	idx := Hybrid(testBounds()).
		MaxObjectsPerNode(1).
		AdaptiveRefinement(false).
		Metrics(metrics).
		MustBuild()
	defer idx.Close()

	for i := 0; i < 5; i++ {
		require.True(t, idx.Insert(makeObj(fmt.Sprintf("o%d", i), mgl64.Vec3{1 + 0.3*float64(i), 1, 1}, 0.1)))
	}
	before := idx.Stats().OctreeNodes

	idx.Optimize()

	assert.Equal(t, before, idx.Stats().OctreeNodes)
	assert.Equal(t, int64(0), metrics.OptimizeRebuilds.Load())
	assert.Equal(t, int64(1), metrics.OptimizeCount.Load())
}

func TestStats(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	defer idx.Close()

	require.True(t, idx.Insert(makeObj("a", mgl64.Vec3{10, 10, 10}, 2)))
	_, err := idx.Query(query.Point(mgl64.Vec3{10, 10, 10}))
	require.NoError(t, err)

	s := idx.Stats()
	assert.Equal(t, 1, s.TotalObjects)
	assert.Equal(t, KindHybrid, s.Kind)
	assert.Equal(t, 1, s.CacheLen)
	assert.Positive(t, s.ApproxMemoryBytes)
	assert.GreaterOrEqual(t, s.OctreeNodes, 1)
	assert.GreaterOrEqual(t, s.RTreeNodes, 1)
	assert.Positive(t, s.GridBuckets)
}

func TestUseAfterClosePanics(t *testing.T) {
	idx := Hybrid(testBounds()).MustBuild()
	idx.Close()
	idx.Close() // second close is a no-op

	assert.Panics(t, func() { idx.Insert(makeObj("a", mgl64.Vec3{10, 10, 10}, 2)) })
	assert.Panics(t, func() { _, _ = idx.Query(query.Point(mgl64.Vec3{10, 10, 10})) })
	assert.Panics(t, func() { idx.Remove("a") })
	assert.Panics(t, func() { idx.Stats() })
}
