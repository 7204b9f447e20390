package medvox

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gchahal1982/medvox/geom"
	"github.com/gchahal1982/medvox/hashgrid"
	"github.com/gchahal1982/medvox/object"
	"github.com/gchahal1982/medvox/octree"
	"github.com/gchahal1982/medvox/query"
	"github.com/gchahal1982/medvox/registry"
	"github.com/gchahal1982/medvox/rtree"
)

// rebuildMinChurn is the mutation count below which Optimize never rebuilds,
// regardless of index size.
const rebuildMinChurn = 64

// Rough per-entry costs for the memory estimate in Stats. Structures store
// pointers plus node overhead; the registry owns the objects themselves.
const (
	approxObjectBytes = 256
	approxNodeBytes   = 96
	approxEntryBytes  = 16
)

// Index is the spatial index facade. It owns the object registry and the
// structures selected by the configured Kind, routes queries, applies
// metadata filters, sorting and result caching, and keeps everything
// consistent under insert/update/remove.
//
// All methods are safe for concurrent use; a single exclusive lock serializes
// every operation. Calling any method after Close panics.
type Index struct {
	mu sync.Mutex

	kind   Kind
	bounds geom.AABB

	registry *registry.Registry
	oct      *octree.Tree
	rt       *rtree.Tree
	grid     *hashgrid.Grid

	// placed records the bounding box each object was inserted under. The
	// structures locate references by pruning on the box, so removal must use
	// the box at placement time, not the object's current one — a caller may
	// have mutated Bounds in place before an Update or Remove.
	placed map[string]geom.AABB

	cache          *queryCache
	adaptiveRefine bool
	churn          int

	compressionLevel int

	logger  *Logger
	metrics MetricsCollector

	closed bool
}

func newIndex(b Builder) *Index {
	idx := &Index{
		kind:             b.kind,
		bounds:           b.bounds,
		registry:         registry.New(),
		placed:           make(map[string]geom.AABB),
		cache:            newQueryCache(b.cacheSize),
		adaptiveRefine:   b.adaptiveRefine,
		compressionLevel: b.compressionLevel,
		logger:           b.logger,
		metrics:          b.metrics,
	}
	if idx.logger == nil {
		idx.logger = NoopLogger()
	}
	if idx.metrics == nil {
		idx.metrics = NoopMetricsCollector{}
	}

	if b.kind == KindHybrid || b.kind == KindOctree {
		idx.oct = octree.New(b.bounds, b.maxDepth, b.maxObjectsPerNode)
	}
	if b.kind == KindHybrid || b.kind == KindRTree {
		idx.rt = rtree.New(b.maxChildren)
	}
	if b.kind == KindHybrid || b.kind == KindSpatialHash {
		idx.grid = hashgrid.New(b.bounds, b.gridSize)
	}

	return idx
}

func (idx *Index) ensureOpen() {
	if idx.closed {
		panic("medvox: use of closed Index")
	}
}

// Insert adds o to the registry and every enabled structure. It returns false
// without touching any state when o is nil, carries a degenerate bounding box,
// lies entirely outside the global bounds, or duplicates an indexed ID. An
// empty ID is assigned a fresh one.
func (idx *Index) Insert(o *object.SpatialObject) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ensureOpen()

	start := time.Now()

	if o == nil || !o.Bounds.Valid() {
		idx.metrics.RecordInsert(time.Since(start), ErrInvalidBounds)
		return false
	}
	if !o.Bounds.Intersects(idx.bounds) {
		idx.logger.LogInsert(o.ID, ErrOutOfBounds)
		idx.metrics.RecordInsert(time.Since(start), ErrOutOfBounds)
		return false
	}
	if o.ID == "" {
		o.ID = object.NewID()
	}

	if !idx.registry.Insert(o) {
		idx.logger.LogInsert(o.ID, ErrDuplicateID)
		idx.metrics.RecordInsert(time.Since(start), ErrDuplicateID)
		return false
	}
	idx.insertStructures(o)

	o.Touch()
	idx.mutated()

	idx.logger.LogInsert(o.ID, nil)
	idx.metrics.RecordInsert(time.Since(start), nil)
	return true
}

func (idx *Index) insertStructures(o *object.SpatialObject) {
	if idx.oct != nil {
		idx.oct.Insert(o)
	}
	if idx.rt != nil {
		idx.rt.Insert(o)
	}
	if idx.grid != nil {
		idx.grid.Insert(o)
	}
	idx.placed[o.ID] = o.Bounds
}

func (idx *Index) removeStructures(o *object.SpatialObject) {
	ref := o
	if box, ok := idx.placed[o.ID]; ok && box != o.Bounds {
		ref = &object.SpatialObject{ID: o.ID, Bounds: box}
	}
	delete(idx.placed, o.ID)

	if idx.oct != nil {
		idx.oct.Remove(ref)
	}
	if idx.rt != nil {
		idx.rt.Remove(ref)
	}
	if idx.grid != nil {
		idx.grid.Remove(ref)
	}
}

// mutated bumps the churn counter and drops the whole query cache. Cache
// invalidation is deliberately coarse: any mutation may move results for any
// cached query.
func (idx *Index) mutated() {
	idx.churn++
	idx.cache.purge()
}

// Query executes q and returns the matched objects post-filtered, sorted and
// truncated per q. A repeated query with no intervening mutation is served
// from the result cache with CacheHit set.
func (idx *Index) Query(q *query.Query) (*query.Result, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ensureOpen()

	start := time.Now()

	if q == nil {
		return nil, errors.New("medvox: nil query")
	}

	key, err := q.Key()
	if err != nil {
		return nil, fmt.Errorf("medvox: canonicalize query: %w", err)
	}

	if cached, ok := idx.cache.get(key); ok {
		for _, o := range cached.objects {
			o.Touch()
		}
		res := &query.Result{
			Objects:         cached.objects,
			Distances:       cached.distances,
			TotalCandidates: cached.totalCandidates,
			Duration:        time.Since(start),
			CacheHit:        true,
		}
		idx.logger.LogQuery(q.Kind.String(), len(res.Objects), true, res.Duration)
		idx.metrics.RecordQuery(q.Kind.String(), len(res.Objects), res.Duration, true)
		return res, nil
	}

	candidates := idx.route(q)
	matched := idx.narrow(q, candidates)
	total := len(matched)

	matched = idx.applyFilters(q.Filters, matched)
	distances := idx.sortResults(q, matched)
	matched, distances = truncate(q, matched, distances)

	for _, o := range matched {
		o.Touch()
	}

	idx.cache.set(key, cachedResult{
		objects:         matched,
		distances:       distances,
		totalCandidates: total,
	})

	res := &query.Result{
		Objects:         matched,
		Distances:       distances,
		TotalCandidates: total,
		Duration:        time.Since(start),
	}
	idx.logger.LogQuery(q.Kind.String(), len(res.Objects), false, res.Duration)
	idx.metrics.RecordQuery(q.Kind.String(), len(res.Objects), res.Duration, false)
	return res, nil
}

// route collects broad-phase candidates from the structure best suited to the
// query kind. The returned slice may contain duplicates (straddling objects
// are multi-referenced) and bucket-level false positives; narrow cleans both
// up.
func (idx *Index) route(q *query.Query) []*object.SpatialObject {
	switch {
	case idx.kind == KindHybrid:
		return idx.routeHybrid(q)
	case idx.oct != nil:
		return idx.routeOctree(q)
	case idx.rt != nil:
		return idx.routeRTree(q)
	default:
		return idx.routeGrid(q)
	}
}

func (idx *Index) routeHybrid(q *query.Query) []*object.SpatialObject {
	switch q.Kind {
	case query.KindPoint:
		return idx.oct.QueryPoint(q.Position)
	case query.KindRange:
		return idx.oct.QueryRange(idx.rangeBox(q))
	case query.KindRadius:
		return idx.rt.SearchRadius(q.Position, q.Radius)
	case query.KindNearest:
		return idx.rt.NearestCandidates(q.Position, q.K)
	case query.KindOverlap:
		return idx.grid.QueryRange(idx.rangeBox(q))
	case query.KindRay:
		return idx.oct.QueryRay(q.Position, q.Direction)
	default: // frustum and future kinds fall back to the octree
		return idx.oct.QueryRange(idx.rangeBox(q))
	}
}

func (idx *Index) routeOctree(q *query.Query) []*object.SpatialObject {
	switch q.Kind {
	case query.KindPoint:
		return idx.oct.QueryPoint(q.Position)
	case query.KindRadius:
		return idx.oct.QueryRadius(q.Position, q.Radius)
	case query.KindRay:
		return idx.oct.QueryRay(q.Position, q.Direction)
	case query.KindNearest:
		return idx.registry.All()
	default:
		return idx.oct.QueryRange(idx.rangeBox(q))
	}
}

func (idx *Index) routeRTree(q *query.Query) []*object.SpatialObject {
	switch q.Kind {
	case query.KindPoint:
		return idx.rt.SearchRange(geom.FromPoint(q.Position))
	case query.KindRadius:
		return idx.rt.SearchRadius(q.Position, q.Radius)
	case query.KindNearest:
		return idx.rt.NearestCandidates(q.Position, q.K)
	case query.KindRay:
		return idx.rt.SearchRange(idx.bounds)
	default:
		return idx.rt.SearchRange(idx.rangeBox(q))
	}
}

func (idx *Index) routeGrid(q *query.Query) []*object.SpatialObject {
	switch q.Kind {
	case query.KindPoint:
		return idx.grid.QueryPoint(q.Position)
	case query.KindRadius:
		return idx.grid.QueryRadius(q.Position, q.Radius)
	case query.KindNearest:
		return idx.registry.All()
	case query.KindRay:
		return idx.grid.QueryRange(idx.bounds)
	default:
		return idx.grid.QueryRange(idx.rangeBox(q))
	}
}

// rangeBox resolves the query box for box-shaped kinds; kinds without an
// explicit box (frustum without a range, ray on non-octree structures)
// conservatively widen to the global bounds.
func (idx *Index) rangeBox(q *query.Query) geom.AABB {
	if q.Range != nil {
		return *q.Range
	}
	return idx.bounds
}

// narrow de-duplicates candidates by ID and applies the exact geometric
// predicate for the query kind, removing the bucket-granularity false
// positives the broad phase is allowed to produce.
func (idx *Index) narrow(q *query.Query, candidates []*object.SpatialObject) []*object.SpatialObject {
	match := idx.exactMatch(q)
	seen := make(map[string]struct{}, len(candidates))
	out := make([]*object.SpatialObject, 0, len(candidates))
	for _, o := range candidates {
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		if match(o) {
			out = append(out, o)
		}
	}
	return out
}

func (idx *Index) exactMatch(q *query.Query) func(*object.SpatialObject) bool {
	switch q.Kind {
	case query.KindPoint:
		return func(o *object.SpatialObject) bool {
			return o.Bounds.ContainsPoint(q.Position)
		}
	case query.KindRadius:
		return func(o *object.SpatialObject) bool {
			return o.Bounds.IntersectsSphere(q.Position, q.Radius)
		}
	case query.KindRay:
		return func(o *object.SpatialObject) bool {
			return o.Bounds.IntersectsRay(q.Position, q.Direction)
		}
	case query.KindNearest:
		return func(*object.SpatialObject) bool { return true }
	default: // range, overlap, frustum
		box := idx.rangeBox(q)
		return func(o *object.SpatialObject) bool {
			return o.Bounds.Intersects(box)
		}
	}
}

// applyFilters narrows objs by the query's metadata filters, using registry
// posting lists for the indexable equality filters and per-object evaluation
// for the rest.
func (idx *Index) applyFilters(filters []query.Filter, objs []*object.SpatialObject) []*object.SpatialObject {
	if len(filters) == 0 {
		return objs
	}

	ids, remaining, indexed := idx.registry.Candidates(filters)
	if !indexed {
		remaining = filters
	}

	out := objs[:0]
	for _, o := range objs {
		if indexed {
			if _, ok := ids[o.ID]; !ok {
				continue
			}
		}
		if query.MatchesAll(remaining, o) {
			out = append(out, o)
		}
	}
	return out
}

// sortResults orders objs in place per q.SortBy and returns the parallel
// distance slice for distance-sorted queries. Nearest queries are always
// distance-sorted and cut to K here, since the broad phase only gathers
// candidates.
func (idx *Index) sortResults(q *query.Query, objs []*object.SpatialObject) []float64 {
	sortBy := q.SortBy
	if q.Kind == query.KindNearest {
		sortBy = query.SortDistance
	}

	switch sortBy {
	case query.SortDistance:
		dist := make([]float64, len(objs))
		for i, o := range objs {
			dist[i] = o.Bounds.DistanceToPoint(q.Position)
		}
		sort.Sort(&byDistance{objs: objs, dist: dist})
		return dist
	case query.SortPriority:
		sort.SliceStable(objs, func(i, j int) bool {
			return objs[i].Priority > objs[j].Priority
		})
	case query.SortSize:
		sort.SliceStable(objs, func(i, j int) bool {
			return objs[i].Bounds.Volume > objs[j].Bounds.Volume
		})
	case query.SortRelevance:
		sort.SliceStable(objs, func(i, j int) bool {
			return objs[i].Metadata.Relevance.Weight() > objs[j].Metadata.Relevance.Weight()
		})
	}
	return nil
}

type byDistance struct {
	objs []*object.SpatialObject
	dist []float64
}

func (s *byDistance) Len() int           { return len(s.objs) }
func (s *byDistance) Less(i, j int) bool { return s.dist[i] < s.dist[j] }
func (s *byDistance) Swap(i, j int) {
	s.objs[i], s.objs[j] = s.objs[j], s.objs[i]
	s.dist[i], s.dist[j] = s.dist[j], s.dist[i]
}

func truncate(q *query.Query, objs []*object.SpatialObject, dist []float64) ([]*object.SpatialObject, []float64) {
	limit := len(objs)
	if q.Kind == query.KindNearest && q.K > 0 && q.K < limit {
		limit = q.K
	}
	if q.MaxResults > 0 && q.MaxResults < limit {
		limit = q.MaxResults
	}
	objs = objs[:limit]
	if dist != nil {
		dist = dist[:limit]
	}
	return objs, dist
}

// Remove erases the object with the given ID from the registry and every
// structure. It returns false when the ID is unknown.
func (idx *Index) Remove(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ensureOpen()

	start := time.Now()

	o, ok := idx.registry.Remove(id)
	if !ok {
		idx.logger.LogRemove(id, false)
		idx.metrics.RecordRemove(time.Since(start), false)
		return false
	}
	idx.removeStructures(o)
	idx.mutated()

	idx.logger.LogRemove(id, true)
	idx.metrics.RecordRemove(time.Since(start), true)
	return true
}

// Update replaces the indexed object carrying o's ID with o. Structurally this
// is remove-then-reinsert; there is no in-place move, because position and
// shape changes invalidate prior structural placement. It returns false when
// the ID is unknown or o's new bounding box is invalid or entirely outside
// the global bounds, leaving the previous state intact.
func (idx *Index) Update(o *object.SpatialObject) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ensureOpen()

	start := time.Now()

	if o == nil || !o.Bounds.Valid() {
		idx.metrics.RecordUpdate(time.Since(start), ErrInvalidBounds)
		return false
	}
	if !o.Bounds.Intersects(idx.bounds) {
		idx.logger.LogUpdate(o.ID, ErrOutOfBounds)
		idx.metrics.RecordUpdate(time.Since(start), ErrOutOfBounds)
		return false
	}

	old, ok := idx.registry.Remove(o.ID)
	if !ok {
		idx.logger.LogUpdate(o.ID, ErrNotFound)
		idx.metrics.RecordUpdate(time.Since(start), ErrNotFound)
		return false
	}
	idx.removeStructures(old)

	if !idx.registry.Insert(o) {
		panic("medvox: registry rejected reinsert during update")
	}
	idx.insertStructures(o)

	o.Touch()
	idx.mutated()

	idx.logger.LogUpdate(o.ID, nil)
	idx.metrics.RecordUpdate(time.Since(start), nil)
	return true
}

// Stats is a point-in-time summary of the index.
type Stats struct {
	TotalObjects      int
	Kind              Kind
	ApproxMemoryBytes int64
	CacheLen          int
	Bounds            geom.AABB

	OctreeNodes int
	OctreeDepth int
	RTreeNodes  int
	GridBuckets int
}

// Stats returns current index statistics.
func (idx *Index) Stats() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ensureOpen()

	s := Stats{
		TotalObjects: idx.registry.Len(),
		Kind:         idx.kind,
		CacheLen:     idx.cache.len(),
		Bounds:       idx.bounds,
	}

	entries := 0
	if idx.oct != nil {
		s.OctreeNodes = idx.oct.NodeCount()
		s.OctreeDepth = idx.oct.Depth()
		entries += idx.oct.EntryCount()
	}
	if idx.rt != nil {
		s.RTreeNodes = idx.rt.NodeCount()
		entries += idx.rt.Size()
	}
	if idx.grid != nil {
		s.GridBuckets = idx.grid.BucketCount()
		entries += idx.grid.EntryCount()
	}

	nodes := s.OctreeNodes + s.RTreeNodes + s.GridBuckets
	s.ApproxMemoryBytes = int64(s.TotalObjects)*approxObjectBytes +
		int64(nodes)*approxNodeBytes +
		int64(entries)*approxEntryBytes

	return s
}

// Optimize compacts the index. Structures never merge or rebalance on
// removal, so depth and node count grow monotonically under churn; when
// adaptive refinement is enabled and enough mutations have accumulated since
// the last rebuild, Optimize rebuilds every enabled structure from the
// registry in parallel. The query cache is always cleared.
func (idx *Index) Optimize() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ensureOpen()

	start := time.Now()
	defer idx.cache.purge()

	rebuilt := false
	if idx.adaptiveRefine && idx.shouldRebuild() {
		objs := idx.registry.All()

		var g errgroup.Group
		if idx.oct != nil {
			g.Go(func() error {
				idx.oct.Rebuild(objs)
				return nil
			})
		}
		if idx.rt != nil {
			g.Go(func() error {
				idx.rt.Rebuild(objs)
				return nil
			})
		}
		if idx.grid != nil {
			g.Go(func() error {
				idx.grid.Rebuild(objs)
				return nil
			})
		}
		_ = g.Wait() // rebuilds cannot fail

		idx.placed = make(map[string]geom.AABB, len(objs))
		for _, o := range objs {
			idx.placed[o.ID] = o.Bounds
		}

		idx.churn = 0
		rebuilt = true
	}

	elapsed := time.Since(start)
	idx.logger.LogOptimize(rebuilt, elapsed)
	idx.metrics.RecordOptimize(elapsed, rebuilt)
}

// shouldRebuild reports whether accumulated churn justifies a full rebuild:
// either an absolute mutation count, or a quarter of the live object count,
// whichever is hit first.
func (idx *Index) shouldRebuild() bool {
	if idx.churn == 0 {
		return false
	}
	if idx.churn >= rebuildMinChurn {
		return true
	}
	n := idx.registry.Len()
	return n > 0 && idx.churn*4 >= n
}

// Close releases the registry, all structures and the cache. Any further use
// of the index panics; build a new one instead.
func (idx *Index) Close() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return
	}
	idx.closed = true
	idx.registry = nil
	idx.oct = nil
	idx.rt = nil
	idx.grid = nil
	idx.placed = nil
	idx.cache = nil
}
