// Package rtree implements a height-balanced-ish hierarchy of bounding boxes
// for radius and nearest-style queries.
//
// Insertion descends into the child needing the least volume enlargement and
// splits overflowing leaves on the axis of greatest positional variance at
// the median. There is no minimum-fill enforcement and no rebalance on
// deletion; long churny sessions rely on the facade's compaction rebuild.
package rtree

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gchahal1982/medvox/geom"
	"github.com/gchahal1982/medvox/object"
)

// Tree is a dynamic bounding-volume tree.
type Tree struct {
	root        *node
	maxChildren int
	size        int
	nodeCount   int
}

type node struct {
	bounds   geom.AABB
	leaf     bool
	objects  []*object.SpatialObject // leaf only
	children []*node                 // internal only, two after a split
}

// New creates an empty tree. Leaves split once they exceed maxChildren
// objects.
func New(maxChildren int) *Tree {
	if maxChildren < 2 {
		maxChildren = 2
	}
	return &Tree{
		root:        &node{leaf: true},
		maxChildren: maxChildren,
		nodeCount:   1,
	}
}

// Size returns the number of stored objects.
func (t *Tree) Size() int {
	return t.size
}

// NodeCount returns the number of allocated nodes.
func (t *Tree) NodeCount() int {
	return t.nodeCount
}

// Insert adds an object, enlarging ancestor boxes on the way down and
// splitting the target leaf if it overflows.
func (t *Tree) Insert(o *object.SpatialObject) {
	t.insert(t.root, o)
	t.size++
}

func (t *Tree) insert(n *node, o *object.SpatialObject) {
	if len(n.objects) == 0 && len(n.children) == 0 {
		n.bounds = o.Bounds
	} else {
		n.bounds.Expand(o.Bounds)
	}

	if n.leaf {
		n.objects = append(n.objects, o)
		if len(n.objects) > t.maxChildren {
			t.split(n)
		}
		return
	}

	t.insert(t.chooseChild(n, o), o)
}

// chooseChild picks the child whose box needs the least volume enlargement to
// cover the object, breaking ties by smaller volume.
func (t *Tree) chooseChild(n *node, o *object.SpatialObject) *node {
	best := n.children[0]
	bestEnlarge := best.bounds.Enlargement(o.Bounds)
	for _, c := range n.children[1:] {
		e := c.bounds.Enlargement(o.Bounds)
		if e < bestEnlarge || (e == bestEnlarge && c.bounds.Volume < best.bounds.Volume) {
			best = c
			bestEnlarge = e
		}
	}
	return best
}

// split partitions an overflowing leaf at the median of the axis with the
// greatest positional variance. The leaf becomes internal with two children.
func (t *Tree) split(n *node) {
	axis := varianceAxis(n.objects)
	sort.SliceStable(n.objects, func(i, j int) bool {
		return n.objects[i].Position[axis] < n.objects[j].Position[axis]
	})
	mid := len(n.objects) / 2

	left := newLeaf(n.objects[:mid:mid])
	right := newLeaf(n.objects[mid:])

	n.leaf = false
	n.objects = nil
	n.children = []*node{left, right}
	t.nodeCount += 2
}

func newLeaf(objs []*object.SpatialObject) *node {
	n := &node{leaf: true, objects: objs}
	if len(objs) > 0 {
		n.bounds = objs[0].Bounds
		for _, o := range objs[1:] {
			n.bounds.Expand(o.Bounds)
		}
	}
	return n
}

// varianceAxis returns the axis with the greatest variance of object
// positions. A cheap stand-in for the quadratic/R*-tree split heuristics.
func varianceAxis(objs []*object.SpatialObject) int {
	var mean, m2 mgl64.Vec3
	for i, o := range objs {
		for a := 0; a < 3; a++ {
			delta := o.Position[a] - mean[a]
			mean[a] += delta / float64(i+1)
			m2[a] += delta * (o.Position[a] - mean[a])
		}
	}
	axis := 0
	for a := 1; a < 3; a++ {
		if m2[a] > m2[axis] {
			axis = a
		}
	}
	return axis
}

// Remove deletes the object with the matching ID. Node boxes are recomputed
// bottom-up but sibling nodes are never merged.
func (t *Tree) Remove(o *object.SpatialObject) bool {
	if t.remove(t.root, o) {
		t.size--
		return true
	}
	return false
}

func (t *Tree) remove(n *node, o *object.SpatialObject) bool {
	if t.size > 0 && !n.bounds.Intersects(o.Bounds) {
		return false
	}
	if n.leaf {
		for i, held := range n.objects {
			if held.ID == o.ID {
				n.objects = append(n.objects[:i], n.objects[i+1:]...)
				n.recomputeBounds()
				return true
			}
		}
		return false
	}
	for _, c := range n.children {
		if t.remove(c, o) {
			n.recomputeBounds()
			return true
		}
	}
	return false
}

func (n *node) recomputeBounds() {
	first := true
	if n.leaf {
		for _, o := range n.objects {
			if first {
				n.bounds = o.Bounds
				first = false
			} else {
				n.bounds.Expand(o.Bounds)
			}
		}
	} else {
		for _, c := range n.children {
			if first {
				n.bounds = c.bounds
				first = false
			} else {
				n.bounds.Expand(c.bounds)
			}
		}
	}
	if first {
		n.bounds = geom.AABB{}
	}
}

// SearchRange returns all objects whose box intersects box.
func (t *Tree) SearchRange(box geom.AABB) []*object.SpatialObject {
	var out []*object.SpatialObject
	t.search(t.root,
		func(b geom.AABB) bool { return b.Intersects(box) },
		func(o *object.SpatialObject) bool { return o.Bounds.Intersects(box) },
		&out,
	)
	return out
}

// SearchRadius returns all objects whose box touches the sphere, pruning
// subtrees by sphere-to-box distance.
func (t *Tree) SearchRadius(center mgl64.Vec3, radius float64) []*object.SpatialObject {
	var out []*object.SpatialObject
	t.search(t.root,
		func(b geom.AABB) bool { return b.IntersectsSphere(center, radius) },
		func(o *object.SpatialObject) bool { return o.Bounds.IntersectsSphere(center, radius) },
		&out,
	)
	return out
}

// NearestCandidates gathers candidates for a k-nearest query around pos. The
// tree prunes with a growing search sphere but performs no true best-first
// nearest traversal; the caller distance-sorts and truncates.
func (t *Tree) NearestCandidates(pos mgl64.Vec3, k int) []*object.SpatialObject {
	if t.size == 0 {
		return nil
	}
	// Non-positive k means no bound: every object is a candidate.
	if k <= 0 {
		return t.collectAll()
	}
	// Grow the probe sphere from the distance to the root box until enough
	// candidates turn up or the whole tree is covered.
	radius := t.root.bounds.DistanceToPoint(pos)
	if radius == 0 {
		radius = smallestExtent(t.root.bounds)
	}
	if radius == 0 {
		radius = 1
	}
	for i := 0; i < 32; i++ {
		out := t.SearchRadius(pos, radius)
		if len(out) >= k || len(out) == t.size {
			return out
		}
		radius *= 2
	}
	return t.collectAll()
}

func smallestExtent(b geom.AABB) float64 {
	e := b.Size.X()
	if b.Size.Y() < e {
		e = b.Size.Y()
	}
	if b.Size.Z() < e {
		e = b.Size.Z()
	}
	return e / 2
}

func (t *Tree) collectAll() []*object.SpatialObject {
	var out []*object.SpatialObject
	t.search(t.root,
		func(geom.AABB) bool { return true },
		func(*object.SpatialObject) bool { return true },
		&out,
	)
	return out
}

func (t *Tree) search(n *node, prune func(geom.AABB) bool, match func(*object.SpatialObject) bool, out *[]*object.SpatialObject) {
	if !prune(n.bounds) {
		return
	}
	if n.leaf {
		for _, o := range n.objects {
			if match(o) {
				*out = append(*out, o)
			}
		}
		return
	}
	for _, c := range n.children {
		t.search(c, prune, match, out)
	}
}

// Rebuild reconstructs the tree from scratch, discarding the imbalance left
// behind by deletions.
func (t *Tree) Rebuild(objects []*object.SpatialObject) {
	t.root = &node{leaf: true}
	t.size = 0
	t.nodeCount = 1
	for _, o := range objects {
		t.Insert(o)
	}
}

// Children returns the root's child boxes and object counts, exposed for
// structural assertions and diagnostics.
func (t *Tree) Children() []ChildStat {
	if t.root.leaf {
		return nil
	}
	stats := make([]ChildStat, 0, len(t.root.children))
	for _, c := range t.root.children {
		stats = append(stats, ChildStat{Bounds: c.bounds, Count: c.subtreeSize()})
	}
	return stats
}

// ChildStat summarizes one direct child of the root.
type ChildStat struct {
	Bounds geom.AABB
	Count  int
}

func (n *node) subtreeSize() int {
	if n.leaf {
		return len(n.objects)
	}
	total := 0
	for _, c := range n.children {
		total += c.subtreeSize()
	}
	return total
}
