// Package octree implements a hierarchical 8-way partition of a fixed global
// bound, optimized for point and range containment queries.
//
// Objects whose bounding box straddles a split boundary are referenced from
// every overlapping child. Traversal can therefore yield the same object more
// than once; callers de-duplicate by ID.
package octree

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gchahal1982/medvox/geom"
	"github.com/gchahal1982/medvox/object"
)

// Tree is an octree over a fixed global bound.
type Tree struct {
	root          *node
	maxDepth      int
	maxPerNode    int
	nodeCount     int
	deepestLeaf   int
	objectEntries int // total leaf references, counting straddlers once per leaf
}

type node struct {
	bounds   geom.AABB
	objects  []*object.SpatialObject
	children [8]*node
	leaf     bool
	depth    int
	count    int // object references in this subtree
	density  float64
}

// New creates an octree covering bounds. A leaf subdivides once it holds more
// than maxPerNode objects, but never beyond maxDepth.
func New(bounds geom.AABB, maxDepth, maxPerNode int) *Tree {
	return &Tree{
		root:       &node{bounds: bounds, leaf: true},
		maxDepth:   maxDepth,
		maxPerNode: maxPerNode,
		nodeCount:  1,
	}
}

// Bounds returns the global bound.
func (t *Tree) Bounds() geom.AABB {
	return t.root.bounds
}

// Insert adds an object reference to every leaf whose bound overlaps the
// object's box. The object's box must overlap the global bound.
func (t *Tree) Insert(o *object.SpatialObject) {
	t.insert(t.root, o)
}

func (t *Tree) insert(n *node, o *object.SpatialObject) {
	if !n.leaf {
		for _, c := range n.children {
			if c.bounds.Intersects(o.Bounds) {
				t.insert(c, o)
			}
		}
		n.refreshCount()
		return
	}

	n.objects = append(n.objects, o)
	n.count = len(n.objects)
	n.recomputeDensity()
	t.objectEntries++
	if n.depth > t.deepestLeaf {
		t.deepestLeaf = n.depth
	}

	// Past maxDepth the leaf silently accumulates instead of splitting.
	if len(n.objects) > t.maxPerNode && n.depth < t.maxDepth {
		t.subdivide(n)
	}
}

// subdivide turns a leaf into an internal node with 8 children and
// redistributes its objects to every overlapping child. The transition is
// one-way; removal never merges children back.
func (t *Tree) subdivide(n *node) {
	for i := 0; i < 8; i++ {
		n.children[i] = &node{
			bounds: n.bounds.Octant(i),
			leaf:   true,
			depth:  n.depth + 1,
		}
	}
	t.nodeCount += 8

	objs := n.objects
	t.objectEntries -= len(objs)
	n.objects = nil
	n.leaf = false
	n.density = 0

	for _, o := range objs {
		t.insert(n, o)
	}
}

// refreshCount recomputes an internal node's reference count from its
// children. Straddling objects are counted once per holding leaf.
func (n *node) refreshCount() {
	n.count = 0
	for _, c := range n.children {
		n.count += c.count
	}
}

// Remove deletes every leaf reference to the object. Returns true if at least
// one reference was removed.
func (t *Tree) Remove(o *object.SpatialObject) bool {
	return t.remove(t.root, o)
}

func (t *Tree) remove(n *node, o *object.SpatialObject) bool {
	if !n.bounds.Intersects(o.Bounds) {
		return false
	}
	removed := false
	if n.leaf {
		for i := 0; i < len(n.objects); {
			if n.objects[i].ID == o.ID {
				n.objects = append(n.objects[:i], n.objects[i+1:]...)
				t.objectEntries--
				removed = true
				continue
			}
			i++
		}
		if removed {
			n.count = len(n.objects)
			n.recomputeDensity()
		}
		return removed
	}
	for _, c := range n.children {
		if t.remove(c, o) {
			removed = true
		}
	}
	if removed {
		n.refreshCount()
	}
	return removed
}

// recomputeDensity refreshes the leaf's medical density: the mean of each
// object's tissue density weighted by clinical relevance.
func (n *node) recomputeDensity() {
	if len(n.objects) == 0 {
		n.density = 0
		return
	}
	var sum float64
	for _, o := range n.objects {
		sum += o.Metadata.DensityScore()
	}
	n.density = sum / float64(len(n.objects))
}

// QueryPoint returns all objects whose bounding box contains p.
// Straddling objects may appear more than once.
func (t *Tree) QueryPoint(p mgl64.Vec3) []*object.SpatialObject {
	var out []*object.SpatialObject
	t.root.visit(
		func(b geom.AABB) bool { return b.ContainsPoint(p) },
		func(o *object.SpatialObject) bool { return o.Bounds.ContainsPoint(p) },
		&out,
	)
	return out
}

// QueryRange returns all objects whose bounding box intersects box.
func (t *Tree) QueryRange(box geom.AABB) []*object.SpatialObject {
	var out []*object.SpatialObject
	t.root.visit(
		func(b geom.AABB) bool { return b.Intersects(box) },
		func(o *object.SpatialObject) bool { return o.Bounds.Intersects(box) },
		&out,
	)
	return out
}

// QueryRadius returns all objects whose bounding box touches the sphere.
func (t *Tree) QueryRadius(center mgl64.Vec3, radius float64) []*object.SpatialObject {
	var out []*object.SpatialObject
	t.root.visit(
		func(b geom.AABB) bool { return b.IntersectsSphere(center, radius) },
		func(o *object.SpatialObject) bool { return o.Bounds.IntersectsSphere(center, radius) },
		&out,
	)
	return out
}

// QueryRay returns all objects whose bounding box is hit by the ray from
// origin along dir.
func (t *Tree) QueryRay(origin, dir mgl64.Vec3) []*object.SpatialObject {
	var out []*object.SpatialObject
	t.root.visit(
		func(b geom.AABB) bool { return b.IntersectsRay(origin, dir) },
		func(o *object.SpatialObject) bool { return o.Bounds.IntersectsRay(origin, dir) },
		&out,
	)
	return out
}

// visit descends into every subtree accepted by prune and collects leaf
// objects accepted by match.
func (n *node) visit(prune func(geom.AABB) bool, match func(*object.SpatialObject) bool, out *[]*object.SpatialObject) {
	if n.count == 0 || !prune(n.bounds) {
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
		c.visit(prune, match, out)
	}
}

// Rebuild reconstructs the tree from scratch over the same bound. Used by the
// facade's compaction pass to undo one-way subdivision after heavy churn.
func (t *Tree) Rebuild(objects []*object.SpatialObject) {
	bounds := t.root.bounds
	t.root = &node{bounds: bounds, leaf: true}
	t.nodeCount = 1
	t.deepestLeaf = 0
	t.objectEntries = 0
	for _, o := range objects {
		if bounds.Intersects(o.Bounds) {
			t.Insert(o)
		}
	}
}

// NodeCount returns the number of allocated nodes.
func (t *Tree) NodeCount() int {
	return t.nodeCount
}

// Depth returns the depth of the deepest leaf holding objects.
func (t *Tree) Depth() int {
	return t.deepestLeaf
}

// EntryCount returns the number of leaf references, counting straddling
// objects once per leaf.
func (t *Tree) EntryCount() int {
	return t.objectEntries
}

// Density returns the medical density of the leaf containing p, or 0 when p
// falls into an empty region.
func (t *Tree) Density(p mgl64.Vec3) float64 {
	n := t.root
	for {
		if !n.bounds.ContainsPoint(p) {
			return 0
		}
		if n.leaf {
			return n.density
		}
		next := n
		for _, c := range n.children {
			if c.bounds.ContainsPoint(p) {
				next = c
				break
			}
		}
		if next == n {
			return 0
		}
		n = next
	}
}
