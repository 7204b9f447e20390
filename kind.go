package medvox

// Kind selects which spatial structure(s) back an Index.
type Kind int

const (
	// KindHybrid maintains the octree, the bounding-volume tree and the hash
	// grid together and routes each query to the best suited structure.
	KindHybrid Kind = iota
	// KindOctree answers every query from the octree alone.
	KindOctree
	// KindRTree answers every query from the bounding-volume tree alone.
	KindRTree
	// KindSpatialHash answers every query from the uniform hash grid alone.
	KindSpatialHash
	// KindKDTree is recognized but not implemented; Build rejects it with
	// ErrUnsupportedIndexKind.
	KindKDTree
)

func (k Kind) String() string {
	switch k {
	case KindHybrid:
		return "hybrid"
	case KindOctree:
		return "octree"
	case KindRTree:
		return "rtree"
	case KindSpatialHash:
		return "spatial_hash"
	case KindKDTree:
		return "kdtree"
	default:
		return "unknown"
	}
}
