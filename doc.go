// Package medvox provides an embedded 3D spatial index for volumetric
// medical objects: voxel clusters, segmented organs, vessels, lesions,
// regions of interest and annotations positioned in a bounded scan volume.
//
// The index composes up to three structures behind one facade: an octree for
// point/range containment, a bounding-volume tree for radius/nearest lookups
// and a uniform hash grid for broad-phase overlap queries. In hybrid mode
// each query is routed to the structure best suited to its kind.
//
// # Quick Start
//
//	bounds := geom.New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{512, 512, 256})
//	idx := medvox.Hybrid(bounds).
//	    MaxObjectsPerNode(16).
//	    GridSize(32).
//	    MustBuild()
//	defer idx.Close()
//
//	idx.Insert(&object.SpatialObject{
//	    ID:       object.NewID(),
//	    Type:     object.TypeLesion,
//	    Bounds:   geom.FromCenterRadius(pos, 4),
//	    Position: pos,
//	    Metadata: object.Metadata{MedicalType: object.MedicalPathology},
//	})
//
//	res, _ := idx.Query(query.Radius(pos, 25).
//	    WithFilters(query.Equals(query.FieldMedicalType, "pathology")))
//
// All operations are guarded by one exclusive lock; the index is safe for use
// from multiple goroutines but queries do not run concurrently with each
// other. Repeated identical queries are served from an LRU result cache that
// is invalidated wholesale by any mutation.
package medvox
