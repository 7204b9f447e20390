// Package query defines the spatial query surface: query kinds, metadata
// filters, sort keys and results.
package query

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/segmentio/encoding/json"

	"github.com/gchahal1982/medvox/geom"
	"github.com/gchahal1982/medvox/object"
)

// Kind identifies the query type, which also drives structure routing.
type Kind uint8

const (
	KindPoint Kind = iota
	KindRange
	KindRadius
	KindFrustum
	KindRay
	KindNearest
	KindOverlap
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindRange:
		return "range"
	case KindRadius:
		return "radius"
	case KindFrustum:
		return "frustum"
	case KindRay:
		return "ray"
	case KindNearest:
		return "nearest"
	case KindOverlap:
		return "overlap"
	default:
		return "unknown"
	}
}

// SortKey selects the result ordering.
type SortKey uint8

const (
	SortNone SortKey = iota
	SortDistance
	SortPriority
	SortSize
	SortRelevance
)

// Query describes a single spatial lookup. The zero value is not useful;
// build queries with the constructors below.
type Query struct {
	Kind       Kind       `json:"kind"`
	Position   mgl64.Vec3 `json:"position"`
	Radius     float64    `json:"radius,omitempty"`
	Range      *geom.AABB `json:"range,omitempty"`
	Direction  mgl64.Vec3 `json:"direction"`
	K          int        `json:"k,omitempty"`
	Filters    []Filter   `json:"filters,omitempty"`
	SortBy     SortKey    `json:"sortBy,omitempty"`
	MaxResults int        `json:"maxResults,omitempty"`
}

// Point matches objects whose bounding box contains pos.
func Point(pos mgl64.Vec3) *Query {
	return &Query{Kind: KindPoint, Position: pos}
}

// Range matches objects whose bounding box intersects box.
func Range(box geom.AABB) *Query {
	return &Query{Kind: KindRange, Range: &box}
}

// Radius matches objects whose bounding box touches the sphere at center.
func Radius(center mgl64.Vec3, radius float64) *Query {
	return &Query{Kind: KindRadius, Position: center, Radius: radius, SortBy: SortDistance}
}

// Nearest returns the k objects closest to pos, distance-sorted.
func Nearest(pos mgl64.Vec3, k int) *Query {
	return &Query{Kind: KindNearest, Position: pos, K: k, SortBy: SortDistance}
}

// Overlap is the broad-phase variant of Range, routed to the hash grid.
func Overlap(box geom.AABB) *Query {
	return &Query{Kind: KindOverlap, Range: &box}
}

// Ray matches objects whose bounding box is hit by the ray from origin
// along dir.
func Ray(origin, dir mgl64.Vec3) *Query {
	return &Query{Kind: KindRay, Position: origin, Direction: dir}
}

// WithFilters returns q with the given metadata filters appended.
func (q *Query) WithFilters(filters ...Filter) *Query {
	q.Filters = append(q.Filters, filters...)
	return q
}

// WithSort returns q sorted by the given key.
func (q *Query) WithSort(key SortKey) *Query {
	q.SortBy = key
	return q
}

// WithMaxResults caps the number of returned objects.
func (q *Query) WithMaxResults(n int) *Query {
	q.MaxResults = n
	return q
}

// Key returns the canonical serialized form of the query, used as the result
// cache key. Two queries with equal parameters produce equal keys.
func (q *Query) Key() (string, error) {
	b, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Result is an ordered set of matched objects.
type Result struct {
	// Objects are the matches, post-filtered, de-duplicated by ID, sorted and
	// truncated to MaxResults.
	Objects []*object.SpatialObject

	// Distances parallels Objects for distance-sorted queries; nil otherwise.
	Distances []float64

	// TotalCandidates is the number of distinct objects the routed structures
	// produced before metadata filtering.
	TotalCandidates int

	// Duration is the wall-clock time of the query.
	Duration time.Duration

	// CacheHit reports that the result was served from the query cache.
	CacheHit bool
}

// IDs returns the matched object identifiers in result order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Objects))
	for i, o := range r.Objects {
		ids[i] = o.ID
	}
	return ids
}
