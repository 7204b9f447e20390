// Package registry is the canonical owning store of every indexed object.
//
// Besides the ID-keyed object map it maintains roaring posting lists over
// tags, medical type and clinical relevance, so equality filters can narrow
// candidates to a bitmap intersection instead of a full post-filter scan.
package registry

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/gchahal1982/medvox/object"
	"github.com/gchahal1982/medvox/query"
)

// Registry owns object lifetime. Index structures hold references into it,
// never copies.
type Registry struct {
	objects  map[string]*object.SpatialObject
	serials  map[string]uint32
	bySerial map[uint32]*object.SpatialObject
	next     uint32

	tags      map[string]*roaring.Bitmap
	medical   map[object.MedicalType]*roaring.Bitmap
	relevance map[object.Relevance]*roaring.Bitmap
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		objects:   make(map[string]*object.SpatialObject),
		serials:   make(map[string]uint32),
		bySerial:  make(map[uint32]*object.SpatialObject),
		tags:      make(map[string]*roaring.Bitmap),
		medical:   make(map[object.MedicalType]*roaring.Bitmap),
		relevance: make(map[object.Relevance]*roaring.Bitmap),
	}
}

// Insert registers an object. Returns false when the ID is already present.
func (r *Registry) Insert(o *object.SpatialObject) bool {
	if _, exists := r.objects[o.ID]; exists {
		return false
	}
	serial := r.next
	r.next++

	r.objects[o.ID] = o
	r.serials[o.ID] = serial
	r.bySerial[serial] = o

	for _, tag := range o.Metadata.Tags {
		posting(r.tags, tag).Add(serial)
	}
	posting(r.medical, o.Metadata.MedicalType).Add(serial)
	posting(r.relevance, o.Metadata.Relevance).Add(serial)
	return true
}

func posting[K comparable](m map[K]*roaring.Bitmap, k K) *roaring.Bitmap {
	b, ok := m[k]
	if !ok {
		b = roaring.New()
		m[k] = b
	}
	return b
}

// Get returns the object with the given ID.
func (r *Registry) Get(id string) (*object.SpatialObject, bool) {
	o, ok := r.objects[id]
	return o, ok
}

// Remove deletes the object and its posting-list entries. The removed object
// is returned so callers can erase its structural references.
func (r *Registry) Remove(id string) (*object.SpatialObject, bool) {
	o, ok := r.objects[id]
	if !ok {
		return nil, false
	}
	serial := r.serials[id]

	delete(r.objects, id)
	delete(r.serials, id)
	delete(r.bySerial, serial)

	for _, tag := range o.Metadata.Tags {
		if b := r.tags[tag]; b != nil {
			b.Remove(serial)
			if b.IsEmpty() {
				delete(r.tags, tag)
			}
		}
	}
	if b := r.medical[o.Metadata.MedicalType]; b != nil {
		b.Remove(serial)
	}
	if b := r.relevance[o.Metadata.Relevance]; b != nil {
		b.Remove(serial)
	}
	return o, true
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	return len(r.objects)
}

// All returns every registered object in unspecified order.
func (r *Registry) All() []*object.SpatialObject {
	out := make([]*object.SpatialObject, 0, len(r.objects))
	for _, o := range r.objects {
		out = append(out, o)
	}
	return out
}

// Candidates intersects the posting lists of every indexable equality filter
// and returns the surviving object IDs plus the filters that still need
// per-object evaluation. ok is false when no filter is indexable, in which
// case the caller falls back to evaluating all filters per object.
func (r *Registry) Candidates(filters []query.Filter) (ids map[string]struct{}, remaining []query.Filter, ok bool) {
	var acc *roaring.Bitmap
	for _, f := range filters {
		b, indexable := r.lookupPosting(f)
		if !indexable {
			remaining = append(remaining, f)
			continue
		}
		ok = true
		if b == nil {
			// Indexable but no object carries the value.
			return map[string]struct{}{}, remaining, true
		}
		if acc == nil {
			acc = b.Clone()
		} else {
			acc.And(b)
		}
	}
	if !ok {
		return nil, filters, false
	}

	ids = make(map[string]struct{}, acc.GetCardinality())
	it := acc.Iterator()
	for it.HasNext() {
		if o, found := r.bySerial[it.Next()]; found {
			ids[o.ID] = struct{}{}
		}
	}
	return ids, remaining, true
}

// lookupPosting resolves a filter to its posting list. Only exact equality on
// tags, medical type and relevance is indexed.
func (r *Registry) lookupPosting(f query.Filter) (*roaring.Bitmap, bool) {
	if f.Op != query.OpEquals {
		return nil, false
	}
	switch f.Field {
	case query.FieldTags:
		return r.tags[f.Str], true
	case query.FieldMedicalType:
		if mt, ok := parseMedicalType(f.Str); ok {
			return r.medical[mt], true
		}
		return nil, true
	case query.FieldRelevance:
		if rel, ok := parseRelevance(f.Str); ok {
			return r.relevance[rel], true
		}
		return nil, true
	default:
		return nil, false
	}
}

func parseMedicalType(s string) (object.MedicalType, bool) {
	for _, mt := range []object.MedicalType{
		object.MedicalAnatomy, object.MedicalPathology, object.MedicalAnnotation,
		object.MedicalMeasurement, object.MedicalROI,
	} {
		if mt.String() == s {
			return mt, true
		}
	}
	return 0, false
}

func parseRelevance(s string) (object.Relevance, bool) {
	for _, rel := range []object.Relevance{
		object.RelevanceLow, object.RelevanceMedium, object.RelevanceHigh, object.RelevanceCritical,
	} {
		if rel.String() == s {
			return rel, true
		}
	}
	return 0, false
}
