package query

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gchahal1982/medvox/geom"
	"github.com/gchahal1982/medvox/object"
)

func sampleObject() *object.SpatialObject {
	return &object.SpatialObject{
		ID:   "lesion-1",
		Type: object.TypeLesion,
		Metadata: object.Metadata{
			MedicalType: object.MedicalPathology,
			OrganSystem: "hepatic",
			TissueType:  "soft",
			Density:     1.2,
			Intensity:   180,
			Confidence:  0.92,
			Relevance:   object.RelevanceHigh,
			Tags:        []string{"segmented", "follow-up"},
		},
		Priority: 7,
	}
}

func TestFilterMatches(t *testing.T) {
	o := sampleObject()

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"medical type equals", Equals(FieldMedicalType, "pathology"), true},
		{"medical type mismatch", Equals(FieldMedicalType, "anatomy"), false},
		{"organ system contains", Contains(FieldOrganSystem, "hepat"), true},
		{"tissue equals", Equals(FieldTissueType, "soft"), true},
		{"density greater", Greater(FieldDensity, 1.0), true},
		{"density less", Less(FieldDensity, 1.0), false},
		{"confidence range", Between(FieldConfidence, 0.9, 1.0), true},
		{"confidence out of range", Between(FieldConfidence, 0.95, 1.0), false},
		{"intensity equals", Filter{Field: FieldIntensity, Op: OpEquals, Num: 180}, true},
		{"relevance equals", Equals(FieldRelevance, "high"), true},
		{"relevance greater than medium weight", Greater(FieldRelevance, 1.0), true},
		{"relevance less than critical weight", Less(FieldRelevance, 4.0), true},
		{"tag equals", Equals(FieldTags, "segmented"), true},
		{"tag contains", Contains(FieldTags, "follow"), true},
		{"tag missing", Equals(FieldTags, "reviewed"), false},
		{"priority greater", Greater(FieldPriority, 5), true},
		{"ordering op on string field", Greater(FieldOrganSystem, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(o))
		})
	}
}

func TestMatchesAll(t *testing.T) {
	o := sampleObject()

	assert.True(t, MatchesAll(nil, o))
	assert.True(t, MatchesAll([]Filter{
		Equals(FieldMedicalType, "pathology"),
		Greater(FieldConfidence, 0.9),
	}, o))
	assert.False(t, MatchesAll([]Filter{
		Equals(FieldMedicalType, "pathology"),
		Greater(FieldConfidence, 0.99),
	}, o))
}

func TestQueryKey(t *testing.T) {
	a := Radius(mgl64.Vec3{1, 2, 3}, 5).WithFilters(Equals(FieldTags, "x")).WithMaxResults(10)
	b := Radius(mgl64.Vec3{1, 2, 3}, 5).WithFilters(Equals(FieldTags, "x")).WithMaxResults(10)
	c := Radius(mgl64.Vec3{1, 2, 3}, 6)

	ka, err := a.Key()
	require.NoError(t, err)
	kb, err := b.Key()
	require.NoError(t, err)
	kc, err := c.Key()
	require.NoError(t, err)

	assert.Equal(t, ka, kb, "identical parameters produce identical keys")
	assert.NotEqual(t, ka, kc)
}

func TestQueryKeyDistinguishesRange(t *testing.T) {
	r1 := Range(geom.New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}))
	r2 := Range(geom.New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 2, 2}))
	o1 := Overlap(geom.New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}))

	k1, err := r1.Key()
	require.NoError(t, err)
	k2, err := r2.Key()
	require.NoError(t, err)
	k3, err := o1.Key()
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3, "same box under a different kind is a different query")
}

func TestResultIDs(t *testing.T) {
	r := &Result{Objects: []*object.SpatialObject{{ID: "a"}, {ID: "b"}}}
	assert.Equal(t, []string{"a", "b"}, r.IDs())
}
