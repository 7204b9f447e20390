package query

import (
	"strings"

	"github.com/gchahal1982/medvox/object"
)

// Field is the closed set of filterable object attributes.
type Field uint8

const (
	FieldMedicalType Field = iota
	FieldOrganSystem
	FieldTissueType
	FieldDensity
	FieldIntensity
	FieldConfidence
	FieldRelevance
	FieldTags
	FieldPriority
)

// Op is the closed set of filter operators.
type Op uint8

const (
	OpEquals Op = iota
	OpContains
	OpGreater
	OpLess
	OpRange
)

// Filter is a single metadata predicate. String-typed fields use Str with
// OpEquals/OpContains; numeric fields use Num (or Low/High for OpRange).
// Relevance compares by weight for ordering operators and by name for
// equality, so "greater than medium" means what a clinician expects.
type Filter struct {
	Field  Field   `json:"field"`
	Op     Op      `json:"op"`
	Str    string  `json:"str,omitempty"`
	Num    float64 `json:"num,omitempty"`
	Low    float64 `json:"low,omitempty"`
	High   float64 `json:"high,omitempty"`
	Weight float64 `json:"weight,omitempty"`
}

// Equals builds an equality filter on a string-typed field.
func Equals(field Field, value string) Filter {
	return Filter{Field: field, Op: OpEquals, Str: value}
}

// Contains builds a substring filter on a string-typed field. On FieldTags it
// matches if any tag contains the value.
func Contains(field Field, value string) Filter {
	return Filter{Field: field, Op: OpContains, Str: value}
}

// Greater builds a numeric greater-than filter.
func Greater(field Field, value float64) Filter {
	return Filter{Field: field, Op: OpGreater, Num: value}
}

// Less builds a numeric less-than filter.
func Less(field Field, value float64) Filter {
	return Filter{Field: field, Op: OpLess, Num: value}
}

// Between builds an inclusive numeric range filter.
func Between(field Field, low, high float64) Filter {
	return Filter{Field: field, Op: OpRange, Low: low, High: high}
}

// Matches evaluates the filter against an object's typed metadata.
func (f Filter) Matches(o *object.SpatialObject) bool {
	switch f.Field {
	case FieldMedicalType:
		return f.matchString(o.Metadata.MedicalType.String())
	case FieldOrganSystem:
		return f.matchString(o.Metadata.OrganSystem)
	case FieldTissueType:
		return f.matchString(o.Metadata.TissueType)
	case FieldDensity:
		return f.matchNumber(o.Metadata.Density)
	case FieldIntensity:
		return f.matchNumber(o.Metadata.Intensity)
	case FieldConfidence:
		return f.matchNumber(o.Metadata.Confidence)
	case FieldRelevance:
		if f.Op == OpEquals || f.Op == OpContains {
			return f.matchString(o.Metadata.Relevance.String())
		}
		return f.matchNumber(o.Metadata.Relevance.Weight())
	case FieldTags:
		return f.matchTags(o.Metadata.Tags)
	case FieldPriority:
		return f.matchNumber(o.Priority)
	default:
		return false
	}
}

func (f Filter) matchString(v string) bool {
	switch f.Op {
	case OpEquals:
		return v == f.Str
	case OpContains:
		return strings.Contains(v, f.Str)
	default:
		return false
	}
}

func (f Filter) matchNumber(v float64) bool {
	switch f.Op {
	case OpEquals:
		return v == f.Num
	case OpGreater:
		return v > f.Num
	case OpLess:
		return v < f.Num
	case OpRange:
		return v >= f.Low && v <= f.High
	default:
		return false
	}
}

func (f Filter) matchTags(tags []string) bool {
	for _, tag := range tags {
		switch f.Op {
		case OpEquals:
			if tag == f.Str {
				return true
			}
		case OpContains:
			if strings.Contains(tag, f.Str) {
				return true
			}
		}
	}
	return false
}

// MatchesAll reports whether o satisfies every filter.
func MatchesAll(filters []Filter, o *object.SpatialObject) bool {
	for _, f := range filters {
		if !f.Matches(o) {
			return false
		}
	}
	return true
}
