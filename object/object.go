// Package object defines the spatial objects stored in the index and their
// clinical metadata.
package object

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/gchahal1982/medvox/geom"
)

// Type identifies the kind of volumetric object.
type Type uint8

const (
	TypeVoxel Type = iota
	TypeMesh
	TypeAnnotation
	TypeROI
	TypeVessel
	TypeOrgan
	TypeLesion
)

// String returns the wire/display name of the type.
func (t Type) String() string {
	switch t {
	case TypeVoxel:
		return "voxel"
	case TypeMesh:
		return "mesh"
	case TypeAnnotation:
		return "annotation"
	case TypeROI:
		return "roi"
	case TypeVessel:
		return "vessel"
	case TypeOrgan:
		return "organ"
	case TypeLesion:
		return "lesion"
	default:
		return "unknown"
	}
}

// MedicalType classifies the clinical nature of an object.
type MedicalType uint8

const (
	MedicalAnatomy MedicalType = iota
	MedicalPathology
	MedicalAnnotation
	MedicalMeasurement
	MedicalROI
)

func (m MedicalType) String() string {
	switch m {
	case MedicalAnatomy:
		return "anatomy"
	case MedicalPathology:
		return "pathology"
	case MedicalAnnotation:
		return "annotation"
	case MedicalMeasurement:
		return "measurement"
	case MedicalROI:
		return "roi"
	default:
		return "unknown"
	}
}

// Relevance grades clinical relevance. The zero value is RelevanceLow.
type Relevance uint8

const (
	RelevanceLow Relevance = iota
	RelevanceMedium
	RelevanceHigh
	RelevanceCritical
)

func (r Relevance) String() string {
	switch r {
	case RelevanceLow:
		return "low"
	case RelevanceMedium:
		return "medium"
	case RelevanceHigh:
		return "high"
	case RelevanceCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Weight returns the relevance weight used for medical density scoring.
func (r Relevance) Weight() float64 {
	switch r {
	case RelevanceCritical:
		return 4
	case RelevanceHigh:
		return 2
	case RelevanceMedium:
		return 1
	default:
		return 0.5
	}
}

// Metadata carries the clinical attributes used for filtering and scoring.
type Metadata struct {
	MedicalType MedicalType `json:"medicalType"`
	OrganSystem string      `json:"organSystem,omitempty"`
	TissueType  string      `json:"tissueType,omitempty"`
	Density     float64     `json:"density"`
	Intensity   float64     `json:"intensity"`
	Confidence  float64     `json:"confidence"`
	Relevance   Relevance   `json:"relevance"`
	Tags        []string    `json:"tags,omitempty"`
}

// DensityScore is the object's contribution to a node's medical density:
// tissue density weighted by clinical relevance.
func (m Metadata) DensityScore() float64 {
	return m.Density * m.Relevance.Weight()
}

// SpatialObject is an indexed volumetric object. The registry owns each
// object; index structures hold the same pointer, never a copy.
type SpatialObject struct {
	ID         string     `json:"id"`
	Type       Type       `json:"type"`
	Bounds     geom.AABB  `json:"bounds"`
	Position   mgl64.Vec3 `json:"position"`
	Payload    Payload    `json:"-"`
	Metadata   Metadata   `json:"metadata"`
	Priority   float64    `json:"priority"`
	LastAccess time.Time  `json:"lastAccess"`
}

// NewID returns a fresh object identifier.
func NewID() string {
	return uuid.NewString()
}

// Touch records an access for recency-based eviction and analytics.
func (o *SpatialObject) Touch() {
	o.LastAccess = time.Now()
}
