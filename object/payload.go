package object

import (
	"fmt"

	"github.com/segmentio/encoding/json"
)

// Payload is the typed per-object payload. It is a sealed tagged variant over
// Type: exactly one payload struct exists per object type, so payload-specific
// logic can switch exhaustively instead of type-asserting an open interface.
type Payload interface {
	payloadType() Type
}

// VoxelPayload describes a voxel cluster.
type VoxelPayload struct {
	Dims        [3]int    `json:"dims"`
	Spacing     float64   `json:"spacing"`
	Intensities []float32 `json:"intensities,omitempty"`
}

// MeshPayload describes a segmented surface mesh.
type MeshPayload struct {
	VertexCount   int `json:"vertexCount"`
	TriangleCount int `json:"triangleCount"`
}

// AnnotationPayload carries a free-text clinical annotation.
type AnnotationPayload struct {
	Label  string `json:"label"`
	Author string `json:"author,omitempty"`
}

// ROIPayload describes a region of interest.
type ROIPayload struct {
	Label    string  `json:"label"`
	VolumeMM float64 `json:"volumeMM"`
}

// VesselPayload describes a vessel segment.
type VesselPayload struct {
	CenterlineLength float64 `json:"centerlineLength"`
	MeanRadius       float64 `json:"meanRadius"`
}

// OrganPayload describes a segmented organ.
type OrganPayload struct {
	Name       string `json:"name"`
	Laterality string `json:"laterality,omitempty"`
}

// LesionPayload describes a detected lesion.
type LesionPayload struct {
	DiameterMM float64 `json:"diameterMM"`
	Malignancy float64 `json:"malignancy"`
}

func (VoxelPayload) payloadType() Type      { return TypeVoxel }
func (MeshPayload) payloadType() Type       { return TypeMesh }
func (AnnotationPayload) payloadType() Type { return TypeAnnotation }
func (ROIPayload) payloadType() Type        { return TypeROI }
func (VesselPayload) payloadType() Type     { return TypeVessel }
func (OrganPayload) payloadType() Type      { return TypeOrgan }
func (LesionPayload) payloadType() Type     { return TypeLesion }

// MarshalPayload encodes p for snapshot persistence.
func MarshalPayload(p Payload) (json.RawMessage, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// UnmarshalPayload decodes the payload for an object of type t. The switch is
// exhaustive over Type; adding a type without a payload case is a compile-time
// nudge to extend it.
func UnmarshalPayload(t Type, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var p Payload
	switch t {
	case TypeVoxel:
		p = &VoxelPayload{}
	case TypeMesh:
		p = &MeshPayload{}
	case TypeAnnotation:
		p = &AnnotationPayload{}
	case TypeROI:
		p = &ROIPayload{}
	case TypeVessel:
		p = &VesselPayload{}
	case TypeOrgan:
		p = &OrganPayload{}
	case TypeLesion:
		p = &LesionPayload{}
	default:
		return nil, fmt.Errorf("object: unknown payload type %d", t)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}
	return deref(p), nil
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *VoxelPayload:
		return *v
	case *MeshPayload:
		return *v
	case *AnnotationPayload:
		return *v
	case *ROIPayload:
		return *v
	case *VesselPayload:
		return *v
	case *OrganPayload:
		return *v
	case *LesionPayload:
		return *v
	default:
		return p
	}
}
