package geom

import (
	osm "github.com/omniscale/go-osm"
	"github.com/paulmach/orb"

	"github.com/omniscale/osm3d/mapping"
)

type Kind int

const (
	Polygon Kind = iota
	Polyline
)

func (k Kind) String() string {
	if k == Polyline {
		return "polyline"
	}
	return "polygon"
}

// Faces selects the faces of a mesh a material applies to.
type Faces string

const (
	// FacesCap is the footprint face (the roof of an extruded polygon).
	FacesCap   Faces = "cap"
	FacesSides Faces = "sides"
	FacesAll   Faces = "all"
	FacesNone  Faces = "none"
)

// Color is RGBA, each channel 0..1.
type Color [4]float64

var (
	Red    = Color{1, 0, 0, 1}
	Orange = Color{1, 0.7, 0, 1}
	Blue   = Color{0, 0, 1, 1}
	Green  = Color{0, 1, 0, 1}
	Gray   = Color{0.5, 0.5, 0.5, 1}
	Black  = Color{0, 0, 0, 1}
)

type Material struct {
	Name  string
	Color Color
	Faces Faces
}

// Extrusion is the z range of a mesh. Min is the z of the footprint.
type Extrusion struct {
	Min float64
	Max float64
}

func (e Extrusion) Extruded() bool { return e.Max > e.Min }

// Intent describes one mesh or polyline that should be added to a scene.
// It is plain data, nothing is created until it is emitted.
type Intent struct {
	Kind  Kind
	Role  mapping.Role
	WayID string
	Name  string
	// Tags of the way, attached as metadata.
	Tags osm.Tags
	// Footprint of a Polygon, counter-clockwise and without the closing
	// vertex.
	Footprint orb.Ring
	// Line of a Polyline, all vertices of the way.
	Line orb.LineString
	// Extrusion of the footprint or line. Polylines are extruded as walls
	// without a cap.
	Extrusion Extrusion
	Materials []Material
	// Warnings collects non-fatal problems, e.g. unparsable heights.
	Warnings []error
}

// Vertices returns Footprint or Line as a plain point list.
func (i *Intent) Vertices() []orb.Point {
	if i.Kind == Polyline {
		return []orb.Point(i.Line)
	}
	return []orb.Point(i.Footprint)
}
