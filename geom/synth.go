package geom

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/omniscale/osm3d/element"
	"github.com/omniscale/osm3d/mapping"
)

const (
	// LevelHeight is the assumed height of one building level.
	LevelHeight = 3.0
	// DefaultBuildingHeight is used for buildings without height and levels.
	DefaultBuildingHeight = 3.0
	// DefaultBarrierHeight is used for barriers without a positive height.
	DefaultBarrierHeight = 0.5
)

// greenLanduse are landuse/leisure values that get a green material.
var greenLanduse = map[string]struct{}{
	"grass":             {},
	"allotments":        {},
	"forest":            {},
	"meadow":            {},
	"orchard":           {},
	"plant_nursery":     {},
	"recreation_ground": {},
	"village_green":     {},
	"vineyard":          {},
}

// GeomError is returned for ways that can not be turned into a geometry.
// Errors with level 0 are expected (e.g. too few vertices) and should not
// be reported.
type GeomError struct {
	message string
	level   int
}

func (e *GeomError) Error() string { return e.message }

func (e *GeomError) Level() int { return e.level }

func newGeomError(level int, format string, args ...interface{}) *GeomError {
	return &GeomError{message: fmt.Sprintf(format, args...), level: level}
}

type Options struct {
	// Decimals enables decimal fractions in dimension values.
	Decimals bool
}

func DefaultOptions() Options {
	return Options{Decimals: true}
}

type synthesizer func(way *element.Way, positions orb.LineString, opts Options) (*Intent, error)

var synthesizers = map[mapping.Role]synthesizer{
	mapping.Building:      building,
	mapping.BuildingPart:  buildingPart,
	mapping.LinearFeature: linear,
	mapping.Barrier:       barrier,
	mapping.Natural:       natural,
	mapping.Landuse:       landuse,
	mapping.Amenity:       amenity,
}

// Synthesize builds the geometry of role for way. positions are the
// projected positions of way.Refs.
func Synthesize(role mapping.Role, way *element.Way, positions orb.LineString, opts Options) (*Intent, error) {
	synth, ok := synthesizers[role]
	if !ok {
		return nil, newGeomError(1, "no synthesizer for role %s", role)
	}
	intent, err := synth(way, positions, opts)
	if err != nil {
		return nil, err
	}
	intent.Role = role
	intent.WayID = way.RawID
	intent.Tags = way.Tags
	return intent, nil
}

func building(way *element.Way, positions orb.LineString, opts Options) (*Intent, error) {
	ring, err := footprint(positions)
	if err != nil {
		return nil, err
	}
	i := &Intent{Kind: Polygon, Name: addressName(way), Footprint: ring}

	height := DefaultBuildingHeight
	if v, ok := way.Tags["height"]; ok {
		height = i.dimension("height", v, opts)
	} else if v, ok := way.Tags["building:levels"]; ok {
		height = i.dimension("building:levels", v, opts) * LevelHeight
	}
	if height > 0 {
		i.Extrusion.Max = height
	}
	i.Materials = []Material{
		{Name: "roof", Color: Red, Faces: FacesCap},
		{Name: "building", Color: Orange, Faces: FacesSides},
	}
	return i, nil
}

func buildingPart(way *element.Way, positions orb.LineString, opts Options) (*Intent, error) {
	ring, err := footprint(positions)
	if err != nil {
		return nil, err
	}
	i := &Intent{Kind: Polygon, Name: addressName(way), Footprint: ring}

	var minHeight, height float64
	if v, ok := way.Tags["min_height"]; ok {
		minHeight = i.dimension("min_height", v, opts)
	}
	if v, ok := way.Tags["height"]; ok {
		height = i.dimension("height", v, opts)
	}
	if minHeight == 0 && height == 0 {
		if v, ok := way.Tags["building:levels"]; ok {
			height = i.dimension("building:levels", v, opts) * LevelHeight
		}
	}
	i.Extrusion = Extrusion{Min: minHeight, Max: minHeight}
	if height-minHeight > 0 {
		i.Extrusion.Max = height
	}
	return i, nil
}

func linear(way *element.Way, positions orb.LineString, opts Options) (*Intent, error) {
	line, err := polyline(positions)
	if err != nil {
		return nil, err
	}
	return &Intent{Kind: Polyline, Name: plainName(way), Line: line}, nil
}

func barrier(way *element.Way, positions orb.LineString, opts Options) (*Intent, error) {
	line, err := polyline(positions)
	if err != nil {
		return nil, err
	}
	i := &Intent{Kind: Polyline, Name: plainName(way), Line: line}
	var height float64
	if v, ok := way.Tags["height"]; ok {
		height = i.dimension("height", v, opts)
	}
	if height <= 0 {
		height = DefaultBarrierHeight
	}
	i.Extrusion.Max = height
	// The material is registered for the barrier type but not assigned to
	// any face, the walls keep the default material.
	i.Materials = []Material{{Name: way.Tags["barrier"], Color: Blue, Faces: FacesNone}}
	return i, nil
}

func natural(way *element.Way, positions orb.LineString, opts Options) (*Intent, error) {
	return flatArea(way, positions, way.Tags["natural"], func(v string) Color {
		if v == "water" {
			return Blue
		}
		return Gray
	})
}

func landuse(way *element.Way, positions orb.LineString, opts Options) (*Intent, error) {
	return flatArea(way, positions, mapping.LanduseValue(way.Tags), func(v string) Color {
		if _, ok := greenLanduse[v]; ok {
			return Green
		}
		return Gray
	})
}

func amenity(way *element.Way, positions orb.LineString, opts Options) (*Intent, error) {
	return flatArea(way, positions, way.Tags["amenity"], func(string) Color { return Black })
}

func flatArea(way *element.Way, positions orb.LineString, kind string, color func(string) Color) (*Intent, error) {
	ring, err := footprint(positions)
	if err != nil {
		return nil, err
	}
	return &Intent{
		Kind:      Polygon,
		Name:      plainName(way),
		Footprint: ring,
		Materials: []Material{{Name: kind, Color: color(kind), Faces: FacesCap}},
	}, nil
}

// footprint drops the closing vertex and orients the ring counter-clockwise.
func footprint(positions orb.LineString) (orb.Ring, error) {
	n := len(positions) - 1
	if n < 3 {
		return nil, newGeomError(0, "polygon needs at least 3 vertices, got %d", max(n, 0))
	}
	ring := make(orb.Ring, n)
	copy(ring, positions[:n])
	if distinct(ring) < 3 {
		return nil, newGeomError(0, "polygon needs at least 3 distinct vertices")
	}
	closed := append(ring.Clone(), ring[0])
	if closed.Orientation() == orb.CW {
		ring.Reverse()
	}
	return ring, nil
}

func polyline(positions orb.LineString) (orb.LineString, error) {
	if len(positions) < 2 {
		return nil, newGeomError(0, "polyline needs at least 2 vertices, got %d", len(positions))
	}
	return positions.Clone(), nil
}

func distinct(points []orb.Point) int {
	seen := make(map[orb.Point]struct{}, len(points))
	for _, p := range points {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// dimension parses a dimension tag. Invalid values are recorded as warning
// and count as 0.
func (i *Intent) dimension(key, value string, opts Options) float64 {
	v, _, err := ParseScalar(value, opts.Decimals)
	if err != nil {
		i.Warnings = append(i.Warnings, errors.Wrap(err, key))
		return 0
	}
	return v
}

func addressName(way *element.Way) string {
	street, okStreet := way.Tags["addr:street"]
	number, okNumber := way.Tags["addr:housenumber"]
	if okStreet && okNumber {
		return street + ", " + number
	}
	return plainName(way)
}

func plainName(way *element.Way) string {
	if name, ok := way.Tags["name"]; ok {
		return name
	}
	return way.RawID
}
