package scene

import (
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/omniscale/osm3d/element"
	"github.com/omniscale/osm3d/geom"
)

// Handle references a mesh or polyline created by a MeshBuilder.
type Handle int

// MaterialRef references a material created by a MaterialRegistry.
type MaterialRef int

// FaceSelector selects the faces of a mesh a material is applied to.
type FaceSelector int

const (
	// FirstFace is the footprint face of a polygon mesh.
	FirstFace FaceSelector = iota
	// RemainingFaces are all faces but the first, the walls of an extrusion.
	RemainingFaces
	AllFaces
	NoFaces
)

func (f FaceSelector) String() string {
	switch f {
	case FirstFace:
		return "first"
	case RemainingFaces:
		return "remaining"
	case AllFaces:
		return "all"
	case NoFaces:
		return "none"
	}
	return "unknown"
}

// Selector returns the FaceSelector for the faces of a material.
func Selector(faces geom.Faces) (FaceSelector, error) {
	switch faces {
	case geom.FacesCap:
		return FirstFace, nil
	case geom.FacesSides:
		return RemainingFaces, nil
	case geom.FacesAll:
		return AllFaces, nil
	case geom.FacesNone:
		return NoFaces, nil
	}
	return NoFaces, errors.Errorf("unknown faces %q", faces)
}

// MeshBuilder creates meshes from planar vertices. Polygons are extruded
// from extrusion.Min to extrusion.Max with a cap face, polylines get walls
// without cap when extruded.
type MeshBuilder interface {
	EmitPolygon(name string, vertices []orb.Point, extrusion geom.Extrusion, tags element.Tags) (Handle, error)
	EmitPolyline(name string, vertices []orb.Point, extrusion geom.Extrusion, tags element.Tags) (Handle, error)
}

// MaterialRegistry creates materials once per name and assigns them to faces.
type MaterialRegistry interface {
	EnsureMaterial(name string, color geom.Color) (MaterialRef, error)
	ApplyMaterial(h Handle, m MaterialRef, faces FaceSelector) error
}

// Sink is a scene that receives the generated meshes.
type Sink interface {
	MeshBuilder
	MaterialRegistry
	Close() error
}

type Config struct {
	Type string
	// Output is the target of file based sinks.
	Output string
}

var sinks map[string]func(Config) (Sink, error)

func init() {
	sinks = make(map[string]func(Config) (Sink, error))
}

func Register(name string, f func(Config) (Sink, error)) {
	sinks[name] = f
}

func Open(conf Config) (Sink, error) {
	newFunc, ok := sinks[conf.Type]
	if !ok {
		return nil, errors.New("unsupported scene type: " + conf.Type)
	}

	sink, err := newFunc(conf)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s scene", conf.Type)
	}
	return sink, nil
}

// TypeFromOutput guesses the sink type from an output parameter. Outputs
// can be prefixed with the type ("jsonl:/tmp/scene.jsonl").
func TypeFromOutput(output string) (string, string) {
	if output == "" {
		return "null", ""
	}
	parts := strings.SplitN(output, ":", 2)
	if len(parts) == 2 {
		if _, ok := sinks[parts[0]]; ok {
			return parts[0], parts[1]
		}
	}
	return "jsonl", output
}

// NullSink discards everything. Handles and refs are still unique.
type NullSink struct {
	mu        sync.Mutex
	handles   int
	materials map[string]MaterialRef
}

func (n *NullSink) EmitPolygon(string, []orb.Point, geom.Extrusion, element.Tags) (Handle, error) {
	return n.nextHandle(), nil
}

func (n *NullSink) EmitPolyline(string, []orb.Point, geom.Extrusion, element.Tags) (Handle, error) {
	return n.nextHandle(), nil
}

func (n *NullSink) nextHandle() Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handles++
	return Handle(n.handles)
}

// Handles returns the number of emitted meshes.
func (n *NullSink) Handles() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.handles
}

func (n *NullSink) EnsureMaterial(name string, _ geom.Color) (MaterialRef, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.materials == nil {
		n.materials = make(map[string]MaterialRef)
	}
	if ref, ok := n.materials[name]; ok {
		return ref, nil
	}
	ref := MaterialRef(len(n.materials) + 1)
	n.materials[name] = ref
	return ref, nil
}

func (n *NullSink) ApplyMaterial(Handle, MaterialRef, FaceSelector) error { return nil }

func (n *NullSink) Close() error { return nil }

func NewNullSink(Config) (Sink, error) {
	return &NullSink{}, nil
}

func init() {
	Register("null", NewNullSink)
}
