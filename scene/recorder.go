package scene

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/omniscale/osm3d/element"
	"github.com/omniscale/osm3d/geom"
)

// Mesh is a mesh or polyline as recorded by a Recorder.
type Mesh struct {
	Handle    Handle
	Kind      geom.Kind
	Name      string
	Vertices  []orb.Point
	Extrusion geom.Extrusion
	Tags      element.Tags
	// Faces contains the material name of each face, empty for faces with
	// the default material.
	Faces []string
}

// MaterialCount returns the number of faces with material name.
func (m *Mesh) MaterialCount(name string) int {
	n := 0
	for _, f := range m.Faces {
		if f == name {
			n++
		}
	}
	return n
}

type Material struct {
	Ref   MaterialRef
	Name  string
	Color geom.Color
}

// FaceCount returns the number of faces of a mesh with n vertices. Polygons
// have a cap face and one wall per edge if extruded, polylines have one
// wall per segment if extruded and no faces otherwise.
func FaceCount(kind geom.Kind, n int, extrusion geom.Extrusion) int {
	if kind == geom.Polyline {
		if !extrusion.Extruded() || n < 2 {
			return 0
		}
		return n - 1
	}
	if !extrusion.Extruded() {
		return 1
	}
	return 1 + n
}

// selectFaces returns the indices of faces selected from a mesh with
// count faces.
func selectFaces(faces FaceSelector, count int) (from, to int) {
	switch faces {
	case FirstFace:
		return 0, min(1, count)
	case RemainingFaces:
		return min(1, count), count
	case AllFaces:
		return 0, count
	}
	return 0, 0
}

// Recorder keeps all meshes and materials in memory. It is safe for
// concurrent use.
type Recorder struct {
	mu        sync.Mutex
	meshes    []*Mesh
	materials []Material
	byName    map[string]MaterialRef
}

func NewRecorder() *Recorder {
	return &Recorder{byName: make(map[string]MaterialRef)}
}

func (r *Recorder) EmitPolygon(name string, vertices []orb.Point, extrusion geom.Extrusion, tags element.Tags) (Handle, error) {
	return r.emit(geom.Polygon, name, vertices, extrusion, tags)
}

func (r *Recorder) EmitPolyline(name string, vertices []orb.Point, extrusion geom.Extrusion, tags element.Tags) (Handle, error) {
	return r.emit(geom.Polyline, name, vertices, extrusion, tags)
}

func (r *Recorder) emit(kind geom.Kind, name string, vertices []orb.Point, extrusion geom.Extrusion, tags element.Tags) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := Handle(len(r.meshes) + 1)
	r.meshes = append(r.meshes, &Mesh{
		Handle:    h,
		Kind:      kind,
		Name:      name,
		Vertices:  append([]orb.Point(nil), vertices...),
		Extrusion: extrusion,
		Tags:      tags,
		Faces:     make([]string, FaceCount(kind, len(vertices), extrusion)),
	})
	return h, nil
}

func (r *Recorder) EnsureMaterial(name string, color geom.Color) (MaterialRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref, ok := r.byName[name]; ok {
		return ref, nil
	}
	ref := MaterialRef(len(r.materials) + 1)
	r.materials = append(r.materials, Material{Ref: ref, Name: name, Color: color})
	r.byName[name] = ref
	return ref, nil
}

func (r *Recorder) ApplyMaterial(h Handle, m MaterialRef, faces FaceSelector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h < 1 || int(h) > len(r.meshes) {
		return errors.Errorf("unknown mesh %d", h)
	}
	if m < 1 || int(m) > len(r.materials) {
		return errors.Errorf("unknown material %d", m)
	}
	mesh := r.meshes[h-1]
	from, to := selectFaces(faces, len(mesh.Faces))
	for i := from; i < to; i++ {
		mesh.Faces[i] = r.materials[m-1].Name
	}
	return nil
}

func (r *Recorder) Close() error { return nil }

// Meshes returns all recorded meshes in emit order.
func (r *Recorder) Meshes() []*Mesh {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Mesh(nil), r.meshes...)
}

// Materials returns all materials in creation order.
func (r *Recorder) Materials() []Material {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Material(nil), r.materials...)
}

// Material returns the material with name.
func (r *Recorder) Material(name string) (Material, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.byName[name]
	if !ok {
		return Material{}, false
	}
	return r.materials[ref-1], true
}

func init() {
	Register("memory", func(Config) (Sink, error) { return NewRecorder(), nil })
}
