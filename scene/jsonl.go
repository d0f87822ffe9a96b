package scene

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/omniscale/osm3d/element"
	"github.com/omniscale/osm3d/geom"
)

type meshRecord struct {
	Type     string       `json:"type"`
	ID       Handle       `json:"id"`
	Kind     string       `json:"kind"`
	Name     string       `json:"name"`
	Vertices []orb.Point  `json:"vertices"`
	Min      float64      `json:"min"`
	Max      float64      `json:"max"`
	Faces    int          `json:"faces"`
	Tags     element.Tags `json:"tags,omitempty"`
}

type materialRecord struct {
	Type  string      `json:"type"`
	ID    MaterialRef `json:"id"`
	Name  string      `json:"name"`
	Color geom.Color  `json:"color"`
}

type applyRecord struct {
	Type     string      `json:"type"`
	Mesh     Handle      `json:"mesh"`
	Material MaterialRef `json:"material"`
	Faces    string      `json:"faces"`
}

// JSONWriter writes the scene as newline delimited JSON records. Meshes and
// materials are written when they are created, material assignments as
// separate "apply" records.
type JSONWriter struct {
	mu        sync.Mutex
	w         *bufio.Writer
	enc       *json.Encoder
	closer    io.Closer
	handles   int
	materials map[string]MaterialRef
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	bw := bufio.NewWriter(w)
	jw := &JSONWriter{
		w:         bw,
		enc:       json.NewEncoder(bw),
		materials: make(map[string]MaterialRef),
	}
	if c, ok := w.(io.Closer); ok && w != os.Stdout {
		jw.closer = c
	}
	return jw
}

func (j *JSONWriter) EmitPolygon(name string, vertices []orb.Point, extrusion geom.Extrusion, tags element.Tags) (Handle, error) {
	return j.emit(geom.Polygon, name, vertices, extrusion, tags)
}

func (j *JSONWriter) EmitPolyline(name string, vertices []orb.Point, extrusion geom.Extrusion, tags element.Tags) (Handle, error) {
	return j.emit(geom.Polyline, name, vertices, extrusion, tags)
}

func (j *JSONWriter) emit(kind geom.Kind, name string, vertices []orb.Point, extrusion geom.Extrusion, tags element.Tags) (Handle, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.handles++
	h := Handle(j.handles)
	err := j.enc.Encode(meshRecord{
		Type:     "mesh",
		ID:       h,
		Kind:     kind.String(),
		Name:     name,
		Vertices: vertices,
		Min:      extrusion.Min,
		Max:      extrusion.Max,
		Faces:    FaceCount(kind, len(vertices), extrusion),
		Tags:     tags,
	})
	if err != nil {
		return 0, errors.Wrapf(err, "writing mesh %q", name)
	}
	return h, nil
}

func (j *JSONWriter) EnsureMaterial(name string, color geom.Color) (MaterialRef, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if ref, ok := j.materials[name]; ok {
		return ref, nil
	}
	ref := MaterialRef(len(j.materials) + 1)
	if err := j.enc.Encode(materialRecord{Type: "material", ID: ref, Name: name, Color: color}); err != nil {
		return 0, errors.Wrapf(err, "writing material %q", name)
	}
	j.materials[name] = ref
	return ref, nil
}

func (j *JSONWriter) ApplyMaterial(h Handle, m MaterialRef, faces FaceSelector) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if h < 1 || int(h) > j.handles {
		return errors.Errorf("unknown mesh %d", h)
	}
	if m < 1 || int(m) > len(j.materials) {
		return errors.Errorf("unknown material %d", m)
	}
	return j.enc.Encode(applyRecord{Type: "apply", Mesh: h, Material: m, Faces: faces.String()})
}

func (j *JSONWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.Flush(); err != nil {
		return errors.Wrap(err, "flushing scene")
	}
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

func openJSONWriter(conf Config) (Sink, error) {
	if conf.Output == "" || conf.Output == "-" {
		return NewJSONWriter(os.Stdout), nil
	}
	f, err := os.Create(conf.Output)
	if err != nil {
		return nil, err
	}
	return NewJSONWriter(f), nil
}

func init() {
	Register("jsonl", openJSONWriter)
}
