package scene

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniscale/osm3d/element"
	"github.com/omniscale/osm3d/geom"
)

var square = []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

func TestFaceCount(t *testing.T) {
	assert.Equal(t, 1, FaceCount(geom.Polygon, 4, geom.Extrusion{}))
	assert.Equal(t, 5, FaceCount(geom.Polygon, 4, geom.Extrusion{Max: 3}))
	assert.Equal(t, 1, FaceCount(geom.Polygon, 4, geom.Extrusion{Min: 5, Max: 5}))
	assert.Equal(t, 0, FaceCount(geom.Polyline, 4, geom.Extrusion{}))
	assert.Equal(t, 3, FaceCount(geom.Polyline, 4, geom.Extrusion{Max: 0.5}))
}

func TestSelector(t *testing.T) {
	for faces, want := range map[geom.Faces]FaceSelector{
		geom.FacesCap:   FirstFace,
		geom.FacesSides: RemainingFaces,
		geom.FacesAll:   AllFaces,
		geom.FacesNone:  NoFaces,
	} {
		sel, err := Selector(faces)
		require.NoError(t, err)
		assert.Equal(t, want, sel, string(faces))
	}
	_, err := Selector("top")
	assert.Error(t, err)
}

func TestRecorderMaterials(t *testing.T) {
	r := NewRecorder()
	h, err := r.EmitPolygon("house", square, geom.Extrusion{Max: 3}, element.Tags{"building": "yes"})
	require.NoError(t, err)

	roof, err := r.EnsureMaterial("roof", geom.Red)
	require.NoError(t, err)
	walls, err := r.EnsureMaterial("building", geom.Orange)
	require.NoError(t, err)
	again, err := r.EnsureMaterial("roof", geom.Blue)
	require.NoError(t, err)
	assert.Equal(t, roof, again)

	require.NoError(t, r.ApplyMaterial(h, roof, FirstFace))
	require.NoError(t, r.ApplyMaterial(h, walls, RemainingFaces))

	meshes := r.Meshes()
	require.Len(t, meshes, 1)
	m := meshes[0]
	assert.Equal(t, "house", m.Name)
	assert.Equal(t, geom.Polygon, m.Kind)
	assert.Len(t, m.Faces, 5)
	assert.Equal(t, 1, m.MaterialCount("roof"))
	assert.Equal(t, 4, m.MaterialCount("building"))

	mat, ok := r.Material("roof")
	require.True(t, ok)
	assert.Equal(t, geom.Red, mat.Color)
	assert.Len(t, r.Materials(), 2)
}

func TestRecorderNoFaces(t *testing.T) {
	r := NewRecorder()
	h, err := r.EmitPolyline("fence", square, geom.Extrusion{Max: 0.5}, nil)
	require.NoError(t, err)
	ref, err := r.EnsureMaterial("fence", geom.Blue)
	require.NoError(t, err)
	require.NoError(t, r.ApplyMaterial(h, ref, NoFaces))

	m := r.Meshes()[0]
	assert.Len(t, m.Faces, 3)
	assert.Equal(t, 0, m.MaterialCount("fence"))
	_, ok := r.Material("fence")
	assert.True(t, ok)
}

func TestRecorderUnknownHandle(t *testing.T) {
	r := NewRecorder()
	ref, err := r.EnsureMaterial("roof", geom.Red)
	require.NoError(t, err)
	assert.Error(t, r.ApplyMaterial(Handle(7), ref, AllFaces))

	h, err := r.EmitPolygon("x", square, geom.Extrusion{}, nil)
	require.NoError(t, err)
	assert.Error(t, r.ApplyMaterial(h, MaterialRef(9), AllFaces))
}

func TestJSONWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf)
	h, err := w.EmitPolygon("house", square, geom.Extrusion{Max: 3}, element.Tags{"building": "yes"})
	require.NoError(t, err)
	ref, err := w.EnsureMaterial("roof", geom.Red)
	require.NoError(t, err)
	_, err = w.EnsureMaterial("roof", geom.Red)
	require.NoError(t, err)
	require.NoError(t, w.ApplyMaterial(h, ref, FirstFace))
	assert.Error(t, w.ApplyMaterial(h+1, ref, FirstFace))
	require.NoError(t, w.Close())

	var records []map[string]interface{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		rec := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 3)
	assert.Equal(t, "mesh", records[0]["type"])
	assert.Equal(t, "polygon", records[0]["kind"])
	assert.Equal(t, 5.0, records[0]["faces"])
	assert.Equal(t, map[string]interface{}{"building": "yes"}, records[0]["tags"])
	assert.Equal(t, "material", records[1]["type"])
	assert.Equal(t, []interface{}{1.0, 0.0, 0.0, 1.0}, records[1]["color"])
	assert.Equal(t, "apply", records[2]["type"])
	assert.Equal(t, "first", records[2]["faces"])
}

func TestOpen(t *testing.T) {
	for _, typ := range []string{"null", "memory"} {
		sink, err := Open(Config{Type: typ})
		require.NoError(t, err, typ)
		h, err := sink.EmitPolygon("a", square, geom.Extrusion{}, nil)
		require.NoError(t, err)
		ref, err := sink.EnsureMaterial("m", geom.Gray)
		require.NoError(t, err)
		require.NoError(t, sink.ApplyMaterial(h, ref, FirstFace))
		require.NoError(t, sink.Close())
	}
	_, err := Open(Config{Type: "obj"})
	assert.Error(t, err)
}

func TestNullSinkConcurrent(t *testing.T) {
	sink := &NullSink{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := sink.EmitPolyline("l", square, geom.Extrusion{}, nil)
				assert.NoError(t, err)
				_, err = sink.EnsureMaterial(fmt.Sprintf("m%d", j%5), geom.Gray)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, sink.Handles())

	ref, err := sink.EnsureMaterial("m0", geom.Gray)
	require.NoError(t, err)
	assert.True(t, ref >= 1 && ref <= 5, "ref %d", ref)
	ref, err = sink.EnsureMaterial("m5", geom.Gray)
	require.NoError(t, err)
	assert.Equal(t, MaterialRef(6), ref)
}

func TestTypeFromOutput(t *testing.T) {
	for _, tc := range []struct {
		output, typ, target string
	}{
		{"", "null", ""},
		{"scene.jsonl", "jsonl", "scene.jsonl"},
		{"memory:", "memory", ""},
		{"jsonl:/tmp/out", "jsonl", "/tmp/out"},
		{"c:/scene.jsonl", "jsonl", "c:/scene.jsonl"},
	} {
		typ, target := TypeFromOutput(tc.output)
		assert.Equal(t, tc.typ, typ, tc.output)
		assert.Equal(t, tc.target, target, tc.output)
	}
}
