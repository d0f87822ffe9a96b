package writer

import (
	"bytes"
	"testing"

	osm "github.com/omniscale/go-osm"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniscale/osm3d/element"
	"github.com/omniscale/osm3d/geom"
	"github.com/omniscale/osm3d/log"
	"github.com/omniscale/osm3d/mapping"
	"github.com/omniscale/osm3d/proj"
	"github.com/omniscale/osm3d/scene"
	"github.com/omniscale/osm3d/stats"
)

// failingScene fails to emit meshes with the name "broken".
type failingScene struct {
	*scene.Recorder
}

func (f failingScene) EmitPolygon(name string, vertices []orb.Point, extrusion geom.Extrusion, tags element.Tags) (scene.Handle, error) {
	if name == "broken" {
		return 0, errors.New("scene rejected mesh")
	}
	return f.Recorder.EmitPolygon(name, vertices, extrusion, tags)
}

func triangleNodes() []osm.Node {
	return []osm.Node{
		{Element: osm.Element{ID: 1}, Lat: 0, Long: 0},
		{Element: osm.Element{ID: 2}, Lat: 0, Long: 0.001},
		{Element: osm.Element{ID: 3}, Lat: 0.001, Long: 0},
		{Element: osm.Element{ID: 1}, Lat: 0, Long: 0},
	}
}

func newWay(id string, tags element.Tags) *element.Way {
	w := element.NewWay(id)
	for k, v := range tags {
		w.Tags[k] = v
	}
	return w
}

func TestWayWriterBuilding(t *testing.T) {
	rec := scene.NewRecorder()
	st := stats.New()
	ww := NewWayWriter(NewIntentWriter(rec, st), st, mapping.DefaultToggles(), geom.DefaultOptions())

	err := ww.HandleWay(proj.NewOrigin(0, 0), newWay("10", element.Tags{"building": "yes"}), triangleNodes())
	require.NoError(t, err)

	meshes := rec.Meshes()
	require.Len(t, meshes, 1)
	m := meshes[0]
	assert.Equal(t, geom.Polygon, m.Kind)
	assert.Len(t, m.Vertices, 3)
	assert.Equal(t, geom.Extrusion{Min: 0, Max: 3}, m.Extrusion)
	assert.Equal(t, 1, m.MaterialCount("roof"))
	assert.Equal(t, len(m.Faces)-1, m.MaterialCount("building"))
	assert.Contains(t, st.Summary(), "intents{building}=1")
}

func TestWayWriterMultipleRoles(t *testing.T) {
	rec := scene.NewRecorder()
	ww := NewWayWriter(NewIntentWriter(rec, nil), nil, mapping.DefaultToggles(), geom.DefaultOptions())

	tags := element.Tags{"building": "yes", "natural": "water", "amenity": "school", "name": "Pond House"}
	require.NoError(t, ww.HandleWay(proj.NewOrigin(0, 0), newWay("11", tags), triangleNodes()))

	meshes := rec.Meshes()
	require.Len(t, meshes, 2)
	assert.Equal(t, 1, meshes[0].MaterialCount("roof"))
	assert.Equal(t, "Pond House", meshes[1].Name)
	assert.Equal(t, 1, meshes[1].MaterialCount("water"))
	_, ok := rec.Material("school")
	assert.False(t, ok)
}

func TestWayWriterSkipsTooFewVertices(t *testing.T) {
	rec := scene.NewRecorder()
	st := stats.New()
	ww := NewWayWriter(NewIntentWriter(rec, st), st, mapping.DefaultToggles(), geom.DefaultOptions())

	nodes := triangleNodes()[:2]
	require.NoError(t, ww.HandleWay(proj.NewOrigin(0, 0), newWay("12", element.Tags{"landuse": "grass"}), nodes))
	assert.Empty(t, rec.Meshes())
	assert.Contains(t, st.Summary(), "skipped{landuse}=1")
}

func TestWayWriterIgnoresUntaggedAndUnclassified(t *testing.T) {
	rec := scene.NewRecorder()
	ww := NewWayWriter(NewIntentWriter(rec, nil), nil, mapping.DefaultToggles(), geom.DefaultOptions())

	require.NoError(t, ww.HandleWay(proj.Origin{}, newWay("1", nil), triangleNodes()))
	require.NoError(t, ww.HandleWay(proj.Origin{}, newWay("2", element.Tags{"highway": "residential"}), triangleNodes()))
	require.NoError(t, ww.HandleWay(proj.Origin{}, newWay("3", element.Tags{"shop": "bakery"}), triangleNodes()))
	assert.Empty(t, rec.Meshes())
}

func TestWayWriterContinuesAfterFailure(t *testing.T) {
	rec := scene.NewRecorder()
	st := stats.New()
	ww := NewWayWriter(NewIntentWriter(failingScene{rec}, st), st, mapping.DefaultToggles(), geom.DefaultOptions())

	logs := &bytes.Buffer{}
	log.SetOutput(logs)
	defer log.SetOutput(nil)

	origin := proj.NewOrigin(0, 0)
	require.NoError(t, ww.HandleWay(origin, newWay("1", element.Tags{"natural": "water", "name": "broken"}), triangleNodes()))
	require.NoError(t, ww.HandleWay(origin, newWay("2", element.Tags{"natural": "water", "name": "lake"}), triangleNodes()))

	meshes := rec.Meshes()
	require.Len(t, meshes, 1)
	assert.Equal(t, "lake", meshes[0].Name)
	assert.Contains(t, st.Summary(), "failures{natural}=1")
	assert.Contains(t, logs.String(), "[warn] way 1 (natural)")
}

func TestIntentWriterWarnings(t *testing.T) {
	rec := scene.NewRecorder()
	st := stats.New()
	iw := NewIntentWriter(rec, st)

	logs := &bytes.Buffer{}
	log.SetOutput(logs)
	defer log.SetOutput(nil)

	intent, err := geom.Synthesize(mapping.Building, newWay("5", element.Tags{"building": "yes", "height": "tall"}),
		orb.LineString{{0, 0}, {1, 0}, {0, 1}, {0, 0}}, geom.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, iw.Write(intent))

	m := rec.Meshes()[0]
	assert.False(t, m.Extrusion.Extruded())
	assert.Len(t, m.Faces, 1)
	assert.Contains(t, st.Summary(), "warnings{invalid_dimension}=1")
	assert.Contains(t, logs.String(), "invalid dimension")
}

func TestIntentWriterBarrierMaterial(t *testing.T) {
	rec := scene.NewRecorder()
	iw := NewIntentWriter(rec, nil)

	intent, err := geom.Synthesize(mapping.Barrier, newWay("6", element.Tags{"barrier": "fence"}),
		orb.LineString{{0, 0}, {5, 0}, {5, 5}}, geom.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, iw.Write(intent))

	m := rec.Meshes()[0]
	assert.Equal(t, geom.Polyline, m.Kind)
	assert.Len(t, m.Faces, 2)
	assert.Equal(t, 0, m.MaterialCount("fence"))
	_, ok := rec.Material("fence")
	assert.True(t, ok)
}

func TestIntentWriterProgress(t *testing.T) {
	iw := NewIntentWriter(&scene.NullSink{}, nil)

	logs := &bytes.Buffer{}
	log.SetOutput(logs)
	defer log.SetOutput(nil)

	line := orb.LineString{{0, 0}, {1, 1}}
	for i := 0; i < 2*ProgressInterval+1; i++ {
		intent, err := geom.Synthesize(mapping.LinearFeature, newWay("7", element.Tags{"highway": "path"}), line, geom.DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, iw.Write(intent))
	}
	assert.Equal(t, 2*ProgressInterval+1, iw.Emitted())
	assert.Contains(t, logs.String(), "[progress] 100 geometries created")
	assert.Contains(t, logs.String(), "[progress] 200 geometries created")
}
