package writer

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/omniscale/osm3d/geom"
	"github.com/omniscale/osm3d/log"
	"github.com/omniscale/osm3d/scene"
	"github.com/omniscale/osm3d/stats"
)

// ProgressInterval is the number of emitted intents between progress lines.
const ProgressInterval = 100

// ErrorLevel is implemented by errors that know whether they are worth
// reporting. Errors with level 0 are expected and not logged.
type ErrorLevel interface {
	Level() int
}

// Scene is the part of a scene.Sink the writer needs.
type Scene interface {
	scene.MeshBuilder
	scene.MaterialRegistry
}

// IntentWriter emits geometry intents to a scene. It is safe for concurrent
// use if the scene is.
type IntentWriter struct {
	scene    Scene
	progress *stats.Statistics

	mu      sync.Mutex
	emitted int
}

func NewIntentWriter(s Scene, progress *stats.Statistics) *IntentWriter {
	return &IntentWriter{scene: s, progress: progress}
}

// Emitted returns the number of intents written so far.
func (iw *IntentWriter) Emitted() int {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	return iw.emitted
}

// Write creates the mesh of intent and applies its materials.
func (iw *IntentWriter) Write(intent *geom.Intent) error {
	for _, w := range intent.Warnings {
		log.Printf("[warn] way %s (%s): %s", intent.WayID, intent.Role, w)
		iw.progress.AddWarning(warningKind(w))
	}

	var h scene.Handle
	var err error
	if intent.Kind == geom.Polyline {
		h, err = iw.scene.EmitPolyline(intent.Name, intent.Vertices(), intent.Extrusion, intent.Tags)
	} else {
		h, err = iw.scene.EmitPolygon(intent.Name, intent.Vertices(), intent.Extrusion, intent.Tags)
	}
	if err != nil {
		return errors.Wrapf(err, "emitting %s %q", intent.Kind, intent.Name)
	}

	for _, m := range intent.Materials {
		sel, err := scene.Selector(m.Faces)
		if err != nil {
			return err
		}
		ref, err := iw.scene.EnsureMaterial(m.Name, m.Color)
		if err != nil {
			return errors.Wrapf(err, "material %q", m.Name)
		}
		if err := iw.scene.ApplyMaterial(h, ref, sel); err != nil {
			return errors.Wrapf(err, "applying material %q", m.Name)
		}
	}

	iw.progress.AddIntent(intent.Role.String())
	iw.mu.Lock()
	iw.emitted++
	n := iw.emitted
	iw.mu.Unlock()
	if n%ProgressInterval == 0 {
		log.Printf("[progress] %d geometries created", n)
	}
	return nil
}

func warningKind(err error) string {
	if errors.Cause(err) == geom.ErrInvalidDimension {
		return "invalid_dimension"
	}
	return "other"
}
