package writer

import (
	osm "github.com/omniscale/go-osm"

	"github.com/omniscale/osm3d/element"
	"github.com/omniscale/osm3d/geom"
	"github.com/omniscale/osm3d/log"
	"github.com/omniscale/osm3d/mapping"
	"github.com/omniscale/osm3d/proj"
	"github.com/omniscale/osm3d/stats"
)

// WayWriter classifies finalized ways and writes one geometry per role.
// It implements graph.WayHandler.
type WayWriter struct {
	intents  *IntentWriter
	progress *stats.Statistics
	toggles  mapping.Toggles
	opts     geom.Options
}

func NewWayWriter(
	intents *IntentWriter,
	progress *stats.Statistics,
	toggles mapping.Toggles,
	opts geom.Options,
) *WayWriter {
	return &WayWriter{
		intents:  intents,
		progress: progress,
		toggles:  toggles,
		opts:     opts,
	}
}

// HandleWay never fails. Problems with single roles are logged and counted,
// the remaining roles and ways are still written.
func (ww *WayWriter) HandleWay(origin proj.Origin, w *element.Way, nodes []osm.Node) error {
	if len(w.Tags) == 0 {
		return nil
	}
	roles := mapping.Classify(w.Tags, ww.toggles)
	if len(roles) == 0 {
		return nil
	}
	positions := origin.ProjectNodes(nodes)

	for _, role := range roles {
		intent, err := geom.Synthesize(role, w, positions, ww.opts)
		if err != nil {
			if errl, ok := err.(ErrorLevel); ok && errl.Level() == 0 {
				log.Printf("[debug] skipping way %s (%s): %s", w.RawID, role, err)
				ww.progress.AddSkipped(role.String())
				continue
			}
			log.Printf("[warn] way %s (%s): %s", w.RawID, role, err)
			ww.progress.AddFailure(role.String())
			continue
		}
		if err := ww.intents.Write(intent); err != nil {
			log.Printf("[warn] way %s (%s): %s", w.RawID, role, err)
			ww.progress.AddFailure(role.String())
		}
	}
	return nil
}
