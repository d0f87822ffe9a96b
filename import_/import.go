/*
Package import_ provides the import sub command and the pipeline that turns
OSM files into scene geometries.
*/
package import_

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/omniscale/osm3d/config"
	"github.com/omniscale/osm3d/geom"
	"github.com/omniscale/osm3d/graph"
	"github.com/omniscale/osm3d/log"
	"github.com/omniscale/osm3d/proj"
	"github.com/omniscale/osm3d/reader"
	"github.com/omniscale/osm3d/scene"
	"github.com/omniscale/osm3d/stats"
	"github.com/omniscale/osm3d/writer"
)

// Pipeline reads OSM documents and writes the geometries of all classified
// ways to a scene. Each document gets its own graph builder, the scene and
// the statistics are shared.
type Pipeline struct {
	opts     config.Base
	intents  *writer.IntentWriter
	ways     *writer.WayWriter
	progress *stats.Statistics
}

func NewPipeline(opts config.Base, s writer.Scene, progress *stats.Statistics) *Pipeline {
	intents := writer.NewIntentWriter(s, progress)
	return &Pipeline{
		opts:     opts,
		intents:  intents,
		ways:     writer.NewWayWriter(intents, progress, opts.Toggles, geom.Options{Decimals: opts.Decimals}),
		progress: progress,
	}
}

func (p *Pipeline) newBuilder(name string) *graph.Builder {
	filter := p.opts.BBox.Filter()
	conf := graph.Config{
		Filter:   &filter,
		NodeTags: p.opts.NodeTags,
		Lenient:  p.opts.Lenient,
		Stats:    p.progress,
		OnOrigin: func(o proj.Origin) {
			log.Printf("[info] %s: origin %.6f, %.6f", name, o.Lat, o.Long)
		},
	}
	if p.opts.Origin != nil {
		conf.Origin = p.opts.Origin.Proj()
	}
	return graph.NewBuilder(conf, p.ways)
}

// Read processes a single document.
func (p *Pipeline) Read(ctx context.Context, r io.Reader, format reader.Format) error {
	return reader.Read(ctx, r, format, p.newBuilder(format.String()))
}

// ReadFile processes a single file, the format is detected by extension.
func (p *Pipeline) ReadFile(ctx context.Context, filename string) error {
	return reader.Open(ctx, filename, p.newBuilder(filename))
}

// ReadFiles processes up to concurrency files in parallel. The first error
// cancels all other files.
func (p *Pipeline) ReadFiles(ctx context.Context, filenames []string, concurrency int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for _, filename := range filenames {
		g.Go(func() error {
			defer log.Step("Reading " + filename)()
			return p.ReadFile(gctx, filename)
		})
	}
	return g.Wait()
}

// Emitted returns the number of geometries written to the scene.
func (p *Pipeline) Emitted() int {
	return p.intents.Emitted()
}

// Run imports all files of opts into a new scene.
func Run(ctx context.Context, opts config.Import, progress *stats.Statistics) error {
	typ, output := scene.TypeFromOutput(opts.Output)
	sink, err := scene.Open(scene.Config{Type: typ, Output: output})
	if err != nil {
		return err
	}

	step := log.Step("Importing OSM data")
	p := NewPipeline(opts.Base, sink, progress)
	err = p.ReadFiles(ctx, opts.Files, opts.Concurrency)
	if cerr := sink.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "closing scene")
	}
	if err != nil {
		return err
	}
	step()

	log.Printf("[info] %d geometries created", p.Emitted())
	log.Printf("[info] %s", progress.Summary())

	if opts.Metrics != "" {
		if err := writeMetrics(opts.Metrics, progress); err != nil {
			return errors.Wrap(err, "writing metrics")
		}
	}
	return nil
}

func writeMetrics(filename string, progress *stats.Statistics) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := progress.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Import runs the import command.
func Import(opts config.Import) {
	log.SetQuiet(opts.Quiet)
	if opts.LogLevel != "" {
		// validated by config
		lvl, _ := log.ParseLevel(opts.LogLevel)
		log.SetMinLevel(lvl)
	}
	if err := Run(context.Background(), opts, stats.New()); err != nil {
		log.Fatal("[fatal] ", err)
	}
}
