package reader

import (
	"context"
	"io"
	"strconv"
	"time"

	osm "github.com/omniscale/go-osm"
	"github.com/omniscale/go-osm/parser/pbf"
	"golang.org/x/sync/errgroup"

	"github.com/omniscale/osm3d/graph"
)

// ReadPbf streams an OSM PBF file into b. PBF files have no bounds, the
// builder keeps the origin it was configured with.
//
// Blocks are parsed by a single goroutine, so nodes, ways and relations
// arrive in file order.
func ReadPbf(ctx context.Context, r io.Reader, b *graph.Builder) error {
	nodes := make(chan []osm.Node)
	ways := make(chan []osm.Way)
	relations := make(chan []osm.Relation)

	parser := pbf.New(r, pbf.Config{
		Nodes:       nodes,
		Ways:        ways,
		Relations:   relations,
		Concurrency: 1,
	})

	g, gctx := errgroup.WithContext(ctx)
	parsed := make(chan struct{})
	var parseErr error
	g.Go(func() error {
		defer close(parsed)
		parseErr = parser.Parse(gctx)
		return parseErr
	})
	g.Go(func() error {
		b.Document()
		// After an error of the consumer the channels are still drained,
		// the parser would block otherwise.
		var err error
		for {
			select {
			case <-parsed:
				if parseErr != nil {
					// Parse does not wait for its worker when a block
					// fails, the worker can still be sending.
					go drain(drainIdle, nodes, ways, relations)
					// reported by the parser goroutine
					return err
				}
				// Parse succeeded, all sends completed and the channels
				// are closed.
				if err != nil {
					return err
				}
				return b.Close()
			case nds, ok := <-nodes:
				if !ok {
					nodes = nil
				} else if err == nil {
					err = feedNodes(b, nds)
				}
			case ws, ok := <-ways:
				if !ok {
					ways = nil
				} else if err == nil {
					err = feedWays(b, ws)
				}
			case rels, ok := <-relations:
				if !ok {
					relations = nil
				} else if err == nil {
					err = feedRelations(b, rels)
				}
			}
		}
	})
	return g.Wait()
}

// drainIdle is how long drain waits for the next send before it stops.
var drainIdle = time.Second

// drain discards everything sent on the output channels until all are
// closed or nothing arrived for idle.
func drain(idle time.Duration, nodes chan []osm.Node, ways chan []osm.Way, relations chan []osm.Relation) {
	timer := time.NewTimer(idle)
	defer timer.Stop()
	for nodes != nil || ways != nil || relations != nil {
		select {
		case <-timer.C:
			return
		case _, ok := <-nodes:
			if !ok {
				nodes = nil
			}
		case _, ok := <-ways:
			if !ok {
				ways = nil
			}
		case _, ok := <-relations:
			if !ok {
				relations = nil
			}
		}
		timer.Reset(idle)
	}
}

func feedNodes(b *graph.Builder, nodes []osm.Node) error {
	for _, nd := range nodes {
		if err := b.OpenNode(nd.ID, nd.Lat, nd.Long); err != nil {
			return err
		}
		for k, v := range nd.Tags {
			b.NodeTag(k, v)
		}
	}
	return nil
}

func feedWays(b *graph.Builder, ways []osm.Way) error {
	for _, w := range ways {
		if err := b.OpenWay(strconv.FormatInt(w.ID, 10)); err != nil {
			return err
		}
		for _, ref := range w.Refs {
			b.WayRef(ref)
		}
		for k, v := range w.Tags {
			b.WayTag(k, v)
		}
	}
	return nil
}

func feedRelations(b *graph.Builder, rels []osm.Relation) error {
	for range rels {
		if err := b.OpenRelation(); err != nil {
			return err
		}
		b.Member()
	}
	return nil
}
