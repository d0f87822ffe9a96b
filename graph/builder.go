/*
Package graph builds the node/way graph of a single OSM document while it is
streamed.

The Builder is a state machine driven by start elements in document order.
It keeps the table of nodes inside the bounding filter, the node that is
currently open and the way that is currently open. A node is finalized when
its next sibling starts, a way when the next way or relation starts or the
stream ends. Finalized ways are passed to a WayHandler together with their
resolved nodes. Everything after the first relation is ignored.
*/
package graph

import (
	"encoding/xml"
	"fmt"
	"strconv"

	osm "github.com/omniscale/go-osm"
	"github.com/pkg/errors"

	"github.com/omniscale/osm3d/element"
	"github.com/omniscale/osm3d/log"
	"github.com/omniscale/osm3d/proj"
	"github.com/omniscale/osm3d/stats"
)

type State int

const (
	AwaitDocument State = iota
	InDocument
	InNode
	InWay
	InRelation
)

func (s State) String() string {
	switch s {
	case AwaitDocument:
		return "AwaitDocument"
	case InDocument:
		return "InDocument"
	case InNode:
		return "InNode"
	case InWay:
		return "InWay"
	case InRelation:
		return "InRelation"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// WayHandler receives every finalized way. nodes are the resolved nodes of
// way.Refs, in the same order. A returned error aborts the document.
type WayHandler interface {
	HandleWay(origin proj.Origin, way *element.Way, nodes []osm.Node) error
}

type WayHandlerFunc func(origin proj.Origin, way *element.Way, nodes []osm.Node) error

func (f WayHandlerFunc) HandleWay(origin proj.Origin, way *element.Way, nodes []osm.Node) error {
	return f(origin, way, nodes)
}

type Config struct {
	// Filter discards nodes outside. Defaults to element.World.
	Filter *element.BoundingFilter
	// NodeTags lists the tag keys that are kept for nodes. Nodes keep no
	// tags if empty.
	NodeTags []string
	// Lenient logs unknown or misplaced elements instead of failing.
	Lenient bool
	// Origin is used until the document declares bounds.
	Origin proj.Origin
	// OnOrigin is called whenever bounds set the origin.
	OnOrigin func(proj.Origin)
	Stats    *stats.Statistics
}

type Builder struct {
	filter   element.BoundingFilter
	nodeTags map[string]struct{}
	lenient  bool
	onOrigin func(proj.Origin)
	stats    *stats.Statistics
	handler  WayHandler

	state      State
	origin     proj.Origin
	boundsSeen bool
	nodesSeen  bool
	waysSeen   bool
	closed     bool
	index      int

	nodes *element.NodeTable
	// node is the open node, nil if there is none or if it is outside
	// of the filter.
	node *osm.Node
	way  *element.Way
}

func NewBuilder(conf Config, handler WayHandler) *Builder {
	b := &Builder{
		filter:   element.World,
		nodeTags: make(map[string]struct{}, len(conf.NodeTags)),
		lenient:  conf.Lenient,
		onOrigin: conf.OnOrigin,
		stats:    conf.Stats,
		handler:  handler,
		origin:   conf.Origin,
		nodes:    element.NewNodeTable(),
	}
	if conf.Filter != nil {
		b.filter = *conf.Filter
	}
	for _, k := range conf.NodeTags {
		b.nodeTags[k] = struct{}{}
	}
	return b
}

func (b *Builder) State() State { return b.state }

func (b *Builder) Origin() proj.Origin { return b.origin }

func (b *Builder) Nodes() *element.NodeTable { return b.nodes }

// Start dispatches a start element of an OSM XML document.
func (b *Builder) Start(el xml.StartElement) error {
	b.index++
	name := el.Name.Local
	switch name {
	case "osm":
		b.Document()
		return nil
	case "bounds":
		if b.state == InRelation {
			return nil
		}
		var coords [4]float64
		for i, attr := range []string{"minlat", "minlon", "maxlat", "maxlon"} {
			v, err := floatAttr(el, attr)
			if err != nil {
				return b.malformed(name, err.Error())
			}
			coords[i] = v
		}
		return b.Bounds(coords[0], coords[1], coords[2], coords[3])
	case "node":
		if b.state == InRelation {
			return nil
		}
		id, err := intAttr(el, "id")
		if err != nil {
			return b.skipNode(name, err)
		}
		lat, err := floatAttr(el, "lat")
		if err != nil {
			return b.skipNode(name, err)
		}
		long, err := floatAttr(el, "lon")
		if err != nil {
			return b.skipNode(name, err)
		}
		return b.OpenNode(id, lat, long)
	case "way":
		if b.state == InRelation {
			return nil
		}
		id, _ := attr(el, "id")
		return b.OpenWay(id)
	case "relation":
		return b.OpenRelation()
	case "tag":
		switch b.state {
		case InRelation:
			return nil
		case InNode, InWay:
		default:
			return b.malformed(name, "tag outside of node or way in state "+b.state.String())
		}
		k, ok := attr(el, "k")
		if !ok {
			return b.malformed(name, "missing attribute k")
		}
		v, _ := attr(el, "v")
		if b.state == InNode {
			b.NodeTag(k, v)
		} else {
			b.WayTag(k, v)
		}
		return nil
	case "nd":
		switch b.state {
		case InRelation:
			return nil
		case InWay:
		default:
			return b.malformed(name, "nd outside of way in state "+b.state.String())
		}
		ref, err := intAttr(el, "ref")
		if err != nil {
			return b.malformed(name, err.Error())
		}
		b.WayRef(ref)
		return nil
	case "member":
		b.Member()
		return nil
	}
	return b.malformed(name, "unknown element")
}

// Document marks the start of the osm root element.
func (b *Builder) Document() {
	if b.state == AwaitDocument {
		b.state = InDocument
	}
}

// Bounds sets the origin to the center of the bounds. A later bounds
// element replaces the origin for all ways that follow.
func (b *Builder) Bounds(minLat, minLong, maxLat, maxLong float64) error {
	if b.state == InRelation {
		return nil
	}
	if err := b.finishNode(); err != nil {
		return err
	}
	if err := b.finishWay(); err != nil {
		return err
	}
	if b.boundsSeen {
		log.Println("[warn] multiple bounds in document, using the last one")
		b.stats.AddWarning("bounds")
	} else if b.nodesSeen {
		log.Println("[warn] bounds after nodes, previous nodes use the new origin as well")
		b.stats.AddWarning("bounds")
	}
	b.boundsSeen = true
	b.origin = proj.NewOrigin((minLat+maxLat)*0.5, (minLong+maxLong)*0.5)
	b.state = InDocument
	if b.onOrigin != nil {
		b.onOrigin(b.origin)
	}
	return nil
}

func (b *Builder) OpenNode(id int64, lat, long float64) error {
	if b.state == InRelation {
		return nil
	}
	if err := b.finishNode(); err != nil {
		return err
	}
	b.nodesSeen = true
	b.state = InNode
	if !b.filter.Contains(lat, long) {
		b.stats.AddNode(false)
		return nil
	}
	b.node = &osm.Node{Element: osm.Element{ID: id}, Lat: lat, Long: long}
	return nil
}

// NodeTag records k=v for the open node if k is in the allow-list.
func (b *Builder) NodeTag(k, v string) {
	if b.state != InNode || b.node == nil {
		return
	}
	if _, ok := b.nodeTags[k]; !ok {
		return
	}
	if b.node.Tags == nil {
		b.node.Tags = make(osm.Tags)
	}
	b.node.Tags[k] = v
}

func (b *Builder) OpenWay(rawID string) error {
	if b.state == InRelation {
		return nil
	}
	if err := b.finishNode(); err != nil {
		return err
	}
	if err := b.finishWay(); err != nil {
		return err
	}
	if !b.waysSeen {
		b.waysSeen = true
		log.Printf("[info] Nodes collected: %d", b.nodes.Len())
	}
	b.way = element.NewWay(rawID)
	b.state = InWay
	return nil
}

// WayRef appends ref to the open way if the node is known.
func (b *Builder) WayRef(ref int64) {
	if b.state != InWay || b.way == nil {
		return
	}
	if !b.nodes.Has(ref) {
		b.stats.AddUnresolvedRef()
		log.Printf("[debug] way %s: %s %d", b.way.RawID, ErrUnresolvedNodeReference, ref)
		return
	}
	b.way.Refs = append(b.way.Refs, ref)
}

func (b *Builder) WayTag(k, v string) {
	if b.state != InWay || b.way == nil {
		return
	}
	b.way.Tags[k] = v
}

// OpenRelation finalizes the open way. All following elements are ignored.
func (b *Builder) OpenRelation() error {
	if err := b.finishNode(); err != nil {
		return err
	}
	if err := b.finishWay(); err != nil {
		return err
	}
	b.stats.AddRelation()
	b.state = InRelation
	return nil
}

func (b *Builder) Member() {}

// Close finalizes the open node and way at the end of the stream.
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.finishNode(); err != nil {
		return err
	}
	return b.finishWay()
}

func (b *Builder) finishNode() error {
	if b.node != nil {
		b.nodes.Put(*b.node)
		b.stats.AddNode(true)
		b.node = nil
	}
	if b.state == InNode {
		b.state = InDocument
	}
	return nil
}

func (b *Builder) finishWay() error {
	if b.way == nil {
		return nil
	}
	way := b.way
	b.way = nil
	if b.state == InWay {
		b.state = InDocument
	}
	b.stats.AddWay()
	if b.handler == nil {
		return nil
	}
	if err := b.handler.HandleWay(b.origin, way, b.nodes.Nodes(way.Refs)); err != nil {
		return errors.Wrapf(err, "handling way %s", way.RawID)
	}
	return nil
}

func (b *Builder) skipNode(name string, err error) error {
	if err := b.malformed(name, err.Error()); err != nil {
		return err
	}
	// lenient: tags of the broken node must not end up anywhere else
	if err := b.finishNode(); err != nil {
		return err
	}
	b.state = InNode
	return nil
}

func (b *Builder) malformed(name, msg string) error {
	if b.lenient {
		log.Printf("[warn] ignoring <%s> (element #%d): %s", name, b.index, msg)
		b.stats.AddWarning("malformed")
		return nil
	}
	return &DocumentError{Element: name, Index: b.index, Offset: -1, Msg: msg}
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func intAttr(el xml.StartElement, name string) (int64, error) {
	v, ok := attr(el, name)
	if !ok {
		return 0, errors.Errorf("missing attribute %s", name)
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid %s %q", name, v)
	}
	return i, nil
}

func floatAttr(el xml.StartElement, name string) (float64, error) {
	v, ok := attr(el, name)
	if !ok {
		return 0, errors.Errorf("missing attribute %s", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Errorf("invalid %s %q", name, v)
	}
	return f, nil
}
