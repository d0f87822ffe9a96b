// Package element holds the in-memory OSM graph of a single document:
// the node table, way records and the bounding filter applied to nodes.
package element

import (
	"strconv"

	osm "github.com/omniscale/go-osm"
	"github.com/paulmach/orb"
)

// Tags are the key=value pairs of a node or way.
type Tags = osm.Tags

// Way is a way as it was read from the document. Refs only contains
// IDs that were present in the NodeTable when the nd element was read.
type Way struct {
	osm.Way
	// RawID is the id attribute as written in the document.
	RawID string
}

func NewWay(rawID string) *Way {
	w := &Way{RawID: rawID}
	w.ID, _ = strconv.ParseInt(rawID, 10, 64)
	w.Tags = make(Tags)
	return w
}

// NodeTable maps node IDs to nodes that passed the BoundingFilter.
type NodeTable struct {
	nodes map[int64]osm.Node
}

func NewNodeTable() *NodeTable {
	return &NodeTable{nodes: make(map[int64]osm.Node)}
}

// Put inserts or replaces the node.
func (t *NodeTable) Put(nd osm.Node) {
	t.nodes[nd.ID] = nd
}

func (t *NodeTable) Get(id int64) (osm.Node, bool) {
	nd, ok := t.nodes[id]
	return nd, ok
}

func (t *NodeTable) Has(id int64) bool {
	_, ok := t.nodes[id]
	return ok
}

func (t *NodeTable) Len() int {
	return len(t.nodes)
}

// Nodes resolves refs to nodes. Refs missing from the table are skipped.
func (t *NodeTable) Nodes(refs []int64) []osm.Node {
	nodes := make([]osm.Node, 0, len(refs))
	for _, ref := range refs {
		if nd, ok := t.nodes[ref]; ok {
			nodes = append(nodes, nd)
		}
	}
	return nodes
}

// BoundingFilter is a lat/long rectangle. Nodes outside are discarded.
type BoundingFilter struct {
	bound orb.Bound
}

// World contains every valid coordinate.
var World = NewBoundingFilter(-90, 90, -180, 180)

func NewBoundingFilter(minLat, maxLat, minLong, maxLong float64) BoundingFilter {
	return BoundingFilter{bound: orb.Bound{
		Min: orb.Point{minLong, minLat},
		Max: orb.Point{maxLong, maxLat},
	}}
}

// Contains is inclusive on all four edges.
func (f BoundingFilter) Contains(lat, long float64) bool {
	return f.bound.Contains(orb.Point{long, lat})
}
