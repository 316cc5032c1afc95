package graph

import (
	"sort"

	"github.com/paulmach/osm"

	osmparser "github.com/azybler/kpath_tracer/pkg/osm"
)

// Build creates an adjacency-list Graph from parsed OSM edges.
//
// OSM node ids are compacted to 0..V-1 in order of first appearance. Each
// node's adjacency list is ordered by target node so that imports of the same
// extract always yield the same trace.
func Build(result *osmparser.ParseResult) *Graph {
	edges := result.Edges
	if len(edges) == 0 {
		return &Graph{}
	}

	// Step 1: Collect all unique node IDs and build a compact mapping.
	nodeSet := make(map[osm.NodeID]int32)
	var nodeIDs []osm.NodeID

	addNode := func(id osm.NodeID) int32 {
		if idx, ok := nodeSet[id]; ok {
			return idx
		}
		idx := int32(len(nodeIDs))
		nodeSet[id] = idx
		nodeIDs = append(nodeIDs, id)
		return idx
	}

	for i := range edges {
		addNode(edges[i].FromNodeID)
		addNode(edges[i].ToNodeID)
	}

	// Step 2: Remap and sort edges by (from, to). Stable so that parallel
	// edges keep their parse order.
	type compactEdge struct {
		from, to int32
		weight   uint32
	}
	compact := make([]compactEdge, len(edges))
	for i, e := range edges {
		compact[i] = compactEdge{
			from:   nodeSet[e.FromNodeID],
			to:     nodeSet[e.ToNodeID],
			weight: e.Weight,
		}
	}
	sort.SliceStable(compact, func(i, j int) bool {
		if compact[i].from != compact[j].from {
			return compact[i].from < compact[j].from
		}
		return compact[i].to < compact[j].to
	})

	// Step 3: Fill adjacency lists.
	g := New(len(nodeIDs))
	for _, e := range compact {
		g.AddEdge(e.from, e.to, e.weight)
	}

	// Step 4: Populate node coordinates.
	g.NodeLat = make([]float64, len(nodeIDs))
	g.NodeLon = make([]float64, len(nodeIDs))
	for id, idx := range nodeSet {
		g.NodeLat[idx] = result.NodeLat[id]
		g.NodeLon[idx] = result.NodeLon[id]
	}

	return g
}
