package graph

// NoNode marks an unset predecessor or a missing node.
const NoNode int32 = -1

// Edge is one adjacency entry: a directed edge to To with a non-negative weight.
type Edge struct {
	To     int32
	Weight uint32
}

// Graph is a directed weighted graph stored as per-node adjacency lists.
//
// Adjacency order is insertion order. Parallel edges are allowed and kept as
// distinct entries. The lists are mutable in place: RemoveEdge shrinks them and
// nothing ever restores a removed entry.
type Graph struct {
	Adj [][]Edge

	// Optional node coordinates, present only for graphs imported from OSM.
	NodeLat []float64 // len: NumNodes or 0
	NodeLon []float64 // len: NumNodes or 0
}

// New creates a graph with n nodes and no edges.
func New(n int) *Graph {
	return &Graph{Adj: make([][]Edge, n)}
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int {
	return len(g.Adj)
}

// NumEdges returns the current number of adjacency entries.
func (g *Graph) NumEdges() int {
	n := 0
	for _, edges := range g.Adj {
		n += len(edges)
	}
	return n
}

// AddEdge appends u->v to the end of u's adjacency list.
func (g *Graph) AddEdge(u, v int32, w uint32) {
	g.Adj[u] = append(g.Adj[u], Edge{To: v, Weight: w})
}

// EdgesFrom returns the adjacency list of u. The slice aliases the graph.
func (g *Graph) EdgesFrom(u int32) []Edge {
	return g.Adj[u]
}

// RemoveEdge deletes the first entry of u's adjacency list pointing to v and
// reports whether one was found. Later entries keep their relative order.
func (g *Graph) RemoveEdge(u, v int32) bool {
	edges := g.Adj[u]
	for i, e := range edges {
		if e.To == v {
			g.Adj[u] = append(edges[:i], edges[i+1:]...)
			return true
		}
	}
	return false
}

// HasCoords reports whether every node carries a coordinate.
func (g *Graph) HasCoords() bool {
	n := g.NumNodes()
	return n > 0 && len(g.NodeLat) == n && len(g.NodeLon) == n
}

// Clone returns a deep copy. Runs prune the graph they are given, so callers
// that reuse a graph across runs hand out clones.
func (g *Graph) Clone() *Graph {
	c := &Graph{Adj: make([][]Edge, len(g.Adj))}
	for u, edges := range g.Adj {
		if len(edges) > 0 {
			c.Adj[u] = append([]Edge(nil), edges...)
		}
	}
	if g.NodeLat != nil {
		c.NodeLat = append([]float64(nil), g.NodeLat...)
		c.NodeLon = append([]float64(nil), g.NodeLon...)
	}
	return c
}

// Contains reports whether id is a valid node of g.
func (g *Graph) Contains(id int32) bool {
	return id >= 0 && int(id) < len(g.Adj)
}
