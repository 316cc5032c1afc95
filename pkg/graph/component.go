package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []int32
	rank   []byte
	size   []int32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n int) *UnionFind {
	parent := make([]int32, n)
	size := make([]int32, n)
	for i := range n {
		parent[i] = int32(i)
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x int32) int32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y int32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the node ids of the largest weakly connected
// component (edges treated as undirected), in ascending order.
func LargestComponent(g *Graph) []int32 {
	n := g.NumNodes()
	if n == 0 {
		return nil
	}

	uf := NewUnionFind(n)
	for u, edges := range g.Adj {
		for _, e := range edges {
			uf.Union(int32(u), e.To)
		}
	}

	bestRoot := int32(0)
	bestSize := int32(0)
	for i := range int32(n) {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	nodes := make([]int32, 0, bestSize)
	for i := range int32(n) {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// FilterToComponent creates a new graph containing only the given nodes,
// renumbered by their position in nodes. Edges leaving the set are dropped;
// the surviving entries keep their adjacency order.
func FilterToComponent(g *Graph, nodes []int32) *Graph {
	if len(nodes) == 0 {
		return &Graph{}
	}

	oldToNew := make(map[int32]int32, len(nodes))
	for newIdx, oldIdx := range nodes {
		oldToNew[oldIdx] = int32(newIdx)
	}

	out := New(len(nodes))
	for newU, oldU := range nodes {
		for _, e := range g.Adj[oldU] {
			if newV, ok := oldToNew[e.To]; ok {
				out.AddEdge(int32(newU), newV, e.Weight)
			}
		}
	}

	if g.HasCoords() {
		out.NodeLat = make([]float64, len(nodes))
		out.NodeLon = make([]float64, len(nodes))
		for newIdx, oldIdx := range nodes {
			out.NodeLat[newIdx] = g.NodeLat[oldIdx]
			out.NodeLon[newIdx] = g.NodeLon[oldIdx]
		}
	}

	return out
}
