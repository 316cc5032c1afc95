package routing

import (
	"github.com/azybler/kpath_tracer/pkg/graph"
	"github.com/azybler/kpath_tracer/pkg/trace"
)

// Result is the outcome of KShortestPaths.
type Result struct {
	Paths  []Path // discovery order, at most k
	Pops   int    // frontier entries expanded over all iterations
	Pruned int    // adjacency entries removed from the graph
}

// NodePaths returns the node sequences of r.Paths.
func (r Result) NodePaths() [][]int32 {
	out := make([][]int32, len(r.Paths))
	for i, p := range r.Paths {
		out[i] = p.Nodes
	}
	return out
}

// KShortestPaths finds up to k paths from src to dst by running ShortestPath
// repeatedly, removing the edges of each path found before the next search.
//
// Removal is permanent: g ends up without every edge used by a returned path
// and nothing is restored. This is not Yen's algorithm proper, which keeps the
// root graph and only hides edges while exploring spur paths, so later paths
// may be longer than the true k-th shortest. The loop stops early at the first
// unreachable search; fewer than k paths is a normal result.
func KShortestPaths(g *graph.Graph, src, dst int32, k int, enc *trace.Encoder) Result {
	res, _ := kShortestPaths(g, src, dst, k, enc, nil)
	return res
}

// kShortestPaths is KShortestPaths with a stop check. On a stop error it
// returns what was found so far; g keeps the removals made up to that point.
func kShortestPaths(g *graph.Graph, src, dst int32, k int, enc *trace.Encoder, stop stopFunc) (Result, error) {
	var res Result
	for i := 0; i < k; i++ {
		p, pops, err := shortestPath(g, src, dst, enc, stop)
		res.Pops += pops
		if err != nil {
			return res, err
		}
		if p.Empty() {
			break
		}
		res.Paths = append(res.Paths, p)
		res.Pruned += prunePath(g, p.Nodes, enc)
	}
	return res, nil
}

// prunePath removes, for every hop u->v of nodes, the first adjacency entry
// of u pointing to v, and records each removal.
func prunePath(g *graph.Graph, nodes []int32, enc *trace.Encoder) int {
	removed := 0
	enc.BeginPrune()
	for j := 0; j+1 < len(nodes); j++ {
		u, v := nodes[j], nodes[j+1]
		if g.RemoveEdge(u, v) {
			enc.Pruned(u, v)
			removed++
		}
	}
	enc.EndPrune()
	return removed
}
