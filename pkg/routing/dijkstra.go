package routing

import (
	"cmp"
	"slices"

	"github.com/azybler/kpath_tracer/pkg/graph"
	"github.com/azybler/kpath_tracer/pkg/trace"
)

// Infinity is the distance of a node not reached yet.
const Infinity int64 = trace.Infinity

// MinHeap is a concrete-typed min-heap of (distance, node) entries ordered
// by distance, then node id. Duplicate entries for a node are kept; callers
// never invalidate them.
type MinHeap struct {
	items []trace.Entry
}

func compareEntries(a, b trace.Entry) int {
	if c := cmp.Compare(a.Dist, b.Dist); c != 0 {
		return c
	}
	return cmp.Compare(a.Node, b.Node)
}

func (h *MinHeap) less(i, j int) bool {
	return compareEntries(h.items[i], h.items[j]) < 0
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node int32, dist int64) {
	h.items = append(h.items, trace.Entry{Dist: dist, Node: node})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() trace.Entry {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

// AppendOrdered appends the heap's entries to dst in pop order without
// modifying the heap.
func (h *MinHeap) AppendOrdered(dst []trace.Entry) []trace.Entry {
	start := len(dst)
	dst = append(dst, h.items...)
	slices.SortFunc(dst[start:], compareEntries)
	return dst
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// Path is a source-to-destination node sequence and its total weight.
// An empty Path means the destination was unreachable.
type Path struct {
	Nodes []int32
	Cost  int64
}

// Empty reports whether p denotes "no path".
func (p Path) Empty() bool { return len(p.Nodes) == 0 }

// ShortestPath runs Dijkstra from src over the current edges of g and returns
// the path to dst, plus the number of frontier entries expanded.
//
// Every popped entry is expanded, stale ones included: relaxation only ever
// lowers a distance, so a stale pass changes nothing but still shows up in
// the trace. Before each pop enc receives a snapshot of the frontier, the
// distances and the predecessors; after it, one record per outgoing edge.
func ShortestPath(g *graph.Graph, src, dst int32, enc *trace.Encoder) (Path, int) {
	p, pops, _ := shortestPath(g, src, dst, enc, nil)
	return p, pops
}

// stopFunc is polled before every pop. A non-nil error abandons the search.
type stopFunc func() error

func shortestPath(g *graph.Graph, src, dst int32, enc *trace.Encoder, stop stopFunc) (Path, int, error) {
	n := g.NumNodes()
	dist := make([]int64, n)
	pred := make([]int32, n)
	for i := range dist {
		dist[i] = Infinity
		pred[i] = graph.NoNode
	}
	dist[src] = 0

	var pq MinHeap
	pq.Push(src, 0)

	var snap []trace.Entry
	pops := 0
	for pq.Len() > 0 {
		if stop != nil {
			if err := stop(); err != nil {
				return Path{}, pops, err
			}
		}
		if enc != nil {
			snap = pq.AppendOrdered(snap[:0])
			enc.Snapshot(snap, dist, pred)
		}

		item := pq.Pop()
		pops++
		u, d := item.Node, item.Dist

		enc.BeginExpand(u, d)
		for _, e := range g.EdgesFrom(u) {
			newDist := d + int64(e.Weight)
			if newDist < dist[e.To] {
				dist[e.To] = newDist
				pred[e.To] = u
				pq.Push(e.To, newDist)
				enc.Relaxed(e.To, e.Weight, u, newDist)
			} else {
				enc.NotRelaxed(e.To, e.Weight)
			}
		}
		enc.EndExpand()
	}

	nodes := ExtractPath(dst, pred)
	if nodes[0] != src {
		return Path{}, pops, nil
	}
	return Path{Nodes: nodes, Cost: dist[dst]}, pops, nil
}
