// Package trace encodes the step-by-step log of a k-shortest-paths run in the
// tagged text format replayed by the visualization front end.
//
// Records are appended at the moment they happen and never reordered:
//
//	<ds>      frontier, distances and predecessors before each pop
//	<adj>     the popped node and the outcome of every edge it relaxes
//	<path>    edges pruned after a path is found
//	<result>  every path found, in discovery order
package trace

import (
	"io"
	"math"
	"strconv"
	"strings"
)

// Infinity is the distance value rendered as INF.
const Infinity = math.MaxInt64

// Entry is one (distance, node) pair of the search frontier.
type Entry struct {
	Dist int64
	Node int32
}

// Encoder appends trace records to an in-memory buffer.
//
// A nil *Encoder is valid and discards everything, for callers that only
// need the paths.
type Encoder struct {
	b strings.Builder
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Snapshot writes a <ds> block: the frontier in priority order (duplicates
// included), then every node's distance and predecessor.
func (e *Encoder) Snapshot(frontier []Entry, dist []int64, pred []int32) {
	if e == nil {
		return
	}
	e.b.WriteString("<ds>\n\t")
	for _, it := range frontier {
		e.num(it.Dist)
		e.b.WriteByte(',')
		e.num(int64(it.Node))
		e.b.WriteByte(' ')
	}
	e.b.WriteString("\n\t")
	for _, d := range dist {
		if d == Infinity {
			e.b.WriteString("INF")
		} else {
			e.num(d)
		}
		e.b.WriteByte(' ')
	}
	e.b.WriteString("\n\t")
	for _, p := range pred {
		e.num(int64(p))
		e.b.WriteByte(' ')
	}
	e.b.WriteString("\n</ds>\n")
}

// BeginExpand opens an <adj> block for the node just popped at dist.
func (e *Encoder) BeginExpand(node int32, dist int64) {
	if e == nil {
		return
	}
	e.b.WriteString("<adj>\n\t")
	e.num(int64(node))
	e.b.WriteString(", ")
	e.num(dist)
	e.b.WriteByte(':')
}

// Relaxed records an edge to v of weight w that improved v to dist via pred.
func (e *Encoder) Relaxed(v int32, w uint32, pred int32, dist int64) {
	if e == nil {
		return
	}
	e.edge(v, w)
	e.b.WriteString("1, ")
	e.num(int64(pred))
	e.b.WriteString(", ")
	e.num(dist)
}

// NotRelaxed records an edge to v of weight w that did not improve v.
func (e *Encoder) NotRelaxed(v int32, w uint32) {
	if e == nil {
		return
	}
	e.edge(v, w)
	e.b.WriteString("0, -1, -1")
}

// EndExpand closes the current <adj> block.
func (e *Encoder) EndExpand() {
	if e == nil {
		return
	}
	e.b.WriteString("\n</adj>\n")
}

// BeginPrune opens a <path> block.
func (e *Encoder) BeginPrune() {
	if e == nil {
		return
	}
	e.b.WriteString("<path>")
}

// Pruned records the removal of the edge u->v.
func (e *Encoder) Pruned(u, v int32) {
	if e == nil {
		return
	}
	e.b.WriteString("\n\t")
	e.num(int64(u))
	e.b.WriteString(", ")
	e.num(int64(v))
	e.b.WriteByte(':')
}

// EndPrune closes the current <path> block.
func (e *Encoder) EndPrune() {
	if e == nil {
		return
	}
	e.b.WriteString("\n</path>\n")
}

// Result writes the closing <result> block, one line per path.
func (e *Encoder) Result(paths [][]int32) {
	if e == nil {
		return
	}
	e.b.WriteString("<result>")
	for _, p := range paths {
		e.b.WriteString("\n\t")
		for _, n := range p {
			e.num(int64(n))
			e.b.WriteByte(' ')
		}
	}
	e.b.WriteString("\n</result>\n")
}

// String returns everything recorded so far.
func (e *Encoder) String() string {
	if e == nil {
		return ""
	}
	return e.b.String()
}

// Len returns the number of bytes recorded so far.
func (e *Encoder) Len() int {
	if e == nil {
		return 0
	}
	return e.b.Len()
}

// WriteTo writes the recorded trace to w.
func (e *Encoder) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, e.String())
	return int64(n), err
}

func (e *Encoder) edge(v int32, w uint32) {
	e.b.WriteString("\n\t")
	e.num(int64(v))
	e.b.WriteString(", ")
	e.num(int64(w))
	e.b.WriteString(", ")
}

func (e *Encoder) num(n int64) {
	var buf [20]byte
	e.b.Write(strconv.AppendInt(buf[:0], n, 10))
}
