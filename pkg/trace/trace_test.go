package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	e := NewEncoder()
	e.Snapshot(
		[]Entry{{Dist: 1, Node: 1}, {Dist: 4, Node: 2}},
		[]int64{0, 1, 4, Infinity},
		[]int32{-1, 0, 0, -1},
	)
	assert.Equal(t, "<ds>\n\t1,1 4,2 \n\t0 1 4 INF \n\t-1 0 0 -1 \n</ds>\n", e.String())
}

func TestSnapshotEmptyFrontier(t *testing.T) {
	e := NewEncoder()
	e.Snapshot(nil, []int64{0}, []int32{-1})
	assert.Equal(t, "<ds>\n\t\n\t0 \n\t-1 \n</ds>\n", e.String())
}

func TestExpand(t *testing.T) {
	e := NewEncoder()
	e.BeginExpand(2, 4)
	e.Relaxed(3, 1, 2, 5)
	e.NotRelaxed(1, 7)
	e.EndExpand()
	assert.Equal(t, "<adj>\n\t2, 4:\n\t3, 1, 1, 2, 5\n\t1, 7, 0, -1, -1\n</adj>\n", e.String())
}

func TestExpandWithoutEdges(t *testing.T) {
	e := NewEncoder()
	e.BeginExpand(3, 3)
	e.EndExpand()
	assert.Equal(t, "<adj>\n\t3, 3:\n</adj>\n", e.String())
}

func TestPrune(t *testing.T) {
	e := NewEncoder()
	e.BeginPrune()
	e.Pruned(0, 1)
	e.Pruned(1, 2)
	e.EndPrune()
	assert.Equal(t, "<path>\n\t0, 1:\n\t1, 2:\n</path>\n", e.String())
}

func TestResult(t *testing.T) {
	e := NewEncoder()
	e.Result([][]int32{{0, 1, 3}, {0, 2, 3}})
	assert.Equal(t, "<result>\n\t0 1 3 \n\t0 2 3 \n</result>\n", e.String())
}

func TestResultEmpty(t *testing.T) {
	e := NewEncoder()
	e.Result(nil)
	assert.Equal(t, "<result>\n</result>\n", e.String())
}

func TestNilEncoderDiscards(t *testing.T) {
	var e *Encoder
	e.Snapshot([]Entry{{0, 0}}, []int64{0}, []int32{-1})
	e.BeginExpand(0, 0)
	e.Relaxed(1, 1, 0, 1)
	e.NotRelaxed(1, 1)
	e.EndExpand()
	e.BeginPrune()
	e.Pruned(0, 1)
	e.EndPrune()
	e.Result([][]int32{{0}})

	assert.Equal(t, "", e.String())
	assert.Equal(t, 0, e.Len())
}

func TestWriteTo(t *testing.T) {
	e := NewEncoder()
	e.Result([][]int32{{5}})

	var buf bytes.Buffer
	n, err := e.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(e.Len()), n)
	assert.Equal(t, e.String(), buf.String())
}
