package routing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/kpath_tracer/pkg/graph"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func TestEngineSolve(t *testing.T) {
	eng := NewEngine(testLogger())
	resp, err := eng.Solve(context.Background(), Request{
		Graph:       buildDiamond(),
		Source:      0,
		Destination: 3,
		K:           2,
	})
	require.NoError(t, err)

	_, err = uuid.Parse(resp.RunID)
	assert.NoError(t, err, "run id should be a UUID")
	require.Len(t, resp.Paths, 1)
	assert.Equal(t, []int32{0, 1, 2, 3}, resp.Paths[0].Nodes)
	assert.Equal(t, 8, resp.Pops)
	assert.Equal(t, 3, resp.Pruned)
	assert.Contains(t, resp.Trace, "<path>\n\t0, 1:\n\t1, 2:\n\t2, 3:\n</path>\n")
	assert.Regexp(t, "<result>\n\t0 1 2 3 \n</result>\n$", resp.Trace)
}

func TestEngineSolveDistinctRunIDs(t *testing.T) {
	eng := NewEngine(testLogger())
	a, err := eng.Solve(context.Background(), Request{Graph: buildDiamond(), Source: 0, Destination: 3, K: 1})
	require.NoError(t, err)
	b, err := eng.Solve(context.Background(), Request{Graph: buildDiamond(), Source: 0, Destination: 3, K: 1})
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Trace, b.Trace, "runs on equal graphs are deterministic")
}

func TestEngineSolveInvalid(t *testing.T) {
	eng := NewEngine(testLogger())
	tests := []struct {
		name string
		req  Request
	}{
		{"no graph", Request{Source: 0, Destination: 0, K: 1}},
		{"source out of range", Request{Graph: buildDiamond(), Source: 4, Destination: 3, K: 1}},
		{"negative source", Request{Graph: buildDiamond(), Source: -1, Destination: 3, K: 1}},
		{"destination out of range", Request{Graph: buildDiamond(), Source: 0, Destination: 9, K: 1}},
		{"negative k", Request{Graph: buildDiamond(), Source: 0, Destination: 3, K: -1}},
		{"empty graph", Request{Graph: graph.New(0), Source: 0, Destination: 0, K: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Solve(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestEngineSolveCancelled(t *testing.T) {
	eng := NewEngine(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := buildDiamond()
	_, err := eng.Solve(ctx, Request{Graph: g, Source: 0, Destination: 3, K: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, g.NumEdges(), "a cancelled run must not touch the graph")
}

func TestEngineSolveZeroK(t *testing.T) {
	eng := NewEngine(testLogger())
	resp, err := eng.Solve(context.Background(), Request{Graph: buildDiamond(), Source: 0, Destination: 3, K: 0})
	require.NoError(t, err)
	assert.Empty(t, resp.Paths)
	assert.Equal(t, "<result>\n</result>\n", resp.Trace)
}

// expiringCtx reports DeadlineExceeded once Err has been called more than
// live times, so a deadline can land in the middle of a run.
type expiringCtx struct {
	context.Context
	live  int
	calls int
}

func (c *expiringCtx) Err() error {
	c.calls++
	if c.calls > c.live {
		return context.DeadlineExceeded
	}
	return nil
}

// chain builds 0 -> 1 -> ... -> n-1 with unit weights.
func chain(n int) *graph.Graph {
	g := graph.New(n)
	for i := 0; i+1 < n; i++ {
		g.AddEdge(int32(i), int32(i+1), 1)
	}
	return g
}

func TestEngineSolveDeadlineDuringRun(t *testing.T) {
	eng := NewEngine(testLogger())
	ctx := &expiringCtx{Context: context.Background(), live: 3}

	resp, err := eng.Solve(ctx, Request{Graph: chain(50), Source: 0, Destination: 49, K: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, resp)
	assert.Less(t, ctx.calls, 10, "the run must stop soon after the deadline")
}

func TestEngineSolveTraceLimit(t *testing.T) {
	eng := NewEngine(testLogger(), WithTraceLimit(100))
	resp, err := eng.Solve(context.Background(), Request{Graph: buildDiamond(), Source: 0, Destination: 3, K: 2})
	assert.ErrorIs(t, err, ErrTraceTooLarge)
	assert.Nil(t, resp)

	// Each snapshot of a 4000-node chain is tens of kilobytes; without the
	// limit the run would produce over 100 MB.
	eng = NewEngine(testLogger(), WithTraceLimit(1<<20))
	_, err = eng.Solve(context.Background(), Request{Graph: chain(4000), Source: 0, Destination: 3999, K: 1})
	assert.ErrorIs(t, err, ErrTraceTooLarge)
}

func TestEngineSolveWithinTraceLimit(t *testing.T) {
	eng := NewEngine(testLogger(), WithTraceLimit(1<<20))
	resp, err := eng.Solve(context.Background(), Request{Graph: buildDiamond(), Source: 0, Destination: 3, K: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Paths, 1)
}
