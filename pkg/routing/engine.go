package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/azybler/kpath_tracer/pkg/graph"
	"github.com/azybler/kpath_tracer/pkg/metrics"
	"github.com/azybler/kpath_tracer/pkg/trace"
)

// ErrInvalidRequest is returned when a request names nodes outside the graph
// or asks for a negative number of paths.
var ErrInvalidRequest = errors.New("invalid request")

// ErrTraceTooLarge is returned when a run's trace outgrows the engine's limit.
var ErrTraceTooLarge = errors.New("trace too large")

var tracer = otel.Tracer("kpath.routing")

// Request describes one k-shortest-paths run. Graph is consumed: the run
// prunes it in place.
type Request struct {
	Graph       *graph.Graph
	Source      int32
	Destination int32
	K           int
}

// Response is the outcome of a run.
type Response struct {
	RunID    string
	Paths    []Path
	Trace    string
	Pops     int
	Pruned   int
	Duration time.Duration
}

// Solver is the interface for k-shortest-paths runs.
type Solver interface {
	Solve(ctx context.Context, req Request) (*Response, error)
}

// Engine implements Solver on top of KShortestPaths.
type Engine struct {
	log           *logrus.Logger
	maxTraceBytes int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTraceLimit aborts runs whose trace grows past n bytes. n <= 0 means no
// limit.
func WithTraceLimit(n int) EngineOption {
	return func(e *Engine) { e.maxTraceBytes = n }
}

// NewEngine creates an Engine that logs run summaries to log.
func NewEngine(log *logrus.Logger, opts ...EngineOption) *Engine {
	e := &Engine{log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (r Request) validate() error {
	if r.Graph == nil {
		return fmt.Errorf("%w: no graph", ErrInvalidRequest)
	}
	if !r.Graph.Contains(r.Source) {
		return fmt.Errorf("%w: source %d outside 0..%d", ErrInvalidRequest, r.Source, r.Graph.NumNodes()-1)
	}
	if !r.Graph.Contains(r.Destination) {
		return fmt.Errorf("%w: destination %d outside 0..%d", ErrInvalidRequest, r.Destination, r.Graph.NumNodes()-1)
	}
	if r.K < 0 {
		return fmt.Errorf("%w: k=%d", ErrInvalidRequest, r.K)
	}
	return nil
}

// Solve runs the search and returns the paths together with the complete
// trace, <result> block included.
//
// ctx and the trace limit are checked before every frontier pop. A run that
// stops early returns ctx.Err() or ErrTraceTooLarge and no partial result;
// the request's graph is left with whatever was pruned up to that point.
func (e *Engine) Solve(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		metrics.RunsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	runID := uuid.NewString()
	_, span := tracer.Start(ctx, "routing.Solve", oteltrace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("graph.nodes", req.Graph.NumNodes()),
		attribute.Int("graph.edges", req.Graph.NumEdges()),
		attribute.Int("source", int(req.Source)),
		attribute.Int("destination", int(req.Destination)),
		attribute.Int("k", req.K),
	))
	defer span.End()

	start := time.Now()
	enc := trace.NewEncoder()
	stop := func() error {
		if e.maxTraceBytes > 0 && enc.Len() > e.maxTraceBytes {
			return fmt.Errorf("%w: limit is %d bytes", ErrTraceTooLarge, e.maxTraceBytes)
		}
		return ctx.Err()
	}
	res, err := kShortestPaths(req.Graph, req.Source, req.Destination, req.K, enc, stop)
	if err != nil {
		elapsed := time.Since(start)
		metrics.RunsTotal.WithLabelValues("aborted").Inc()
		metrics.RunDuration.Observe(elapsed.Seconds())
		metrics.FrontierPops.Add(float64(res.Pops))
		span.RecordError(err)
		span.SetStatus(codes.Error, "aborted")
		e.log.WithFields(logrus.Fields{
			"run_id":      runID,
			"paths":       len(res.Paths),
			"pops":        res.Pops,
			"trace_bytes": enc.Len(),
			"elapsed":     elapsed.Round(time.Microsecond),
		}).WithError(err).Warn("run aborted")
		return nil, err
	}
	enc.Result(res.NodePaths())
	elapsed := time.Since(start)

	outcome := "complete"
	if len(res.Paths) < req.K {
		outcome = "early_stop"
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	metrics.RunDuration.Observe(elapsed.Seconds())
	metrics.PathsFound.Observe(float64(len(res.Paths)))
	metrics.EdgesPruned.Add(float64(res.Pruned))
	metrics.FrontierPops.Add(float64(res.Pops))

	span.SetAttributes(
		attribute.Int("paths.found", len(res.Paths)),
		attribute.Int("frontier.pops", res.Pops),
		attribute.Int("trace.bytes", enc.Len()),
	)
	span.SetStatus(codes.Ok, outcome)

	e.log.WithFields(logrus.Fields{
		"run_id":      runID,
		"source":      req.Source,
		"destination": req.Destination,
		"k":           req.K,
		"paths":       len(res.Paths),
		"pops":        res.Pops,
		"pruned":      res.Pruned,
		"trace_bytes": enc.Len(),
		"elapsed":     elapsed.Round(time.Microsecond),
	}).Info("run finished")

	return &Response{
		RunID:    runID,
		Paths:    res.Paths,
		Trace:    enc.String(),
		Pops:     res.Pops,
		Pruned:   res.Pruned,
		Duration: elapsed,
	}, nil
}
