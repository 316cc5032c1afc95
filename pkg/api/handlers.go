package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/azybler/kpath_tracer/pkg/graph"
	"github.com/azybler/kpath_tracer/pkg/routing"
	"github.com/azybler/kpath_tracer/pkg/store"
)

const maxBodyBytes = 16 << 20

var validate = validator.New()

// RunStore keeps finished runs for replay.
type RunStore interface {
	Put(ctx context.Context, run store.Run) error
	Get(ctx context.Context, id string) (*store.Run, error)
	Count() (int, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	solver  routing.Solver
	base    *graph.Graph     // nil when the server has no preloaded graph
	snapper *routing.Snapper // nil when base has no coordinates
	runs    RunStore
	log     *logrus.Logger
}

// NewHandlers creates handlers. base may be nil, in which case every request
// must carry its own graph.
func NewHandlers(solver routing.Solver, base *graph.Graph, runs RunStore, log *logrus.Logger) *Handlers {
	h := &Handlers{
		solver: solver,
		base:   base,
		runs:   runs,
		log:    log,
	}
	if base != nil && base.HasCoords() {
		s, err := routing.NewSnapper(base)
		if err != nil {
			log.WithError(err).Warn("snapping disabled")
		} else {
			h.snapper = s
		}
	}
	return h
}

// requestError is a 4xx answer produced while decoding a request.
type requestError struct {
	status int
	resp   ErrorResponse
}

func badRequest(code, field, detail string) *requestError {
	return &requestError{
		status: http.StatusBadRequest,
		resp:   ErrorResponse{Error: code, Field: field, Detail: detail},
	}
}

// HandlePaths handles POST /api/v1/paths.
func (h *Handlers) HandlePaths(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Detail: "content type must be application/json"})
		return
	}

	var req PathsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	g, rerr := h.resolveGraph(&req)
	if rerr != nil {
		writeError(w, rerr.status, rerr.resp)
		return
	}
	src, rerr := h.resolveNode(g, req.Start, req.Source, 0, "start")
	if rerr != nil {
		writeError(w, rerr.status, rerr.resp)
		return
	}
	dst, rerr := h.resolveNode(g, req.End, req.Destination, int32(g.NumNodes()-1), "end")
	if rerr != nil {
		writeError(w, rerr.status, rerr.resp)
		return
	}

	resp, err := h.solver.Solve(r.Context(), routing.Request{
		Graph:       g,
		Source:      src,
		Destination: dst,
		K:           req.K,
	})
	if err != nil {
		switch {
		case errors.Is(err, routing.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Detail: err.Error()})
		case errors.Is(err, routing.ErrTraceTooLarge):
			writeError(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "trace_too_large", Detail: err.Error()})
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, ErrorResponse{Error: "request_timeout"})
		default:
			h.log.WithError(err).Error("solve failed")
			writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
		}
		return
	}

	out := PathsResponse{
		RunID: resp.RunID,
		Paths: make([]PathJSON, len(resp.Paths)),
		Trace: resp.Trace,
	}
	nodePaths := make([][]int32, len(resp.Paths))
	for i, p := range resp.Paths {
		out.Paths[i] = PathJSON{Nodes: p.Nodes, Cost: p.Cost}
		nodePaths[i] = p.Nodes
	}

	if h.runs != nil {
		run := store.Run{
			ID:          resp.RunID,
			CreatedAt:   time.Now().UTC(),
			Source:      src,
			Destination: dst,
			K:           req.K,
			Paths:       nodePaths,
			Trace:       resp.Trace,
		}
		if err := h.runs.Put(r.Context(), run); err != nil {
			h.log.WithError(err).WithField("run_id", resp.RunID).Warn("run not stored")
		}
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) resolveGraph(req *PathsRequest) (*graph.Graph, *requestError) {
	switch {
	case req.Graph != nil && req.Text != "":
		return nil, badRequest("invalid_request", "graph", "graph and text are mutually exclusive")
	case req.Graph != nil:
		g, err := graphFromJSON(req.Graph)
		if err != nil {
			return nil, badRequest("invalid_graph", "graph", err.Error())
		}
		return g, nil
	case req.Text != "":
		g, err := graph.ParseText(strings.NewReader(req.Text))
		if err != nil {
			return nil, badRequest("invalid_graph", "text", err.Error())
		}
		if g.NumNodes() == 0 {
			return nil, badRequest("invalid_graph", "text", "graph has no nodes")
		}
		return g, nil
	case h.base != nil:
		// Runs prune their graph, so every request gets its own copy.
		return h.base.Clone(), nil
	default:
		return nil, badRequest("no_graph", "graph", "server has no graph loaded")
	}
}

// resolveNode picks a node from a coordinate, an explicit id or the default,
// in that order.
func (h *Handlers) resolveNode(g *graph.Graph, ll *LatLngJSON, id *int32, def int32, field string) (int32, *requestError) {
	if ll != nil {
		if h.snapper == nil || !g.HasCoords() {
			return 0, badRequest("snapping_unavailable", field, "coordinates need the server graph with node positions")
		}
		node, dist, err := h.snapper.Nearest(ll.Lat, ll.Lng)
		if err != nil {
			return 0, &requestError{
				status: http.StatusUnprocessableEntity,
				resp:   ErrorResponse{Error: "point_too_far_from_graph", Field: field, DistanceMeters: dist},
			}
		}
		return node, nil
	}
	if id != nil {
		return *id, nil
	}
	return def, nil
}

func graphFromJSON(gj *GraphJSON) (*graph.Graph, error) {
	g := graph.New(len(gj.Adjacency))
	for u, edges := range gj.Adjacency {
		for _, e := range edges {
			if !g.Contains(e.To) {
				return nil, fmt.Errorf("node %d: edge to %d: %w", u, e.To, graph.ErrNodeOutOfRange)
			}
			g.AddEdge(int32(u), e.To, e.Weight)
		}
	}
	return g, nil
}

// HandleRun handles GET /api/v1/runs/{id}. The stored trace is returned as
// plain text, byte for byte as it was produced.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "run_not_found"})
		return
	}
	run, err := h.runs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, ErrorResponse{Error: "run_not_found"})
			return
		}
		h.log.WithError(err).Error("load run failed")
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(run.Trace))
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	var stats StatsResponse
	if h.base != nil {
		stats.NumNodes = h.base.NumNodes()
		stats.NumEdges = h.base.NumEdges()
		stats.HasCoords = h.base.HasCoords()
	}
	if h.runs != nil {
		if n, err := h.runs.Count(); err == nil {
			stats.StoredRuns = n
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func validationError(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return ErrorResponse{
			Error:  "invalid_request",
			Field:  fe.Namespace(),
			Detail: fmt.Sprintf("failed %q", fe.Tag()),
		}
	}
	return ErrorResponse{Error: "invalid_request", Detail: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	writeJSON(w, status, resp)
}
