package api

// PathsRequest is the JSON body for POST /api/v1/paths.
//
// The graph comes from Graph, Text or, when both are absent, the graph the
// server was started with. Start/End are snapped to the nearest node of the
// server graph and take precedence over Source/Destination.
type PathsRequest struct {
	Graph       *GraphJSON  `json:"graph,omitempty"`
	Text        string      `json:"text,omitempty" validate:"max=8388608"`
	Source      *int32      `json:"source,omitempty" validate:"omitempty,min=0"`
	Destination *int32      `json:"destination,omitempty" validate:"omitempty,min=0"`
	Start       *LatLngJSON `json:"start,omitempty"`
	End         *LatLngJSON `json:"end,omitempty"`
	K           int         `json:"k" validate:"min=0,max=1000"`
}

// GraphJSON is an inline graph: one adjacency list per node.
type GraphJSON struct {
	Adjacency [][]EdgeJSON `json:"adjacency" validate:"required,min=1,max=1000000,dive,dive"`
}

// EdgeJSON is one adjacency entry.
type EdgeJSON struct {
	To     int32  `json:"to" validate:"min=0"`
	Weight uint32 `json:"weight"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

// PathsResponse is the JSON response for a successful run.
type PathsResponse struct {
	RunID string     `json:"run_id"`
	Paths []PathJSON `json:"paths"`
	Trace string     `json:"trace"`
}

// PathJSON is one discovered path.
type PathJSON struct {
	Nodes []int32 `json:"nodes"`
	Cost  int64   `json:"cost"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error          string  `json:"error"`
	Field          string  `json:"field,omitempty"`
	Detail         string  `json:"detail,omitempty"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes   int  `json:"num_nodes"`
	NumEdges   int  `json:"num_edges"`
	HasCoords  bool `json:"has_coords"`
	StoredRuns int  `json:"stored_runs"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
