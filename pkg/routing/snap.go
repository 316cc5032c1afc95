package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"github.com/azybler/kpath_tracer/pkg/geo"
	"github.com/azybler/kpath_tracer/pkg/graph"
)

const maxSnapDistMeters = 500.0

var (
	// ErrPointTooFar is returned when no node lies within maxSnapDistMeters.
	ErrPointTooFar = errors.New("point too far from any node")
	// ErrNoCoordinates is returned when snapping on a graph without coordinates.
	ErrNoCoordinates = errors.New("graph has no node coordinates")
)

// Snapper resolves coordinates to the nearest graph node using an R-tree
// over node positions. Points are stored as [lng, lat].
type Snapper struct {
	tr rtree.RTreeG[int32]
	g  *graph.Graph
}

// NewSnapper indexes every node of g. The graph must carry coordinates.
func NewSnapper(g *graph.Graph) (*Snapper, error) {
	if !g.HasCoords() {
		return nil, ErrNoCoordinates
	}
	s := &Snapper{g: g}
	for i := range g.NumNodes() {
		pt := [2]float64{g.NodeLon[i], g.NodeLat[i]}
		s.tr.Insert(pt, pt, int32(i))
	}
	return s, nil
}

// Nearest returns the node closest to (lat, lng) and its distance in metres.
// Candidates are ranked by the equirectangular approximation; ties go to the
// lower node id. On ErrPointTooFar the distance to the closest node is still
// returned.
func (s *Snapper) Nearest(lat, lng float64) (int32, float64, error) {
	minLat, minLng, maxLat, maxLng := geo.BoundingBox(lat, lng, maxSnapDistMeters)

	best := graph.NoNode
	bestApprox := math.Inf(1)
	s.tr.Search([2]float64{minLng, minLat}, [2]float64{maxLng, maxLat},
		func(min, _ [2]float64, node int32) bool {
			d := geo.EquirectangularDist(lat, lng, min[1], min[0])
			if d < bestApprox || (d == bestApprox && node < best) {
				best = node
				bestApprox = d
			}
			return true
		})
	if best == graph.NoNode {
		return graph.NoNode, s.closestDist(lat, lng), ErrPointTooFar
	}

	dist := geo.Haversine(lat, lng, s.g.NodeLat[best], s.g.NodeLon[best])
	if dist > maxSnapDistMeters {
		return graph.NoNode, dist, ErrPointTooFar
	}
	return best, dist, nil
}

// closestDist returns the distance in metres to the node nearest (lat, lng)
// in degree space, with no radius limit.
func (s *Snapper) closestDist(lat, lng float64) float64 {
	pt := [2]float64{lng, lat}
	dist := 0.0
	s.tr.Nearby(rtree.BoxDist[float64, int32](pt, pt, nil),
		func(_, _ [2]float64, node int32, _ float64) bool {
			dist = geo.Haversine(lat, lng, s.g.NodeLat[node], s.g.NodeLon[node])
			return false
		})
	return dist
}
