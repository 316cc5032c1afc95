// Package osm imports road networks from OpenStreetMap PBF extracts as
// weighted directed edge lists.
package osm

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/sirupsen/logrus"

	"github.com/azybler/kpath_tracer/pkg/geo"
)

// RawEdge represents a directed edge parsed from OSM data.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Weight     uint32 // whole metres, at least 1
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// Profile selects which ways become edges and how oneway tags apply.
type Profile string

const (
	ProfileCar  Profile = "car"
	ProfileWalk Profile = "walk"
)

// ParseProfile maps a flag value to a Profile.
func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case ProfileCar, "":
		return ProfileCar, nil
	case ProfileWalk:
		return ProfileWalk, nil
	}
	return "", fmt.Errorf("unknown profile %q (want car or walk)", s)
}

var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

var walkHighways = map[string]bool{
	"primary":       true,
	"secondary":     true,
	"tertiary":      true,
	"unclassified":  true,
	"residential":   true,
	"living_street": true,
	"service":       true,
	"pedestrian":    true,
	"footway":       true,
	"path":          true,
	"steps":         true,
	"track":         true,
}

// accessible returns true if the way can be travelled under profile p.
func accessible(p Profile, tags osm.Tags) bool {
	hw := tags.Find("highway")
	switch p {
	case ProfileWalk:
		if !walkHighways[hw] || tags.Find("foot") == "no" {
			return false
		}
	default:
		if !carHighways[hw] || tags.Find("motor_vehicle") == "no" {
			return false
		}
		// Pedestrian plazas mapped as highway areas.
		if tags.Find("area") == "yes" {
			return false
		}
	}

	access := tags.Find("access")
	return access != "no" && access != "private"
}

// directionFlags returns (forward, backward) for a way under profile p.
// Walking ignores oneway tags meant for vehicles.
func directionFlags(p Profile, tags osm.Tags) (forward, backward bool) {
	if p == ProfileWalk {
		if tags.Find("oneway:foot") == "yes" {
			return true, false
		}
		return true, true
	}

	forward = true
	backward = true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent, skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}

type wayInfo struct {
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox    BBox    // if non-zero, filter edges to this bounding box
	Profile Profile // defaults to ProfileCar
	Logger  *logrus.Logger
}

// Parse reads an OSM PBF file and returns directed edges for the requested
// profile. The reader is consumed twice (seeks back to start for the second
// pass), so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opt ParseOptions) (*ParseResult, error) {
	log := opt.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	profile := opt.Profile
	if profile == "" {
		profile = ProfileCar
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok || len(w.Nodes) < 2 || !accessible(profile, w.Tags) {
			continue
		}

		fwd, bwd := directionFlags(profile, w.Tags)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{NodeIDs: nodeIDs, Forward: fwd, Backward: bwd})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.WithFields(logrus.Fields{
		"ways":    len(ways),
		"nodes":   len(referencedNodes),
		"profile": profile,
	}).Info("osm pass 1 complete")

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	edges, skipped, filtered := buildEdges(ways, nodeLat, nodeLon, opt.BBox, useBBox)

	log.WithFields(logrus.Fields{
		"edges":          len(edges),
		"missing_coords": skipped,
		"outside_bbox":   filtered,
	}).Info("osm edges built")

	return &ParseResult{
		Edges:   edges,
		NodeLat: nodeLat,
		NodeLon: nodeLon,
	}, nil
}

// buildEdges splits ways into consecutive node pairs weighted by great-circle
// length.
func buildEdges(ways []wayInfo, nodeLat, nodeLon map[osm.NodeID]float64, bbox BBox, useBBox bool) (edges []RawEdge, skipped, filtered int) {
	for _, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID := w.NodeIDs[i]
			toID := w.NodeIDs[i+1]

			fromLat, fromOk := nodeLat[fromID]
			fromLon := nodeLon[fromID]
			toLat, toOk := nodeLat[toID]
			toLon := nodeLon[toID]

			if !fromOk || !toOk {
				skipped++
				continue
			}
			if useBBox && (!bbox.Contains(fromLat, fromLon) || !bbox.Contains(toLat, toLon)) {
				filtered++
				continue
			}

			weight := uint32(math.Round(geo.Haversine(fromLat, fromLon, toLat, toLon)))
			if weight == 0 {
				weight = 1
			}

			if w.Forward {
				edges = append(edges, RawEdge{FromNodeID: fromID, ToNodeID: toID, Weight: weight})
			}
			if w.Backward {
				edges = append(edges, RawEdge{FromNodeID: toID, ToNodeID: fromID, Weight: weight})
			}
		}
	}
	return edges, skipped, filtered
}
