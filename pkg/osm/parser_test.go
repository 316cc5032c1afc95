package osm

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessible(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		tags    osm.Tags
		want    bool
	}{
		{"car residential", ProfileCar, osm.Tags{{Key: "highway", Value: "residential"}}, true},
		{"car motorway", ProfileCar, osm.Tags{{Key: "highway", Value: "motorway"}}, true},
		{"car footway", ProfileCar, osm.Tags{{Key: "highway", Value: "footway"}}, false},
		{"car private", ProfileCar, osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "access", Value: "private"},
		}, false},
		{"car motor_vehicle=no", ProfileCar, osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "motor_vehicle", Value: "no"},
		}, false},
		{"car area=yes", ProfileCar, osm.Tags{
			{Key: "highway", Value: "service"},
			{Key: "area", Value: "yes"},
		}, false},
		{"walk footway", ProfileWalk, osm.Tags{{Key: "highway", Value: "footway"}}, true},
		{"walk motorway", ProfileWalk, osm.Tags{{Key: "highway", Value: "motorway"}}, false},
		{"walk foot=no", ProfileWalk, osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "foot", Value: "no"},
		}, false},
		{"walk pedestrian area", ProfileWalk, osm.Tags{
			{Key: "highway", Value: "pedestrian"},
			{Key: "area", Value: "yes"},
		}, true},
		{"no highway tag", ProfileCar, osm.Tags{{Key: "name", Value: "Some Street"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accessible(tt.profile, tt.tags))
		})
	}
}

func TestDirectionFlags(t *testing.T) {
	tests := []struct {
		name         string
		profile      Profile
		tags         osm.Tags
		wantForward  bool
		wantBackward bool
	}{
		{"default bidirectional", ProfileCar, osm.Tags{{Key: "highway", Value: "residential"}}, true, true},
		{"motorway implied oneway", ProfileCar, osm.Tags{{Key: "highway", Value: "motorway"}}, true, false},
		{"roundabout implied oneway", ProfileCar, osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "junction", Value: "roundabout"},
		}, true, false},
		{"oneway=-1", ProfileCar, osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "-1"},
		}, false, true},
		{"oneway=no overrides implied", ProfileCar, osm.Tags{
			{Key: "highway", Value: "motorway"},
			{Key: "oneway", Value: "no"},
		}, true, true},
		{"oneway=reversible skipped", ProfileCar, osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "reversible"},
		}, false, false},
		{"walk ignores vehicle oneway", ProfileWalk, osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "yes"},
		}, true, true},
		{"walk oneway:foot", ProfileWalk, osm.Tags{
			{Key: "highway", Value: "steps"},
			{Key: "oneway:foot", Value: "yes"},
		}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, bwd := directionFlags(tt.profile, tt.tags)
			assert.Equal(t, tt.wantForward, fwd, "forward")
			assert.Equal(t, tt.wantBackward, bwd, "backward")
		})
	}
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile("")
	require.NoError(t, err)
	assert.Equal(t, ProfileCar, p)

	p, err = ParseProfile("walk")
	require.NoError(t, err)
	assert.Equal(t, ProfileWalk, p)

	_, err = ParseProfile("boat")
	assert.Error(t, err)
}

func TestBuildEdges(t *testing.T) {
	ways := []wayInfo{
		{NodeIDs: []osm.NodeID{1, 2, 3}, Forward: true, Backward: true},
		{NodeIDs: []osm.NodeID{3, 4}, Forward: true},
		{NodeIDs: []osm.NodeID{4, 5}, Forward: true}, // 5 has no coordinates
	}
	lat := map[osm.NodeID]float64{1: 1.3000, 2: 1.3010, 3: 1.3020, 4: 1.3020}
	lon := map[osm.NodeID]float64{1: 103.80, 2: 103.80, 3: 103.80, 4: 103.80}

	edges, skipped, filtered := buildEdges(ways, lat, lon, BBox{}, false)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 0, filtered)
	require.Len(t, edges, 5)

	assert.Equal(t, RawEdge{FromNodeID: 1, ToNodeID: 2, Weight: edges[0].Weight}, edges[0])
	assert.Equal(t, osm.NodeID(2), edges[1].FromNodeID)
	assert.Equal(t, osm.NodeID(1), edges[1].ToNodeID)
	assert.InDelta(t, 111, float64(edges[0].Weight), 2, "0.001 deg of latitude is about 111 m")

	// Identical coordinates still yield a positive weight.
	assert.Equal(t, uint32(1), edges[4].Weight)
}

func TestBuildEdgesBBox(t *testing.T) {
	ways := []wayInfo{{NodeIDs: []osm.NodeID{1, 2, 3}, Forward: true}}
	lat := map[osm.NodeID]float64{1: 1.30, 2: 1.31, 3: 2.50}
	lon := map[osm.NodeID]float64{1: 103.80, 2: 103.80, 3: 103.80}
	box := BBox{MinLat: 1.0, MaxLat: 2.0, MinLng: 103.0, MaxLng: 104.0}

	edges, _, filtered := buildEdges(ways, lat, lon, box, true)
	assert.Len(t, edges, 1)
	assert.Equal(t, 1, filtered)
}
