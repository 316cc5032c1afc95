package routing

import (
	"slices"

	"github.com/azybler/kpath_tracer/pkg/graph"
)

// ExtractPath follows predecessor links from dst until graph.NoNode and
// returns the visited nodes in forward order. The result always ends at dst;
// whether it starts at the intended source is for the caller to check.
func ExtractPath(dst int32, pred []int32) []int32 {
	var path []int32
	for v := dst; v != graph.NoNode; v = pred[v] {
		path = append(path, v)
	}
	slices.Reverse(path)
	return path
}
