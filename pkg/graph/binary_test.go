package graph_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/kpath_tracer/pkg/graph"
)

func buildTestGraph() *graph.Graph {
	g := graph.New(4)
	g.AddEdge(0, 1, 100)
	g.AddEdge(0, 3, 300)
	g.AddEdge(0, 1, 50)
	g.AddEdge(1, 2, 200)
	g.AddEdge(3, 0, 300)
	return g
}

func TestBinaryRoundTrip(t *testing.T) {
	original := buildTestGraph()
	original.NodeLat = []float64{1.0, 1.1, 1.2, 1.3}
	original.NodeLon = []float64{103.0, 103.1, 103.2, 103.3}

	path := filepath.Join(t.TempDir(), "test.graph.bin")
	require.NoError(t, graph.WriteBinary(path, original))

	loaded, err := graph.ReadBinary(path)
	require.NoError(t, err)

	assert.Equal(t, original.Adj, loaded.Adj)
	assert.Equal(t, original.NodeLat, loaded.NodeLat)
	assert.Equal(t, original.NodeLon, loaded.NodeLon)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestBinaryRoundTripWithoutCoords(t *testing.T) {
	original := buildTestGraph()
	path := filepath.Join(t.TempDir(), "plain.graph.bin")
	require.NoError(t, graph.WriteBinary(path, original))

	loaded, err := graph.ReadBinary(path)
	require.NoError(t, err)
	assert.Equal(t, original.Adj, loaded.Adj)
	assert.False(t, loaded.HasCoords())
}

func TestBinaryCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.graph.bin")
	require.NoError(t, graph.WriteBinary(path, buildTestGraph()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip a byte inside the weight array.
	data[len(data)-10] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = graph.ReadBinary(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRC32 mismatch")
}

func TestBinaryInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.graph.bin")
	require.NoError(t, os.WriteFile(path, []byte("NOT_KPATH_HEADER_BLAH_BLAH_BLAH_MORE_DATA"), 0o644))

	_, err := graph.ReadBinary(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid magic")
}

func TestBinaryTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.graph.bin")
	require.NoError(t, os.WriteFile(path, []byte("KPATHGRF"), 0o644))

	_, err := graph.ReadBinary(path)
	assert.Error(t, err)
}
