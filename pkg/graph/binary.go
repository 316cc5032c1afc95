package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"
)

const (
	magicBytes = "KPATHGRF"
	version    = uint32(1)
	maxNodes   = 10_000_000
	maxEdges   = 50_000_000
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic     [8]byte
	Version   uint32
	NumNodes  uint32
	NumEdges  uint32
	HasCoords uint32 // 1 if NodeLat/NodeLon follow the edge arrays
}

// WriteBinary serializes g to path. The file is written to a temporary name
// and renamed into place, so readers never observe a partial graph.
//
// Layout after the header: per-node degree, edge targets, edge weights (in
// adjacency order), optional coordinates, CRC32 trailer.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	w := &crcWriter

	numNodes := g.NumNodes()
	degree := make([]uint32, numNodes)
	head := make([]int32, 0, g.NumEdges())
	weight := make([]uint32, 0, g.NumEdges())
	for u, edges := range g.Adj {
		degree[u] = uint32(len(edges))
		for _, e := range edges {
			head = append(head, e.To)
			weight = append(weight, e.Weight)
		}
	}

	hdr := fileHeader{
		Version:  version,
		NumNodes: uint32(numNodes),
		NumEdges: uint32(len(head)),
	}
	if g.HasCoords() {
		hdr.HasCoords = 1
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if err := writeUint32Slice(w, degree); err != nil {
		return fmt.Errorf("write Degree: %w", err)
	}
	if err := writeInt32Slice(w, head); err != nil {
		return fmt.Errorf("write Head: %w", err)
	}
	if err := writeUint32Slice(w, weight); err != nil {
		return fmt.Errorf("write Weight: %w", err)
	}
	if hdr.HasCoords == 1 {
		if err := writeFloat64Slice(w, g.NodeLat); err != nil {
			return fmt.Errorf("write NodeLat: %w", err)
		}
		if err := writeFloat64Slice(w, g.NodeLon); err != nil {
			return fmt.Errorf("write NodeLon: %w", err)
		}
	}

	// Write CRC32 trailer.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// ReadBinary deserializes a graph written by WriteBinary.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	r := &crcReader

	// Read and validate header.
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}

	degree, err := readUint32Slice(r, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("read Degree: %w", err)
	}
	head, err := readInt32Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read Head: %w", err)
	}
	weight, err := readUint32Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read Weight: %w", err)
	}

	g := New(int(hdr.NumNodes))
	if hdr.HasCoords == 1 {
		if g.NodeLat, err = readFloat64Slice(r, int(hdr.NumNodes)); err != nil {
			return nil, fmt.Errorf("read NodeLat: %w", err)
		}
		if g.NodeLon, err = readFloat64Slice(r, int(hdr.NumNodes)); err != nil {
			return nil, fmt.Errorf("read NodeLon: %w", err)
		}
	}

	// Read and validate CRC32.
	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if err := validateAdjacency(degree, head, hdr.NumNodes); err != nil {
		return nil, fmt.Errorf("adjacency invalid: %w", err)
	}

	var pos uint32
	for u, d := range degree {
		if d == 0 {
			continue
		}
		edges := make([]Edge, d)
		for i := range edges {
			edges[i] = Edge{To: head[pos], Weight: weight[pos]}
			pos++
		}
		g.Adj[u] = edges
	}

	return g, nil
}

// validateAdjacency checks that degrees sum to the edge count and every
// target is a node of the graph.
func validateAdjacency(degree []uint32, head []int32, numNodes uint32) error {
	var total uint64
	for _, d := range degree {
		total += uint64(d)
	}
	if total != uint64(len(head)) {
		return fmt.Errorf("degree sum %d != NumEdges %d", total, len(head))
	}
	for i, h := range head {
		if h < 0 || uint32(h) >= numNodes {
			return fmt.Errorf("Head[%d]=%d outside 0..%d", i, h, numNodes)
		}
	}
	return nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt32Slice(w io.Writer, s []int32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readInt32Slice(r io.Reader, n int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
