package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrMalformedLine is returned when a line of the text format cannot be parsed.
	ErrMalformedLine = errors.New("malformed graph line")
	// ErrNodeOutOfRange is returned when a node id is outside 0..V-1.
	ErrNodeOutOfRange = errors.New("node id out of range")
)

// ReadTextFile loads a graph in the text format from path.
func ReadTextFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return ParseText(f)
}

// ParseText reads the line-oriented graph format used by the front end:
//
//	<id> [ignored text]: <neighbor>,<weight> <neighbor>,<weight> ...
//
// Every non-blank line describes one node, so V is the number of such lines
// and ids must lie in 0..V-1. Anything between the id and the colon is
// ignored; a line without a colon declares a node without edges. Edges keep
// their order on the line.
func ParseText(r io.Reader) (*Graph, error) {
	type rawLine struct {
		num  int
		text string
	}

	var lines []rawLine
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	num := 0
	for sc.Scan() {
		num++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, rawLine{num: num, text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	g := New(len(lines))
	for _, l := range lines {
		if err := parseLine(g, l.text); err != nil {
			return nil, fmt.Errorf("line %d: %w", l.num, err)
		}
	}
	return g, nil
}

func parseLine(g *Graph, line string) error {
	line = strings.TrimLeft(line, " \t")
	idEnd := strings.IndexAny(line, " \t:")
	if idEnd < 0 {
		idEnd = len(line)
	}
	node, err := parseNode(g, line[:idEnd])
	if err != nil {
		return err
	}

	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return nil
	}

	for _, pair := range strings.Fields(line[colon+1:]) {
		nb, w, ok := strings.Cut(pair, ",")
		if !ok {
			return fmt.Errorf("%w: edge %q is not neighbor,weight", ErrMalformedLine, pair)
		}
		to, err := parseNode(g, nb)
		if err != nil {
			return err
		}
		weight, err := strconv.ParseUint(w, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: weight %q", ErrMalformedLine, w)
		}
		g.AddEdge(node, to, uint32(weight))
	}
	return nil
}

func parseNode(g *Graph, s string) (int32, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: node id %q", ErrMalformedLine, s)
	}
	if !g.Contains(int32(id)) {
		return 0, fmt.Errorf("%w: %d (V=%d)", ErrNodeOutOfRange, id, g.NumNodes())
	}
	return int32(id), nil
}

// WriteText writes g in the format read by ParseText.
func WriteText(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	for u, edges := range g.Adj {
		bw.WriteString(strconv.Itoa(u))
		bw.WriteString(" :")
		for _, e := range edges {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(int(e.To)))
			bw.WriteByte(',')
			bw.WriteString(strconv.FormatUint(uint64(e.Weight), 10))
		}
		bw.WriteString(" \n")
	}
	return bw.Flush()
}
