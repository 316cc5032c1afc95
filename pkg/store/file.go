// Package store persists graphs and finished traces: plain files in the I/O
// directory shared with the front end, and a badger-backed replay store.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/azybler/kpath_tracer/pkg/graph"
)

// FileStore reads the input graph from, and writes the trace to, a single
// directory.
type FileStore struct {
	Dir        string
	InputFile  string
	OutputFile string
}

// NewFileStore returns a FileStore for dir with the given file names.
func NewFileStore(dir, input, output string) *FileStore {
	return &FileStore{Dir: dir, InputFile: input, OutputFile: output}
}

// InputPath returns the full path of the input graph.
func (s *FileStore) InputPath() string {
	return filepath.Join(s.Dir, s.InputFile)
}

// OutputPath returns the full path of the trace file.
func (s *FileStore) OutputPath() string {
	return filepath.Join(s.Dir, s.OutputFile)
}

// LoadGraph parses the input file in the text format.
func (s *FileStore) LoadGraph() (*graph.Graph, error) {
	g, err := graph.ReadTextFile(s.InputPath())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.InputPath(), err)
	}
	return g, nil
}

// SaveTrace writes trace followed by a blank line to the output file,
// replacing it atomically.
func (s *FileStore) SaveTrace(trace string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.Dir, err)
	}

	path := s.OutputPath()
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	if _, err := f.WriteString(trace); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	if _, err := f.WriteString("\n\n"); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
