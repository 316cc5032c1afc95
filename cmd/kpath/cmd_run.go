package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/azybler/kpath_tracer/pkg/config"
	"github.com/azybler/kpath_tracer/pkg/graph"
	"github.com/azybler/kpath_tracer/pkg/routing"
	"github.com/azybler/kpath_tracer/pkg/store"
)

// watchDebounce collapses the burst of events a single save produces.
const watchDebounce = 200 * time.Millisecond

type runOptions struct {
	graphPath string
	k         int
	source    int32
	dest      int32
	from      string
	to        string
	watch     bool

	kSet, sourceSet, destSet bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run k shortest paths on the input graph and write the trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.kSet = cmd.Flags().Changed("k")
			opts.sourceSet = cmd.Flags().Changed("source")
			opts.destSet = cmd.Flags().Changed("dest")

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			dir, err := cfg.IOPath()
			if err != nil {
				return err
			}
			fs := store.NewFileStore(dir, cfg.InputFile, cfg.OutputFile)
			if opts.graphPath == "" {
				opts.graphPath = cfg.GraphBinary
			}
			eng := routing.NewEngine(log)

			if !opts.watch {
				return runOnce(cmd.Context(), cmd.OutOrStdout(), cfg, fs, eng, opts)
			}
			if opts.graphPath != "" {
				return errors.New("--watch follows the text input file and cannot be combined with --graph")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watchInput(ctx, log, fs.InputPath(), func() error {
				return runOnce(ctx, cmd.OutOrStdout(), cfg, fs, eng, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.graphPath, "graph", "", "Binary graph from 'kpath preprocess' (default: text input file)")
	cmd.Flags().IntVarP(&opts.k, "k", "k", 0, "Number of paths (default from config)")
	cmd.Flags().Int32Var(&opts.source, "source", 0, "Source node id (default from config)")
	cmd.Flags().Int32Var(&opts.dest, "dest", 0, "Destination node id (default from config, -1 = last node)")
	cmd.Flags().StringVar(&opts.from, "from", "", "Source as lat,lng snapped to the nearest node")
	cmd.Flags().StringVar(&opts.to, "to", "", "Destination as lat,lng snapped to the nearest node")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-run whenever the input file changes")
	return cmd
}

func runOnce(ctx context.Context, out io.Writer, cfg *config.Config, fs *store.FileStore, solver routing.Solver, opts runOptions) error {
	var (
		g   *graph.Graph
		err error
	)
	if opts.graphPath != "" {
		g, err = graph.ReadBinary(opts.graphPath)
		if err != nil {
			return fmt.Errorf("load %s: %w", opts.graphPath, err)
		}
	} else {
		g, err = fs.LoadGraph()
		if err != nil {
			return err
		}
	}

	src, dst, err := resolveEndpoints(g, cfg, opts)
	if err != nil {
		return err
	}
	k := cfg.K
	if opts.kSet {
		k = opts.k
	}

	resp, err := solver.Solve(ctx, routing.Request{Graph: g, Source: src, Destination: dst, K: k})
	if err != nil {
		return err
	}
	if err := fs.SaveTrace(resp.Trace); err != nil {
		return err
	}

	fmt.Fprintf(out, "%d of %d paths from %d to %d (trace: %s)\n", len(resp.Paths), k, src, dst, fs.OutputPath())
	for i, p := range resp.Paths {
		fmt.Fprintf(out, "  %d. cost %d: %s\n", i+1, p.Cost, formatNodes(p.Nodes))
	}
	return nil
}

// resolveEndpoints picks source and destination from coordinates, flags or
// config, in that order. A destination of -1 means the last node.
func resolveEndpoints(g *graph.Graph, cfg *config.Config, opts runOptions) (int32, int32, error) {
	src, dst := cfg.Source, cfg.Destination
	if opts.sourceSet {
		src = opts.source
	}
	if opts.destSet {
		dst = opts.dest
	}
	if dst == -1 {
		dst = int32(g.NumNodes() - 1)
	}

	if opts.from == "" && opts.to == "" {
		return src, dst, nil
	}
	snapper, err := routing.NewSnapper(g)
	if err != nil {
		return 0, 0, err
	}
	snap := func(s string) (int32, error) {
		lat, lng, err := parseLatLng(s)
		if err != nil {
			return 0, err
		}
		node, _, err := snapper.Nearest(lat, lng)
		if err != nil {
			return 0, fmt.Errorf("snap %s: %w", s, err)
		}
		return node, nil
	}
	if opts.from != "" {
		if src, err = snap(opts.from); err != nil {
			return 0, 0, err
		}
	}
	if opts.to != "" {
		if dst, err = snap(opts.to); err != nil {
			return 0, 0, err
		}
	}
	return src, dst, nil
}

func parseLatLng(s string) (float64, float64, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("invalid coordinate %q (expected lat,lng)", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", latStr, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", lngStr, err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("coordinate %q out of range", s)
	}
	return lat, lng, nil
}

func formatNodes(nodes []int32) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = strconv.Itoa(int(n))
	}
	return strings.Join(parts, " -> ")
}

// watchInput calls run once, then again after every change to path, until
// ctx is done. The parent directory is watched so that editors replacing the
// file by rename are noticed too. Failed runs are logged, not returned.
func watchInput(ctx context.Context, log *logrus.Logger, path string, run func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	rerun := func() {
		if err := run(); err != nil {
			log.WithError(err).Error("run failed")
		}
	}
	rerun()
	log.WithField("path", path).Info("watching input")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			log.WithFields(logrus.Fields{"path": ev.Name, "op": ev.Op.String()}).Debug("input changed")
			pending = time.After(watchDebounce)
		case <-pending:
			pending = nil
			rerun()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watcher error")
		}
	}
}
