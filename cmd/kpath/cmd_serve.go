package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/azybler/kpath_tracer/pkg/api"
	"github.com/azybler/kpath_tracer/pkg/graph"
	"github.com/azybler/kpath_tracer/pkg/routing"
	"github.com/azybler/kpath_tracer/pkg/store"
)

func newServeCmd() *cobra.Command {
	var (
		graphPath  string
		loadInput  bool
		addr       string
		corsOrigin string
		replayDir  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the k-shortest-paths HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("cors-origin") {
				cfg.Server.CORSOrigin = corsOrigin
			}
			if cmd.Flags().Changed("replay-dir") {
				cfg.Server.ReplayDir = replayDir
			}
			if graphPath == "" {
				graphPath = cfg.GraphBinary
			}

			start := time.Now()
			var base *graph.Graph
			switch {
			case graphPath != "":
				if base, err = graph.ReadBinary(graphPath); err != nil {
					return fmt.Errorf("load %s: %w", graphPath, err)
				}
			case loadInput:
				dir, err := cfg.IOPath()
				if err != nil {
					return err
				}
				if base, err = store.NewFileStore(dir, cfg.InputFile, cfg.OutputFile).LoadGraph(); err != nil {
					return err
				}
			}
			if base != nil {
				log.WithFields(logrus.Fields{
					"nodes":   base.NumNodes(),
					"edges":   base.NumEdges(),
					"coords":  base.HasCoords(),
					"elapsed": time.Since(start).Round(time.Millisecond),
				}).Info("graph loaded")
			} else {
				log.Info("no graph preloaded; requests must carry their own")
			}

			runs, err := store.OpenReplayStore(cfg.Server.ReplayDir, log)
			if err != nil {
				return err
			}
			defer runs.Close()

			eng := routing.NewEngine(log, routing.WithTraceLimit(cfg.Server.MaxTraceBytes))
			handlers := api.NewHandlers(eng, base, runs, log)
			srv := api.NewServer(cfg.Server, handlers, log)
			return api.ListenAndServe(cmd.Context(), srv, log)
		},
	}

	cmd.Flags().StringVar(&graphPath, "graph", "", "Binary graph to preload (from 'kpath preprocess')")
	cmd.Flags().BoolVar(&loadInput, "load-input", false, "Preload the text input file when --graph is not set")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&corsOrigin, "cors-origin", "", "CORS allowed origin (empty = same-origin)")
	cmd.Flags().StringVar(&replayDir, "replay-dir", "", "Directory for stored runs (empty = in memory)")
	return cmd
}
