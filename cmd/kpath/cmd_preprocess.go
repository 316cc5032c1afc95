package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/azybler/kpath_tracer/pkg/graph"
	osmparser "github.com/azybler/kpath_tracer/pkg/osm"
)

func newPreprocessCmd() *cobra.Command {
	var (
		input    string
		output   string
		bbox     string
		profile  string
		textPath string
	)
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Import an OSM .pbf extract as a graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if input == "" {
				return errors.New("--input is required")
			}
			if output == "" {
				output = cfg.GraphBinary
			}
			if output == "" {
				output = "graph.bin"
			}

			opts := osmparser.ParseOptions{Logger: log}
			if opts.Profile, err = osmparser.ParseProfile(profile); err != nil {
				return err
			}
			if bbox != "" {
				if opts.BBox, err = parseBBox(bbox); err != nil {
					return err
				}
				log.WithFields(logrus.Fields{
					"min_lat": opts.BBox.MinLat, "max_lat": opts.BBox.MaxLat,
					"min_lng": opts.BBox.MinLng, "max_lng": opts.BBox.MaxLng,
				}).Info("using bounding box filter")
			}

			start := time.Now()
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()

			parsed, err := osmparser.Parse(cmd.Context(), f, opts)
			if err != nil {
				return fmt.Errorf("parse OSM data: %w", err)
			}

			g := graph.Build(parsed)
			log.WithFields(logrus.Fields{"nodes": g.NumNodes(), "edges": g.NumEdges()}).Info("graph built")

			component := graph.LargestComponent(g)
			g = graph.FilterToComponent(g, component)
			log.WithFields(logrus.Fields{"nodes": g.NumNodes(), "edges": g.NumEdges()}).Info("kept largest component")

			if err := graph.WriteBinary(output, g); err != nil {
				return fmt.Errorf("write binary: %w", err)
			}
			if textPath != "" {
				if err := writeTextFile(textPath, g); err != nil {
					return err
				}
			}

			log.WithFields(logrus.Fields{
				"output":  output,
				"text":    textPath,
				"elapsed": time.Since(start).Round(time.Millisecond),
			}).Info("preprocess done")
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Path to .osm.pbf file")
	cmd.Flags().StringVar(&output, "output", "", "Output binary graph (default from config, else graph.bin)")
	cmd.Flags().StringVar(&bbox, "bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng")
	cmd.Flags().StringVar(&profile, "profile", "car", "Travel profile: car|walk")
	cmd.Flags().StringVar(&textPath, "text", "", "Also export the graph in the text input format")
	return cmd
}

func parseBBox(s string) (osmparser.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return osmparser.BBox{}, fmt.Errorf("invalid bbox %q (expected minLat,minLng,maxLat,maxLng)", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return osmparser.BBox{}, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		v[i] = f
	}
	b := osmparser.BBox{MinLat: v[0], MinLng: v[1], MaxLat: v[2], MaxLng: v[3]}
	if b.MinLat >= b.MaxLat || b.MinLng >= b.MaxLng {
		return osmparser.BBox{}, fmt.Errorf("invalid bbox %q: min must be below max", s)
	}
	return b, nil
}

func writeTextFile(path string, g *graph.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := graph.WriteText(f, g); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
