// Command kpath computes k shortest paths with a replayable trace.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/azybler/kpath_tracer/pkg/config"
)

// Build-time variables set via ldflags.
var (
	version = "0.1.0"
	commit  = ""
)

var (
	flagConfig   string
	flagLogLevel string
	flagBaseDir  string
)

func versionString() string {
	if commit != "" {
		return fmt.Sprintf("kpath version %s (commit: %s)", version, commit)
	}
	return fmt.Sprintf("kpath version %s-dev", version)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "kpath",
		Short:        "Traced k-shortest-paths engine",
		Version:      versionString(),
		SilenceUsage: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (env overrides: KPATH_*)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&flagBaseDir, "base-dir", "", "Directory holding the I/O folder (default: parent of the executable's directory)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newPreprocessCmd())
	return root
}

// loadConfig resolves the configuration and applies the global flags on top.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagBaseDir != "" {
		cfg.BaseDir = flagBaseDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, cfg.NewLogger(), nil
}
