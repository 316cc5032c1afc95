// Package config loads kpath configuration from defaults, an optional YAML
// file and KPATH_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all settings shared by the kpath commands.
type Config struct {
	// BaseDir is the directory that holds IODir. Empty means the parent of
	// the executable's directory.
	BaseDir     string `yaml:"base_dir"`
	IODir       string `yaml:"io_dir"`
	InputFile   string `yaml:"input_file"`
	OutputFile  string `yaml:"output_file"`
	GraphBinary string `yaml:"graph_binary"`

	K           int   `yaml:"k"`
	Source      int32 `yaml:"source"`
	Destination int32 `yaml:"destination"` // -1 means the last node

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Server Server `yaml:"server"`
}

// Server holds HTTP API settings.
type Server struct {
	Addr           string        `yaml:"addr"`
	CORSOrigin     string        `yaml:"cors_origin"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	MaxTraceBytes  int           `yaml:"max_trace_bytes"` // 0 means no limit
	ReplayDir      string        `yaml:"replay_dir"` // empty keeps runs in memory
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		IODir:       "file io",
		InputFile:   "input.txt",
		OutputFile:  "output.txt",
		K:           2,
		Source:      0,
		Destination: -1,
		LogLevel:    "info",
		LogFormat:   "text",
		Server: Server{
			Addr:           ":8080",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   30 * time.Second,
			RequestTimeout: 20 * time.Second,
			MaxConcurrent:  runtime.NumCPU() * 2,
			MaxTraceBytes:  64 << 20,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strVars := map[string]*string{
		"KPATH_BASE_DIR":     &c.BaseDir,
		"KPATH_IO_DIR":       &c.IODir,
		"KPATH_INPUT_FILE":   &c.InputFile,
		"KPATH_OUTPUT_FILE":  &c.OutputFile,
		"KPATH_GRAPH_BINARY": &c.GraphBinary,
		"KPATH_LOG_LEVEL":    &c.LogLevel,
		"KPATH_LOG_FORMAT":   &c.LogFormat,
		"KPATH_ADDR":         &c.Server.Addr,
		"KPATH_CORS_ORIGIN":  &c.Server.CORSOrigin,
		"KPATH_REPLAY_DIR":   &c.Server.ReplayDir,
	}
	for key, dst := range strVars {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("KPATH_K"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KPATH_K must be an integer: %w", err)
		}
		c.K = k
	}
	for key, dst := range map[string]*int32{
		"KPATH_SOURCE":      &c.Source,
		"KPATH_DESTINATION": &c.Destination,
	} {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil {
				return fmt.Errorf("%s must be an integer: %w", key, err)
			}
			*dst = int32(n)
		}
	}
	for key, dst := range map[string]*int{
		"KPATH_MAX_CONCURRENT":  &c.Server.MaxConcurrent,
		"KPATH_MAX_TRACE_BYTES": &c.Server.MaxTraceBytes,
	} {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s must be an integer: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}

// Validate rejects settings no command can work with.
func (c *Config) Validate() error {
	if c.K < 0 {
		return fmt.Errorf("%w: k must be >= 0, got %d", ErrInvalid, c.K)
	}
	if c.Source < 0 {
		return fmt.Errorf("%w: source must be >= 0, got %d", ErrInvalid, c.Source)
	}
	if c.Destination < -1 {
		return fmt.Errorf("%w: destination must be >= -1, got %d", ErrInvalid, c.Destination)
	}
	if c.IODir == "" || c.InputFile == "" || c.OutputFile == "" {
		return fmt.Errorf("%w: io_dir, input_file and output_file must be set", ErrInvalid)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalid, c.LogFormat)
	}
	if c.Server.MaxConcurrent < 1 {
		return fmt.Errorf("%w: server.max_concurrent must be >= 1", ErrInvalid)
	}
	if c.Server.MaxTraceBytes < 0 {
		return fmt.Errorf("%w: server.max_trace_bytes must be >= 0", ErrInvalid)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("%w: server.request_timeout must be positive", ErrInvalid)
	}
	return nil
}

// ResolveBaseDir returns BaseDir, or the parent of the directory holding the
// running executable when BaseDir is empty.
func (c *Config) ResolveBaseDir() (string, error) {
	if c.BaseDir != "" {
		return c.BaseDir, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(exe)), nil
}

// IOPath returns the directory holding the input and output files.
func (c *Config) IOPath() (string, error) {
	base, err := c.ResolveBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, c.IODir), nil
}

// NewLogger builds a logrus logger from LogLevel and LogFormat. Validate
// must have passed.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
