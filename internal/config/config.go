// Package config loads riskgraph settings.
//
// Settings come from, in increasing precedence: built-in defaults, a YAML
// file (.riskgraph.yaml by default, optional), RISKGRAPH_* environment
// variables, and finally CLI flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = ".riskgraph.yaml"

// envPrefix prefixes every environment override.
const envPrefix = "RISKGRAPH_"

// Config holds all riskgraph settings.
type Config struct {
	ReportsDir      string `yaml:"reports_dir"`
	DataDir         string `yaml:"data_dir"`
	TopHubs         int    `yaml:"top_hubs"`
	TopCentrality   int    `yaml:"top_centrality"`
	TopImpact       int    `yaml:"top_impact"`
	Workers         int    `yaml:"workers"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	MetricsTextfile string `yaml:"metrics_textfile"`
	Store           bool   `yaml:"store"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ReportsDir:    "reports",
		DataDir:       ".riskgraph",
		TopHubs:       5,
		TopCentrality: 10,
		TopImpact:     10,
		Workers:       min(runtime.GOMAXPROCS(0), maxWorkers),
		LogLevel:      "info",
		LogFormat:     "text",
		Store:         true,
	}
}

// Load reads the config file at path and applies environment overrides.
// An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	required := path != ""
	if !required {
		path = DefaultPath
	}
	if err := cfg.readFile(path, required); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(lookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) readFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	strs := map[string]*string{
		"REPORTS_DIR":      &c.ReportsDir,
		"DATA_DIR":         &c.DataDir,
		"LOG_LEVEL":        &c.LogLevel,
		"LOG_FORMAT":       &c.LogFormat,
		"METRICS_TEXTFILE": &c.MetricsTextfile,
	}
	for name, dst := range strs {
		if v, ok := lookupEnv(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"TOP_HUBS":       &c.TopHubs,
		"TOP_CENTRALITY": &c.TopCentrality,
		"TOP_IMPACT":     &c.TopImpact,
		"WORKERS":        &c.Workers,
	}
	for name, dst := range ints {
		v, ok := lookupEnv(envPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s must be an integer: %w", envPrefix, name, err)
		}
		*dst = n
	}

	if v, ok := lookupEnv(envPrefix + "STORE"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sSTORE must be a boolean: %w", envPrefix, err)
		}
		c.Store = b
	}

	return nil
}

// StorePath returns the directory of the run history database.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "runs")
}
