package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// maxWorkers bounds the traversal worker pool.
const maxWorkers = 256

// Validate checks every setting. Callers that override fields from flags
// should validate again afterwards.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}

	if err := c.validateLimits(); err != nil {
		return err
	}

	if err := c.validateLogging(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validatePaths() error {
	if c.ReportsDir == "" {
		return fmt.Errorf("reports_dir must not be empty")
	}

	if c.Store && c.DataDir == "" {
		return fmt.Errorf("data_dir is required when store is enabled")
	}

	return nil
}

func (c *Config) validateLimits() error {
	limits := []struct {
		name  string
		value int
	}{
		{"top_hubs", c.TopHubs},
		{"top_centrality", c.TopCentrality},
		{"top_impact", c.TopImpact},
	}
	for _, l := range limits {
		if l.value < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", l.name, l.value)
		}
	}

	if c.Workers < 1 || c.Workers > maxWorkers {
		return fmt.Errorf("workers must be between 1 and %d, got %d", maxWorkers, c.Workers)
	}

	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}

	return nil
}
