package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = ".autotiny.yaml"

// Config represents an .autotiny.yaml configuration file.
// CLI flags override config values where both exist.
type Config struct {
	Keys       []string         `yaml:"keys"`
	Patterns   []string         `yaml:"patterns"`
	Marker     string           `yaml:"marker"`
	Shuffle    *bool            `yaml:"shuffle,omitempty"`
	Compressor CompressorConfig `yaml:"compressor"`
	Storage    StorageConfig    `yaml:"storage"`
	Adapter    AdapterConfig    `yaml:"adapter"`
	// MetricsFile, when set, receives the run metrics in Prometheus text
	// format (for the node_exporter textfile collector).
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// CompressorConfig configures the compression service client.
type CompressorConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Timeout  Duration `yaml:"timeout"`
}

// StorageConfig configures the run report store. An empty backend
// disables it.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig configures the run completion notifier. An empty type
// disables it.
type AdapterConfig struct {
	Type       string            `yaml:"type"`
	URL        string            `yaml:"url"`
	Channel    string            `yaml:"channel,omitempty"`      // redis
	LastRunKey string            `yaml:"last_run_key,omitempty"` // redis
	Subject    string            `yaml:"subject,omitempty"`      // nats
	Exchange   string            `yaml:"exchange,omitempty"`     // amqp
	RoutingKey string            `yaml:"routing_key,omitempty"`  // amqp
	Secret     string            `yaml:"secret,omitempty"`       // webhook
	Headers    map[string]string `yaml:"headers,omitempty"`      // webhook
	Timeout    Duration          `yaml:"timeout,omitempty"`
	Retries    *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("negative duration %q", s)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	if d.Duration == 0 {
		return "", nil
	}
	return d.String(), nil
}

// CredentialKeys returns the configured keys with blanks removed.
// Keys that expanded from unset variables are blank.
func (c *Config) CredentialKeys() []string {
	keys := make([]string, 0, len(c.Keys))
	for _, k := range c.Keys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// ShuffleKeys reports whether the key order should be randomized (default true).
func (c *Config) ShuffleKeys() bool {
	return c.Shuffle == nil || *c.Shuffle
}

// Validate checks required fields and enum values.
func (c *Config) Validate() error {
	var errs []error

	if len(c.CredentialKeys()) == 0 {
		errs = append(errs, errors.New("keys: at least one non-empty key is required"))
	}
	if len(c.Patterns) == 0 {
		errs = append(errs, errors.New("patterns: at least one pattern is required"))
	}
	for i, p := range c.Patterns {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("patterns[%d]: empty pattern", i))
		}
	}

	switch c.Storage.Backend {
	case "":
	case "fs", "s3":
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for backend %q", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q (want fs or s3)", c.Storage.Backend))
	}

	switch c.Adapter.Type {
	case "":
	case "webhook", "redis", "nats", "amqp":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for adapter %q", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter.type: unknown adapter %q (want webhook, redis, nats or amqp)", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}

	return errors.Join(errs...)
}
