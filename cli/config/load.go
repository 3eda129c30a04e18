package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Load when the config file does not exist.
var ErrNotFound = errors.New("config file not found")

// Load reads a YAML config file, expands environment variables, and
// decodes it into a Config. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes config bytes. name is used in error messages.
func Parse(data []byte, name string) (*Config, error) {
	dec := yaml.NewDecoder(strings.NewReader(ExpandEnv(string(data))))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML in %s: %w", name, err)
	}
	return &cfg, nil
}

// defaultTemplate is the starter config written by WriteDefault.
const defaultTemplate = `# autotiny configuration
# ${VAR} and ${VAR:-default} are expanded from the environment (and .env).
keys:
  - ${TINIFY_KEY}
patterns:
  - ./public/*
marker: tiny

compressor:
  endpoint: https://api.tinify.com
  timeout: 60s

# Run reports. backend: fs or s3 (path is bucket/prefix for s3).
# storage:
#   backend: fs
#   path: ./.autotiny/reports

# Run completion notifications. type: webhook, redis, nats or amqp.
# adapter:
#   type: webhook
#   url: https://example.com/hooks/autotiny
#   retries: 3

# Prometheus textfile export of the run metrics.
# metrics_file: ./.autotiny/autotiny.prom
`

// WriteDefault writes a starter config to path. It returns created=false
// without touching the file if path already exists.
func WriteDefault(path string) (created bool, err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("create config %s: %w", path, err)
	}
	if _, err := io.WriteString(f, defaultTemplate); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write config %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("write config %s: %w", path, err)
	}
	return true, nil
}
