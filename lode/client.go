// Package lode records run reports in a Lode dataset.
//
// Each run writes one snapshot holding a record per visited file and one
// run summary record, Hive-partitioned by day, run_id and record_kind.
// The store is an audit trail only; the orchestrator never consults it
// to decide whether a file needs work.
package lode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/autotiny/metrics"
	"github.com/justapithecus/autotiny/runtime"
)

// DefaultDataset is the Lode dataset ID used for run reports.
const DefaultDataset = "autotiny"

// DeriveDay computes the partition day from run start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds the partition values for one run's records.
type Config struct {
	// Dataset is the Lode dataset ID (default "autotiny").
	Dataset string
	// Day is derived from the run start time (YYYY-MM-DD UTC).
	Day string
	// RunID is the run identifier.
	RunID string
}

// Validate checks that all partition values are present.
func (c *Config) Validate() error {
	if c.Dataset == "" {
		c.Dataset = DefaultDataset
	}
	if c.Day == "" {
		return errors.New("day is required")
	}
	if c.RunID == "" {
		return errors.New("run_id is required")
	}
	return nil
}

// Client persists run reports.
type Client interface {
	// WriteReport writes the report's file and run records as one snapshot.
	WriteReport(ctx context.Context, report *runtime.RunReport) error

	// Close releases client resources.
	Close() error
}

// LodeClient is a Lode-backed implementation of Client.
type LodeClient struct {
	dataset lode.Dataset
	config  Config
	now     func() time.Time
}

// NewLodeClient creates a client with filesystem storage rooted at root.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("lode config: %w", err)
	}
	ds, err := NewReadDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &LodeClient{dataset: ds, config: cfg, now: time.Now}, nil
}

// WriteReport implements Client.
func (c *LodeClient) WriteReport(ctx context.Context, report *runtime.RunReport) error {
	if report == nil {
		return errors.New("nil report")
	}
	records := make([]any, 0, len(report.Files)+1)
	for _, f := range report.Files {
		records = append(records, toFileRecordMap(f, c.config))
	}
	records = append(records, toRunRecordMap(report, c.config, c.now()))

	if _, err := c.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.path())
	}
	return nil
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	return nil
}

func (c *LodeClient) path() string {
	return fmt.Sprintf("%s/day=%s/run_id=%s", c.config.Dataset, c.config.Day, c.config.RunID)
}

var _ Client = (*LodeClient)(nil)

// InstrumentedClient wraps a Client and counts write outcomes on a
// metrics collector.
type InstrumentedClient struct {
	inner     Client
	collector *metrics.Collector
}

// NewInstrumentedClient wraps a client with metrics instrumentation.
func NewInstrumentedClient(inner Client, collector *metrics.Collector) *InstrumentedClient {
	return &InstrumentedClient{inner: inner, collector: collector}
}

// WriteReport delegates to the inner client and records success or failure.
func (c *InstrumentedClient) WriteReport(ctx context.Context, report *runtime.RunReport) error {
	err := c.inner.WriteReport(ctx, report)
	if err != nil {
		c.collector.IncLodeWriteFailure()
	} else {
		c.collector.IncLodeWriteSuccess()
	}
	return err
}

// Close delegates to the inner client.
func (c *InstrumentedClient) Close() error {
	return c.inner.Close()
}

var _ Client = (*InstrumentedClient)(nil)
