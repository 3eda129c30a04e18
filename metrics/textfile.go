package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "autotiny"

// snapshotCollector exposes a Snapshot as constant Prometheus metrics.
type snapshotCollector struct {
	snap   Snapshot
	labels prometheus.Labels
	descs  map[string]*prometheus.Desc
	kind   *prometheus.Desc
}

// counters maps metric names to their Snapshot values.
func (s Snapshot) counters() map[string]int64 {
	return map[string]int64{
		"files_processed_total":       s.FilesProcessed,
		"files_skipped_total":         s.FilesSkipped,
		"files_unsupported_total":     s.FilesUnsupported,
		"files_errored_total":         s.FilesErrored,
		"compress_calls_total":        s.CompressCalls,
		"compress_failures_total":     s.CompressFailures,
		"credentials_exhausted_total": s.CredentialsExhausted,
		"bytes_in_total":              s.BytesIn,
		"bytes_out_total":             s.BytesOut,
		"report_writes_total":         s.LodeWriteSuccess,
		"report_write_failures_total": s.LodeWriteFailure,
	}
}

func newSnapshotCollector(s Snapshot) *snapshotCollector {
	labels := prometheus.Labels{
		"compressor": s.Compressor,
		"storage":    s.StorageBackend,
		"run_id":     s.RunID,
	}
	c := &snapshotCollector{
		snap:   s,
		labels: labels,
		descs:  make(map[string]*prometheus.Desc),
		kind: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "compress_failures_by_kind_total"),
			"Compression failures by classified kind.",
			[]string{"kind"}, labels,
		),
	}
	for name := range s.counters() {
		c.descs[name] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", name),
			"autotiny run counter "+name+".",
			nil, labels,
		)
	}
	return c
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
	ch <- c.kind
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	for name, v := range c.snap.counters() {
		ch <- prometheus.MustNewConstMetric(c.descs[name], prometheus.CounterValue, float64(v))
	}
	for kind, v := range c.snap.FailuresByKind {
		ch <- prometheus.MustNewConstMetric(c.kind, prometheus.CounterValue, float64(v), kind)
	}
}

// Registry returns a registry holding the snapshot's counters.
func (s Snapshot) Registry() (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(newSnapshotCollector(s)); err != nil {
		return nil, err
	}
	return reg, nil
}

// WriteTextfile writes the snapshot to path in the Prometheus text format.
// The file is replaced atomically.
func WriteTextfile(path string, s Snapshot) error {
	reg, err := s.Registry()
	if err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}
