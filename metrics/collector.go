// Package metrics provides per-run metrics collection.
//
// The Collector accumulates counters during a single run. It is a leaf
// package with no internal dependencies; compression failure kinds are
// passed in as plain strings.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all run metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Files
	FilesProcessed   int64 `json:"files_processed"`
	FilesSkipped     int64 `json:"files_skipped"`
	FilesUnsupported int64 `json:"files_unsupported"`
	FilesErrored     int64 `json:"files_errored"`

	// Compressor
	CompressCalls        int64            `json:"compress_calls"`
	CompressFailures     int64            `json:"compress_failures"`
	FailuresByKind       map[string]int64 `json:"failures_by_kind"`
	CredentialsExhausted int64            `json:"credentials_exhausted"`
	BytesIn              int64            `json:"bytes_in"`
	BytesOut             int64            `json:"bytes_out"`

	// Lode / Storage
	LodeWriteSuccess int64 `json:"lode_write_success"`
	LodeWriteFailure int64 `json:"lode_write_failure"`

	// Dimensions (informational, set at construction)
	Compressor     string `json:"compressor"`
	StorageBackend string `json:"storage_backend"`
	RunID          string `json:"run_id"`
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	filesProcessed   int64
	filesSkipped     int64
	filesUnsupported int64
	filesErrored     int64

	compressCalls        int64
	compressFailures     int64
	failuresByKind       map[string]int64
	credentialsExhausted int64
	bytesIn              int64
	bytesOut             int64

	lodeWriteSuccess int64
	lodeWriteFailure int64

	compressor     string
	storageBackend string
	runID          string
}

// NewCollector creates a Collector with dimension labels.
// storageBackend is empty when no report store is configured.
func NewCollector(compressor, storageBackend, runID string) *Collector {
	return &Collector{
		failuresByKind: make(map[string]int64),
		compressor:     compressor,
		storageBackend: storageBackend,
		runID:          runID,
	}
}

// --- Files ---

// IncFileProcessed records a compressed and marked file with its sizes.
func (c *Collector) IncFileProcessed(before, after int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesProcessed++
	c.bytesIn += before
	c.bytesOut += after
	c.mu.Unlock()
}

// IncFileSkipped records a file that already carried the marker.
func (c *Collector) IncFileSkipped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesSkipped++
	c.mu.Unlock()
}

// IncFileUnsupported records a file no codec handles.
func (c *Collector) IncFileUnsupported() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesUnsupported++
	c.mu.Unlock()
}

// IncFileErrored records a file rejected and left untouched.
func (c *Collector) IncFileErrored() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesErrored++
	c.mu.Unlock()
}

// --- Compressor ---

// IncCompressCall records one call to the compressor, successful or not.
func (c *Collector) IncCompressCall() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.compressCalls++
	c.mu.Unlock()
}

// IncCompressFailure records a failed compressor call by kind label.
func (c *Collector) IncCompressFailure(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.compressFailures++
	c.failuresByKind[kind]++
	c.mu.Unlock()
}

// IncCredentialExhausted records a credential dropped from the pool.
func (c *Collector) IncCredentialExhausted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.credentialsExhausted++
	c.mu.Unlock()
}

// --- Lode / Storage ---
// Lode counters are per-call, not per-record.

// IncLodeWriteSuccess records a successful Lode write operation (per-call).
func (c *Collector) IncLodeWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lodeWriteSuccess++
	c.mu.Unlock()
}

// IncLodeWriteFailure records a failed Lode write operation (per-call).
func (c *Collector) IncLodeWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lodeWriteFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]int64, len(c.failuresByKind))
	for k, v := range c.failuresByKind {
		byKind[k] = v
	}

	return Snapshot{
		FilesProcessed:   c.filesProcessed,
		FilesSkipped:     c.filesSkipped,
		FilesUnsupported: c.filesUnsupported,
		FilesErrored:     c.filesErrored,

		CompressCalls:        c.compressCalls,
		CompressFailures:     c.compressFailures,
		FailuresByKind:       byKind,
		CredentialsExhausted: c.credentialsExhausted,
		BytesIn:              c.bytesIn,
		BytesOut:             c.bytesOut,

		LodeWriteSuccess: c.lodeWriteSuccess,
		LodeWriteFailure: c.lodeWriteFailure,

		Compressor:     c.compressor,
		StorageBackend: c.storageBackend,
		RunID:          c.runID,
	}
}
