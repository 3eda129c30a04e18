// Package runtime drives a batch run: it drains a worklist of image files
// against a pool of credentials, compressing and marking each file once.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/autotiny/compress"
	"github.com/justapithecus/autotiny/container"
	"github.com/justapithecus/autotiny/credential"
	"github.com/justapithecus/autotiny/log"
	"github.com/justapithecus/autotiny/metrics"
	"github.com/justapithecus/autotiny/types"
	"github.com/justapithecus/autotiny/worklist"
)

// DefaultMarker is the marker text used when none is configured.
const DefaultMarker = "tiny"

// RunConfig configures a single run.
type RunConfig struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Worklist is the files to process. Owned by the run.
	Worklist *worklist.Worklist
	// Credentials is the credential pool. Owned by the run.
	Credentials *credential.Pool
	// Compressor is the compression service boundary.
	Compressor compress.Compressor
	// Marker is the idempotency marker text (default DefaultMarker).
	Marker string
	// Files reads and writes images. If nil, OSFileStore is used.
	Files FileStore
	// Emitter receives run events. If nil, events go to Logger.
	Emitter Emitter
	// Logger is the run logger. If nil, logging is discarded.
	Logger *log.Logger
	// Collector is the metrics collector for this run.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector
}

// RunResult represents the result of a run.
type RunResult struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Stop is why the run stopped.
	Stop types.StopReason
	// Err is the cause of a fatal stop, nil otherwise.
	Err error
	// Stats are the final counters.
	Stats types.RunStats
	// Files lists every consumed file in order.
	Files []types.FileOutcome
	// Pending lists the files never consumed.
	Pending []string
	// Duration is the total run duration.
	Duration time.Duration
}

// RunOrchestrator orchestrates a single run. It is single-use.
type RunOrchestrator struct {
	config  *RunConfig
	emitter Emitter
	files   FileStore

	started   bool
	startTime time.Time
	stats     types.RunStats
	outcomes  []types.FileOutcome
}

// NewRunOrchestrator creates a new run orchestrator.
// Returns error if the configuration is incomplete.
func NewRunOrchestrator(config *RunConfig) (*RunOrchestrator, error) {
	if config.RunMeta == nil {
		return nil, errors.New("run metadata is required")
	}
	if err := config.RunMeta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run metadata: %w", err)
	}
	if config.Worklist == nil {
		return nil, errors.New("worklist is required")
	}
	if config.Credentials == nil {
		return nil, errors.New("credential pool is required")
	}
	if config.Compressor == nil {
		return nil, errors.New("compressor is required")
	}
	if config.Marker == "" {
		config.Marker = DefaultMarker
	}
	if config.Logger == nil {
		config.Logger = log.NewNop()
	}

	r := &RunOrchestrator{config: config, emitter: config.Emitter, files: config.Files}
	if r.emitter == nil {
		r.emitter = LogEmitter{Logger: config.Logger}
	}
	if r.files == nil {
		r.files = OSFileStore{}
	}
	return r, nil
}

// Execute drains the worklist until it is empty, the credential pool is
// empty, or a run-fatal failure occurs. Files are handled strictly one at
// a time; cancellation is observed between files.
//
// Per-file flow:
//  1. No codec for the extension: skip (no credential is consumed)
//  2. Read failure or unparsable container: errored, file untouched
//  3. Marker present: skip
//  4. Compress, insert marker, write back atomically
//
// Compressor failures: credential exhausted rotates the credential and
// retries the same file; invalid input marks the file errored; anything
// else halts the run.
func (r *RunOrchestrator) Execute(ctx context.Context) (*RunResult, error) {
	if r.started {
		return nil, errors.New("run orchestrator already executed")
	}
	r.started = true
	r.startTime = time.Now()

	wl := r.config.Worklist
	pool := r.config.Credentials
	r.stats.Total = wl.Total()

	r.emit(types.EventRunStarted, types.LogLevelInfo, map[string]any{
		"files":       wl.Total(),
		"credentials": pool.Len(),
		"marker":      r.config.Marker,
	})

	for {
		if err := ctx.Err(); err != nil {
			return r.halt(fmt.Errorf("run canceled: %w", err)), nil
		}

		path, ok := wl.Head()
		if !ok {
			return r.finish(types.StopWorklistDrained, nil), nil
		}
		key, ok := pool.Current()
		if !ok {
			return r.finish(types.StopCredentialsExhausted, nil), nil
		}

		progress := map[string]any{
			"path":             path,
			"index":            wl.Position(),
			"total":            wl.Total(),
			"credential_index": pool.Position(),
			"credential_total": pool.Len(),
		}

		format := container.FormatForPath(path)
		codec, ok := format.Codec()
		if !ok {
			r.config.Collector.IncFileUnsupported()
			r.stats.Skipped++
			r.record(types.FileOutcome{Path: path, Format: format.String(), Status: types.FileUnsupported, Reason: "unsupported extension"})
			r.emit(types.EventFileSkipped, types.LogLevelDebug, with(progress, "reason", "unsupported"))
			wl.Advance()
			continue
		}

		data, err := r.files.ReadFile(path)
		if err != nil {
			r.fileErrored(path, format, fmt.Errorf("read: %w", err), progress)
			wl.Advance()
			continue
		}

		marked, err := codec.HasMarker(data, r.config.Marker)
		if err != nil {
			r.fileErrored(path, format, err, progress)
			wl.Advance()
			continue
		}
		if marked {
			r.config.Collector.IncFileSkipped()
			r.stats.Skipped++
			r.record(types.FileOutcome{Path: path, Format: format.String(), Status: types.FileSkipped, Reason: "already marked", BytesBefore: int64(len(data))})
			r.emit(types.EventFileSkipped, types.LogLevelDebug, with(progress, "reason", "already_marked"))
			wl.Advance()
			continue
		}

		r.config.Collector.IncCompressCall()
		compressed, err := r.config.Compressor.Compress(ctx, data, key)
		if err != nil {
			r.config.Collector.IncCompressFailure(compress.KindName(err))
			switch compress.Classify(err) {
			case compress.ErrCredentialExhausted:
				r.config.Collector.IncCredentialExhausted()
				r.stats.CredentialsExhausted++
				r.emit(types.EventCredentialExhausted, types.LogLevelWarn, map[string]any{
					"credential":       credential.Redact(key),
					"credential_index": pool.Position(),
					"credential_total": pool.Len(),
					"path":             path,
					"error":            err.Error(),
				})
				// Retry the same file with the next credential.
				pool.Exhaust()
			case compress.ErrInvalidInput:
				r.fileErrored(path, format, err, progress)
				wl.Advance()
			default:
				// Service unavailable, connection failure, or unclassified.
				return r.halt(fmt.Errorf("compress %s: %w", path, err)), nil
			}
			continue
		}

		out, err := codec.InsertMarker(compressed, r.config.Marker)
		if err != nil {
			r.fileErrored(path, format, fmt.Errorf("compressed output: %w", err), progress)
			wl.Advance()
			continue
		}

		if err := r.files.WriteFile(path, out); err != nil {
			return r.halt(fmt.Errorf("write %s: %w", path, err)), nil
		}

		before, after := int64(len(data)), int64(len(out))
		r.config.Collector.IncFileProcessed(before, after)
		r.stats.Processed++
		r.stats.BytesBefore += before
		r.stats.BytesAfter += after
		r.record(types.FileOutcome{Path: path, Format: format.String(), Status: types.FileProcessed, BytesBefore: before, BytesAfter: after})
		fields := with(progress, "bytes_before", before)
		fields["bytes_after"] = after
		fields["credential"] = credential.Redact(key)
		r.emit(types.EventFileProcessed, types.LogLevelInfo, fields)
		wl.Advance()
	}
}

func (r *RunOrchestrator) fileErrored(path string, format container.Format, err error, progress map[string]any) {
	r.config.Collector.IncFileErrored()
	r.stats.Errored++
	r.record(types.FileOutcome{Path: path, Format: format.String(), Status: types.FileErrored, Reason: err.Error()})
	r.emit(types.EventFileErrored, types.LogLevelWarn, with(progress, "error", err.Error()))
}

// halt stops the run on a fatal error.
func (r *RunOrchestrator) halt(cause error) *RunResult {
	r.emit(types.EventRunHalted, types.LogLevelError, map[string]any{
		"error": cause.Error(),
		"kind":  compress.KindName(cause),
	})
	return r.finish(types.StopFatal, cause)
}

func (r *RunOrchestrator) finish(stop types.StopReason, cause error) *RunResult {
	r.stats.Remaining = r.config.Worklist.Remaining()
	result := &RunResult{
		RunMeta:  r.config.RunMeta,
		Stop:     stop,
		Err:      cause,
		Stats:    r.stats,
		Files:    r.outcomes,
		Pending:  r.config.Worklist.Pending(),
		Duration: time.Since(r.startTime),
	}

	level := types.LogLevelInfo
	if !stop.IsSuccess() {
		level = types.LogLevelWarn
	}
	r.emit(types.EventRunFinished, level, map[string]any{
		"stop_reason": string(stop),
		"total":       r.stats.Total,
		"processed":   r.stats.Processed,
		"skipped":     r.stats.Skipped,
		"errored":     r.stats.Errored,
		"remaining":   r.stats.Remaining,
		"duration":    result.Duration.String(),
	})
	return result
}

func (r *RunOrchestrator) record(o types.FileOutcome) {
	r.outcomes = append(r.outcomes, o)
}

func (r *RunOrchestrator) emit(name types.EventName, level types.LogLevel, fields map[string]any) {
	r.emitter.Emit(types.Event{Name: name, Level: level, Ts: time.Now().UTC(), Fields: fields})
}

// with returns a copy of fields plus one extra key.
func with(fields map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}
