package lode

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoRunsFound is returned when the dataset holds no run records.
var ErrNoRunsFound = errors.New("no run records found")

// RunFilter narrows QueryRuns. Zero values match everything.
type RunFilter struct {
	RunID string
	Day   string
	// Limit caps the number of records returned; 0 means no limit.
	Limit int
}

// QueryRuns returns stored run summaries, most recently completed first.
// A run seen in several snapshots is reported once. Returns
// ErrNoRunsFound if nothing matches.
func QueryRuns(ctx context.Context, ds lode.Dataset, filter RunFilter) ([]RunRecord, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, "autotiny/snapshots")
	}

	var runs []RunRecord
	seen := make(map[string]struct{})
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]

		if !snapshotMatchesFilter(snap, "record_kind", RecordKindRun) ||
			!snapshotMatchesFilter(snap, "run_id", filter.RunID) ||
			!snapshotMatchesFilter(snap, "day", filter.Day) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("autotiny/snapshot/%s", snap.ID))
		}

		// Manifest paths are a coarse pre-filter; record fields are authoritative.
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindRun {
				continue
			}
			if filter.RunID != "" && toString(record["run_id"]) != filter.RunID {
				continue
			}
			if filter.Day != "" && toString(record["day"]) != filter.Day {
				continue
			}
			run := runRecordFromMap(record)
			if _, dup := seen[run.RunID]; dup {
				continue
			}
			seen[run.RunID] = struct{}{}
			runs = append(runs, run)
		}
	}

	if len(runs) == 0 {
		return nil, ErrNoRunsFound
	}

	// RFC 3339 UTC timestamps sort lexically.
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CompletedAt > runs[j].CompletedAt
	})
	if filter.Limit > 0 && len(runs) > filter.Limit {
		runs = runs[:filter.Limit]
	}
	return runs, nil
}

// snapshotMatchesFilter checks if a snapshot's file paths match
// the given partition key=value filter.
func snapshotMatchesFilter(snap *lode.Snapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks for an exact key=value path segment, so
// run_id=run-1 does not match run_id=run-10.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
