package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/autotiny/cli/render"
	"github.com/justapithecus/autotiny/lode"
)

// historyWarningThreshold is the result count above which an unbounded
// listing prints a hint on an interactive stderr.
const historyWarningThreshold = 100

// HistoryRow is the thin per-run view rendered by history.
type HistoryRow struct {
	RunID      string `json:"run_id" yaml:"run_id"`
	StartedAt  string `json:"started_at" yaml:"started_at"`
	StopReason string `json:"stop_reason" yaml:"stop_reason"`
	ExitCode   int    `json:"exit_code" yaml:"exit_code"`
	Processed  int    `json:"processed" yaml:"processed"`
	Skipped    int    `json:"skipped" yaml:"skipped"`
	Errored    int    `json:"errored" yaml:"errored"`
	Remaining  int    `json:"remaining" yaml:"remaining"`
	BytesSaved int64  `json:"bytes_saved" yaml:"bytes_saved"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
}

// HistoryCommand returns the history command, which lists recorded runs
// from the report store.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded runs from the report store (read-only)",
		Flags: append(ReadOnlyFlags(),
			ConfigFlag,
			&cli.StringFlag{Name: "run-id", Usage: "Only this run"},
			&cli.StringFlag{Name: "day", Usage: "Only runs started on this UTC day (YYYY-MM-DD)"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum runs to list (0 = all)"},
		),
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if c.Int("limit") < 0 {
		return cli.Exit("--limit must be >= 0", exitConfigError)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Storage.Backend == "" {
		return cli.Exit("no storage backend configured (set storage.backend in config)", exitConfigError)
	}

	ds, err := openReadDataset(c.Context, cfg.Storage)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open report store: %v", err), exitFailure)
	}

	runs, err := lode.QueryRuns(c.Context, ds, lode.RunFilter{
		RunID: c.String("run-id"),
		Day:   c.String("day"),
		Limit: c.Int("limit"),
	})
	if err != nil && !errors.Is(err, lode.ErrNoRunsFound) {
		return cli.Exit(fmt.Sprintf("query runs: %v", err), exitFailure)
	}

	rows := make([]HistoryRow, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, HistoryRow{
			RunID:      run.RunID,
			StartedAt:  run.StartedAt,
			StopReason: string(run.StopReason),
			ExitCode:   run.ExitCode,
			Processed:  run.Stats.Processed,
			Skipped:    run.Stats.Skipped,
			Errored:    run.Stats.Errored,
			Remaining:  run.Stats.Remaining,
			BytesSaved: run.Stats.BytesSaved(),
			DurationMs: run.DurationMs,
		})
	}

	if len(rows) > historyWarningThreshold && c.Int("limit") == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d runs. Consider using --limit to reduce output.\n\n", len(rows))
	}
	return r.Render(rows)
}
