package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/autotiny/cli/config"
	"github.com/justapithecus/autotiny/cli/render"
	"github.com/justapithecus/autotiny/compress"
	"github.com/justapithecus/autotiny/credential"
	"github.com/justapithecus/autotiny/iox"
	"github.com/justapithecus/autotiny/lode"
	"github.com/justapithecus/autotiny/log"
	"github.com/justapithecus/autotiny/metrics"
	"github.com/justapithecus/autotiny/runtime"
	"github.com/justapithecus/autotiny/types"
	"github.com/justapithecus/autotiny/worklist"
)

// compressorName labels the compression service in metrics.
const compressorName = "tinify"

// RunCommand returns the run command, the only command that modifies files.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Compress every matched image that does not carry the marker yet",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:  "marker",
				Usage: "Marker id written into compressed files",
				Value: runtime.DefaultMarker,
			},
			&cli.BoolFlag{
				Name:  "no-shuffle",
				Usage: "Use keys in config order instead of a random order",
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID (default: random UUID)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON run report to this path (- for stderr)",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write run metrics in Prometheus text format to this path",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the run summary",
			},
			FormatFlag,
			NoColorFlag,
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config %s: %v", c.String("config"), err), exitConfigError)
	}

	level, err := log.ParseLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}
	runMeta := &types.RunMeta{RunID: runID, StartedAt: time.Now()}

	logger := log.NewLogger(runMeta, level)
	if c.App.ErrWriter != nil {
		logger = logger.WithOutput(c.App.ErrWriter)
	}
	defer iox.DiscardErr(logger.Sync)

	paths, err := worklist.Expand(cfg.Patterns)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	keys := cfg.CredentialKeys()
	if cfg.ShuffleKeys() && !c.Bool("no-shuffle") {
		if keys, err = credential.Shuffle(keys); err != nil {
			return cli.Exit(fmt.Sprintf("shuffle keys: %v", err), exitFailure)
		}
	}

	client, err := compress.NewClient(compress.Config{
		Endpoint: cfg.Compressor.Endpoint,
		Timeout:  cfg.Compressor.Timeout.Duration,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer iox.DiscardClose(client)

	notifier, err := buildAdapter(cfg.Adapter)
	if err != nil {
		return cli.Exit(fmt.Sprintf("adapter: %v", err), exitConfigError)
	}
	if notifier != nil {
		defer iox.DiscardClose(notifier)
	}

	collector := metrics.NewCollector(compressorName, storageBackendName(cfg.Storage), runID)
	marker := resolveString(c, "marker", cfg.Marker)

	orchestrator, err := runtime.NewRunOrchestrator(&runtime.RunConfig{
		RunMeta:     runMeta,
		Worklist:    worklist.New(paths),
		Credentials: credential.NewPool(keys),
		Compressor:  client,
		Marker:      marker,
		Logger:      logger,
		Collector:   collector,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create orchestrator: %v", err), exitFailure)
	}

	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("run configured", map[string]any{
		"files":    len(paths),
		"keys":     len(keys),
		"marker":   marker,
		"storage":  storageBackendName(cfg.Storage),
		"adapter":  cfg.Adapter.Type,
		"endpoint": cfg.Compressor.Endpoint,
	})

	result, err := orchestrator.Execute(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("execution failed: %v", err), exitFailure)
	}
	exitCode := runtime.ExitCodeFor(result.Stop)
	if n := client.CompressionCount(); n > 0 {
		logger.Info("compression count", map[string]any{"compression_count": n})
	}

	report := runtime.BuildRunReport(result, collector.Snapshot(), marker, exitCode)
	recordReport(logger, cfg.Storage, collector, runMeta, report)
	snap := collector.Snapshot()
	report.Metrics = &snap

	if path := resolveString(c, "metrics-file", cfg.MetricsFile); path != "" {
		if err := metrics.WriteTextfile(path, snap); err != nil {
			logger.Warn("metrics write failed", map[string]any{"path": path, "error": err.Error()})
		}
	}

	reportPath := c.String("report")
	if reportPath != "" {
		if err := runtime.WriteRunReport(report, reportPath); err != nil {
			logger.Warn("report write failed", map[string]any{"path": reportPath, "error": err.Error()})
		}
	}

	if notifier != nil {
		if err := publish(notifier, buildRunCompletedEvent(report, reportPath, time.Now())); err != nil {
			logger.Warn("run notification failed", map[string]any{"adapter": cfg.Adapter.Type, "error": err.Error()})
		}
	}

	if !c.Bool("quiet") {
		if err := renderRunResult(r, result, report); err != nil {
			logger.Warn("render failed", map[string]any{"error": err.Error()})
		}
	}

	if result.Err != nil && !result.Stop.IsSuccess() {
		return cli.Exit(result.Summary()+": "+result.Err.Error(), exitCode)
	}
	return cli.Exit("", exitCode)
}

// recordReport writes the run to the report store, if one is configured.
// Storage failures are logged; they never change the run's outcome.
func recordReport(logger *log.Logger, sc config.StorageConfig, collector *metrics.Collector, meta *types.RunMeta, report *runtime.RunReport) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	client, err := buildReportClient(ctx, sc, lode.Config{
		Day:   lode.DeriveDay(meta.StartedAt),
		RunID: meta.RunID,
	})
	if err != nil {
		collector.IncLodeWriteFailure()
		logger.Warn("report store unavailable", map[string]any{"backend": sc.Backend, "error": err.Error()})
		return
	}
	if client == nil {
		return
	}
	store := lode.NewInstrumentedClient(client, collector)
	defer iox.DiscardClose(store)

	if err := store.WriteReport(ctx, report); err != nil {
		logger.Warn("report store write failed", map[string]any{"backend": sc.Backend, "error": err.Error()})
		return
	}
	logger.Debug("report stored", map[string]any{"backend": sc.Backend, "path": sc.Path})
}

// renderRunResult prints the per-file table under a summary heading for
// terminals, or the full report for json and yaml.
func renderRunResult(r *render.Renderer, result *runtime.RunResult, report *runtime.RunReport) error {
	if r.Format() != render.FormatTable {
		return r.Render(report)
	}
	r.Heading(result.Summary())
	if err := r.Render(report.Files); err != nil {
		return err
	}
	if len(report.Pending) > 0 {
		r.Heading(fmt.Sprintf("%d files left pending", len(report.Pending)))
	}
	return nil
}
