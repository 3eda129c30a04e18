package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/autotiny/cli/config"
	"github.com/justapithecus/autotiny/cli/render"
	"github.com/justapithecus/autotiny/container"
	"github.com/justapithecus/autotiny/runtime"
	"github.com/justapithecus/autotiny/worklist"
)

// Scan states.
const (
	ScanMarked      = "marked"
	ScanPending     = "pending"
	ScanUnsupported = "unsupported"
	ScanInvalid     = "invalid"
)

// ScanEntry describes one matched file.
type ScanEntry struct {
	Path   string `json:"path" yaml:"path"`
	Format string `json:"format" yaml:"format"`
	State  string `json:"state" yaml:"state"`
	Size   int64  `json:"size" yaml:"size"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ScanCommand returns the scan command. It reports which files a run
// would compress without contacting the service or writing anything.
func ScanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "List matched files and their marker state (read-only)",
		ArgsUsage: "[pattern...]",
		Flags: append(ReadOnlyFlags(),
			ConfigFlag,
			&cli.StringFlag{
				Name:  "marker",
				Usage: "Marker id to look for",
				Value: runtime.DefaultMarker,
			},
		),
		Action: scanAction,
	}
}

func scanAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	patterns := c.Args().Slice()
	var cfgMarker string
	if len(patterns) == 0 {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		patterns, cfgMarker = cfg.Patterns, cfg.Marker
	} else if cfg, err := config.Load(c.String("config")); err == nil {
		cfgMarker = cfg.Marker
	} else if !errors.Is(err, config.ErrNotFound) {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if len(patterns) == 0 {
		return cli.Exit("no patterns given and none configured", exitConfigError)
	}

	paths, err := worklist.Expand(patterns)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	entries := scanFiles(paths, resolveString(c, "marker", cfgMarker))
	r.Heading(scanSummary(entries))
	return r.Render(entries)
}

// scanFiles classifies each path. Read errors are reported per entry.
func scanFiles(paths []string, marker string) []ScanEntry {
	entries := make([]ScanEntry, 0, len(paths))
	for _, path := range paths {
		format := container.FormatForPath(path)
		entry := ScanEntry{Path: path, Format: format.String()}

		codec, ok := format.Codec()
		if !ok {
			entry.State = ScanUnsupported
			entries = append(entries, entry)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			entry.State, entry.Error = ScanInvalid, err.Error()
			entries = append(entries, entry)
			continue
		}
		entry.Size = int64(len(data))

		marked, err := codec.HasMarker(data, marker)
		switch {
		case err != nil:
			entry.State, entry.Error = ScanInvalid, err.Error()
		case marked:
			entry.State = ScanMarked
		default:
			entry.State = ScanPending
		}
		entries = append(entries, entry)
	}
	return entries
}

func scanSummary(entries []ScanEntry) string {
	counts := map[string]int{}
	for _, e := range entries {
		counts[e.State]++
	}
	return fmt.Sprintf("%d files: %d pending, %d marked, %d unsupported, %d invalid",
		len(entries), counts[ScanPending], counts[ScanMarked], counts[ScanUnsupported], counts[ScanInvalid])
}
