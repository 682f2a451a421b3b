package presets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/herring-swe/cmake-presets/pkg/toolkit"
	"github.com/herring-swe/cmake-presets/pkg/utils"
)

var ErrEmptyFilename = errors.New("preset filename is empty")

// Options tunes a preset generation run
type Options struct {
	// BaseData seeds the document when the file does not exist yet;
	// nil means an empty document
	BaseData map[string]any
	// StaticPresets are merged into the document before any toolkit runs
	StaticPresets []map[string]any
	// IgnoreReadError starts from scratch when the existing file cannot
	// be parsed instead of failing
	IgnoreReadError bool
	// SkipBad records a failing toolkit and carries on instead of
	// aborting the run
	SkipBad bool
	// Detailed prints full information for each selected toolkit
	Detailed bool
	// Out receives the per-toolkit selection summaries; nil discards
	Out io.Writer
}

// Report names the presets touched by a generation run
type Report struct {
	Added   []string
	Skipped []string
	Failed  []string
}

// GenerateFile scans, selects and renders the given toolkits into a
// preset file. An existing file is updated in place: presets for the
// generated toolkits are replaced, everything else is preserved.
// Toolkits not supported in this configuration still get their base
// preset so references to the name stay valid on every platform.
func GenerateFile(ctx context.Context, filename string, toolkits []toolkit.Toolkit, opts Options) (Report, error) {
	var report Report
	if filename == "" {
		return report, ErrEmptyFilename
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	var data map[string]any
	update := false
	if _, err := os.Stat(filename); err == nil {
		data, err = Load(filename)
		if err != nil {
			if !opts.IgnoreReadError {
				return report, err
			}
			slog.Info("ignoring unreadable preset file", "file", filename, "error", err)
		} else {
			update = true
		}
	}
	if len(data) == 0 {
		data = opts.BaseData
		if len(data) == 0 {
			data = NewDoc()
		}
	}

	for _, preset := range opts.StaticPresets {
		AddPreset(data, preset, Merge)
	}

	for _, kit := range toolkits {
		if !kit.InstanceSupported() {
			slog.Debug("skipping unsupported toolkit", "toolkit", kit.Name())
			AddPreset(data, kit.BaseJSON(), Keep)
			report.Skipped = append(report.Skipped, kit.Name())
			continue
		}

		preset, err := renderToolkit(ctx, kit, opts.Detailed, out)
		if err != nil {
			if !opts.SkipBad {
				return report, err
			}
			report.Failed = append(report.Failed, kit.Name())
			slog.Warn("skipping toolkit", "toolkit", kit.Name(), "error", err)
			continue
		}
		AddPreset(data, preset, Replace)
		report.Added = append(report.Added, kit.Name())
	}

	if err := Save(filename, data); err != nil {
		return report, err
	}
	if update {
		slog.Info("updated preset file", "file", filename)
	} else {
		slog.Info("wrote preset file", "file", filename)
	}
	return report, nil
}

func renderToolkit(ctx context.Context, kit toolkit.Toolkit, detailed bool, out io.Writer) (map[string]any, error) {
	if err := kit.Select(); err != nil {
		return nil, err
	}
	if kit.FoundCount() == 0 {
		return nil, utils.MakeError(toolkit.ErrToolkit, "no matches found for %s", kit.Name())
	}
	fmt.Fprintf(out, "Generating preset %s from:\n", kit.Name())
	kit.PrintResults(out, detailed)
	return toolkit.PresetJSON(ctx, kit)
}
