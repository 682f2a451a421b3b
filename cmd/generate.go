package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/herring-swe/cmake-presets/pkg/presets"
)

var (
	generateOutput     string
	generateKits       []string
	generateSkipBad    bool
	generateDetailed   bool
	generateIgnoreRead bool
	generateExtra      string
	generateTimeout    time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write configure presets for the selected toolkits",
	Long: `Scans the machine for the requested toolkits, selects the best match for
each and writes them as hidden configure presets. An existing preset file is
updated in place: only the generated presets are replaced, everything else
(including presets written by hand) is preserved.

A kit is a family key or a chain of keys joined with "+", where later
members run their environment setup on top of the earlier ones:

  cmake-presets generate --kit gcc --gcc-ver 12
  cmake-presets generate --kit msvc+oneapi --msvc-tools v143`,
	RunE: runGenerate,
}

func init() {
	RootCmd.AddCommand(generateCmd)
	addToolkitFlags(generateCmd)
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "CMakeUserPresets.json", "preset file to write or update")
	generateCmd.Flags().StringArrayVar(&generateKits, "kit", nil, "kit expression to generate (repeatable; default per platform)")
	generateCmd.Flags().BoolVar(&generateSkipBad, "skip-bad", false, "skip toolkits that fail instead of aborting")
	generateCmd.Flags().BoolVar(&generateDetailed, "detailed", false, "print full toolkit information")
	generateCmd.Flags().BoolVar(&generateIgnoreRead, "ignore-read-error", false, "overwrite an existing file that cannot be parsed")
	generateCmd.Flags().StringVar(&generateExtra, "extra-presets", "", "YAML or JSON file with additional presets to merge")
	generateCmd.Flags().DurationVar(&generateTimeout, "timeout", 2*time.Minute, "time budget for each environment script")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	kits, err := makeKits(generateKits)
	if err != nil {
		return err
	}

	var static []map[string]any
	if generateExtra != "" {
		static, err = loadExtraPresets(generateExtra)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), generateTimeout)
	defer cancel()

	report, err := presets.GenerateFile(ctx, generateOutput, kits, presets.Options{
		StaticPresets:   static,
		IgnoreReadError: generateIgnoreRead,
		SkipBad:         generateSkipBad,
		Detailed:        generateDetailed,
		Out:             os.Stdout,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%d preset(s) written to %s\n", len(report.Added), generateOutput)
	if len(report.Skipped) > 0 {
		fmt.Printf("%d preset(s) kept as placeholders (unsupported here): %v\n", len(report.Skipped), report.Skipped)
	}
	if len(report.Failed) > 0 {
		fmt.Printf("%d toolkit(s) failed: %v\n", len(report.Failed), report.Failed)
	}
	return nil
}

// loadExtraPresets reads additional presets from a YAML or JSON file.
// The file may hold a bare list of presets or a full document with a
// configurePresets section.
func loadExtraPresets(filename string) ([]map[string]any, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var list []map[string]any
	if err := yaml.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var doc struct {
		ConfigurePresets []map[string]any `yaml:"configurePresets" json:"configurePresets"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", filename, err)
	}
	return doc.ConfigurePresets, nil
}
