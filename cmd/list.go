package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/herring-swe/cmake-presets/pkg/toolkit"
)

var (
	colorSupported   = color.New(color.FgGreen)
	colorUnsupported = color.New(color.FgHiBlack)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the known toolchain families",
	Run: func(cmd *cobra.Command, args []string) {
		for _, family := range toolkit.Families() {
			status := colorUnsupported.Sprint("unsupported")
			if family.Supported() {
				status = colorSupported.Sprint("supported")
			}
			fmt.Printf("%-8s %-20s %s (%s)\n", family.Key, family.DisplayName,
				status, strings.Join(family.Platforms, ", "))
		}
	},
}

func init() {
	RootCmd.AddCommand(listCmd)
}
