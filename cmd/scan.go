package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	scanKits     []string
	scanDetailed bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the toolchain installations matching the configured filters",
	Long: `Scans the machine for the requested toolkits and prints every
installation that passes the version and capability filters, best match
first. Nothing is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(false)
	},
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Show the installation each toolkit would use",
	Long: `Like scan, but narrows each toolkit down to the single installation a
generate run would put into the preset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(true)
	},
}

func init() {
	RootCmd.AddCommand(scanCmd, selectCmd)
	for _, cmd := range []*cobra.Command{scanCmd, selectCmd} {
		addToolkitFlags(cmd)
		cmd.Flags().StringArrayVar(&scanKits, "kit", nil, "kit expression to inspect (repeatable; default per platform)")
		cmd.Flags().BoolVar(&scanDetailed, "detailed", false, "print full toolkit information")
	}
}

func runScan(narrow bool) error {
	kits, err := makeKits(scanKits)
	if err != nil {
		return err
	}

	for _, kit := range kits {
		if !kit.InstanceSupported() {
			fmt.Printf("%s (%s): not supported here\n", kit.Name(), kit.Family())
			continue
		}

		if narrow {
			err = kit.Select()
		} else {
			_, err = kit.Filter()
		}
		if err != nil {
			return err
		}

		if kit.FoundCount() == 0 {
			fmt.Printf("%s (%s): no matches\n", kit.Name(), kit.Family())
			continue
		}
		fmt.Printf("%s (%s):\n", kit.Name(), kit.Family())
		kit.PrintResults(os.Stdout, scanDetailed)
	}
	return nil
}
