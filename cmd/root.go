package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
	noColor bool
	logFile string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "cmake-presets",
	Short: "Generate CMake configure presets from installed toolchains",
	Long: `cmake-presets discovers compiler toolchains installed on this machine
(GCC, Visual Studio, Intel oneAPI, or custom environment scripts) and writes
them as configure presets into a CMakeUserPresets.json, ready to be inherited
by your project presets.

Version arguments accept a small specification language:

  1.2.3        exactly that version (missing components compare as zero)
  >=1.2        at least 1.2
  <2           below 2
  >=1.2,<2.0   both bounds must hold
  range2.5     shorthand for >=2.5,<2.6

Versions have one to four numeric components. Operators may be spelled
symbolically (<, <=, =, >=, >) or textually (lt, lte, eq, gte, gt).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cmake-presets.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	RootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print warnings and errors")
	RootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	RootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write a JSON debug log to this file")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".cmake-presets" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".cmake-presets")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
