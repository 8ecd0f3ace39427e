package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	outDir  string
)

var rootCmd = &cobra.Command{
	Use:   "taxisim",
	Short: "Grid taxi dispatch simulator",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVarP(&outDir, "out", "o", "results", "directory for batch result files")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }
