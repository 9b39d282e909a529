// Package cmd implements the mcsas3 CLI surface: run and analyze.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mcsas3",
	Short: "Monte Carlo fitting engine for small-angle scattering data",
	Long: `mcsas3 fits a Monte Carlo ensemble of scatterer contributions against
measured small-angle scattering data, and aggregates the resulting
histograms across repetitions.`,
}

// Execute adds all child commands to the root command and runs it. Called
// by main.main(); it only needs to happen once.
func Execute() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
