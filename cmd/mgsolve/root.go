package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mgsolve",
	Short: "Geometric multigrid solver for the model Poisson problem",
	Long: `mgsolve assembles a hierarchy of uniformly refined grids on the unit
interval or square, builds level matrices and transfer operators, and solves
-Δu = 1 with a multigrid V-cycle preconditioned Krylov or Richardson
iteration.

Settings come from built-in defaults, an optional YAML file (--config) and
MGSOLVE_* environment variables, in increasing precedence. Command line
flags override all of them.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(versionCmd)
}
