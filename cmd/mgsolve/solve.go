package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/notargets/DGMultigrid/config"
	"github.com/notargets/DGMultigrid/history"
	"github.com/notargets/DGMultigrid/poisson"
	"github.com/notargets/DGMultigrid/solver"
	"github.com/spf13/cobra"
)

var (
	solveDim      int
	solveMinLevel int
	solveMaxLevel int
	solveSmoother string
	solveSteps    int
	solveCoarse   string
	solveSolver   string
	solveTol      float64
	solveDevice   bool
	solveLogLevel string
	solvePlot     string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve the model problem and report convergence",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)
		if err = cfg.Validate(); err != nil {
			return err
		}
		logger, err := cfg.NewLogger()
		if err != nil {
			return err
		}
		logger.SetOutput(cmd.ErrOrStderr())

		p, err := poisson.New(cfg, logger)
		if err != nil {
			return err
		}
		defer p.Free()

		res, solveErr := p.Solve()
		printSummary(cmd.OutOrStdout(), cfg, p.Hierarchy.NGlobalDofs(), res, solveErr)

		if solvePlot != "" && len(res.History) > 0 {
			title := fmt.Sprintf("%s, %dD, levels %d-%d", cfg.Solver.Type, cfg.Problem.Dim,
				cfg.Problem.MinLevel, cfg.Problem.MaxLevel)
			if err = history.Save(res, title, solvePlot); err != nil {
				return err
			}
		}
		return solveErr
	},
}

func init() {
	f := solveCmd.Flags()
	f.IntVar(&solveDim, "dim", 2, "Space dimension, 1 or 2")
	f.IntVar(&solveMinLevel, "min-level", 0, "Coarsest level")
	f.IntVar(&solveMaxLevel, "levels", 4, "Finest level")
	f.StringVar(&solveSmoother, "smoother", "ssor", "Smoother: jacobi, sor, ssor, ilu")
	f.IntVar(&solveSteps, "steps", 1, "Smoothing steps per level")
	f.StringVar(&solveCoarse, "coarse", "direct", "Coarse solver: direct, iterative, identity")
	f.StringVar(&solveSolver, "solver", "cg", "Outer solver: cg, richardson")
	f.Float64Var(&solveTol, "tol", 1e-10, "Absolute residual tolerance")
	f.BoolVar(&solveDevice, "device", false, "Smooth with the OCCA Jacobi kernel")
	f.StringVar(&solveLogLevel, "log-level", "info", "Log level")
	f.StringVar(&solvePlot, "plot", "", "Save the residual history to this image file")
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("dim") {
		cfg.Problem.Dim = solveDim
	}
	if f.Changed("min-level") {
		cfg.Problem.MinLevel = solveMinLevel
	}
	if f.Changed("levels") {
		cfg.Problem.MaxLevel = solveMaxLevel
	}
	if f.Changed("smoother") {
		cfg.Smoother.Type = solveSmoother
	}
	if f.Changed("steps") {
		cfg.Smoother.Steps = solveSteps
	}
	if f.Changed("coarse") {
		cfg.Coarse.Type = solveCoarse
	}
	if f.Changed("solver") {
		cfg.Solver.Type = solveSolver
	}
	if f.Changed("tol") {
		cfg.Solver.Tolerance = solveTol
	}
	if f.Changed("device") {
		cfg.Device.Enabled = solveDevice
	}
	if f.Changed("log-level") {
		cfg.Log.Level = solveLogLevel
	}
}

func printSummary(w io.Writer, cfg *config.Config, dofs int, res solver.Result, err error) {
	status := color.GreenString("converged")
	if err != nil {
		status = color.RedString("failed")
	}
	fmt.Fprintf(w, "%s %s: %dD, levels %d-%d, %d dofs, %s/%s\n",
		status, cfg.Solver.Type, cfg.Problem.Dim, cfg.Problem.MinLevel, cfg.Problem.MaxLevel,
		dofs, cfg.Smoother.Type, cfg.Coarse.Type)
	fmt.Fprintf(w, "  steps %s  residual %s  reduction/step %.3f\n",
		color.CyanString("%d", res.Steps), color.CyanString("%.3e", res.Residual), res.Reduction())
}
