// Package config loads solver settings from defaults, an optional YAML file
// and MGSOLVE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/notargets/DGMultigrid/smoother"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// MGSOLVE_SMOOTHER_STEPS.
const EnvPrefix = "MGSOLVE"

var ErrInvalid = errors.New("config: invalid value")

// Config holds everything needed to assemble and run a multigrid solve.
type Config struct {
	Problem  ProblemConfig  `mapstructure:"problem"`
	Smoother SmootherConfig `mapstructure:"smoother"`
	Coarse   CoarseConfig   `mapstructure:"coarse"`
	Solver   SolverConfig   `mapstructure:"solver"`
	Log      LogConfig      `mapstructure:"log"`
	Device   DeviceConfig   `mapstructure:"device"`
}

// ProblemConfig selects the model Poisson problem and its level range.
type ProblemConfig struct {
	Dim      int `mapstructure:"dim"`
	MinLevel int `mapstructure:"min_level"`
	MaxLevel int `mapstructure:"max_level"`
}

type SmootherConfig struct {
	Type      string  `mapstructure:"type"` // jacobi, sor, ssor, ilu
	Steps     int     `mapstructure:"steps"`
	Omega     float64 `mapstructure:"omega"` // 0 selects the default for the type
	Symmetric bool    `mapstructure:"symmetric"`
	Variable  bool    `mapstructure:"variable"`
}

type CoarseConfig struct {
	Type      string  `mapstructure:"type"` // direct, iterative, identity
	Tolerance float64 `mapstructure:"tolerance"`
	MaxSteps  int     `mapstructure:"max_steps"`
}

type SolverConfig struct {
	Type         string  `mapstructure:"type"` // cg, richardson
	Tolerance    float64 `mapstructure:"tolerance"`
	RelTolerance float64 `mapstructure:"rel_tolerance"`
	MaxSteps     int     `mapstructure:"max_steps"`
	Omega        float64 `mapstructure:"omega"` // Richardson damping
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// DeviceConfig enables the OCCA Jacobi smoother in place of the host one.
type DeviceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Mode    string `mapstructure:"mode"` // empty tries OpenMP, CUDA, Serial
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Problem: ProblemConfig{Dim: 2, MinLevel: 0, MaxLevel: 4},
		Smoother: SmootherConfig{
			Type:  "ssor",
			Steps: 1,
		},
		Coarse: CoarseConfig{Type: "direct", Tolerance: 1e-12, MaxSteps: 200},
		Solver: SolverConfig{
			Type:      "cg",
			Tolerance: 1e-10,
			MaxSteps:  100,
			Omega:     1,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("problem.dim", d.Problem.Dim)
	v.SetDefault("problem.min_level", d.Problem.MinLevel)
	v.SetDefault("problem.max_level", d.Problem.MaxLevel)
	v.SetDefault("smoother.type", d.Smoother.Type)
	v.SetDefault("smoother.steps", d.Smoother.Steps)
	v.SetDefault("smoother.omega", d.Smoother.Omega)
	v.SetDefault("smoother.symmetric", d.Smoother.Symmetric)
	v.SetDefault("smoother.variable", d.Smoother.Variable)
	v.SetDefault("coarse.type", d.Coarse.Type)
	v.SetDefault("coarse.tolerance", d.Coarse.Tolerance)
	v.SetDefault("coarse.max_steps", d.Coarse.MaxSteps)
	v.SetDefault("solver.type", d.Solver.Type)
	v.SetDefault("solver.tolerance", d.Solver.Tolerance)
	v.SetDefault("solver.rel_tolerance", d.Solver.RelTolerance)
	v.SetDefault("solver.max_steps", d.Solver.MaxSteps)
	v.SetDefault("solver.omega", d.Solver.Omega)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("device.enabled", d.Device.Enabled)
	v.SetDefault("device.mode", d.Device.Mode)
}

// Load builds a Config. Precedence, highest first: MGSOLVE_* environment
// variables, the YAML file at path (skipped when path is empty), defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the solver cannot run with.
func (c *Config) Validate() error {
	p := c.Problem
	switch {
	case p.Dim != 1 && p.Dim != 2:
		return fmt.Errorf("problem.dim %d, want 1 or 2: %w", p.Dim, ErrInvalid)
	case p.MinLevel < 0 || p.MaxLevel < p.MinLevel:
		return fmt.Errorf("problem levels [%d, %d]: %w", p.MinLevel, p.MaxLevel, ErrInvalid)
	case p.Dim == 2 && p.MaxLevel > 10, p.MaxLevel > 20:
		return fmt.Errorf("problem.max_level %d too large for dim %d: %w", p.MaxLevel, p.Dim, ErrInvalid)
	}

	if _, err := smoother.ParseType(c.Smoother.Type); err != nil {
		return fmt.Errorf("smoother.type: %w", errors.Join(err, ErrInvalid))
	}
	if c.Smoother.Steps < 0 {
		return fmt.Errorf("smoother.steps %d: %w", c.Smoother.Steps, ErrInvalid)
	}
	if c.Smoother.Omega < 0 || c.Smoother.Omega >= 2 {
		return fmt.Errorf("smoother.omega %g outside [0, 2): %w", c.Smoother.Omega, ErrInvalid)
	}
	if c.Device.Enabled {
		// The device kernel is plain damped Jacobi with a fixed sweep count
		if typ, _ := smoother.ParseType(c.Smoother.Type); typ != smoother.Jacobi {
			return fmt.Errorf("device smoother supports jacobi only, got %q: %w", c.Smoother.Type, ErrInvalid)
		}
		if c.Smoother.Variable || c.Smoother.Symmetric {
			return fmt.Errorf("device smoother has no variable or symmetric sweeps: %w", ErrInvalid)
		}
	}

	switch c.Coarse.Type {
	case "direct", "identity":
	case "iterative":
		if c.Coarse.Tolerance <= 0 || c.Coarse.MaxSteps <= 0 {
			return fmt.Errorf("coarse tolerance %g, max_steps %d: %w",
				c.Coarse.Tolerance, c.Coarse.MaxSteps, ErrInvalid)
		}
	default:
		return fmt.Errorf("coarse.type %q: %w", c.Coarse.Type, ErrInvalid)
	}

	switch c.Solver.Type {
	case "cg":
	case "richardson":
		if c.Solver.Omega <= 0 {
			return fmt.Errorf("solver.omega %g: %w", c.Solver.Omega, ErrInvalid)
		}
	default:
		return fmt.Errorf("solver.type %q: %w", c.Solver.Type, ErrInvalid)
	}
	if c.Solver.MaxSteps <= 0 {
		return fmt.Errorf("solver.max_steps %d: %w", c.Solver.MaxSteps, ErrInvalid)
	}
	if c.Solver.Tolerance <= 0 && c.Solver.RelTolerance <= 0 {
		return fmt.Errorf("solver needs tolerance or rel_tolerance: %w", ErrInvalid)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", errors.Join(err, ErrInvalid))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format %q: %w", c.Log.Format, ErrInvalid)
	}
	return nil
}

// NewLogger returns a logrus logger configured by the log section.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", errors.Join(err, ErrInvalid))
	}
	logger := logrus.New()
	logger.SetLevel(level)
	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
