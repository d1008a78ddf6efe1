package solver

import (
	"math"
)

// State is the outcome of a convergence check.
type State uint8

const (
	Iterate State = iota // Keep going
	Success              // Tolerance reached
	Failure              // Step limit reached or the residual is not finite
)

func (s State) String() string {
	return [...]string{"iterate", "success", "failure"}[s]
}

// Control decides when an iteration stops.
type Control struct {
	MaxSteps     int
	Tolerance    float64 // Absolute residual tolerance
	RelTolerance float64 // Tolerance relative to the initial residual, 0 disables
	LogHistory   bool    // Keep every residual in Result.History
}

// DefaultControl returns the settings used when none are given.
func DefaultControl() Control {
	return Control{
		MaxSteps:  100,
		Tolerance: 1e-10,
	}
}

// Check classifies the residual after step iterations.
func (c Control) Check(step int, residual, initial float64) State {
	switch {
	case math.IsNaN(residual) || math.IsInf(residual, 0):
		return Failure
	case residual <= c.Tolerance:
		return Success
	case c.RelTolerance > 0 && residual <= c.RelTolerance*initial:
		return Success
	case step >= c.MaxSteps:
		return Failure
	}
	return Iterate
}

// Result reports how an iteration ended.
type Result struct {
	Steps    int
	Initial  float64   // Residual norm before the first step
	Residual float64   // Final residual norm
	History  []float64 // Residual per step, starting with Initial, when LogHistory is set
}

// Reduction returns the average residual reduction per step.
func (r Result) Reduction() float64 {
	if r.Steps == 0 || r.Initial == 0 {
		return 0
	}
	return math.Pow(r.Residual/r.Initial, 1/float64(r.Steps))
}
