// Package poisson assembles a multigrid preconditioned solve of -Δu = f on
// the unit interval or square from a Config.
package poisson

import (
	"fmt"

	"github.com/notargets/DGMultigrid/coarse"
	"github.com/notargets/DGMultigrid/config"
	"github.com/notargets/DGMultigrid/device"
	"github.com/notargets/DGMultigrid/hierarchy"
	"github.com/notargets/DGMultigrid/lac"
	"github.com/notargets/DGMultigrid/multigrid"
	"github.com/notargets/DGMultigrid/smoother"
	"github.com/notargets/DGMultigrid/solver"
	"github.com/notargets/DGMultigrid/transfer"
	"github.com/notargets/gocca"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

type Problem struct {
	Config    *config.Config
	Hierarchy *hierarchy.Uniform
	Transfer  *transfer.Prebuilt
	Matrices  *multigrid.LevelObject[*lac.SparseMatrix]
	MG        *multigrid.Multigrid
	Prec      *multigrid.PreconditionMG
	RHS       *mat.VecDense
	Solution  *mat.VecDense

	log    *logrus.Logger
	dev    *gocca.OCCADevice
	jacobi *device.Jacobi
}

// New builds the hierarchy, transfer, smoothers and coarse solver, and
// wires them into a multigrid preconditioner. The right hand side is f = 1.
func New(cfg *config.Config, log *logrus.Logger) (p *Problem, err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	pc := cfg.Problem
	p = &Problem{Config: cfg, log: log}

	if p.Hierarchy, err = hierarchy.NewUniform(pc.Dim, pc.MinLevel, pc.MaxLevel); err != nil {
		return nil, err
	}
	if p.Transfer, err = transfer.Build(p.Hierarchy); err != nil {
		return nil, err
	}
	if p.Matrices, err = multigrid.NewLevelObject(pc.MinLevel, pc.MaxLevel, p.Hierarchy.LevelMatrix); err != nil {
		return nil, err
	}

	var pre, post multigrid.Smoother
	if pre, post, err = p.smoothers(); err != nil {
		p.Free()
		return nil, err
	}
	var crs multigrid.Coarse
	if crs, err = p.coarse(); err != nil {
		p.Free()
		return nil, err
	}

	p.MG, err = multigrid.New(pc.MinLevel, pc.MaxLevel, multigrid.NewLevelMatrix(p.Matrices),
		crs, p.Transfer, pre, post, multigrid.WithLogger(log.WithField("component", "multigrid")))
	if err != nil {
		p.Free()
		return nil, err
	}
	p.Prec = multigrid.NewPreconditionMG(p.MG, p.Transfer)
	p.RHS = p.Hierarchy.RHS(func([]float64) float64 { return 1 })
	p.Solution = mat.NewVecDense(p.Hierarchy.NGlobalDofs(), nil)

	log.WithFields(logrus.Fields{
		"dim":      pc.Dim,
		"levels":   fmt.Sprintf("%d-%d", pc.MinLevel, pc.MaxLevel),
		"dofs":     p.Hierarchy.NGlobalDofs(),
		"smoother": cfg.Smoother.Type,
		"coarse":   cfg.Coarse.Type,
		"device":   p.dev != nil,
	}).Info("assembled multigrid")
	return
}

// smoothers returns the pre- and post-smoother. The post-smoother runs the
// adjoint sweep sequence so the V-cycle stays symmetric for CG.
func (p *Problem) smoothers() (pre, post multigrid.Smoother, err error) {
	sc := p.Config.Smoother
	if p.Config.Device.Enabled {
		var modes []string
		if p.Config.Device.Mode != "" {
			modes = append(modes, p.Config.Device.Mode)
		}
		if p.dev, err = device.NewDevice(modes...); err != nil {
			return
		}
		if p.jacobi, err = device.NewJacobi(p.dev, p.Matrices, sc.Omega, sc.Steps); err != nil {
			return
		}
		return p.jacobi, p.jacobi, nil
	}
	typ, err := smoother.ParseType(sc.Type)
	if err != nil {
		return
	}
	cfg := smoother.Config{
		Type:      typ,
		Omega:     sc.Omega,
		Steps:     sc.Steps,
		Variable:  sc.Variable,
		Symmetric: sc.Symmetric,
	}
	if pre, err = smoother.NewRelaxation(p.Matrices, cfg); err != nil {
		return nil, nil, err
	}
	cfg.Reverse = true
	if post, err = smoother.NewRelaxation(p.Matrices, cfg); err != nil {
		return nil, nil, err
	}
	return
}

func (p *Problem) coarse() (multigrid.Coarse, error) {
	cc := p.Config.Coarse
	A := p.Matrices.At(p.Matrices.MinLevel())
	switch cc.Type {
	case "direct":
		return coarse.NewDirect(A)
	case "iterative":
		return coarse.NewIterative(A, solver.Control{MaxSteps: cc.MaxSteps, Tolerance: cc.Tolerance}, nil,
			solver.WithLogger(p.log.WithField("component", "coarse")))
	case "identity":
		return coarse.Identity{}, nil
	}
	return nil, fmt.Errorf("coarse type %q: %w", cc.Type, lac.ErrUnknownType)
}

// Solve runs the outer iteration from a zero initial guess.
func (p *Problem) Solve() (res solver.Result, err error) {
	sc := p.Config.Solver
	s := solver.New(solver.Control{
		MaxSteps:     sc.MaxSteps,
		Tolerance:    sc.Tolerance,
		RelTolerance: sc.RelTolerance,
		LogHistory:   true,
	}, solver.WithLogger(p.log.WithField("component", "solver")))

	p.Solution.Zero()
	A := p.Matrices.At(p.Matrices.MaxLevel())
	switch sc.Type {
	case "cg":
		return s.CG(A, p.Solution, p.RHS, p.Prec)
	case "richardson":
		return s.Richardson(A, p.Solution, p.RHS, p.Prec, sc.Omega)
	}
	return res, fmt.Errorf("solver type %q: %w", sc.Type, lac.ErrUnknownType)
}

// Free releases device resources, if any.
func (p *Problem) Free() {
	if p.jacobi != nil {
		p.jacobi.Free()
		p.jacobi = nil
	}
	if p.dev != nil {
		p.dev.Free()
		p.dev = nil
	}
}
