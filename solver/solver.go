package solver

import (
	"fmt"

	"github.com/notargets/DGMultigrid/lac"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Operator is a linear map on global vectors.
type Operator interface {
	Vmult(dst, src *mat.VecDense) error
}

// Preconditioner approximates the inverse of an Operator.
type Preconditioner interface {
	Vmult(dst, src *mat.VecDense) error
}

// IdentityPreconditioner copies its input.
type IdentityPreconditioner struct{}

func (IdentityPreconditioner) Vmult(dst, src *mat.VecDense) error {
	lac.ReinitLike(dst, src)
	if lac.Len(src) > 0 {
		dst.CopyVec(src)
	}
	return nil
}

// Solver runs iterative methods under a Control.
type Solver struct {
	Control
	log *logrus.Entry
}

// Option configures a Solver.
type Option func(s *Solver)

// WithLogger sets the logger used for per-step and summary output.
func WithLogger(entry *logrus.Entry) Option {
	return func(s *Solver) { s.log = entry }
}

// New creates a Solver.
func New(control Control, opts ...Option) (s *Solver) {
	s = &Solver{
		Control: control,
		log:     logrus.NewEntry(logrus.StandardLogger()).WithField("component", "solver"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return
}

func (s *Solver) record(res *Result, method string, step int, residual float64) State {
	if step == 0 {
		res.Initial = residual
	}
	res.Steps = step
	res.Residual = residual
	if s.LogHistory {
		res.History = append(res.History, residual)
	}
	s.log.WithFields(logrus.Fields{"method": method, "step": step, "residual": residual}).Debug("iteration")
	return s.Check(step, residual, res.Initial)
}

func (s *Solver) finish(res Result, method string, state State) (Result, error) {
	fields := logrus.Fields{"method": method, "steps": res.Steps, "residual": res.Residual}
	if state != Success {
		s.log.WithFields(fields).Warn("no convergence")
		return res, fmt.Errorf("%s after %d steps, residual %.3e: %w",
			method, res.Steps, res.Residual, lac.ErrNotConverged)
	}
	s.log.WithFields(fields).Info("converged")
	return res, nil
}

func checkSizes(x, b *mat.VecDense) error {
	if lac.Len(x) != lac.Len(b) || lac.Len(b) == 0 {
		return fmt.Errorf("solution %d, rhs %d: %w", lac.Len(x), lac.Len(b), lac.ErrDimensionMismatch)
	}
	return nil
}

// CG solves A x = b for symmetric positive definite A by preconditioned
// conjugate gradients, starting from the given x. A nil prec means no
// preconditioning.
func (s *Solver) CG(A Operator, x, b *mat.VecDense, prec Preconditioner) (res Result, err error) {
	const method = "cg"
	if err = checkSizes(x, b); err != nil {
		return
	}
	if prec == nil {
		prec = IdentityPreconditioner{}
	}
	var (
		n          = lac.Len(b)
		r, z, p, q mat.VecDense
	)
	// r = b - A x
	if err = A.Vmult(&r, x); err != nil {
		return
	}
	if lac.Len(&r) != n {
		return res, fmt.Errorf("%s operator maps %d to %d: %w", method, n, lac.Len(&r), lac.ErrDimensionMismatch)
	}
	r.SubVec(b, &r)
	rr := lac.Raw(&r)

	state := s.record(&res, method, 0, floats.Norm(rr, 2))
	if state != Iterate {
		return s.finish(res, method, state)
	}
	if err = prec.Vmult(&z, &r); err != nil {
		return
	}
	lac.Reinit(&p, n)
	p.CopyVec(&z)
	rz := floats.Dot(rr, lac.Raw(&z))

	for step := 1; ; step++ {
		if err = A.Vmult(&q, &p); err != nil {
			return
		}
		pq := floats.Dot(lac.Raw(&p), lac.Raw(&q))
		if pq <= 0 {
			s.log.WithField("step", step).Warn("cg breakdown, operator not positive definite")
			return s.finish(res, method, Failure)
		}
		alpha := rz / pq
		floats.AddScaled(lac.Raw(x), alpha, lac.Raw(&p))
		floats.AddScaled(rr, -alpha, lac.Raw(&q))

		if state = s.record(&res, method, step, floats.Norm(rr, 2)); state != Iterate {
			return s.finish(res, method, state)
		}

		if err = prec.Vmult(&z, &r); err != nil {
			return
		}
		rzNew := floats.Dot(rr, lac.Raw(&z))
		beta := rzNew / rz
		rz = rzNew
		// p = z + beta p
		p.AddScaledVec(&z, beta, &p)
	}
}

// Richardson solves A x = b with the damped preconditioned iteration
// x += omega P (b - A x).
func (s *Solver) Richardson(A Operator, x, b *mat.VecDense, prec Preconditioner, omega float64) (res Result, err error) {
	const method = "richardson"
	if err = checkSizes(x, b); err != nil {
		return
	}
	if prec == nil {
		prec = IdentityPreconditioner{}
	}
	var r, z mat.VecDense
	for step := 0; ; step++ {
		if err = A.Vmult(&r, x); err != nil {
			return
		}
		r.SubVec(b, &r)
		if state := s.record(&res, method, step, lac.Norm2(&r)); state != Iterate {
			return s.finish(res, method, state)
		}
		if err = prec.Vmult(&z, &r); err != nil {
			return
		}
		floats.AddScaled(lac.Raw(x), omega, lac.Raw(&z))
	}
}
