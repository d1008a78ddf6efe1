package smoother

import (
	"fmt"
	"strings"

	"github.com/notargets/DGMultigrid/lac"
	"github.com/notargets/DGMultigrid/multigrid"
	"gonum.org/v1/gonum/mat"
)

// Type selects the relaxation method.
type Type uint8

const (
	Jacobi Type = iota // Damped point Jacobi
	SOR                // Forward successive over-relaxation (Gauss-Seidel for omega 1)
	SSOR               // Forward sweep followed by a backward sweep
	ILU                // Incomplete LU on the matrix sparsity pattern
)

func (t Type) String() string {
	switch t {
	case Jacobi:
		return "jacobi"
	case SOR:
		return "sor"
	case SSOR:
		return "ssor"
	case ILU:
		return "ilu"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType maps a configuration name to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "jacobi":
		return Jacobi, nil
	case "sor", "gauss-seidel", "gs":
		return SOR, nil
	case "ssor":
		return SSOR, nil
	case "ilu", "ilu0":
		return ILU, nil
	}
	return 0, fmt.Errorf("smoother %q: %w", name, lac.ErrUnknownType)
}

// Config holds the relaxation parameters.
type Config struct {
	Type      Type
	Omega     float64 // Relaxation factor, 0 selects the default for Type
	Steps     int     // Sweeps on the finest level
	Variable  bool    // Double the number of sweeps on each coarser level
	Symmetric bool    // For SOR, alternate forward and backward sweeps
	Reverse   bool    // Apply the adjoint sweep sequence, for use as post-smoother
}

// Relaxation is a point relaxation smoother over one sparse matrix per level.
type Relaxation struct {
	Config
	matrices *multigrid.LevelObject[*lac.SparseMatrix]
	invDiag  *multigrid.LevelObject[[]float64]
	scratch  *multigrid.LevelObject[[]float64]
	ilu      *multigrid.LevelObject[*iluFactor]
}

var _ multigrid.Smoother = &Relaxation{}

// NewRelaxation checks the diagonals of every level matrix and stores their
// inverses.
func NewRelaxation(matrices *multigrid.LevelObject[*lac.SparseMatrix], cfg Config) (r *Relaxation, err error) {
	if cfg.Steps < 0 {
		return nil, fmt.Errorf("smoother steps %d: %w", cfg.Steps, lac.ErrLevelRange)
	}
	if cfg.Omega == 0 {
		cfg.Omega = 1
		if cfg.Type == Jacobi {
			cfg.Omega = 2.0 / 3
		}
	}
	r = &Relaxation{
		Config:   cfg,
		matrices: matrices,
	}
	lo, hi := matrices.MinLevel(), matrices.MaxLevel()
	if r.invDiag, err = multigrid.NewLevelObject[[]float64](lo, hi, nil); err != nil {
		return nil, err
	}
	if r.scratch, err = multigrid.NewLevelObject[[]float64](lo, hi, nil); err != nil {
		return nil, err
	}
	if cfg.Type == ILU {
		if r.ilu, err = multigrid.NewLevelObject[*iluFactor](lo, hi, nil); err != nil {
			return nil, err
		}
	}
	for level := lo; level <= hi; level++ {
		A := matrices.At(level)
		if A == nil {
			return nil, fmt.Errorf("smoother matrix on level %d: %w", level, lac.ErrNilOperator)
		}
		diag := A.Diagonal()
		for i, d := range diag {
			if d == 0 {
				return nil, fmt.Errorf("smoother level %d row %d: zero diagonal: %w", level, i, lac.ErrSingular)
			}
			diag[i] = 1 / d
		}
		r.invDiag.Set(level, diag)
		r.scratch.Set(level, make([]float64, len(diag)))
		if r.ilu != nil {
			f, err := factorILU(A)
			if err != nil {
				return nil, fmt.Errorf("smoother level %d: %w", level, err)
			}
			r.ilu.Set(level, f)
		}
	}
	return
}

// StepsOn returns the number of sweeps performed on level.
func (r *Relaxation) StepsOn(level int) int {
	if !r.Variable {
		return r.Steps
	}
	return r.Steps << uint(r.matrices.MaxLevel()-level)
}

// Smooth relaxes A u = rhs on level in place.
func (r *Relaxation) Smooth(level int, u, rhs *mat.VecDense) error {
	if !r.matrices.Contains(level) {
		return fmt.Errorf("smooth on level %d: %w", level, lac.ErrLevelRange)
	}
	A := r.matrices.At(level)
	n, _ := A.Dims()
	if lac.Len(u) != n || lac.Len(rhs) != n {
		return fmt.Errorf("smooth on level %d: u %d rhs %d for %d rows: %w",
			level, lac.Len(u), lac.Len(rhs), n, lac.ErrDimensionMismatch)
	}
	var (
		x    = lac.Raw(u)
		b    = lac.Raw(rhs)
		dinv = r.invDiag.At(level)
	)
	steps := r.StepsOn(level)
	for step := 0; step < steps; step++ {
		switch r.Type {
		case Jacobi:
			r.jacobi(A, dinv, r.scratch.At(level), x, b)
		case SOR:
			r.sweep(A, dinv, x, b, r.forward(step, steps))
		case ILU:
			r.iluStep(A, r.ilu.At(level), r.scratch.At(level), x, b)
		case SSOR:
			r.sweep(A, dinv, x, b, true)
			r.sweep(A, dinv, x, b, false)
		default:
			return fmt.Errorf("smoother %v: %w", r.Type, lac.ErrUnknownType)
		}
	}
	return nil
}

// forward reports the SOR sweep direction of step. The reversed sequence
// runs the flipped directions in opposite order, which makes it the adjoint
// of the plain one in the A inner product.
func (r *Relaxation) forward(step, steps int) bool {
	if r.Reverse {
		step = steps - 1 - step
	}
	fwd := !r.Symmetric || step%2 == 0
	return fwd != r.Reverse
}

// iluStep performs x += omega M⁻¹ (b - A x) with M the incomplete factors.
func (r *Relaxation) iluStep(A *lac.SparseMatrix, f *iluFactor, res, x, b []float64) {
	for i := range res {
		sum := b[i]
		for k := A.RowPtr[i]; k < A.RowPtr[i+1]; k++ {
			sum -= A.Values[k] * x[A.ColIdx[k]]
		}
		res[i] = sum
	}
	f.solve(res)
	for i := range x {
		x[i] += r.Omega * res[i]
	}
}

// jacobi performs x += omega D⁻¹ (b - A x).
func (r *Relaxation) jacobi(A *lac.SparseMatrix, dinv, res, x, b []float64) {
	for i := range res {
		sum := b[i]
		for k := A.RowPtr[i]; k < A.RowPtr[i+1]; k++ {
			sum -= A.Values[k] * x[A.ColIdx[k]]
		}
		res[i] = sum
	}
	for i := range x {
		x[i] += r.Omega * dinv[i] * res[i]
	}
}

// sweep performs one SOR sweep, using updated values as soon as they exist.
func (r *Relaxation) sweep(A *lac.SparseMatrix, dinv, x, b []float64, forward bool) {
	n := len(x)
	for ii := 0; ii < n; ii++ {
		i := ii
		if !forward {
			i = n - 1 - ii
		}
		sum := b[i]
		for k := A.RowPtr[i]; k < A.RowPtr[i+1]; k++ {
			sum -= A.Values[k] * x[A.ColIdx[k]]
		}
		x[i] += r.Omega * dinv[i] * sum
	}
}
