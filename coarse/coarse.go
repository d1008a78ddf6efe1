package coarse

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/DGMultigrid/lac"
	"github.com/notargets/DGMultigrid/solver"
	"gonum.org/v1/gonum/mat"
)

// Direct solves the coarse system with an LU factorization computed once.
type Direct struct {
	lu mat.LU
	n  int
}

// NewDirect factorizes A. A singular matrix is rejected.
func NewDirect(A *lac.SparseMatrix) (d *Direct, err error) {
	r, c := A.Dims()
	if r != c {
		return nil, fmt.Errorf("coarse matrix %dx%d: %w", r, c, lac.ErrDimensionMismatch)
	}
	d = &Direct{n: r}
	if r == 0 {
		return
	}
	d.lu.Factorize(A.Dense())
	if math.IsInf(d.lu.Cond(), 1) {
		return nil, fmt.Errorf("coarse matrix %dx%d: %w", r, c, lac.ErrSingular)
	}
	return
}

func (d *Direct) Solve(level int, dst, src *mat.VecDense) error {
	if lac.Len(src) != d.n {
		return fmt.Errorf("coarse level %d: defect %d, matrix %d: %w",
			level, lac.Len(src), d.n, lac.ErrDimensionMismatch)
	}
	lac.Reinit(dst, d.n)
	if d.n == 0 {
		return nil
	}
	if err := d.lu.SolveVecTo(dst, false, src); err != nil {
		// Condition errors still carry a usable solution
		if !errors.As(err, new(mat.Condition)) {
			return fmt.Errorf("coarse level %d: %w", level, err)
		}
	}
	return nil
}

// Iterative solves the coarse system with conjugate gradients to its own
// tolerance, starting from zero.
type Iterative struct {
	A    *lac.SparseMatrix
	Prec solver.Preconditioner
	s    *solver.Solver
}

// NewIterative creates a CG coarse solver. A nil prec runs unpreconditioned.
func NewIterative(A *lac.SparseMatrix, control solver.Control, prec solver.Preconditioner,
	opts ...solver.Option) (it *Iterative, err error) {
	if A == nil {
		return nil, fmt.Errorf("coarse matrix: %w", lac.ErrNilOperator)
	}
	it = &Iterative{
		A:    A,
		Prec: prec,
		s:    solver.New(control, opts...),
	}
	return
}

func (it *Iterative) Solve(level int, dst, src *mat.VecDense) error {
	_, n := it.A.Dims()
	if lac.Len(src) != n {
		return fmt.Errorf("coarse level %d: defect %d, matrix %d: %w",
			level, lac.Len(src), n, lac.ErrDimensionMismatch)
	}
	lac.Reinit(dst, n)
	if n == 0 {
		return nil
	}
	if _, err := it.s.CG(it.A, dst, src, it.Prec); err != nil {
		return fmt.Errorf("coarse level %d: %w", level, err)
	}
	return nil
}

// Identity copies the defect into the solution.
type Identity struct{}

func (Identity) Solve(level int, dst, src *mat.VecDense) error {
	lac.ReinitLike(dst, src)
	if lac.Len(src) > 0 {
		dst.CopyVec(src)
	}
	return nil
}
