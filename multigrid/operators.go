package multigrid

import (
	"gonum.org/v1/gonum/mat"
)

// Matrix is a level-indexed linear operator. Vmult overwrites dst with A·src,
// Tvmult overwrites dst with Aᵀ·src; both may resize dst.
type Matrix interface {
	Vmult(level int, dst, src *mat.VecDense) error
	Tvmult(level int, dst, src *mat.VecDense) error
}

// Transfer moves vectors between adjacent levels. The level argument is
// always the finer of the two.
//
// Prolongate overwrites dst (on level) with the interpolation of src (on
// level-1). RestrictAndAdd adds the restriction of src (on level) to dst (on
// level-1).
type Transfer interface {
	Prolongate(level int, dst, src *mat.VecDense) error
	RestrictAndAdd(level int, dst, src *mat.VecDense) error
}

// LevelTransfer is a Transfer that can also move data between a global
// vector and the level vectors.
type LevelTransfer interface {
	Transfer
	CopyToMG(dst *LevelObject[*mat.VecDense], src *mat.VecDense) error
	CopyFromMG(dst *mat.VecDense, src *LevelObject[*mat.VecDense]) error
}

// Smoother updates u in place towards the solution of A u = rhs on level.
type Smoother interface {
	Smooth(level int, u, rhs *mat.VecDense) error
}

// Coarse solves the system on the coarsest level, writing into dst.
type Coarse interface {
	Solve(level int, dst, src *mat.VecDense) error
}

// CoarseFunc adapts a plain function to the Coarse interface.
type CoarseFunc func(level int, dst, src *mat.VecDense) error

func (f CoarseFunc) Solve(level int, dst, src *mat.VecDense) error {
	return f(level, dst, src)
}

// SmootherIdentity leaves the solution untouched.
type SmootherIdentity struct{}

func (SmootherIdentity) Smooth(int, *mat.VecDense, *mat.VecDense) error { return nil }
