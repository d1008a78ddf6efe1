package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/notargets/DGMultigrid/lac"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func laplace(t *testing.T, n int) *lac.SparseMatrix {
	var entries []lac.Triplet
	for i := 0; i < n; i++ {
		entries = append(entries, lac.Triplet{Row: i, Col: i, Value: 2})
		if i > 0 {
			entries = append(entries, lac.Triplet{Row: i, Col: i - 1, Value: -1})
		}
		if i < n-1 {
			entries = append(entries, lac.Triplet{Row: i, Col: i + 1, Value: -1})
		}
	}
	A, err := lac.FromTriplets(n, n, entries)
	require.NoError(t, err)
	return A
}

func quiet(control Control) (*Solver, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(control, WithLogger(logrus.NewEntry(logger))), hook
}

// scaledInverse applies dst = src / d.
type scaledInverse struct{ d float64 }

func (p scaledInverse) Vmult(dst, src *mat.VecDense) error {
	lac.ReinitLike(dst, src)
	dst.ScaleVec(1/p.d, src)
	return nil
}

func TestControl_Check(t *testing.T) {
	c := Control{MaxSteps: 10, Tolerance: 1e-8, RelTolerance: 1e-3}
	assert.Equal(t, Success, c.Check(3, 1e-9, 1))
	assert.Equal(t, Success, c.Check(3, 1e-4, 1))
	assert.Equal(t, Iterate, c.Check(3, 1e-2, 1))
	assert.Equal(t, Failure, c.Check(10, 1e-2, 1))
	assert.Equal(t, Failure, c.Check(1, math.NaN(), 1))
	assert.Equal(t, Failure, c.Check(1, math.Inf(1), 1))
	assert.Equal(t, "success", Success.String())

	c.RelTolerance = 0
	assert.Equal(t, Iterate, c.Check(3, 1e-4, 1))
}

func TestCG_Laplace(t *testing.T) {
	n := 10
	A := laplace(t, n)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, float64(i+1))
	}
	for _, prec := range []Preconditioner{nil, IdentityPreconditioner{}, scaledInverse{2}} {
		s, hook := quiet(Control{MaxSteps: 50, Tolerance: 1e-10, LogHistory: true})
		x := mat.NewVecDense(n, nil)
		res, err := s.CG(A, x, b, prec)
		require.NoError(t, err)
		// Exact arithmetic finishes in at most n steps
		assert.LessOrEqual(t, res.Steps, n+1)
		assert.Len(t, res.History, res.Steps+1)
		assert.InDelta(t, lac.Norm2(b), res.Initial, 1e-12)

		var r mat.VecDense
		norm, err := A.Residual(&r, x, b)
		require.NoError(t, err)
		assert.Less(t, norm, 1e-8)
		assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
		assert.Equal(t, "converged", hook.LastEntry().Message)
	}
}

func TestCG_ZeroRHS(t *testing.T) {
	s, _ := quiet(DefaultControl())
	x := mat.NewVecDense(4, nil)
	res, err := s.CG(laplace(t, 4), x, mat.NewVecDense(4, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Steps)
	assert.Equal(t, 0.0, res.Reduction())
}

func TestCG_Failures(t *testing.T) {
	A := laplace(t, 20)
	b := mat.NewVecDense(20, nil)
	b.SetVec(0, 1)

	s, hook := quiet(Control{MaxSteps: 2, Tolerance: 1e-14})
	res, err := s.CG(A, mat.NewVecDense(20, nil), b, nil)
	assert.True(t, errors.Is(err, lac.ErrNotConverged))
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Nil(t, res.History)

	neg, err := lac.FromTriplets(2, 2, []lac.Triplet{{Row: 0, Col: 0, Value: -1}, {Row: 1, Col: 1, Value: -1}})
	require.NoError(t, err)
	_, err = s.CG(neg, mat.NewVecDense(2, nil), mat.NewVecDense(2, []float64{1, 1}), nil)
	assert.True(t, errors.Is(err, lac.ErrNotConverged))

	_, err = s.CG(A, mat.NewVecDense(3, nil), b, nil)
	assert.True(t, errors.Is(err, lac.ErrDimensionMismatch))
}

func TestRichardson(t *testing.T) {
	A := laplace(t, 4)
	b := mat.NewVecDense(4, []float64{1, 0, 0, 1})

	s, _ := quiet(Control{MaxSteps: 1000, RelTolerance: 1e-8})
	x := mat.NewVecDense(4, nil)
	res, err := s.Richardson(A, x, b, nil, 0.25)
	require.NoError(t, err)
	assert.Greater(t, res.Steps, 10)
	// Solution of the discrete Laplacian with unit boundary data
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 1.0, x.AtVec(i), 1e-6)
	}
	assert.Less(t, res.Reduction(), 1.0)

	// An exact inverse converges in one step
	inv := &exactInverse{A: A}
	x.Zero()
	res, err = s.Richardson(A, x, b, inv, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Steps)
}

type exactInverse struct{ A *lac.SparseMatrix }

func (e *exactInverse) Vmult(dst, src *mat.VecDense) error {
	lac.ReinitLike(dst, src)
	return dst.SolveVec(e.A.Dense(), src)
}
