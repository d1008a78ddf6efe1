package multigrid

import (
	"errors"
	"testing"

	"github.com/notargets/DGMultigrid/lac"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNew_Validation(t *testing.T) {
	A := &scaledIdentity{alpha: 1, name: "vmult"}
	C := &recordingCoarse{alpha: 1}
	T := &identityTransfer{}

	_, err := New(2, 1, A, C, T, nil, nil)
	assert.True(t, errors.Is(err, lac.ErrLevelRange))
	_, err = New(-1, 1, A, C, T, nil, nil)
	assert.True(t, errors.Is(err, lac.ErrLevelRange))

	_, err = New(0, 1, nil, C, T, nil, nil)
	assert.True(t, errors.Is(err, lac.ErrNilOperator))
	_, err = New(0, 1, A, nil, T, nil, nil)
	assert.True(t, errors.Is(err, lac.ErrNilOperator))
	_, err = New(0, 1, A, C, nil, nil, nil)
	assert.True(t, errors.Is(err, lac.ErrNilOperator))

	mg, err := New(1, 3, A, C, T, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, mg.MinLevel())
	assert.Equal(t, 3, mg.MaxLevel())
	assert.Equal(t, 1, mg.Defect().MinLevel())
	assert.Equal(t, 3, mg.Solution().MaxLevel())
}

func TestVcycle_TwoLevelIdentityIsCoarseSolve(t *testing.T) {
	T := &identityTransfer{}
	C := &recordingCoarse{alpha: 2}
	mg, err := New(0, 1, &scaledIdentity{alpha: 1, name: "vmult"}, C, T,
		SmootherIdentity{}, SmootherIdentity{})
	require.NoError(t, err)

	require.NoError(t, T.CopyToMG(mg.Defect(), vec(1, 2, 3)))
	require.NoError(t, mg.Vcycle())

	assert.Equal(t, []float64{2, 4, 6}, lac.Raw(mg.Solution().At(1)))
}

func TestVcycle_CoarseDefectIsRestrictedResidual(t *testing.T) {
	C := &recordingCoarse{alpha: 1}
	pre := &copySmoother{alpha: 1, name: "pre"}
	mg, err := New(0, 1, &scaledIdentity{alpha: 2, name: "vmult"}, C, pairTransfer{},
		pre, SmootherIdentity{})
	require.NoError(t, err)

	setDefect(mg, 1, vec(1, 2, 3, 4))
	setDefect(mg, 0, vec(5, 6))
	require.NoError(t, mg.Vcycle())

	// u1 = d1, t1 = 2*u1 = [2 4 6 8], R t1 = [6 14], d0 - R t1 = [-1 -8]
	assert.Equal(t, []float64{-1, -8}, C.seen)
	assert.Equal(t, []float64{-1, -8}, lac.Raw(mg.Defect().At(0)))
	// u1 + P u0
	assert.Equal(t, []float64{0, 1, -5, -4}, lac.Raw(mg.Solution().At(1)))
}

func TestVcycle_Idempotent(t *testing.T) {
	pre := &copySmoother{alpha: 0.5, name: "pre"}
	post := &copySmoother{alpha: 0.25, name: "post"}
	mg, err := New(0, 2, &scaledIdentity{alpha: 3, name: "vmult"},
		&recordingCoarse{alpha: 0.5}, pairTransfer{}, pre, post)
	require.NoError(t, err)

	fill := func() {
		setDefect(mg, 2, vec(1, -2, 3, 0.5, 7, 1, -1, 2))
		setDefect(mg, 1, vec(0.5, 0.25, 1, 2))
		setDefect(mg, 0, vec(3, -3))
	}

	fill()
	require.NoError(t, mg.Vcycle())
	first := append([]float64(nil), lac.Raw(mg.Solution().At(2))...)

	fill()
	require.NoError(t, mg.Vcycle())
	assert.Equal(t, first, lac.Raw(mg.Solution().At(2)))
}

func TestVcycle_SingleLevel(t *testing.T) {
	log := &callLog{}
	C := &recordingCoarse{alpha: 1, log: log}
	mg, err := New(2, 2, &scaledIdentity{alpha: 1, name: "vmult", log: log}, C,
		&identityTransfer{log: log},
		&copySmoother{alpha: 1, name: "pre", log: log},
		&copySmoother{alpha: 1, name: "post", log: log})
	require.NoError(t, err)

	setDefect(mg, 2, vec(4, 5))
	require.NoError(t, mg.Vcycle())
	assert.Equal(t, []string{"coarse:2"}, log.calls)
	assert.Equal(t, []float64{4, 5}, lac.Raw(mg.Solution().At(2)))
}

func TestVcycle_ThreeLevelIdentity(t *testing.T) {
	T := &identityTransfer{}
	mg, err := New(0, 2, &scaledIdentity{alpha: 1, name: "vmult"},
		&recordingCoarse{alpha: 1}, T, nil, nil)
	require.NoError(t, err)

	require.NoError(t, T.CopyToMG(mg.Defect(), ones(5)))
	require.NoError(t, mg.Vcycle())

	assert.Equal(t, []float64{1, 1, 1, 1, 1}, lac.Raw(mg.Solution().At(2)))
}

func TestVcycle_ZeroEdgeDownIsNoOp(t *testing.T) {
	run := func(withEdge bool) []float64 {
		opts := []Option{}
		if withEdge {
			opts = append(opts, WithEdgeMatrices(&zeroEdge{sizes: map[int]int{0: 2, 1: 4, 2: 8}}, nil))
		}
		mg, err := New(0, 2, &scaledIdentity{alpha: 2, name: "vmult"},
			&recordingCoarse{alpha: 0.5}, pairTransfer{},
			&copySmoother{alpha: 0.5, name: "pre"}, &copySmoother{alpha: 0.5, name: "post"}, opts...)
		require.NoError(t, err)
		setDefect(mg, 2, vec(1, 2, 3, 4, 5, 6, 7, 8))
		setDefect(mg, 1, vec(1, 1, 1, 1))
		setDefect(mg, 0, vec(2, 2))
		require.NoError(t, mg.Vcycle())
		return append([]float64(nil), lac.Raw(mg.Solution().At(2))...)
	}
	assert.Equal(t, run(false), run(true))
}

func TestVcycle_EdgeMatrices(t *testing.T) {
	C := &recordingCoarse{alpha: 1}
	mg, err := New(0, 1, &scaledIdentity{alpha: 2, name: "vmult"}, C, pairTransfer{},
		&copySmoother{alpha: 1, name: "pre"}, SmootherIdentity{})
	require.NoError(t, err)
	mg.SetEdgeMatrices(pairEdge{alpha: 1}, pairEdge{alpha: 0.5})

	setDefect(mg, 1, vec(1, 2, 3, 4))
	setDefect(mg, 0, vec(5, 6))
	require.NoError(t, mg.Vcycle())

	// t0 = E u1 + R A u1 = [3 7] + [6 14], d0 = [5 6] - [9 21]
	assert.Equal(t, []float64{-4, -15}, C.seen)
	// d1 -= Eᵀ u0 with Eᵀ u0 = 0.5*[-4 -4 -15 -15]
	assert.Equal(t, []float64{3, 4, 10.5, 11.5}, lac.Raw(mg.Defect().At(1)))
	assert.Equal(t, []float64{-3, -2, -12, -11}, lac.Raw(mg.Solution().At(1)))
}

func TestVcycle_CallOrder(t *testing.T) {
	log := &callLog{}
	mg, err := New(0, 2,
		&scaledIdentity{alpha: 1, name: "vmult", log: log},
		&recordingCoarse{alpha: 1, log: log},
		&identityTransfer{log: log},
		&copySmoother{alpha: 1, name: "pre", log: log},
		&copySmoother{alpha: 1, name: "post", log: log})
	require.NoError(t, err)
	mg.SetEdgeMatrices(
		&scaledIdentity{alpha: 0, name: "edgeDown", log: log},
		&scaledIdentity{alpha: 0, name: "edgeUp", log: log})

	for level := 0; level <= 2; level++ {
		setDefect(mg, level, ones(3))
	}
	require.NoError(t, mg.Vcycle())

	assert.Equal(t, []string{
		"pre:2", "vmult:2", "edgeDown:2", "restrict:2", "restrict:1",
		"pre:1", "vmult:1", "edgeDown:1", "restrict:1",
		"coarse:0",
		"prolongate:1", "edgeUpT:1", "post:1",
		"prolongate:2", "edgeUpT:2", "post:2",
	}, log.calls)
}

func TestVcycle_ErrorsPropagate(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("Smoother", func(t *testing.T) {
		log := &callLog{}
		mg, err := New(0, 2, &scaledIdentity{alpha: 1, name: "vmult"},
			&recordingCoarse{alpha: 1, log: log}, &identityTransfer{},
			&copySmoother{alpha: 1, name: "pre", log: log, err: errBoom, errOn: 1}, nil)
		require.NoError(t, err)
		for level := 0; level <= 2; level++ {
			setDefect(mg, level, ones(2))
		}
		err = mg.Vcycle()
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, []string{"pre:2", "pre:1"}, log.calls)
	})

	t.Run("Coarse", func(t *testing.T) {
		log := &callLog{}
		mg, err := New(0, 1, &scaledIdentity{alpha: 1, name: "vmult"},
			&recordingCoarse{alpha: 1, log: log, err: errBoom}, &identityTransfer{log: log},
			nil, &copySmoother{alpha: 1, name: "post", log: log})
		require.NoError(t, err)
		setDefect(mg, 1, ones(2))
		setDefect(mg, 0, ones(2))
		assert.ErrorIs(t, mg.Vcycle(), errBoom)
		assert.NotContains(t, log.calls, "post:1")
	})

	t.Run("Transfer", func(t *testing.T) {
		mg, err := New(0, 1, &scaledIdentity{alpha: 1, name: "vmult"},
			&recordingCoarse{alpha: 1}, pairTransfer{}, nil, nil)
		require.NoError(t, err)
		setDefect(mg, 1, ones(4))
		setDefect(mg, 0, ones(3))
		assert.ErrorIs(t, mg.Vcycle(), lac.ErrDimensionMismatch)
	})
}

func TestVcycle_DebugTrace(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	T := &identityTransfer{}
	mg, err := New(0, 1, &scaledIdentity{alpha: 1, name: "vmult"},
		&recordingCoarse{alpha: 1}, T, nil, nil, WithLogger(logrus.NewEntry(logger)))
	require.NoError(t, err)
	require.NoError(t, T.CopyToMG(mg.Defect(), ones(4)))
	require.NoError(t, mg.Vcycle())

	var stages []string
	for _, e := range hook.AllEntries() {
		stages = append(stages, e.Data["stage"].(string))
	}
	assert.Equal(t, []string{"defect", "pre", "defect", "solution", "cgc", "post"}, stages)
	assert.Equal(t, 2.0, hook.LastEntry().Data["norm"])
}

func TestPreconditionMG(t *testing.T) {
	T := &identityTransfer{}
	mg, err := New(0, 2, &scaledIdentity{alpha: 1, name: "vmult"},
		&recordingCoarse{alpha: 0.5}, T, nil, nil)
	require.NoError(t, err)
	p := NewPreconditionMG(mg, T)

	var dst mat.VecDense
	require.NoError(t, p.Vmult(&dst, vec(2, 4)))
	assert.Equal(t, []float64{1, 2}, lac.Raw(&dst))

	// The defect is refilled on every application
	require.NoError(t, p.Vmult(&dst, vec(2, 4)))
	assert.Equal(t, []float64{1, 2}, lac.Raw(&dst))
}
