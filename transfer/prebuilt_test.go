package transfer

import (
	"errors"
	"testing"

	"github.com/notargets/DGMultigrid/hierarchy"
	"github.com/notargets/DGMultigrid/lac"
	"github.com/notargets/DGMultigrid/multigrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func build1D(t *testing.T) (*hierarchy.Uniform, *Prebuilt) {
	h, err := hierarchy.NewUniform(1, 0, 2)
	require.NoError(t, err)
	pb, err := Build(h)
	require.NoError(t, err)
	return h, pb
}

func TestPrebuilt_ProlongateRestrictConstant(t *testing.T) {
	_, pb := build1D(t)
	u, err := multigrid.NewVectors(0, 2)
	require.NoError(t, err)

	lac.Reinit(u.At(0), 1)
	u.At(0).SetVec(0, 1)
	require.NoError(t, pb.Prolongate(1, u.At(1), u.At(0)))
	require.NoError(t, pb.Prolongate(2, u.At(2), u.At(1)))
	assert.InDelta(t, 1.0, mat.Dot(u.At(0), u.At(0)), 1e-15)
	assert.InDelta(t, 1.5, mat.Dot(u.At(1), u.At(1)), 1e-15)
	assert.InDelta(t, 2.75, mat.Dot(u.At(2), u.At(2)), 1e-15)

	// Restrict the same vectors back down
	lac.Reinit(u.At(1), 3)
	lac.Reinit(u.At(0), 1)
	require.NoError(t, pb.RestrictAndAdd(2, u.At(1), u.At(2)))
	require.NoError(t, pb.RestrictAndAdd(1, u.At(0), u.At(1)))
	assert.Equal(t, []float64{1, 1.75, 1}, lac.Raw(u.At(1)))
	assert.InDelta(t, 2.75, u.At(0).AtVec(0), 1e-15)
}

func TestPrebuilt_RestrictIsTranspose(t *testing.T) {
	h, pb := build1D(t)
	fine := mat.NewVecDense(7, []float64{1, 2, 3, 4, 5, 6, 7})
	coarse := mat.NewVecDense(3, []float64{1, 1, 1})
	require.NoError(t, pb.RestrictAndAdd(2, coarse, fine))

	var want mat.VecDense
	want.MulVec(h.Prolongation(2).Dense().T(), fine)
	want.AddVec(&want, mat.NewVecDense(3, []float64{1, 1, 1}))
	assert.True(t, mat.EqualApprox(&want, coarse, 1e-14))
}

func TestPrebuilt_CopyToFromMG(t *testing.T) {
	h, pb := build1D(t)
	levels, err := multigrid.NewVectors(0, 2)
	require.NoError(t, err)

	v := mat.NewVecDense(7, nil)
	for i := 0; i < 7; i++ {
		v.SetVec(i, float64(i+1))
	}
	require.NoError(t, pb.CopyToMG(levels, v))
	assert.Equal(t, lac.Raw(v), lac.Raw(levels.At(2)))

	// Coarser levels hold the restriction of the global defect
	var r1, r0 mat.VecDense
	require.NoError(t, h.Prolongation(2).Tvmult(&r1, v))
	require.NoError(t, h.Prolongation(1).Tvmult(&r0, &r1))
	assert.Equal(t, lac.Raw(&r1), lac.Raw(levels.At(1)))
	assert.Equal(t, lac.Raw(&r0), lac.Raw(levels.At(0)))

	// Fill the finest level by counting and see where the numbers go
	for i := 0; i < 7; i++ {
		levels.At(2).SetVec(i, float64(i+1))
	}
	var w mat.VecDense
	require.NoError(t, pb.CopyFromMG(&w, levels))
	assert.Equal(t, lac.Raw(v), lac.Raw(&w))

	w.ScaleVec(-1, &w)
	require.NoError(t, pb.CopyFromMGAdd(&w, levels))
	assert.Equal(t, 0.0, lac.Norm2(&w))
}

func TestPrebuilt_Errors(t *testing.T) {
	_, pb := build1D(t)
	var dst mat.VecDense
	err := pb.Prolongate(0, &dst, mat.NewVecDense(1, nil))
	assert.True(t, errors.Is(err, lac.ErrLevelRange))
	err = pb.RestrictAndAdd(3, &dst, mat.NewVecDense(1, nil))
	assert.True(t, errors.Is(err, lac.ErrLevelRange))

	levels, err := multigrid.NewVectors(0, 2)
	require.NoError(t, err)
	err = pb.CopyToMG(levels, mat.NewVecDense(3, nil))
	assert.True(t, errors.Is(err, lac.ErrDimensionMismatch))

	short, err := multigrid.NewVectors(1, 2)
	require.NoError(t, err)
	err = pb.CopyToMG(short, mat.NewVecDense(7, nil))
	assert.True(t, errors.Is(err, lac.ErrLevelRange))
}

func TestIdentity_CopyToMG(t *testing.T) {
	levels, err := multigrid.NewVectors(0, 2)
	require.NoError(t, err)
	require.NoError(t, Identity{}.CopyToMG(levels, mat.NewVecDense(2, []float64{1, 2})))
	for level := 0; level <= 2; level++ {
		assert.Equal(t, []float64{1, 2}, lac.Raw(levels.At(level)))
	}
	var out mat.VecDense
	require.NoError(t, Identity{}.CopyFromMG(&out, levels))
	assert.Equal(t, []float64{1, 2}, lac.Raw(&out))
}
