package transfer

import (
	"github.com/notargets/DGMultigrid/lac"
	"github.com/notargets/DGMultigrid/multigrid"
	"gonum.org/v1/gonum/mat"
)

// Identity is the transfer between levels that share one space: prolongation
// copies, restriction adds, and the global vector lives on the finest level.
type Identity struct{}

var _ multigrid.LevelTransfer = Identity{}

func (Identity) Prolongate(_ int, dst, src *mat.VecDense) error {
	lac.ReinitLike(dst, src)
	if lac.Len(src) > 0 {
		dst.CopyVec(src)
	}
	return nil
}

func (Identity) RestrictAndAdd(_ int, dst, src *mat.VecDense) error {
	return lac.AddTo(dst, src)
}

func (it Identity) CopyToMG(dst *multigrid.LevelObject[*mat.VecDense], src *mat.VecDense) error {
	for level := dst.MinLevel(); level <= dst.MaxLevel(); level++ {
		lac.ReinitLike(dst.At(level), src)
	}
	if err := it.Prolongate(dst.MaxLevel(), dst.At(dst.MaxLevel()), src); err != nil {
		return err
	}
	for level := dst.MaxLevel(); level > dst.MinLevel(); level-- {
		if err := it.RestrictAndAdd(level, dst.At(level-1), dst.At(level)); err != nil {
			return err
		}
	}
	return nil
}

func (it Identity) CopyFromMG(dst *mat.VecDense, src *multigrid.LevelObject[*mat.VecDense]) error {
	return it.Prolongate(src.MaxLevel(), dst, src.At(src.MaxLevel()))
}
