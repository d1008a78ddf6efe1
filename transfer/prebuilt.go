package transfer

import (
	"fmt"

	"github.com/notargets/DGMultigrid/hierarchy"
	"github.com/notargets/DGMultigrid/lac"
	"github.com/notargets/DGMultigrid/multigrid"
	"gonum.org/v1/gonum/mat"
)

// Prebuilt implements the level transfer with explicitly stored prolongation
// matrices, one per level above the coarsest. Restriction is the transpose.
type Prebuilt struct {
	minLevel, maxLevel int
	nGlobal            int

	prolongation  *multigrid.LevelObject[*lac.SparseMatrix]
	globalIndices *multigrid.LevelObject[[]int]
	sizes         *multigrid.LevelObject[int]
}

var _ multigrid.LevelTransfer = &Prebuilt{}

// Build copies the prolongation matrices and index maps out of h.
func Build(h hierarchy.Hierarchy) (pb *Prebuilt, err error) {
	pb = &Prebuilt{
		minLevel: h.MinLevel(),
		maxLevel: h.MaxLevel(),
		nGlobal:  h.NGlobalDofs(),
	}
	if pb.prolongation, err = multigrid.NewLevelObject(pb.minLevel, pb.maxLevel,
		h.Prolongation); err != nil {
		return nil, err
	}
	if pb.globalIndices, err = multigrid.NewLevelObject(pb.minLevel, pb.maxLevel,
		h.GlobalIndices); err != nil {
		return nil, err
	}
	if pb.sizes, err = multigrid.NewLevelObject(pb.minLevel, pb.maxLevel,
		h.NDofs); err != nil {
		return nil, err
	}

	for level := pb.minLevel + 1; level <= pb.maxLevel; level++ {
		P := pb.prolongation.At(level)
		if P == nil {
			return nil, fmt.Errorf("prolongation to level %d: %w", level, lac.ErrNilOperator)
		}
		r, c := P.Dims()
		if r != h.NDofs(level) || c != h.NDofs(level-1) {
			return nil, fmt.Errorf("prolongation to level %d is %dx%d, want %dx%d: %w",
				level, r, c, h.NDofs(level), h.NDofs(level-1), lac.ErrDimensionMismatch)
		}
	}
	for level := pb.minLevel; level <= pb.maxLevel; level++ {
		if len(pb.globalIndices.At(level)) != h.NDofs(level) {
			return nil, fmt.Errorf("index map on level %d: %w", level, lac.ErrDimensionMismatch)
		}
	}
	return
}

func (pb *Prebuilt) matrix(level int) (*lac.SparseMatrix, error) {
	if level <= pb.minLevel || level > pb.maxLevel {
		return nil, fmt.Errorf("transfer to level %d outside (%d,%d]: %w",
			level, pb.minLevel, pb.maxLevel, lac.ErrLevelRange)
	}
	return pb.prolongation.At(level), nil
}

// Prolongate overwrites dst with P_level·src.
func (pb *Prebuilt) Prolongate(level int, dst, src *mat.VecDense) error {
	P, err := pb.matrix(level)
	if err != nil {
		return err
	}
	return P.Vmult(dst, src)
}

// RestrictAndAdd adds P_levelᵀ·src to dst.
func (pb *Prebuilt) RestrictAndAdd(level int, dst, src *mat.VecDense) error {
	P, err := pb.matrix(level)
	if err != nil {
		return err
	}
	return P.TvmultAdd(dst, src)
}

// CopyToMG distributes a global vector onto the levels. Every level is
// re-sized; active unknowns receive their global value and the refined parts
// of each coarser level receive the restriction from above.
func (pb *Prebuilt) CopyToMG(dst *multigrid.LevelObject[*mat.VecDense], src *mat.VecDense) error {
	if lac.Len(src) != pb.nGlobal {
		return fmt.Errorf("global vector %d, want %d: %w", lac.Len(src), pb.nGlobal, lac.ErrDimensionMismatch)
	}
	if dst.MinLevel() != pb.minLevel || dst.MaxLevel() != pb.maxLevel {
		return fmt.Errorf("level vectors [%d,%d] for transfer [%d,%d]: %w",
			dst.MinLevel(), dst.MaxLevel(), pb.minLevel, pb.maxLevel, lac.ErrLevelRange)
	}
	for level := pb.minLevel; level <= pb.maxLevel; level++ {
		v := dst.At(level)
		lac.Reinit(v, pb.sizes.At(level))
		for i, g := range pb.globalIndices.At(level) {
			if g >= 0 {
				v.SetVec(i, src.AtVec(g))
			}
		}
	}
	for level := pb.maxLevel; level > pb.minLevel; level-- {
		if err := pb.RestrictAndAdd(level, dst.At(level-1), dst.At(level)); err != nil {
			return err
		}
	}
	return nil
}

// CopyFromMG zeroes dst and fills it with the active level values.
func (pb *Prebuilt) CopyFromMG(dst *mat.VecDense, src *multigrid.LevelObject[*mat.VecDense]) error {
	lac.Reinit(dst, pb.nGlobal)
	return pb.CopyFromMGAdd(dst, src)
}

// CopyFromMGAdd adds the active level values to dst.
func (pb *Prebuilt) CopyFromMGAdd(dst *mat.VecDense, src *multigrid.LevelObject[*mat.VecDense]) error {
	if lac.Len(dst) != pb.nGlobal {
		return fmt.Errorf("global vector %d, want %d: %w", lac.Len(dst), pb.nGlobal, lac.ErrDimensionMismatch)
	}
	for level := pb.minLevel; level <= pb.maxLevel; level++ {
		if !src.Contains(level) {
			return fmt.Errorf("level %d missing from source: %w", level, lac.ErrLevelRange)
		}
		v := src.At(level)
		idx := pb.globalIndices.At(level)
		if lac.Len(v) != len(idx) {
			return fmt.Errorf("level %d vector %d, want %d: %w", level, lac.Len(v), len(idx), lac.ErrDimensionMismatch)
		}
		for i, g := range idx {
			if g >= 0 {
				dst.SetVec(g, dst.AtVec(g)+v.AtVec(i))
			}
		}
	}
	return nil
}
