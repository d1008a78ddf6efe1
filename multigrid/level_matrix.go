package multigrid

import (
	"fmt"

	"github.com/notargets/DGMultigrid/lac"
	"gonum.org/v1/gonum/mat"
)

// LevelMatrix exposes one sparse matrix per level through the Matrix
// interface. It is also used for the edge matrices, which map level to
// level-1 and are therefore rectangular.
type LevelMatrix struct {
	*LevelObject[*lac.SparseMatrix]
}

// NewLevelMatrix wraps an existing set of level matrices.
func NewLevelMatrix(matrices *LevelObject[*lac.SparseMatrix]) *LevelMatrix {
	return &LevelMatrix{LevelObject: matrices}
}

func (lm *LevelMatrix) get(level int) (*lac.SparseMatrix, error) {
	if !lm.Contains(level) {
		return nil, fmt.Errorf("level matrix %d outside [%d,%d]: %w",
			level, lm.MinLevel(), lm.MaxLevel(), lac.ErrLevelRange)
	}
	m := lm.At(level)
	if m == nil {
		return nil, fmt.Errorf("level matrix %d: %w", level, lac.ErrNilOperator)
	}
	return m, nil
}

func (lm *LevelMatrix) Vmult(level int, dst, src *mat.VecDense) error {
	m, err := lm.get(level)
	if err != nil {
		return err
	}
	return m.Vmult(dst, src)
}

func (lm *LevelMatrix) Tvmult(level int, dst, src *mat.VecDense) error {
	m, err := lm.get(level)
	if err != nil {
		return err
	}
	return m.Tvmult(dst, src)
}
