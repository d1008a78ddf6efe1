package hierarchy

import (
	"github.com/notargets/DGMultigrid/lac"
)

// Hierarchy describes a nested sequence of discretizations, indexed by level
// from MinLevel (coarsest) to MaxLevel (finest).
type Hierarchy interface {
	MinLevel() int
	MaxLevel() int

	// NDofs is the number of unknowns on a level
	NDofs(level int) int

	// NGlobalDofs is the size of the global (active) vector
	NGlobalDofs() int

	// LevelMatrix is the operator on a level, NDofs(level) square
	LevelMatrix(level int) *lac.SparseMatrix

	// Prolongation maps level-1 to level, NDofs(level) × NDofs(level-1).
	// It is nil on MinLevel.
	Prolongation(level int) *lac.SparseMatrix

	// GlobalIndices maps each level unknown to its global index, or -1 when
	// the unknown is not active on that level.
	GlobalIndices(level int) []int
}
