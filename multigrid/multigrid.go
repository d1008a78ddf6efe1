package multigrid

import (
	"fmt"

	"github.com/notargets/DGMultigrid/lac"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Multigrid runs V-cycles over the level range [minLevel, maxLevel].
//
// The caller fills Defect() on every level before each cycle. The engine owns
// the solution and auxiliary vectors and re-sizes them from the defect at the
// start of every cycle; after Vcycle returns, Solution().At(MaxLevel()) holds
// the multigrid correction. The defect and auxiliary vectors are scratch.
//
// All operators are borrowed and must outlive the cycles that use them. The
// recursion shares the per-level arrays between frames, so a Multigrid must
// not be used from more than one goroutine at a time.
type Multigrid struct {
	minLevel, maxLevel int

	matrix     Matrix
	coarse     Coarse
	transfer   Transfer
	preSmooth  Smoother
	postSmooth Smoother

	// Optional couplings across refinement edges, nil when absent
	edgeDown, edgeUp Matrix

	defect   *LevelObject[*mat.VecDense]
	solution *LevelObject[*mat.VecDense]
	t        *LevelObject[*mat.VecDense]

	log *logrus.Entry
}

// Option configures a Multigrid at construction.
type Option func(mg *Multigrid)

// WithLogger routes the engine's debug trace to entry.
func WithLogger(entry *logrus.Entry) Option {
	return func(mg *Multigrid) {
		mg.log = entry
	}
}

// WithEdgeMatrices is the constructor form of SetEdgeMatrices.
func WithEdgeMatrices(down, up Matrix) Option {
	return func(mg *Multigrid) {
		mg.SetEdgeMatrices(down, up)
	}
}

// New creates a Multigrid for [minLevel, maxLevel]. The smoothers may be nil,
// in which case SmootherIdentity is used.
func New(minLevel, maxLevel int, matrix Matrix, coarse Coarse, transfer Transfer,
	preSmooth, postSmooth Smoother, opts ...Option) (mg *Multigrid, err error) {
	if minLevel < 0 || maxLevel < minLevel {
		return nil, fmt.Errorf("multigrid levels [%d,%d]: %w", minLevel, maxLevel, lac.ErrLevelRange)
	}
	switch {
	case matrix == nil:
		return nil, fmt.Errorf("multigrid matrix: %w", lac.ErrNilOperator)
	case coarse == nil:
		return nil, fmt.Errorf("multigrid coarse solver: %w", lac.ErrNilOperator)
	case transfer == nil:
		return nil, fmt.Errorf("multigrid transfer: %w", lac.ErrNilOperator)
	}
	if preSmooth == nil {
		preSmooth = SmootherIdentity{}
	}
	if postSmooth == nil {
		postSmooth = SmootherIdentity{}
	}
	mg = &Multigrid{
		minLevel:   minLevel,
		maxLevel:   maxLevel,
		matrix:     matrix,
		coarse:     coarse,
		transfer:   transfer,
		preSmooth:  preSmooth,
		postSmooth: postSmooth,
		log:        logrus.NewEntry(logrus.StandardLogger()).WithField("component", "multigrid"),
	}
	if mg.defect, err = NewVectors(minLevel, maxLevel); err != nil {
		return nil, err
	}
	if mg.solution, err = NewVectors(minLevel, maxLevel); err != nil {
		return nil, err
	}
	if mg.t, err = NewVectors(minLevel, maxLevel); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(mg)
	}
	return
}

// SetEdgeMatrices records the operators coupling a level to the one below
// across non-conforming refinement edges. Either may be nil to leave that
// coupling out. Both are borrowed.
func (mg *Multigrid) SetEdgeMatrices(down, up Matrix) {
	mg.edgeDown = down
	mg.edgeUp = up
}

func (mg *Multigrid) MinLevel() int { return mg.minLevel }

func (mg *Multigrid) MaxLevel() int { return mg.maxLevel }

// Defect returns the per-level right hand sides, to be filled before Vcycle.
func (mg *Multigrid) Defect() *LevelObject[*mat.VecDense] { return mg.defect }

// Solution returns the per-level corrections computed by the last Vcycle.
func (mg *Multigrid) Solution() *LevelObject[*mat.VecDense] { return mg.solution }

// Vcycle performs one V-cycle starting on the finest level. Any operator
// error aborts the cycle and is returned as is.
func (mg *Multigrid) Vcycle() error {
	for level := mg.minLevel; level <= mg.maxLevel; level++ {
		lac.ReinitLike(mg.solution.At(level), mg.defect.At(level))
		lac.ReinitLike(mg.t.At(level), mg.defect.At(level))
	}
	return mg.levelStep(mg.maxLevel)
}

func (mg *Multigrid) levelStep(level int) (err error) {
	var (
		defect   = mg.defect.At(level)
		solution = mg.solution.At(level)
		t        = mg.t.At(level)
	)
	mg.trace(level, "defect", defect)

	zero(solution)

	if level == mg.minLevel {
		if err = mg.coarse.Solve(level, solution, defect); err != nil {
			return
		}
		mg.trace(level, "solution", solution)
		return
	}

	if err = mg.preSmooth.Smooth(level, solution, defect); err != nil {
		return
	}
	mg.trace(level, "pre", solution)

	// t = A*solution[level]
	if err = mg.matrix.Vmult(level, t, solution); err != nil {
		return
	}

	// Make t the right hand side of the lower levels. The non-refined parts
	// of the coarse defect already hold the global defect, the refined parts
	// receive its restriction.
	for l := level; l > mg.minLevel; l-- {
		tc := mg.t.At(l - 1)
		zero(tc)
		if l == level && mg.edgeDown != nil {
			if err = mg.edgeDown.Vmult(level, tc, solution); err != nil {
				return
			}
		}
		if err = mg.transfer.RestrictAndAdd(l, tc, mg.t.At(l)); err != nil {
			return
		}
		if err = lac.SubFrom(mg.defect.At(l-1), tc); err != nil {
			return
		}
	}

	if err = mg.levelStep(level - 1); err != nil {
		return
	}

	// The recursive call used t[level] as scratch, restore it before the
	// coarse grid correction.
	lac.ReinitLike(t, defect)

	coarse := mg.solution.At(level - 1)
	if err = mg.transfer.Prolongate(level, t, coarse); err != nil {
		return
	}
	mg.trace(level, "cgc", t)

	if err = lac.AddTo(solution, t); err != nil {
		return
	}

	if mg.edgeUp != nil {
		if err = mg.edgeUp.Tvmult(level, t, coarse); err != nil {
			return
		}
		if err = lac.SubFrom(defect, t); err != nil {
			return
		}
	}

	if err = mg.postSmooth.Smooth(level, solution, defect); err != nil {
		return
	}
	mg.trace(level, "post", solution)
	return
}

func (mg *Multigrid) trace(level int, stage string, v *mat.VecDense) {
	if !mg.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	mg.log.WithFields(logrus.Fields{
		"level": level,
		"stage": stage,
		"size":  lac.Len(v),
		"norm":  lac.Norm2(v),
	}).Debug("vcycle")
}

func zero(v *mat.VecDense) {
	if lac.Len(v) > 0 {
		v.Zero()
	}
}
