package multigrid

import (
	"fmt"

	"github.com/notargets/DGMultigrid/lac"
	"gonum.org/v1/gonum/mat"
)

// LevelObject holds one object per level of a hierarchy, indexed by the
// absolute level number in [MinLevel, MaxLevel].
type LevelObject[T any] struct {
	minLevel int
	objects  []T
}

// NewLevelObject creates a LevelObject for [minLevel, maxLevel], calling init
// for every level. A nil init leaves each slot at the zero value of T.
func NewLevelObject[T any](minLevel, maxLevel int, init func(level int) T) (lo *LevelObject[T], err error) {
	lo = &LevelObject[T]{}
	if err = lo.Resize(minLevel, maxLevel, init); err != nil {
		return nil, err
	}
	return
}

// NewVectors creates a LevelObject of empty vectors for [minLevel, maxLevel].
func NewVectors(minLevel, maxLevel int) (*LevelObject[*mat.VecDense], error) {
	return NewLevelObject(minLevel, maxLevel, func(int) *mat.VecDense {
		return &mat.VecDense{}
	})
}

// Resize discards all stored objects and re-creates the level range.
func (lo *LevelObject[T]) Resize(minLevel, maxLevel int, init func(level int) T) error {
	if minLevel < 0 || maxLevel < minLevel {
		return fmt.Errorf("levels [%d,%d]: %w", minLevel, maxLevel, lac.ErrLevelRange)
	}
	lo.minLevel = minLevel
	lo.objects = make([]T, maxLevel-minLevel+1)
	if init != nil {
		for level := minLevel; level <= maxLevel; level++ {
			lo.objects[level-minLevel] = init(level)
		}
	}
	return nil
}

func (lo *LevelObject[T]) MinLevel() int { return lo.minLevel }

func (lo *LevelObject[T]) MaxLevel() int { return lo.minLevel + len(lo.objects) - 1 }

// Contains reports whether level lies inside the stored range.
func (lo *LevelObject[T]) Contains(level int) bool {
	return level >= lo.minLevel && level <= lo.MaxLevel()
}

// At returns the object on level. It panics for a level outside the range,
// like a slice index would.
func (lo *LevelObject[T]) At(level int) T {
	if !lo.Contains(level) {
		panic(fmt.Sprintf("level %d outside [%d,%d]", level, lo.minLevel, lo.MaxLevel()))
	}
	return lo.objects[level-lo.minLevel]
}

// Set replaces the object on level.
func (lo *LevelObject[T]) Set(level int, v T) {
	if !lo.Contains(level) {
		panic(fmt.Sprintf("level %d outside [%d,%d]", level, lo.minLevel, lo.MaxLevel()))
	}
	lo.objects[level-lo.minLevel] = v
}

// Apply calls fn for each level from MinLevel to MaxLevel.
func (lo *LevelObject[T]) Apply(fn func(level int, v T)) {
	for i, v := range lo.objects {
		fn(lo.minLevel+i, v)
	}
}
