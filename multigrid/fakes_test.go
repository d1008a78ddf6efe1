package multigrid

import (
	"fmt"

	"github.com/notargets/DGMultigrid/lac"
	"gonum.org/v1/gonum/mat"
)

// callLog collects the operator calls of a cycle in order.
type callLog struct {
	calls []string
}

func (cl *callLog) add(op string, level int) {
	if cl != nil {
		cl.calls = append(cl.calls, fmt.Sprintf("%s:%d", op, level))
	}
}

func copyInto(dst, src *mat.VecDense) {
	lac.ReinitLike(dst, src)
	if lac.Len(src) > 0 {
		dst.CopyVec(src)
	}
}

// scaledIdentity is alpha*I on every level.
type scaledIdentity struct {
	alpha float64
	name  string
	log   *callLog
}

func (m *scaledIdentity) Vmult(level int, dst, src *mat.VecDense) error {
	m.log.add(m.name, level)
	copyInto(dst, src)
	if lac.Len(dst) > 0 {
		dst.ScaleVec(m.alpha, dst)
	}
	return nil
}

func (m *scaledIdentity) Tvmult(level int, dst, src *mat.VecDense) error {
	m.log.add(m.name+"T", level)
	copyInto(dst, src)
	if lac.Len(dst) > 0 {
		dst.ScaleVec(m.alpha, dst)
	}
	return nil
}

// zeroEdge maps every level vector to zeros of the coarser size.
type zeroEdge struct {
	sizes map[int]int
}

func (z *zeroEdge) Vmult(level int, dst, _ *mat.VecDense) error {
	lac.Reinit(dst, z.sizes[level-1])
	return nil
}

func (z *zeroEdge) Tvmult(level int, dst, _ *mat.VecDense) error {
	lac.Reinit(dst, z.sizes[level])
	return nil
}

// identityTransfer keeps the same number of unknowns on every level.
type identityTransfer struct {
	log *callLog
}

func (it *identityTransfer) Prolongate(level int, dst, src *mat.VecDense) error {
	it.log.add("prolongate", level)
	copyInto(dst, src)
	return nil
}

func (it *identityTransfer) RestrictAndAdd(level int, dst, src *mat.VecDense) error {
	it.log.add("restrict", level)
	return lac.AddTo(dst, src)
}

func (it *identityTransfer) CopyToMG(dst *LevelObject[*mat.VecDense], src *mat.VecDense) error {
	for level := dst.MinLevel(); level <= dst.MaxLevel(); level++ {
		lac.ReinitLike(dst.At(level), src)
	}
	copyInto(dst.At(dst.MaxLevel()), src)
	for level := dst.MaxLevel(); level > dst.MinLevel(); level-- {
		if err := it.RestrictAndAdd(level, dst.At(level-1), dst.At(level)); err != nil {
			return err
		}
	}
	return nil
}

func (it *identityTransfer) CopyFromMG(dst *mat.VecDense, src *LevelObject[*mat.VecDense]) error {
	copyInto(dst, src.At(src.MaxLevel()))
	return nil
}

// pairTransfer halves the size per level: coarse i <-> fine 2i, 2i+1.
type pairTransfer struct{}

func (pairTransfer) Prolongate(_ int, dst, src *mat.VecDense) error {
	n := lac.Len(src)
	lac.Reinit(dst, 2*n)
	for i := 0; i < n; i++ {
		dst.SetVec(2*i, src.AtVec(i))
		dst.SetVec(2*i+1, src.AtVec(i))
	}
	return nil
}

func (pairTransfer) RestrictAndAdd(_ int, dst, src *mat.VecDense) error {
	if 2*lac.Len(dst) != lac.Len(src) {
		return lac.ErrDimensionMismatch
	}
	for i := 0; i < lac.Len(dst); i++ {
		dst.SetVec(i, dst.AtVec(i)+src.AtVec(2*i)+src.AtVec(2*i+1))
	}
	return nil
}

// pairEdge couples a level to the coarser one by summing pairs, scaled.
type pairEdge struct {
	alpha float64
}

func (e pairEdge) Vmult(_ int, dst, src *mat.VecDense) error {
	n := lac.Len(src) / 2
	lac.Reinit(dst, n)
	for i := 0; i < n; i++ {
		dst.SetVec(i, e.alpha*(src.AtVec(2*i)+src.AtVec(2*i+1)))
	}
	return nil
}

func (e pairEdge) Tvmult(_ int, dst, src *mat.VecDense) error {
	n := lac.Len(src)
	lac.Reinit(dst, 2*n)
	for i := 0; i < n; i++ {
		dst.SetVec(2*i, e.alpha*src.AtVec(i))
		dst.SetVec(2*i+1, e.alpha*src.AtVec(i))
	}
	return nil
}

// copySmoother sets u = rhs, scaled.
type copySmoother struct {
	alpha float64
	name  string
	log   *callLog
	err   error
	errOn int
}

func (s *copySmoother) Smooth(level int, u, rhs *mat.VecDense) error {
	s.log.add(s.name, level)
	if s.err != nil && level == s.errOn {
		return s.err
	}
	if lac.Len(rhs) == 0 {
		return nil
	}
	u.AddScaledVec(u, s.alpha, rhs)
	return nil
}

// recordingCoarse scales the defect and remembers what it was given.
type recordingCoarse struct {
	alpha float64
	log   *callLog
	seen  []float64
	err   error
}

func (c *recordingCoarse) Solve(level int, dst, src *mat.VecDense) error {
	c.log.add("coarse", level)
	if c.err != nil {
		return c.err
	}
	c.seen = append([]float64(nil), lac.Raw(src)...)
	copyInto(dst, src)
	if lac.Len(dst) > 0 {
		dst.ScaleVec(c.alpha, dst)
	}
	return nil
}

func vec(v ...float64) *mat.VecDense {
	return mat.NewVecDense(len(v), v)
}

func ones(n int) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, 1)
	}
	return v
}

func setDefect(mg *Multigrid, level int, v *mat.VecDense) {
	copyInto(mg.Defect().At(level), v)
}
