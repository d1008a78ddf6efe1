package hierarchy

import (
	"fmt"

	"github.com/notargets/DGMultigrid/lac"
	"gonum.org/v1/gonum/mat"
)

// Uniform is the globally refined finite element hierarchy for the Poisson
// problem -Δu = f on the unit interval (Dim 1) or unit square (Dim 2) with
// homogeneous Dirichlet conditions. Level l has 2^(l+1)-1 interior nodes per
// direction; the stiffness matrices are those of linear (1D) and bilinear (2D)
// elements and the prolongations are the matching interpolations, so the
// hierarchy satisfies the Galerkin relation Pᵀ A_l P = A_{l-1}.
//
// Only the finest level is active: the global vector is the finest level
// vector.
type Uniform struct {
	Dim                int
	minLevel, maxLevel int

	matrices      []*lac.SparseMatrix
	prolongations []*lac.SparseMatrix
}

var _ Hierarchy = &Uniform{}

// NewUniform builds all level matrices and prolongations for [minLevel, maxLevel].
func NewUniform(dim, minLevel, maxLevel int) (u *Uniform, err error) {
	if dim != 1 && dim != 2 {
		return nil, fmt.Errorf("uniform hierarchy dimension %d: %w", dim, lac.ErrUnknownType)
	}
	if minLevel < 0 || maxLevel < minLevel || maxLevel > 20 {
		return nil, fmt.Errorf("uniform hierarchy levels [%d,%d]: %w", minLevel, maxLevel, lac.ErrLevelRange)
	}
	u = &Uniform{
		Dim:           dim,
		minLevel:      minLevel,
		maxLevel:      maxLevel,
		matrices:      make([]*lac.SparseMatrix, maxLevel-minLevel+1),
		prolongations: make([]*lac.SparseMatrix, maxLevel-minLevel+1),
	}
	for level := minLevel; level <= maxLevel; level++ {
		i := level - minLevel
		if u.matrices[i], err = u.stiffness(level); err != nil {
			return nil, err
		}
		if level > minLevel {
			if u.prolongations[i], err = u.interpolation(level); err != nil {
				return nil, err
			}
		}
	}
	return
}

func (u *Uniform) MinLevel() int { return u.minLevel }

func (u *Uniform) MaxLevel() int { return u.maxLevel }

// PointsPerDirection returns the number of interior nodes along one axis.
func PointsPerDirection(level int) int { return 1<<(level+1) - 1 }

// MeshSize returns the node spacing on level.
func MeshSize(level int) float64 { return 1 / float64(PointsPerDirection(level)+1) }

func (u *Uniform) NDofs(level int) int {
	m := PointsPerDirection(level)
	if u.Dim == 2 {
		return m * m
	}
	return m
}

func (u *Uniform) NGlobalDofs() int { return u.NDofs(u.maxLevel) }

func (u *Uniform) LevelMatrix(level int) *lac.SparseMatrix {
	return u.matrices[level-u.minLevel]
}

func (u *Uniform) Prolongation(level int) *lac.SparseMatrix {
	return u.prolongations[level-u.minLevel]
}

func (u *Uniform) GlobalIndices(level int) (idx []int) {
	idx = make([]int, u.NDofs(level))
	for i := range idx {
		if level == u.maxLevel {
			idx[i] = i
		} else {
			idx[i] = -1
		}
	}
	return
}

// Coordinates returns the position of unknown i on level.
func (u *Uniform) Coordinates(level, i int) (x []float64) {
	var (
		m = PointsPerDirection(level)
		h = MeshSize(level)
	)
	if u.Dim == 1 {
		return []float64{float64(i+1) * h}
	}
	return []float64{float64(i%m+1) * h, float64(i/m+1) * h}
}

// RHS assembles the lumped load vector of f on the finest level.
func (u *Uniform) RHS(f func(x []float64) float64) (b *mat.VecDense) {
	var (
		n      = u.NGlobalDofs()
		h      = MeshSize(u.maxLevel)
		weight = h
	)
	if u.Dim == 2 {
		weight = h * h
	}
	b = mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, weight*f(u.Coordinates(u.maxLevel, i)))
	}
	return
}

func (u *Uniform) stiffness(level int) (*lac.SparseMatrix, error) {
	m := PointsPerDirection(level)
	if u.Dim == 1 {
		invH := 1 / MeshSize(level)
		entries := make([]lac.Triplet, 0, 3*m)
		for i := 0; i < m; i++ {
			entries = append(entries, lac.Triplet{Row: i, Col: i, Value: 2 * invH})
			if i > 0 {
				entries = append(entries, lac.Triplet{Row: i, Col: i - 1, Value: -invH})
			}
			if i < m-1 {
				entries = append(entries, lac.Triplet{Row: i, Col: i + 1, Value: -invH})
			}
		}
		return lac.FromTriplets(m, m, entries)
	}

	// Bilinear elements on squares: 8/3 on the diagonal, -1/3 to all eight
	// neighbours, independent of h in 2D.
	n := m * m
	entries := make([]lac.Triplet, 0, 9*n)
	for j := 0; j < m; j++ {
		for i := 0; i < m; i++ {
			row := i + m*j
			for dj := -1; dj <= 1; dj++ {
				for di := -1; di <= 1; di++ {
					ii, jj := i+di, j+dj
					if ii < 0 || ii >= m || jj < 0 || jj >= m {
						continue
					}
					v := -1.0 / 3
					if di == 0 && dj == 0 {
						v = 8.0 / 3
					}
					entries = append(entries, lac.Triplet{Row: row, Col: ii + m*jj, Value: v})
				}
			}
		}
	}
	return lac.FromTriplets(n, n, entries)
}

// interpolation1D returns the weights of fine node f in terms of coarse nodes.
// Coarse node c sits on fine node 2c+1; even fine nodes average their two
// coarse neighbours, with the boundary contributing zero.
func interpolation1D(f, mc int) (cols []int, weights []float64) {
	if f%2 == 1 {
		return []int{(f - 1) / 2}, []float64{1}
	}
	c := f / 2
	if c-1 >= 0 {
		cols = append(cols, c-1)
		weights = append(weights, 0.5)
	}
	if c < mc {
		cols = append(cols, c)
		weights = append(weights, 0.5)
	}
	return
}

func (u *Uniform) interpolation(level int) (*lac.SparseMatrix, error) {
	var (
		mf = PointsPerDirection(level)
		mc = PointsPerDirection(level - 1)
	)
	if u.Dim == 1 {
		entries := make([]lac.Triplet, 0, 2*mf)
		for f := 0; f < mf; f++ {
			cols, w := interpolation1D(f, mc)
			for k := range cols {
				entries = append(entries, lac.Triplet{Row: f, Col: cols[k], Value: w[k]})
			}
		}
		return lac.FromTriplets(mf, mc, entries)
	}

	entries := make([]lac.Triplet, 0, 4*mf*mf)
	for fj := 0; fj < mf; fj++ {
		cj, wj := interpolation1D(fj, mc)
		for fi := 0; fi < mf; fi++ {
			ci, wi := interpolation1D(fi, mc)
			for b := range cj {
				for a := range ci {
					entries = append(entries, lac.Triplet{
						Row:   fi + mf*fj,
						Col:   ci[a] + mc*cj[b],
						Value: wi[a] * wj[b],
					})
				}
			}
		}
	}
	return lac.FromTriplets(mf*mf, mc*mc, entries)
}
