package smoother

import (
	"fmt"
	"sort"

	"github.com/notargets/DGMultigrid/lac"
)

// iluFactor holds the ILU(0) factors of a square matrix in one CSR layout
// with sorted rows: the strict lower part is L (unit diagonal implied), the
// rest is U.
type iluFactor struct {
	rowPtr []int
	cols   []int
	vals   []float64
	diag   []int // Position of the diagonal in each row
}

// factorILU computes the incomplete LU factorization restricted to the
// sparsity pattern of A. A missing or vanishing pivot is an error.
func factorILU(A *lac.SparseMatrix) (f *iluFactor, err error) {
	n, c := A.Dims()
	if n != c {
		return nil, fmt.Errorf("ilu of %dx%d matrix: %w", n, c, lac.ErrDimensionMismatch)
	}
	f = &iluFactor{
		rowPtr: append([]int(nil), A.RowPtr...),
		cols:   append([]int(nil), A.ColIdx...),
		vals:   append([]float64(nil), A.Values...),
		diag:   make([]int, n),
	}
	for i := 0; i < n; i++ {
		lo, hi := f.rowPtr[i], f.rowPtr[i+1]
		sort.Sort(rowEntries{f.cols[lo:hi], f.vals[lo:hi]})
		f.diag[i] = -1
		for k := lo; k < hi; k++ {
			if f.cols[k] == i {
				f.diag[i] = k
			}
		}
		if f.diag[i] < 0 {
			return nil, fmt.Errorf("ilu row %d has no diagonal: %w", i, lac.ErrSingular)
		}
	}

	pos := make([]int, n)
	for i := range pos {
		pos[i] = -1
	}
	for i := 0; i < n; i++ {
		lo, hi := f.rowPtr[i], f.rowPtr[i+1]
		for k := lo; k < hi; k++ {
			pos[f.cols[k]] = k
		}
		for k := lo; k < f.diag[i]; k++ {
			j := f.cols[k]
			pivot := f.vals[f.diag[j]]
			if pivot == 0 {
				return nil, fmt.Errorf("ilu pivot %d: %w", j, lac.ErrSingular)
			}
			f.vals[k] /= pivot
			for m := f.diag[j] + 1; m < f.rowPtr[j+1]; m++ {
				if p := pos[f.cols[m]]; p >= 0 {
					f.vals[p] -= f.vals[k] * f.vals[m]
				}
			}
		}
		if f.vals[f.diag[i]] == 0 {
			return nil, fmt.Errorf("ilu pivot %d: %w", i, lac.ErrSingular)
		}
		for k := lo; k < hi; k++ {
			pos[f.cols[k]] = -1
		}
	}
	return
}

// solve overwrites v with (LU)⁻¹ v.
func (f *iluFactor) solve(v []float64) {
	n := len(f.diag)
	for i := 0; i < n; i++ {
		for k := f.rowPtr[i]; k < f.diag[i]; k++ {
			v[i] -= f.vals[k] * v[f.cols[k]]
		}
	}
	for i := n - 1; i >= 0; i-- {
		for k := f.diag[i] + 1; k < f.rowPtr[i+1]; k++ {
			v[i] -= f.vals[k] * v[f.cols[k]]
		}
		v[i] /= f.vals[f.diag[i]]
	}
}

type rowEntries struct {
	cols []int
	vals []float64
}

func (r rowEntries) Len() int           { return len(r.cols) }
func (r rowEntries) Less(i, j int) bool { return r.cols[i] < r.cols[j] }
func (r rowEntries) Swap(i, j int) {
	r.cols[i], r.cols[j] = r.cols[j], r.cols[i]
	r.vals[i], r.vals[j] = r.vals[j], r.vals[i]
}
