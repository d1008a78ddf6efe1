package lac

import (
	"fmt"
	"strings"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Triplet is a single (row, col, value) entry used to assemble a SparseMatrix.
// Duplicate (row, col) pairs are summed.
type Triplet struct {
	Row, Col int
	Value    float64
}

// SparseMatrix is a compressed sparse row matrix. The CSR storage comes from
// james-bowman/sparse so the matrix interoperates with gonum through
// mat.Matrix; the row pointer / column index / value arrays are unpacked once
// at construction and drive the products below.
type SparseMatrix struct {
	csr        *sparse.CSR
	rows, cols int
	RowPtr     []int     // Length rows+1, row i occupies [RowPtr[i], RowPtr[i+1])
	ColIdx     []int     // Length NNZ
	Values     []float64 // Length NNZ
}

// NewSparseMatrix compresses an assembled DOK matrix.
func NewSparseMatrix(dok *sparse.DOK) (sm *SparseMatrix) {
	return fromCSR(dok.ToCSR())
}

// FromTriplets assembles a rows×cols SparseMatrix from a list of entries.
func FromTriplets(rows, cols int, entries []Triplet) (sm *SparseMatrix, err error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("shape %dx%d: %w", rows, cols, ErrDimensionMismatch)
	}
	dok := sparse.NewDOK(rows, cols)
	for _, e := range entries {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			return nil, fmt.Errorf("entry (%d,%d) outside %dx%d: %w",
				e.Row, e.Col, rows, cols, ErrDimensionMismatch)
		}
		dok.Set(e.Row, e.Col, dok.At(e.Row, e.Col)+e.Value)
	}
	return NewSparseMatrix(dok), nil
}

// Identity returns the n×n identity matrix.
func Identity(n int) (sm *SparseMatrix) {
	dok := sparse.NewDOK(n, n)
	for i := 0; i < n; i++ {
		dok.Set(i, i, 1)
	}
	return NewSparseMatrix(dok)
}

// Zero returns an r×c matrix with no stored entries.
func Zero(r, c int) (sm *SparseMatrix) {
	return NewSparseMatrix(sparse.NewDOK(r, c))
}

func fromCSR(csr *sparse.CSR) (sm *SparseMatrix) {
	r, c := csr.Dims()
	sm = &SparseMatrix{
		csr:    csr,
		rows:   r,
		cols:   c,
		RowPtr: make([]int, r+1),
	}
	// Count first so the layout does not depend on the iteration order of
	// the underlying storage.
	csr.DoNonZero(func(i, j int, v float64) {
		sm.RowPtr[i+1]++
	})
	for i := 0; i < r; i++ {
		sm.RowPtr[i+1] += sm.RowPtr[i]
	}
	nnz := sm.RowPtr[r]
	sm.ColIdx = make([]int, nnz)
	sm.Values = make([]float64, nnz)
	next := make([]int, r)
	copy(next, sm.RowPtr[:r])
	csr.DoNonZero(func(i, j int, v float64) {
		k := next[i]
		sm.ColIdx[k] = j
		sm.Values[k] = v
		next[i]++
	})
	return
}

// Dims returns the number of rows and columns.
func (sm *SparseMatrix) Dims() (r, c int) { return sm.rows, sm.cols }

// NNZ returns the number of stored entries.
func (sm *SparseMatrix) NNZ() int { return len(sm.Values) }

// CSR exposes the underlying compressed matrix, which implements mat.Matrix.
func (sm *SparseMatrix) CSR() *sparse.CSR { return sm.csr }

// At returns the entry (i, j).
func (sm *SparseMatrix) At(i, j int) float64 {
	for k := sm.RowPtr[i]; k < sm.RowPtr[i+1]; k++ {
		if sm.ColIdx[k] == j {
			return sm.Values[k]
		}
	}
	return 0
}

// Row calls fn for every stored entry of row i.
func (sm *SparseMatrix) Row(i int, fn func(j int, v float64)) {
	for k := sm.RowPtr[i]; k < sm.RowPtr[i+1]; k++ {
		fn(sm.ColIdx[k], sm.Values[k])
	}
}

// Dense returns a dense copy.
func (sm *SparseMatrix) Dense() *mat.Dense {
	return mat.DenseCopyOf(sm.csr)
}

// Diagonal returns the main diagonal; missing entries are zero.
func (sm *SparseMatrix) Diagonal() (diag []float64) {
	n := min(sm.rows, sm.cols)
	diag = make([]float64, n)
	for i := 0; i < n; i++ {
		diag[i] = sm.At(i, i)
	}
	return
}

// Vmult computes dst = A·src. dst is resized to the number of rows.
func (sm *SparseMatrix) Vmult(dst, src *mat.VecDense) error {
	if Len(src) != sm.cols {
		return fmt.Errorf("vmult %dx%d by %d: %w", sm.rows, sm.cols, Len(src), ErrDimensionMismatch)
	}
	Reinit(dst, sm.rows)
	sm.mulAdd(Raw(dst), Raw(src))
	return nil
}

// VmultAdd computes dst += A·src.
func (sm *SparseMatrix) VmultAdd(dst, src *mat.VecDense) error {
	if Len(src) != sm.cols || Len(dst) != sm.rows {
		return fmt.Errorf("vmult_add %dx%d: dst %d src %d: %w",
			sm.rows, sm.cols, Len(dst), Len(src), ErrDimensionMismatch)
	}
	sm.mulAdd(Raw(dst), Raw(src))
	return nil
}

// Tvmult computes dst = Aᵀ·src. dst is resized to the number of columns.
func (sm *SparseMatrix) Tvmult(dst, src *mat.VecDense) error {
	if Len(src) != sm.rows {
		return fmt.Errorf("Tvmult %dx%d by %d: %w", sm.rows, sm.cols, Len(src), ErrDimensionMismatch)
	}
	Reinit(dst, sm.cols)
	sm.mulTransAdd(Raw(dst), Raw(src))
	return nil
}

// TvmultAdd computes dst += Aᵀ·src.
func (sm *SparseMatrix) TvmultAdd(dst, src *mat.VecDense) error {
	if Len(src) != sm.rows || Len(dst) != sm.cols {
		return fmt.Errorf("Tvmult_add %dx%d: dst %d src %d: %w",
			sm.rows, sm.cols, Len(dst), Len(src), ErrDimensionMismatch)
	}
	sm.mulTransAdd(Raw(dst), Raw(src))
	return nil
}

// Residual computes dst = b - A·x and returns its l2 norm.
func (sm *SparseMatrix) Residual(dst, x, b *mat.VecDense) (norm float64, err error) {
	if Len(b) != sm.rows {
		return 0, fmt.Errorf("residual rhs %d for %d rows: %w", Len(b), sm.rows, ErrDimensionMismatch)
	}
	if err = sm.Vmult(dst, x); err != nil {
		return 0, err
	}
	dst.SubVec(b, dst)
	return Norm2(dst), nil
}

func (sm *SparseMatrix) mulAdd(dst, src []float64) {
	for i := 0; i < sm.rows; i++ {
		var sum float64
		for k := sm.RowPtr[i]; k < sm.RowPtr[i+1]; k++ {
			sum += sm.Values[k] * src[sm.ColIdx[k]]
		}
		dst[i] += sum
	}
}

func (sm *SparseMatrix) mulTransAdd(dst, src []float64) {
	for i := 0; i < sm.rows; i++ {
		si := src[i]
		if si == 0 {
			continue
		}
		for k := sm.RowPtr[i]; k < sm.RowPtr[i+1]; k++ {
			dst[sm.ColIdx[k]] += sm.Values[k] * si
		}
	}
}

// String prints the stored entries, one row per line.
func (sm *SparseMatrix) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("SparseMatrix %dx%d nnz=%d\n", sm.rows, sm.cols, sm.NNZ()))
	for i := 0; i < sm.rows; i++ {
		sb.WriteString(fmt.Sprintf("  %d:", i))
		sm.Row(i, func(j int, v float64) {
			sb.WriteString(fmt.Sprintf(" (%d,%.6g)", j, v))
		})
		sb.WriteString("\n")
	}
	return sb.String()
}
