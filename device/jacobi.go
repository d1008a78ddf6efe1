package device

import (
	"fmt"
	"unsafe"

	"github.com/notargets/DGMultigrid/lac"
	"github.com/notargets/DGMultigrid/multigrid"
	"github.com/notargets/gocca"
	"gonum.org/v1/gonum/mat"
)

const blockSize = 64

// Sizes and the damping factor are compiled in, only device buffers are
// passed at launch.
const jacobiSource = `
#define N %d
#define NBLOCK %d
#define BLOCK %d
#define OMEGA %.17g

@kernel void jacobi(const int *rowPtr,
                    const int *colIdx,
                    const double *values,
                    const double *invDiag,
                    const double *rhs,
                    const double *uOld,
                    double *uNew) {
  for (int b = 0; b < NBLOCK; ++b; @outer) {
    for (int t = 0; t < BLOCK; ++t; @inner) {
      const int i = b*BLOCK + t;
      if (i < N) {
        double r = rhs[i];
        for (int k = rowPtr[i]; k < rowPtr[i+1]; ++k) {
          r -= values[k]*uOld[colIdx[k]];
        }
        uNew[i] = uOld[i] + OMEGA*invDiag[i]*r;
      }
    }
  }
}
`

type levelKernel struct {
	n      int
	kernel *gocca.OCCAKernel
	mats   []*gocca.OCCAMemory // rowPtr, colIdx, values, invDiag
	rhs    *gocca.OCCAMemory
	u, v   *gocca.OCCAMemory
}

// Jacobi is a damped Jacobi smoother running on an OCCA device. Each level's
// matrix lives on the device for the lifetime of the smoother.
type Jacobi struct {
	Omega    float64
	Steps    int
	device   *gocca.OCCADevice
	minLevel int
	levels   []*levelKernel
}

var _ multigrid.Smoother = &Jacobi{}

// NewJacobi uploads every level matrix and compiles one kernel per level.
// Omega 0 selects 2/3.
func NewJacobi(device *gocca.OCCADevice, matrices *multigrid.LevelObject[*lac.SparseMatrix],
	omega float64, steps int) (j *Jacobi, err error) {
	if omega == 0 {
		omega = 2. / 3.
	}
	if steps < 0 {
		return nil, fmt.Errorf("jacobi steps %d: %w", steps, lac.ErrLevelRange)
	}
	j = &Jacobi{
		Omega:    omega,
		Steps:    steps,
		device:   device,
		minLevel: matrices.MinLevel(),
	}
	for level := matrices.MinLevel(); level <= matrices.MaxLevel(); level++ {
		var lk *levelKernel
		if lk, err = j.upload(level, matrices.At(level)); err != nil {
			j.Free()
			return nil, err
		}
		j.levels = append(j.levels, lk)
	}
	return
}

func (j *Jacobi) upload(level int, A *lac.SparseMatrix) (lk *levelKernel, err error) {
	r, c := A.Dims()
	if r != c {
		return nil, fmt.Errorf("level %d matrix %dx%d: %w", level, r, c, lac.ErrDimensionMismatch)
	}
	lk = &levelKernel{n: r}
	if r == 0 {
		return
	}
	diag := A.Diagonal()
	for i, d := range diag {
		if d == 0 {
			return nil, fmt.Errorf("level %d row %d has zero diagonal: %w", level, i, lac.ErrSingular)
		}
		diag[i] = 1 / d
	}
	rowPtr := toInt32(A.RowPtr)
	colIdx := toInt32(A.ColIdx)
	values := A.Values
	if len(values) == 0 {
		// Keep the allocation non-empty for a matrix with no stored entries
		colIdx, values = []int32{0}, []float64{0}
	}
	lk.mats = []*gocca.OCCAMemory{
		j.device.Malloc(int64(len(rowPtr)*4), unsafe.Pointer(&rowPtr[0]), nil),
		j.device.Malloc(int64(len(colIdx)*4), unsafe.Pointer(&colIdx[0]), nil),
		j.device.Malloc(int64(len(values)*8), unsafe.Pointer(&values[0]), nil),
		j.device.Malloc(int64(r*8), unsafe.Pointer(&diag[0]), nil),
	}
	lk.rhs = j.device.Malloc(int64(r*8), nil, nil)
	lk.u = j.device.Malloc(int64(r*8), nil, nil)
	lk.v = j.device.Malloc(int64(r*8), nil, nil)

	nBlock := (r + blockSize - 1) / blockSize
	src := fmt.Sprintf(jacobiSource, r, nBlock, blockSize, j.Omega)
	if lk.kernel, err = buildKernel(j.device, src, "jacobi"); err != nil {
		lk.free()
		return nil, fmt.Errorf("level %d: %w", level, err)
	}
	return
}

// Smooth runs Steps Jacobi sweeps on the device, starting from u.
func (j *Jacobi) Smooth(level int, u, rhs *mat.VecDense) error {
	if level < j.minLevel || level >= j.minLevel+len(j.levels) {
		return fmt.Errorf("jacobi level %d: %w", level, lac.ErrLevelRange)
	}
	lk := j.levels[level-j.minLevel]
	if lac.Len(rhs) != lk.n {
		return fmt.Errorf("jacobi level %d: rhs %d, matrix %d: %w", level, lac.Len(rhs), lk.n, lac.ErrDimensionMismatch)
	}
	if lac.Len(u) != lk.n {
		return fmt.Errorf("jacobi level %d: u %d, matrix %d: %w", level, lac.Len(u), lk.n, lac.ErrDimensionMismatch)
	}
	if lk.n == 0 || j.Steps == 0 {
		return nil
	}
	bytes := int64(lk.n * 8)
	uh, bh := lac.Raw(u), lac.Raw(rhs)
	lk.u.CopyFrom(unsafe.Pointer(&uh[0]), bytes)
	lk.rhs.CopyFrom(unsafe.Pointer(&bh[0]), bytes)

	cur, next := lk.u, lk.v
	for s := 0; s < j.Steps; s++ {
		if err := lk.kernel.RunWithArgs(lk.mats[0], lk.mats[1], lk.mats[2], lk.mats[3],
			lk.rhs, cur, next); err != nil {
			return fmt.Errorf("jacobi level %d: kernel execution failed: %w", level, err)
		}
		cur, next = next, cur
	}
	j.device.Finish()
	cur.CopyTo(unsafe.Pointer(&uh[0]), bytes)
	return nil
}

// Free releases device kernels and memory. The device itself is owned by the
// caller.
func (j *Jacobi) Free() {
	for _, lk := range j.levels {
		lk.free()
	}
	j.levels = nil
}

func (lk *levelKernel) free() {
	if lk.kernel != nil {
		lk.kernel.Free()
	}
	for _, m := range append(lk.mats, lk.rhs, lk.u, lk.v) {
		if m != nil {
			m.Free()
		}
	}
}

func toInt32(a []int) (b []int32) {
	b = make([]int32, len(a))
	for i, v := range a {
		b[i] = int32(v)
	}
	return
}
