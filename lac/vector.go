package lac

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Reinit resizes v to length n and sets every entry to zero. Existing
// backing storage is reused when it is large enough.
func Reinit(v *mat.VecDense, n int) {
	if n == 0 {
		v.Reset()
		return
	}
	if !v.IsEmpty() && v.Len() == n {
		v.Zero()
		return
	}
	v.Reset()
	v.ReuseAsVec(n)
	v.Zero()
}

// ReinitLike resizes v to the length of like and zeroes it.
func ReinitLike(v, like *mat.VecDense) {
	Reinit(v, Len(like))
}

// Len returns the length of v, treating a nil or empty vector as length 0.
func Len(v *mat.VecDense) int {
	if v == nil || v.IsEmpty() {
		return 0
	}
	return v.Len()
}

// Raw returns the contiguous backing slice of v. An empty vector yields nil.
func Raw(v *mat.VecDense) []float64 {
	if Len(v) == 0 {
		return nil
	}
	rv := v.RawVector()
	if rv.Inc != 1 {
		panic("lac: non-contiguous vector")
	}
	return rv.Data[:rv.N]
}

// AddTo computes dst += src.
func AddTo(dst, src *mat.VecDense) error {
	if Len(dst) != Len(src) {
		return fmt.Errorf("add %d += %d: %w", Len(dst), Len(src), ErrDimensionMismatch)
	}
	if Len(dst) == 0 {
		return nil
	}
	dst.AddVec(dst, src)
	return nil
}

// SubFrom computes dst -= src.
func SubFrom(dst, src *mat.VecDense) error {
	if Len(dst) != Len(src) {
		return fmt.Errorf("sub %d -= %d: %w", Len(dst), Len(src), ErrDimensionMismatch)
	}
	if Len(dst) == 0 {
		return nil
	}
	dst.SubVec(dst, src)
	return nil
}

// Norm2 returns the Euclidean norm of v; an empty vector has norm 0.
func Norm2(v *mat.VecDense) float64 {
	if Len(v) == 0 {
		return 0
	}
	return mat.Norm(v, 2)
}
