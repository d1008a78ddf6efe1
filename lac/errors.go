package lac

import "errors"

// Sentinel errors shared by the linear algebra backend and every package that
// drives it. Wrap with fmt.Errorf("...: %w", ErrX) when context is useful;
// callers match with errors.Is.
var (
	// ErrDimensionMismatch is returned when operand sizes are incompatible,
	// e.g. a matrix-vector product with len(src) != cols.
	ErrDimensionMismatch = errors.New("lac: dimension mismatch")

	// ErrLevelRange is returned for an empty or inverted level interval, or
	// for a level outside of [minlevel, maxlevel].
	ErrLevelRange = errors.New("lac: level out of range")

	// ErrSingular signals a zero pivot or zero diagonal entry.
	ErrSingular = errors.New("lac: singular matrix")

	// ErrNotConverged is returned by iterative methods that hit their step
	// limit before reaching the requested tolerance.
	ErrNotConverged = errors.New("lac: iteration did not converge")

	// ErrNilOperator is returned when a required operator was not supplied.
	ErrNilOperator = errors.New("lac: nil operator")

	// ErrUnknownType is returned for an unrecognized smoother, coarse solver
	// or solver name.
	ErrUnknownType = errors.New("lac: unknown type")
)
