// Package errs holds the error taxonomy shared by the digitizer packages.
//
// Configuration problems surface as ErrConfiguration and halt setup.
// Numerical degeneracies surface as *NumericalWarning, which callers log and
// count but never treat as fatal. Out-of-range pad access is a programming
// defect and panics with *IndexError.
package errs

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks missing or invalid setup parameters.
var ErrConfiguration = errors.New("configuration error")

// ErrInvalidArgument marks a caller passing a value outside the documented domain.
var ErrInvalidArgument = errors.New("invalid argument")

// IndexError reports access to a pad index outside [0, Len).
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("pad index %d out of range [0, %d)", e.Index, e.Len)
}

// CheckIndex panics with an *IndexError when i is not in [0, n).
func CheckIndex(i, n int) {
	if i < 0 || i >= n {
		panic(&IndexError{Index: i, Len: n})
	}
}

// NumericalWarning is a non-fatal numerical problem. Estimate carries the
// best-effort value the operation fell back to.
type NumericalWarning struct {
	Op       string
	Detail   string
	Estimate float64
}

func (w *NumericalWarning) Error() string {
	return fmt.Sprintf("numerical warning in %s: %s (using %g)", w.Op, w.Detail, w.Estimate)
}

// IsWarning reports whether err is, or wraps, a *NumericalWarning.
func IsWarning(err error) bool {
	var w *NumericalWarning
	return errors.As(err, &w)
}

// Configf returns an error wrapping ErrConfiguration.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
