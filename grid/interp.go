package grid

import (
	"fmt"

	"gonum.org/v1/gonum/interp"

	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
)

// Interp linearly interpolates the table (xs, ys) at every point of at.
// Outside [xs[0], xs[len-1]] the first or last table value is returned, i.e.
// constant extrapolation. A single-point table is constant everywhere.
func Interp(xs, ys, at []float64) ([]float64, error) {
	out := make([]float64, len(at))
	if err := InterpInto(out, xs, ys, at); err != nil {
		return nil, err
	}
	return out, nil
}

// InterpInto is Interp writing into dst, which must have len(at) elements.
func InterpInto(dst, xs, ys, at []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("grid: table has %d abscissae and %d values: %w", len(xs), len(ys), faults.ErrShape)
	}
	if len(dst) != len(at) {
		return fmt.Errorf("grid: destination length %d, want %d: %w", len(dst), len(at), faults.ErrShape)
	}
	switch len(xs) {
	case 0:
		return fmt.Errorf("grid: empty interpolation table: %w", faults.ErrConfig)
	case 1:
		for i := range dst {
			dst[i] = ys[0]
		}
		return nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return fmt.Errorf("grid: interpolation table: %v: %w", err, faults.ErrConfig)
	}
	for i, x := range at {
		dst[i] = pl.Predict(x)
	}
	return nil
}

// InterpGrid is Interp evaluated on the samples of g.
func InterpGrid(xs, ys []float64, g Grid) ([]float64, error) {
	return Interp(xs, ys, g.raw())
}
