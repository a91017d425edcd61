// Package grid provides the immutable sampling grids (z, r and omega) used by
// the far-field solver together with the interpolation and trapezoidal
// integration services that operate on them.
package grid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
)

// End can be passed as the stop index of Subsample to mean "through the last
// element", like an omitted stop in a slice expression.
const End = -1

// Grid is an ordered, strictly increasing sequence of sample positions in SI
// units. The zero value is an empty grid.
type Grid struct {
	v []float64
}

// New copies values into a Grid. It fails when values is empty, contains NaN
// or is not strictly increasing.
func New(values []float64) (Grid, error) {
	if len(values) == 0 {
		return Grid{}, fmt.Errorf("grid: empty grid: %w", faults.ErrConfig)
	}
	if floats.HasNaN(values) {
		return Grid{}, fmt.Errorf("grid: NaN in grid: %w", faults.ErrConfig)
	}
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			return Grid{}, fmt.Errorf("grid: values not strictly increasing at index %d: %w", i, faults.ErrConfig)
		}
	}
	v := make([]float64, len(values))
	copy(v, values)
	return Grid{v: v}, nil
}

// MustNew is like New but panics on error. Intended for literals in tests
// and examples.
func MustNew(values ...float64) Grid {
	g, err := New(values)
	if err != nil {
		panic(err)
	}
	return g
}

// Linspace returns n evenly spaced values from start to end inclusive,
// matching numpy's linspace().
func Linspace(start, end float64, n int) []float64 {
	if n <= 1 {
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, end)
}

// Len returns the number of samples.
func (g Grid) Len() int { return len(g.v) }

// At returns the i-th sample.
func (g Grid) At(i int) float64 { return g.v[i] }

// First returns the first sample.
func (g Grid) First() float64 { return g.v[0] }

// Last returns the last sample.
func (g Grid) Last() float64 { return g.v[len(g.v)-1] }

// Values returns a copy of the samples.
func (g Grid) Values() []float64 {
	v := make([]float64, len(g.v))
	copy(v, g.v)
	return v
}

// raw exposes the backing slice to this package's integrators without a copy.
func (g Grid) raw() []float64 { return g.v }

// Subsample applies slice-with-stride semantics v[start:stop:step] (Python
// style, stop exclusive). Pass End as stop to include the last sample.
func (g Grid) Subsample(start, stop, step int) (Grid, error) {
	lo, hi, err := SliceBounds(len(g.v), start, stop, step)
	if err != nil {
		return Grid{}, err
	}
	out := make([]float64, 0, Count(lo, hi, step))
	for i := lo; i < hi; i += step {
		out = append(out, g.v[i])
	}
	return Grid{v: out}, nil
}

// SliceBounds validates a start/stop/step selection over n samples and
// returns the resolved half-open range. The selection must hold at least one
// sample.
func SliceBounds(n, start, stop, step int) (lo, hi int, err error) {
	if step < 1 {
		return 0, 0, fmt.Errorf("grid: step %d must be positive: %w", step, faults.ErrConfig)
	}
	if stop == End || stop > n {
		stop = n
	}
	if start < 0 || start >= stop {
		return 0, 0, fmt.Errorf("grid: empty selection [%d:%d] of %d samples: %w", start, stop, n, faults.ErrConfig)
	}
	return start, stop, nil
}

// Count returns the number of samples selected by lo:hi:step.
func Count(lo, hi, step int) int {
	return (hi - lo + step - 1) / step
}
