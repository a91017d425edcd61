package hankel

import (
	"gonum.org/v1/gonum/integrate"

	"github.com/bob-anderson-ok/HankelXUV/grid"
)

// Quadrature integrates complex samples y over the abscissae x. It is the
// radial integrator of the Hankel transform and must be safe for concurrent
// use.
type Quadrature interface {
	Integrate(y []complex128, x []float64) complex128
}

// weighted is implemented by rules that reduce to a fixed weight per sample.
// Transform then evaluates every far-field radius with one matrix-vector
// product per frequency.
type weighted interface {
	Weights(x []float64) []float64
}

// QuadratureFunc adapts an ordinary function to Quadrature.
type QuadratureFunc func(y []complex128, x []float64) complex128

func (f QuadratureFunc) Integrate(y []complex128, x []float64) complex128 { return f(y, x) }

// Trapezoidal is the default radial integrator.
type Trapezoidal struct{}

func (Trapezoidal) Integrate(y []complex128, x []float64) complex128 {
	return grid.TrapezoidComplex(y, x)
}

func (Trapezoidal) Weights(x []float64) []float64 { return grid.TrapezoidWeights(x) }

// Simpson applies Simpson's rule to the real and imaginary parts separately.
// Fewer than three samples fall back to the trapezoidal rule.
type Simpson struct{}

func (Simpson) Integrate(y []complex128, x []float64) complex128 {
	if len(x) < 3 {
		return grid.TrapezoidComplex(y, x)
	}
	re := make([]float64, len(y))
	im := make([]float64, len(y))
	for i, v := range y {
		re[i], im[i] = real(v), imag(v)
	}
	return complex(integrate.Simpsons(x, re), integrate.Simpsons(x, im))
}

// ParseQuadrature maps a radial integrator name to its rule.
func ParseQuadrature(name string) (Quadrature, bool) {
	switch name {
	case "", "trapezoidal":
		return Trapezoidal{}, true
	case "simpson":
		return Simpson{}, true
	}
	return nil, false
}
