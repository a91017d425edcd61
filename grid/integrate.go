package grid

import (
	"gonum.org/v1/gonum/integrate"
)

// Trapezoid returns the trapezoidal-rule integral of y over x. Fewer than two
// samples integrate to zero.
func Trapezoid(y, x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return integrate.Trapezoidal(x, y)
}

// CumulativeTrapezoid returns the running trapezoidal integral of y over x.
// The result has len(x) elements and starts at initial.
func CumulativeTrapezoid(y, x []float64, initial float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	out[0] = initial
	for i := 1; i < len(x); i++ {
		out[i] = out[i-1] + 0.5*(x[i]-x[i-1])*(y[i]+y[i-1])
	}
	return out
}

// TrapezoidComplex is Trapezoid for complex samples.
func TrapezoidComplex(y []complex128, x []float64) complex128 {
	var sum complex128
	for i := 1; i < len(x); i++ {
		sum += complex(0.5*(x[i]-x[i-1]), 0) * (y[i] + y[i-1])
	}
	return sum
}

// CumulativeTrapezoidComplex is CumulativeTrapezoid for complex samples. It is
// used to follow how a source term builds up along z.
func CumulativeTrapezoidComplex(y []complex128, x []float64, initial complex128) []complex128 {
	out := make([]complex128, len(x))
	if len(x) == 0 {
		return out
	}
	out[0] = initial
	for i := 1; i < len(x); i++ {
		out[i] = out[i-1] + complex(0.5*(x[i]-x[i-1]), 0)*(y[i]+y[i-1])
	}
	return out
}

// TrapezoidWeights returns w such that sum(w[i]*y[i]) equals Trapezoid(y, x)
// for every y sampled on x.
func TrapezoidWeights(x []float64) []float64 {
	w := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		h := 0.5 * (x[i] - x[i-1])
		w[i-1] += h
		w[i] += h
	}
	return w
}
