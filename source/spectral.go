package source

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
)

// uniformTolerance is the relative spread of time steps accepted as uniform.
const uniformTolerance = 1e-6

// FromTimeDomain converts real time-domain fields sampled on the uniform
// grid t and indexed [z][r][t] into one-sided spectra indexed [z][omega][r],
// ready for NewStatic. The returned omega grid (rad/s) starts at zero and has
// len(t)/2+1 samples. Spectra are scaled by the time step so that they
// approximate the continuous Fourier integral.
func FromTimeDomain(t []float64, e [][][]float64) (omega []float64, field [][][]complex128, err error) {
	nt := len(t)
	if nt < 2 {
		return nil, nil, fmt.Errorf("source: time grid needs at least 2 samples: %w", faults.ErrConfig)
	}
	dt := (t[nt-1] - t[0]) / float64(nt-1)
	if dt <= 0 {
		return nil, nil, fmt.Errorf("source: time grid not increasing: %w", faults.ErrConfig)
	}
	for i := 1; i < nt; i++ {
		if math.Abs(t[i]-t[i-1]-dt) > uniformTolerance*dt {
			return nil, nil, fmt.Errorf("source: time grid not uniform at index %d: %w", i, faults.ErrConfig)
		}
	}

	fft := fourier.NewFFT(nt)
	no := nt/2 + 1
	omega = make([]float64, no)
	for k := range omega {
		omega[k] = 2 * math.Pi * fft.Freq(k) / dt
	}

	coeff := make([]complex128, no)
	field = make([][][]complex128, len(e))
	for kz, plane := range e {
		field[kz] = make([][]complex128, no)
		for ko := range field[kz] {
			field[kz][ko] = make([]complex128, len(plane))
		}
		for kr, trace := range plane {
			if len(trace) != nt {
				return nil, nil, fmt.Errorf("source: trace (z=%d, r=%d) has %d samples, want %d: %w", kz, kr, len(trace), nt, faults.ErrShape)
			}
			fft.Coefficients(coeff, trace)
			for ko, c := range coeff {
				field[kz][ko][kr] = c * complex(dt, 0)
			}
		}
	}
	return omega, field, nil
}
