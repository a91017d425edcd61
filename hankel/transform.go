// Package hankel computes far-field XUV spectra from near-field source planes.
//
// Transform evaluates the zeroth-order Hankel diffraction integral of a
// single (omega x r) plane. Integrator streams the planes of a medium,
// weights them with the propagation pre-factor and integrates the far-field
// contributions along z with the trapezoidal rule.
package hankel

import (
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/unit/constant"
	"k8s.io/klog/v2"

	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
)

var lightSpeed = float64(constant.LightSpeedInVacuum)

// TransformOptions tune a single-plane transform. The zero value uses the
// trapezoidal rule, no near-field factor, a unit pre-factor and one
// goroutine per frequency.
type TransformOptions struct {
	Quadrature Quadrature
	NearField  bool
	// PreFactor, if set, has the plane's (omega x r) shape and multiplies
	// the source pointwise.
	PreFactor *mat.CDense
	// Workers bounds the frequency goroutines; <= 0 means no limit.
	Workers int
}

// Transform maps the source plane (omega x r) observed from distance to the
// far-field radii rFF and returns an (omega x rFF) matrix:
//
//	E(omega, rFF) = int r * P(omega, r) * N(omega, r) * E(omega, r) * J0(k*r*rFF/distance) dr
//
// with k = omega/c, P the pre-factor and N = exp(-i*k*r^2/(2*distance)) the
// near-field factor when enabled.
func Transform(plane *mat.CDense, omega, r []float64, distance float64, rFF []float64, opts TransformOptions) (*mat.CDense, error) {
	no, nr := plane.Dims()
	if no != len(omega) || nr != len(r) {
		return nil, fmt.Errorf("hankel: plane is %dx%d, grids are %dx%d: %w", no, nr, len(omega), len(r), faults.ErrShape)
	}
	if opts.PreFactor != nil {
		if pr, pc := opts.PreFactor.Dims(); pr != no || pc != nr {
			return nil, fmt.Errorf("hankel: pre-factor is %dx%d, plane is %dx%d: %w", pr, pc, no, nr, faults.ErrShape)
		}
	}
	if !(distance > 0) {
		return nil, fmt.Errorf("hankel: observation distance %v must be positive: %w", distance, faults.ErrConfig)
	}
	if len(rFF) == 0 {
		return nil, fmt.Errorf("hankel: empty far-field grid: %w", faults.ErrConfig)
	}
	q := opts.Quadrature
	if q == nil {
		q = Trapezoidal{}
	}
	var weights []float64
	if w, ok := q.(weighted); ok {
		weights = w.Weights(r)
	}

	start := time.Now()
	out := mat.NewCDense(no, len(rFF), nil)

	// Each frequency owns one row of out, so the rows can be filled
	// concurrently and the result does not depend on scheduling.
	var g errgroup.Group
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for ko := range no {
		g.Go(func() error {
			k := omega[ko] / lightSpeed
			src := make([]complex128, nr)
			for i, ri := range r {
				v := complex(ri, 0) * plane.At(ko, i)
				if opts.PreFactor != nil {
					v *= opts.PreFactor.At(ko, i)
				}
				if opts.NearField {
					v *= cmplx.Exp(complex(0, -k*ri*ri/(2*distance)))
				}
				src[i] = v
			}
			if weights != nil {
				kernelRow(out, ko, src, weights, r, rFF, k/distance)
			} else {
				quadratureRow(out, ko, src, q, r, rFF, k/distance)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	klog.V(2).InfoS("Hankel transform", "omega", no, "r", nr, "rFF", len(rFF), "elapsed", time.Since(start))
	return out, nil
}

// kernelRow computes row ko of out as J0 kernel (rFF x r) times the weighted
// source vector.
func kernelRow(out *mat.CDense, ko int, src []complex128, weights, r, rFF []float64, scale float64) {
	nr, nff := len(r), len(rFF)
	kernel := make([]complex128, nff*nr)
	for j, rf := range rFF {
		for i, ri := range r {
			kernel[j*nr+i] = complex(math.J0(scale*ri*rf), 0)
		}
	}
	x := make([]complex128, nr)
	for i, v := range src {
		x[i] = complex(weights[i], 0) * v
	}
	y := make([]complex128, nff)
	cblas128.Gemv(blas.NoTrans, 1,
		cblas128.General{Rows: nff, Cols: nr, Stride: nr, Data: kernel},
		cblas128.Vector{N: nr, Inc: 1, Data: x},
		0,
		cblas128.Vector{N: nff, Inc: 1, Data: y})
	for j, v := range y {
		out.Set(ko, j, v)
	}
}

func quadratureRow(out *mat.CDense, ko int, src []complex128, q Quadrature, r, rFF []float64, scale float64) {
	integrand := make([]complex128, len(r))
	for j, rf := range rFF {
		for i, ri := range r {
			integrand[i] = src[i] * complex(math.J0(scale*ri*rf), 0)
		}
		out.Set(ko, j, q.Integrate(integrand, r))
	}
}
