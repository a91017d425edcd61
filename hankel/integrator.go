package hankel

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"

	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
	"github.com/bob-anderson-ok/HankelXUV/prefactor"
	"github.com/bob-anderson-ok/HankelXUV/refindex"
	"github.com/bob-anderson-ok/HankelXUV/source"
)

// LongitudinalTrapezoidal names the only supported z rule.
const LongitudinalTrapezoidal = "trapezoidal"

// Config describes a far-field computation. The medium fields mirror
// prefactor.Config.
type Config struct {
	// Distance from the first point of the medium to the observation screen.
	Distance float64
	RgridFF  []float64

	Gas               string
	AbsorptionTable   string
	DispersionTable   string
	IncludeAbsorption bool
	IncludeDispersion bool
	EffectiveIRIndex  float64
	Pressure          prefactor.Pressure
	Lookup            refindex.Lookup

	// Quadrature is the radial rule, trapezoidal when nil.
	Quadrature Quadrature
	// Longitudinal names the z rule; empty means trapezoidal.
	Longitudinal string
	NearField    bool

	// StoreCumulative keeps the running integral after step k (planes 0..k+1)
	// with row i scaled by the pre-factor's Renorm(k)[i].
	StoreCumulative bool
	// StoreNonNormalisedCumulative keeps the running integral as is.
	StoreNonNormalisedCumulative bool
	// StoreEntryExit keeps the transforms of the first and last planes.
	StoreEntryExit bool

	Workers int
}

func (c Config) prefactor() prefactor.Config {
	return prefactor.Config{
		Gas:               c.Gas,
		AbsorptionTable:   c.AbsorptionTable,
		DispersionTable:   c.DispersionTable,
		IncludeAbsorption: c.IncludeAbsorption,
		IncludeDispersion: c.IncludeDispersion,
		EffectiveIRIndex:  c.EffectiveIRIndex,
		Pressure:          c.Pressure,
		Lookup:            c.Lookup,
		Workers:           c.Workers,
	}
}

// Result holds the integrated far field on (omega x RgridFF). Cumulative and
// CumulativeRaw have one entry per integration step; Z is set whenever
// either of them is.
type Result struct {
	Omega   []float64
	RgridFF []float64
	Z       []float64

	FarField      *mat.CDense
	Cumulative    []*mat.CDense
	CumulativeRaw []*mat.CDense
	Entry, Exit   *mat.CDense
}

// Integrator runs the longitudinal integration. It holds no state between
// runs, so one Integrator may run several providers.
type Integrator struct {
	cfg Config
}

// NewIntegrator validates cfg.
func NewIntegrator(cfg Config) (*Integrator, error) {
	switch cfg.Longitudinal {
	case "", LongitudinalTrapezoidal:
	default:
		return nil, fmt.Errorf("hankel: longitudinal integrator %q: %w", cfg.Longitudinal, faults.ErrNotImplemented)
	}
	if cfg.Lookup == nil {
		return nil, fmt.Errorf("hankel: no refractive-index lookup: %w", faults.ErrConfig)
	}
	if cfg.Gas != refindex.Vacuum {
		for _, table := range []string{cfg.AbsorptionTable, cfg.DispersionTable} {
			if k := (refindex.Key{Gas: cfg.Gas, Table: table}); !cfg.Lookup.Supports(k) {
				return nil, fmt.Errorf("hankel: unsupported gas/table %s: %w", k, faults.ErrConfig)
			}
		}
	}
	if err := cfg.prefactor().Validate(); err != nil {
		return nil, err
	}
	if cfg.StoreCumulative && cfg.Pressure != nil {
		if kind := cfg.Pressure.Kind(); kind == prefactor.KindR || kind == prefactor.KindZR {
			return nil, fmt.Errorf("hankel: cumulative output for %v pressure: %w: %w", kind, ErrRenormUnavailable, faults.ErrNotImplemented)
		}
	}
	if !(cfg.Distance > 0) {
		return nil, fmt.Errorf("hankel: far-field distance %g: %w", cfg.Distance, faults.ErrConfig)
	}
	if len(cfg.RgridFF) == 0 {
		return nil, fmt.Errorf("hankel: empty far-field grid: %w", faults.ErrConfig)
	}
	if cfg.Quadrature == nil {
		cfg.Quadrature = Trapezoidal{}
	}
	cfg.RgridFF = append([]float64(nil), cfg.RgridFF...)
	return &Integrator{cfg: cfg}, nil
}

// Run streams the provider's planes once, in z order, and integrates their
// far-field transforms. At most two transformed planes and the running sum
// are held unless cumulative output is requested.
func (it *Integrator) Run(ctx context.Context, p *source.Provider) (*Result, error) {
	cfg := it.cfg
	z, r, omega := p.Z.Values(), p.R.Values(), p.Omega.Values()
	if !(cfg.Distance > p.Z.Last()) {
		return nil, fmt.Errorf("hankel: medium ends at z=%g, beyond the screen at %g: %w", p.Z.Last(), cfg.Distance, faults.ErrConfig)
	}

	factor, err := prefactor.New(p.Z, p.R, p.Omega, cfg.prefactor())
	if err != nil {
		return nil, err
	}
	stream := p.Stream()
	if stream.Len() != len(z) {
		return nil, fmt.Errorf("hankel: stream has %d planes for %d z samples: %w", stream.Len(), len(z), faults.ErrShape)
	}

	res := &Result{Omega: omega, RgridFF: append([]float64(nil), cfg.RgridFF...)}
	if cfg.StoreCumulative || cfg.StoreNonNormalisedCumulative {
		res.Z = z
	}

	farField := func(kz int) (*mat.CDense, error) {
		plane, err := stream.NextPlane()
		if err != nil {
			return nil, fmt.Errorf("hankel: plane %d: %w", kz, err)
		}
		return Transform(plane, omega, r, cfg.Distance-z[kz], cfg.RgridFF, TransformOptions{
			Quadrature: cfg.Quadrature,
			NearField:  cfg.NearField,
			PreFactor:  factor.Plane(kz),
			Workers:    cfg.Workers,
		})
	}

	klog.V(1).InfoS("Computing Hankel transform from planes", "planes", len(z), "omega", len(omega), "r", len(r), "rFF", len(cfg.RgridFF))
	start := time.Now()
	previous, err := farField(0)
	if err != nil {
		return nil, err
	}
	if cfg.StoreEntryExit {
		res.Entry = clone(previous)
	}

	sum := mat.NewCDense(len(omega), len(cfg.RgridFF), nil)
	checkpoint := start
	for k := 0; k+1 < len(z); k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		now := time.Now()
		klog.V(1).InfoS("Integrating plane", "plane", k, "elapsed", now.Sub(start), "step", now.Sub(checkpoint))
		checkpoint = now

		next, err := farField(k + 1)
		if err != nil {
			return nil, err
		}
		addTrapezoid(sum, 0.5*(z[k+1]-z[k]), previous, next)

		if cfg.StoreCumulative {
			renorm, ok := factor.Renorm(k)
			if !ok {
				return nil, fmt.Errorf("hankel: %w: %w", ErrRenormUnavailable, faults.ErrNotImplemented)
			}
			res.Cumulative = append(res.Cumulative, scaleRows(sum, renorm))
		}
		if cfg.StoreNonNormalisedCumulative {
			res.CumulativeRaw = append(res.CumulativeRaw, clone(sum))
		}
		previous = next
	}

	res.FarField = sum
	if cfg.StoreEntryExit {
		res.Exit = previous
	}
	klog.V(1).InfoS("Hankel integration finished", "elapsed", time.Since(start))
	return res, nil
}

// addTrapezoid performs sum += h*(a+b).
func addTrapezoid(sum *mat.CDense, h float64, a, b *mat.CDense) {
	rows, cols := sum.Dims()
	hc := complex(h, 0)
	for i := range rows {
		for j := range cols {
			sum.Set(i, j, sum.At(i, j)+hc*(a.At(i, j)+b.At(i, j)))
		}
	}
}

// scaleRows returns a copy of m with row i multiplied by f[i].
func scaleRows(m *mat.CDense, f []float64) *mat.CDense {
	rows, cols := m.Dims()
	out := mat.NewCDense(rows, cols, nil)
	for i := range rows {
		fi := complex(f[i], 0)
		for j := range cols {
			out.Set(i, j, fi*m.At(i, j))
		}
	}
	return out
}

func clone(m *mat.CDense) *mat.CDense {
	rows, cols := m.Dims()
	out := mat.NewCDense(rows, cols, nil)
	out.Copy(m)
	return out
}
