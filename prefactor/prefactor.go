// Package prefactor computes the complex weight that accounts for dispersion
// and absorption of the XUV field between its generation plane and the exit
// of the medium.
//
// The factor for plane z and frequency omega is
//
//	p(z) * exp(omega * (i*Phi(z) + A(z) - A(z_last)))
//
// where Phi accumulates the slowness mismatch (n_IR - n_XUV)/c and A the
// absorption p*beta_ref/c along z. How Phi and A are accumulated depends on
// the pressure regime, see Kind.
package prefactor

import (
	"fmt"
	"math"
	"math/cmplx"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/HankelXUV/grid"
	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
	"github.com/bob-anderson-ok/HankelXUV/refindex"
)

// Config selects the medium.
type Config struct {
	Gas             string
	AbsorptionTable string
	DispersionTable string

	IncludeAbsorption bool
	IncludeDispersion bool

	// EffectiveIRIndex is the index of the co-moving frame of the driving
	// field. Zero means 1, i.e. a vacuum-speed frame.
	EffectiveIRIndex float64

	// Pressure defaults to Scalar(1).
	Pressure Pressure
	Lookup   refindex.Lookup

	// Workers bounds the goroutines used by the zr branch; <= 0 means no limit.
	Workers int
}

func (c Config) nIR() float64 {
	if c.EffectiveIRIndex == 0 {
		return 1
	}
	return c.EffectiveIRIndex
}

func (c Config) pressure() Pressure {
	if c.Pressure == nil {
		return Scalar(1)
	}
	return c.Pressure
}

// Factor yields pre-factor planes on the computational grids it was built for.
type Factor interface {
	Kind() Kind
	// Len is the number of z planes.
	Len() int
	// Plane returns the (omega x r) factor for plane kz. The matrix must
	// not be modified.
	Plane(kz int) *mat.CDense
	// Renorm returns, per omega, the factor undoing the absorption between
	// plane kz and the exit plane. ok is false for regimes where the
	// absorption depends on r and no per-omega renormalisation exists.
	Renorm(kz int) (factor []float64, ok bool)
}

// Validate reports configuration errors without evaluating anything.
func (c Config) Validate() error {
	if c.Lookup == nil {
		return fmt.Errorf("prefactor: no refractive-index lookup: %w", faults.ErrConfig)
	}
	if _, err := c.key(c.AbsorptionTable, c.IncludeAbsorption); err != nil {
		return err
	}
	if _, err := c.key(c.DispersionTable, c.IncludeDispersion); err != nil {
		return err
	}
	return c.pressure().validate()
}

func (c Config) key(table string, included bool) (refindex.Key, error) {
	k := refindex.Key{Gas: c.Gas, Table: table}
	if !included || k.IsVacuum() {
		return k, nil
	}
	if !c.Lookup.Supports(k) {
		return k, fmt.Errorf("prefactor: unsupported gas/table %s: %w", k, faults.ErrConfig)
	}
	return k, nil
}

// New evaluates the pre-factor for the given grids. All table lookups happen
// here, so Plane and Renorm never fail.
func New(z, r, omega grid.Grid, cfg Config) (Factor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := builder{
		zGrid: z, rGrid: r,
		z: z.Values(), r: r.Values(), omega: omega.Values(), cfg: cfg, nIR: cfg.nIR(),
		absKey:  refindex.Key{Gas: cfg.Gas, Table: cfg.AbsorptionTable},
		dispKey: refindex.Key{Gas: cfg.Gas, Table: cfg.DispersionTable},
	}
	switch p := cfg.pressure().(type) {
	case Scalar:
		return b.scalar(float64(p))
	case ZProfile:
		return b.zProfile(p)
	case RProfile:
		return b.rProfile(p)
	case ZRProfile:
		return b.zrProfile(p)
	default:
		return nil, fmt.Errorf("prefactor: pressure regime %v: %w", p.Kind(), faults.ErrNotImplemented)
	}
}

type builder struct {
	zGrid, rGrid    grid.Grid
	z, r, omega     []float64
	cfg             Config
	nIR             float64
	absKey, dispKey refindex.Key
}

// slowness is the dispersion rate in s/m at the given pressure, reduced to
// the frame correction when dispersion is off.
func (b *builder) slowness(omega, pressure float64) (float64, error) {
	if !b.cfg.IncludeDispersion {
		return refindex.FrameCorrection(b.nIR), nil
	}
	return b.cfg.Lookup.Dispersion(omega, pressure, b.dispKey, b.nIR)
}

// attenuation is the absorption rate p*beta_ref/c, zero when absorption is off.
func (b *builder) attenuation(omega, pressure float64) (float64, error) {
	if !b.cfg.IncludeAbsorption {
		return 0, nil
	}
	beta, err := b.cfg.Lookup.BetaRef(omega, b.absKey)
	if err != nil {
		return 0, err
	}
	return pressure * beta / lightSpeed, nil
}

func (b *builder) zLast() float64 { return b.z[len(b.z)-1] }

// broadcast expands a per-omega column across the r grid.
func broadcast(col []complex128, nr int) *mat.CDense {
	m := mat.NewCDense(len(col), nr, nil)
	for ko, v := range col {
		for kr := 0; kr < nr; kr++ {
			m.Set(ko, kr, v)
		}
	}
	return m
}

// uniformFactor covers the regimes without r dependence. values is (Nz x No)
// and absOmega, when present, holds omega*A(z) with the same layout.
type uniformFactor struct {
	kind     Kind
	nz, no   int
	nr       int
	values   []complex128
	absOmega []float64
}

func (f *uniformFactor) Kind() Kind { return f.kind }
func (f *uniformFactor) Len() int   { return f.nz }

func (f *uniformFactor) Plane(kz int) *mat.CDense {
	return broadcast(f.values[kz*f.no:(kz+1)*f.no], f.nr)
}

func (f *uniformFactor) Renorm(kz int) ([]float64, bool) {
	out := make([]float64, f.no)
	last := (f.nz - 1) * f.no
	for ko := range out {
		out[ko] = math.Exp(f.absOmega[last+ko] - f.absOmega[kz*f.no+ko])
	}
	return out, true
}

func (b *builder) scalar(p float64) (Factor, error) {
	nz, no := len(b.z), len(b.omega)
	f := &uniformFactor{kind: KindScalar, nz: nz, no: no, nr: len(b.r),
		values: make([]complex128, nz*no), absOmega: make([]float64, nz*no)}
	zLast := b.zLast()
	for ko, w := range b.omega {
		d, err := b.slowness(w, p)
		if err != nil {
			return nil, err
		}
		a, err := b.attenuation(w, p)
		if err != nil {
			return nil, err
		}
		for kz, z := range b.z {
			f.values[kz*no+ko] = complex(p, 0) * cmplx.Exp(complex(w*(z-zLast)*a, w*z*d))
			f.absOmega[kz*no+ko] = w * z * a
		}
	}
	return f, nil
}

// column evaluates the factor along z for one pressure table (zt, pt) and
// returns values and omega*A(z), both (Nz x No).
func (b *builder) column(zt, pt []float64) ([]complex128, []float64, error) {
	nz, no := len(b.z), len(b.omega)
	local, err := grid.InterpGrid(zt, pt, b.zGrid)
	if err != nil {
		return nil, nil, err
	}
	// int p dz, shared by every omega.
	integral, err := grid.InterpGrid(zt, grid.CumulativeTrapezoid(pt, zt, 0), b.zGrid)
	if err != nil {
		return nil, nil, err
	}

	values := make([]complex128, nz*no)
	absOmega := make([]float64, nz*no)
	rate := make([]float64, len(zt))
	phase := make([]float64, nz)
	for ko, w := range b.omega {
		if b.cfg.IncludeDispersion {
			for j, p := range pt {
				if rate[j], err = b.slowness(w, p); err != nil {
					return nil, nil, err
				}
			}
			if err := grid.InterpInto(phase, zt, grid.CumulativeTrapezoid(rate, zt, 0), b.z); err != nil {
				return nil, nil, err
			}
		} else {
			fc := refindex.FrameCorrection(b.nIR)
			for kz, z := range b.z {
				phase[kz] = fc * z
			}
		}
		a, err := b.attenuation(w, 1)
		if err != nil {
			return nil, nil, err
		}
		last := w * a * integral[nz-1]
		for kz := range b.z {
			ab := w * a * integral[kz]
			absOmega[kz*no+ko] = ab
			values[kz*no+ko] = complex(local[kz], 0) * cmplx.Exp(complex(ab-last, w*phase[kz]))
		}
	}
	return values, absOmega, nil
}

func (b *builder) zProfile(p ZProfile) (Factor, error) {
	values, absOmega, err := b.column(p.Z, p.Value)
	if err != nil {
		return nil, err
	}
	return &uniformFactor{kind: KindZ, nz: len(b.z), no: len(b.omega), nr: len(b.r),
		values: values, absOmega: absOmega}, nil
}

// radialFactor holds the r-modulated branch: the pressure is constant along
// z, so only the per-(r, omega) rates are stored.
type radialFactor struct {
	z        []float64
	omega    []float64
	pressure []float64 // on the r grid
	disp     []float64 // (Nr x No)
	abs      []float64 // (Nr x No)
}

func (b *builder) rProfile(p RProfile) (Factor, error) {
	nr, no := len(b.r), len(b.omega)
	pr, err := grid.InterpGrid(p.R, p.Value, b.rGrid)
	if err != nil {
		return nil, err
	}
	f := &radialFactor{z: b.z, omega: b.omega, pressure: pr,
		disp: make([]float64, nr*no), abs: make([]float64, nr*no)}
	for kr, pk := range pr {
		for ko, w := range b.omega {
			if f.disp[kr*no+ko], err = b.slowness(w, pk); err != nil {
				return nil, err
			}
			if f.abs[kr*no+ko], err = b.attenuation(w, pk); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func (f *radialFactor) Kind() Kind { return KindR }
func (f *radialFactor) Len() int   { return len(f.z) }

func (f *radialFactor) Plane(kz int) *mat.CDense {
	no, nr := len(f.omega), len(f.pressure)
	z, zLast := f.z[kz], f.z[len(f.z)-1]
	m := mat.NewCDense(no, nr, nil)
	for kr, p := range f.pressure {
		for ko, w := range f.omega {
			i := kr*no + ko
			m.Set(ko, kr, complex(p, 0)*cmplx.Exp(complex(w*(z-zLast)*f.abs[i], w*z*f.disp[i])))
		}
	}
	return m
}

func (f *radialFactor) Renorm(int) ([]float64, bool) { return nil, false }

// meshFactor holds the zr-modulated branch as (Nz x No x Nr); planes are
// views into it.
type meshFactor struct {
	nz, no, nr int
	values     []complex128
}

func (b *builder) zrProfile(p ZRProfile) (Factor, error) {
	nz, no, nr := len(b.z), len(b.omega), len(b.r)
	// Pressure resampled onto the computational r grid, one row per table z.
	onR := make([][]float64, len(p.Z))
	for i, row := range p.Value {
		var err error
		if onR[i], err = grid.InterpGrid(p.R, row, b.rGrid); err != nil {
			return nil, err
		}
	}

	f := &meshFactor{nz: nz, no: no, nr: nr, values: make([]complex128, nz*no*nr)}
	var g errgroup.Group
	if b.cfg.Workers > 0 {
		g.SetLimit(b.cfg.Workers)
	}
	for kr := 0; kr < nr; kr++ {
		g.Go(func() error {
			pt := make([]float64, len(p.Z))
			for i := range pt {
				pt[i] = onR[i][kr]
			}
			values, _, err := b.column(p.Z, pt)
			if err != nil {
				return fmt.Errorf("prefactor: r index %d: %w", kr, err)
			}
			for kz := 0; kz < nz; kz++ {
				for ko := 0; ko < no; ko++ {
					f.values[(kz*no+ko)*nr+kr] = values[kz*no+ko]
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *meshFactor) Kind() Kind { return KindZR }
func (f *meshFactor) Len() int   { return f.nz }

func (f *meshFactor) Plane(kz int) *mat.CDense {
	n := f.no * f.nr
	return mat.NewCDense(f.no, f.nr, f.values[kz*n:(kz+1)*n])
}

func (f *meshFactor) Renorm(int) ([]float64, bool) { return nil, false }
