package prefactor

import (
	"fmt"
	"math"

	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
)

// Kind identifies the pressure-profile regime and therefore the pre-factor
// branch that handles it.
type Kind int

const (
	KindScalar Kind = iota // constant pressure
	KindZ                  // modulated along z
	KindR                  // modulated along r
	KindZR                 // modulated along z and r
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindZ:
		return "z-modulated"
	case KindR:
		return "r-modulated"
	case KindZR:
		return "zr-modulated"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Pressure is a gas-density profile in units of the reference state of the
// refractive-index tables. It is one of Scalar, ZProfile, RProfile or
// ZRProfile.
type Pressure interface {
	Kind() Kind
	validate() error
}

// Scalar is a spatially constant pressure.
type Scalar float64

// ZProfile tabulates pressure along z.
type ZProfile struct {
	Z, Value []float64
}

// RProfile tabulates pressure along r; the profile is constant along z.
type RProfile struct {
	R, Value []float64
}

// ZRProfile tabulates pressure on a (z, r) mesh; Value is indexed [z][r].
type ZRProfile struct {
	Z, R  []float64
	Value [][]float64
}

func (Scalar) Kind() Kind    { return KindScalar }
func (ZProfile) Kind() Kind  { return KindZ }
func (RProfile) Kind() Kind  { return KindR }
func (ZRProfile) Kind() Kind { return KindZR }

func (s Scalar) validate() error {
	if math.IsNaN(float64(s)) || s < 0 {
		return fmt.Errorf("prefactor: invalid pressure %v: %w", float64(s), faults.ErrConfig)
	}
	return nil
}

func (p ZProfile) validate() error { return validateTable("z", p.Z, p.Value) }
func (p RProfile) validate() error { return validateTable("r", p.R, p.Value) }

func (p ZRProfile) validate() error {
	if len(p.Value) != len(p.Z) {
		return fmt.Errorf("prefactor: pressure table has %d rows for %d z samples: %w", len(p.Value), len(p.Z), faults.ErrShape)
	}
	if err := increasing("z", p.Z); err != nil {
		return err
	}
	for i, row := range p.Value {
		if err := validateTable("r", p.R, row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func validateTable(axis string, xs, values []float64) error {
	if len(xs) != len(values) {
		return fmt.Errorf("prefactor: %s pressure table has %d positions and %d values: %w", axis, len(xs), len(values), faults.ErrShape)
	}
	return increasing(axis, xs)
}

func increasing(axis string, xs []float64) error {
	if len(xs) == 0 {
		return fmt.Errorf("prefactor: empty %s pressure table: %w", axis, faults.ErrConfig)
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return fmt.Errorf("prefactor: %s pressure table not increasing at %d: %w", axis, i, faults.ErrConfig)
		}
	}
	return nil
}

// Tables builds the profile variant from whichever tables are present,
// mirroring a pressure specification keyed by "zgrid" and/or "rgrid".
// values is indexed [z] for a z table, [r] for an r table and flattened
// row-major [z][r] when both are given. Without any table there is nothing
// to key on and Tables fails; use Scalar for constant pressure.
func Tables(z, r, values []float64) (Pressure, error) {
	switch {
	case z != nil && r != nil:
		if len(values) != len(z)*len(r) {
			return nil, fmt.Errorf("prefactor: %d values for a %dx%d pressure mesh: %w", len(values), len(z), len(r), faults.ErrShape)
		}
		rows := make([][]float64, len(z))
		for i := range rows {
			rows[i] = values[i*len(r) : (i+1)*len(r)]
		}
		p := ZRProfile{Z: z, R: r, Value: rows}
		return p, p.validate()
	case z != nil:
		p := ZProfile{Z: z, Value: values}
		return p, p.validate()
	case r != nil:
		p := RProfile{R: r, Value: values}
		return p, p.validate()
	}
	return nil, fmt.Errorf("prefactor: pressure table without zgrid or rgrid: %w", faults.ErrConfig)
}
