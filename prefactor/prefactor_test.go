package prefactor

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/HankelXUV/grid"
	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
	"github.com/bob-anderson-ok/HankelXUV/refindex"
)

// flatLookup has frequency independent delta_ref and beta_ref for argon.
type flatLookup struct {
	delta, beta float64
}

func (flatLookup) Keys() []refindex.Key { return nil }

func (flatLookup) Supports(k refindex.Key) bool {
	return k.Gas == refindex.Argon || k.IsVacuum()
}

func (l flatLookup) Dispersion(_, pressure float64, k refindex.Key, nIR float64) (float64, error) {
	if k.IsVacuum() {
		return refindex.FrameCorrection(nIR), nil
	}
	return refindex.FrameCorrection(nIR) + pressure*l.delta/lightSpeed, nil
}

func (l flatLookup) BetaRef(_ float64, k refindex.Key) (float64, error) {
	if k.IsVacuum() {
		return 0, nil
	}
	return l.beta, nil
}

var (
	zGrid     = grid.MustNew(0, 0.25, 0.5, 0.75, 1)
	rGrid     = grid.MustNew(0, 1e-4, 2e-4)
	omegaGrid = grid.MustNew(1e16, 2e16)
)

func argon(p Pressure) Config {
	return Config{
		Gas:               refindex.Argon,
		AbsorptionTable:   refindex.Henke,
		DispersionTable:   refindex.Henke,
		IncludeAbsorption: true,
		IncludeDispersion: true,
		Pressure:          p,
		Lookup:            flatLookup{delta: 1e-8, beta: 1e-9},
	}
}

func assertPlanesClose(t *testing.T, want, got *mat.CDense) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, []int{wr, wc}, []int{gr, gc})
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			w, g := want.At(i, j), got.At(i, j)
			assert.InDelta(t, real(w), real(g), 1e-9, "re(%d,%d)", i, j)
			assert.InDelta(t, imag(w), imag(g), 1e-9, "im(%d,%d)", i, j)
		}
	}
}

func TestVacuumIsUnity(t *testing.T) {
	cfg := argon(Scalar(1))
	cfg.Gas = refindex.Vacuum
	f, err := New(zGrid, rGrid, omegaGrid, cfg)
	require.NoError(t, err)
	assert.Equal(t, KindScalar, f.Kind())
	assert.Equal(t, zGrid.Len(), f.Len())

	for kz := 0; kz < f.Len(); kz++ {
		assertPlanesClose(t, broadcast([]complex128{1, 1}, rGrid.Len()), f.Plane(kz))
		renorm, ok := f.Renorm(kz)
		require.True(t, ok)
		assert.Equal(t, []float64{1, 1}, renorm)
	}
}

func TestScalarBranch(t *testing.T) {
	const p = 0.5
	l := flatLookup{delta: 1e-8, beta: 1e-9}
	f, err := New(zGrid, rGrid, omegaGrid, argon(Scalar(p)))
	require.NoError(t, err)

	kz := 1
	z, zLast := zGrid.At(kz), zGrid.Last()
	plane := f.Plane(kz)
	for ko, w := range omegaGrid.Values() {
		d := p * l.delta / lightSpeed
		a := p * l.beta / lightSpeed
		want := complex(p, 0) * cmplx.Exp(complex(w*(z-zLast)*a, w*z*d))
		for kr := 0; kr < rGrid.Len(); kr++ {
			assert.InDelta(t, real(want), real(plane.At(ko, kr)), 1e-12)
			assert.InDelta(t, imag(want), imag(plane.At(ko, kr)), 1e-12)
		}
	}

	renorm, ok := f.Renorm(zGrid.Len() - 1)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 1}, renorm)

	renorm, _ = f.Renorm(0)
	for ko, w := range omegaGrid.Values() {
		assert.InDelta(t, math.Exp(zLast*w*p*l.beta/lightSpeed), renorm[ko], 1e-12)
	}
}

func TestProfilesMatchScalarWhenConstant(t *testing.T) {
	const p = 0.7
	scalar, err := New(zGrid, rGrid, omegaGrid, argon(Scalar(p)))
	require.NoError(t, err)

	profiles := map[string]Pressure{
		"z":  ZProfile{Z: []float64{0, 0.4, 1}, Value: []float64{p, p, p}},
		"r":  RProfile{R: []float64{0, 5e-4}, Value: []float64{p, p}},
		"zr": ZRProfile{Z: []float64{0, 1}, R: []float64{0, 5e-4}, Value: [][]float64{{p, p}, {p, p}}},
	}
	for name, profile := range profiles {
		t.Run(name, func(t *testing.T) {
			f, err := New(zGrid, rGrid, omegaGrid, argon(profile))
			require.NoError(t, err)
			assert.Equal(t, profile.Kind(), f.Kind())
			for kz := 0; kz < zGrid.Len(); kz++ {
				assertPlanesClose(t, scalar.Plane(kz), f.Plane(kz))
			}
		})
	}
}

func TestZProfileRenorm(t *testing.T) {
	f, err := New(zGrid, rGrid, omegaGrid, argon(ZProfile{Z: []float64{0, 1}, Value: []float64{0.7, 0.7}}))
	require.NoError(t, err)
	scalar, err := New(zGrid, rGrid, omegaGrid, argon(Scalar(0.7)))
	require.NoError(t, err)

	for kz := 0; kz < zGrid.Len(); kz++ {
		got, ok := f.Renorm(kz)
		require.True(t, ok)
		want, _ := scalar.Renorm(kz)
		assert.InDeltaSlice(t, want, got, 1e-12)
	}
}

func TestZProfileRenormVaryingTable(t *testing.T) {
	f, err := New(zGrid, rGrid, omegaGrid, argon(ZProfile{Z: []float64{0, 1}, Value: []float64{0.5, 2}}))
	require.NoError(t, err)

	last, ok := f.Renorm(zGrid.Len() - 1)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 1}, last)

	// int p dz over the table is 1.25, interpolated linearly onto the z grid
	beta := 1e-9 / lightSpeed
	for kz, z := range zGrid.Values() {
		got, ok := f.Renorm(kz)
		require.True(t, ok)
		for ko, w := range omegaGrid.Values() {
			assert.InDelta(t, math.Exp(w*beta*1.25*(1-z)), got[ko], 1e-12, "kz=%d ko=%d", kz, ko)
			assert.GreaterOrEqual(t, got[ko], 1.0)
		}
	}
}

func TestZProfileFollowsLocalPressure(t *testing.T) {
	cfg := argon(ZProfile{Z: []float64{0, 1}, Value: []float64{0, 2}})
	cfg.IncludeAbsorption = false
	f, err := New(zGrid, rGrid, omegaGrid, cfg)
	require.NoError(t, err)

	for kz, z := range zGrid.Values() {
		plane := f.Plane(kz)
		assert.InDelta(t, 2*z, cmplx.Abs(plane.At(1, 2)), 1e-12)
	}
}

func TestRadialAndMeshHaveNoRenorm(t *testing.T) {
	for _, p := range []Pressure{
		RProfile{R: []float64{0, 1}, Value: []float64{1, 0}},
		ZRProfile{Z: []float64{0, 1}, R: []float64{0, 1}, Value: [][]float64{{1, 0}, {1, 0}}},
	} {
		f, err := New(zGrid, rGrid, omegaGrid, argon(p))
		require.NoError(t, err)
		_, ok := f.Renorm(0)
		assert.False(t, ok, p.Kind().String())
	}
}

func TestMeshWorkersAreDeterministic(t *testing.T) {
	p := ZRProfile{
		Z:     []float64{0, 0.5, 1},
		R:     []float64{0, 1e-4, 3e-4},
		Value: [][]float64{{1, 0.5, 0}, {0.8, 0.4, 0.1}, {0.2, 0.2, 0.2}},
	}
	serial := argon(p)
	serial.Workers = 1
	parallel := argon(p)
	parallel.Workers = 0

	a, err := New(zGrid, rGrid, omegaGrid, serial)
	require.NoError(t, err)
	b, err := New(zGrid, rGrid, omegaGrid, parallel)
	require.NoError(t, err)
	for kz := 0; kz < zGrid.Len(); kz++ {
		assert.True(t, mat.CEqual(a.Plane(kz), b.Plane(kz)))
	}
}

func TestExcludedTablesAreNotChecked(t *testing.T) {
	cfg := argon(Scalar(1))
	cfg.Gas = refindex.Xenon
	_, err := New(zGrid, rGrid, omegaGrid, cfg)
	assert.ErrorIs(t, err, faults.ErrConfig)

	cfg.IncludeAbsorption = false
	cfg.IncludeDispersion = false
	_, err = New(zGrid, rGrid, omegaGrid, cfg)
	assert.NoError(t, err)
}

func TestConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  func() Config
		want error
	}{
		{"no lookup", func() Config { c := argon(Scalar(1)); c.Lookup = nil; return c }, faults.ErrConfig},
		{"negative pressure", func() Config { return argon(Scalar(-1)) }, faults.ErrConfig},
		{"z table shape", func() Config { return argon(ZProfile{Z: []float64{0, 1}, Value: []float64{1}}) }, faults.ErrShape},
		{"r table order", func() Config { return argon(RProfile{R: []float64{1, 0}, Value: []float64{1, 1}}) }, faults.ErrConfig},
		{"mesh rows", func() Config {
			return argon(ZRProfile{Z: []float64{0, 1}, R: []float64{0}, Value: [][]float64{{1}}})
		}, faults.ErrShape},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(zGrid, rGrid, omegaGrid, tc.cfg())
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTables(t *testing.T) {
	p, err := Tables([]float64{0, 1}, nil, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, KindZ, p.Kind())

	p, err = Tables(nil, []float64{0, 1}, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, KindR, p.Kind())

	p, err = Tables([]float64{0, 1}, []float64{0, 1, 2}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.Equal(t, KindZR, p.Kind())
	assert.Equal(t, []float64{4, 5, 6}, p.(ZRProfile).Value[1])

	_, err = Tables([]float64{0, 1}, []float64{0, 1}, []float64{1})
	assert.ErrorIs(t, err, faults.ErrShape)

	_, err = Tables(nil, nil, []float64{1})
	assert.ErrorIs(t, err, faults.ErrConfig)
}

func TestCoherenceLength(t *testing.T) {
	l := flatLookup{delta: 1e-8}
	omega := []float64{1e16, 2e16}

	got, err := CoherenceLength(l, refindex.Key{Gas: refindex.Argon, Table: refindex.Henke}, omega, 1, 1)
	require.NoError(t, err)
	for i, w := range omega {
		assert.InDelta(t, math.Pi*lightSpeed/(w*1e-8), got[i], 1e-12)
	}

	got, err = CoherenceLength(l, refindex.Key{Gas: refindex.Vacuum, Table: refindex.NIST}, omega, 1, 1)
	require.NoError(t, err)
	assert.True(t, math.IsInf(got[0], 1))

	_, err = CoherenceLength(l, refindex.Key{Gas: refindex.Krypton, Table: refindex.NIST}, omega, 1, 1)
	assert.ErrorIs(t, err, faults.ErrConfig)
}

func TestEffectiveIndexFromInverseGroupVelocity(t *testing.T) {
	assert.InDelta(t, 1.0, EffectiveIndexFromInverseGroupVelocity(1/lightSpeed), 1e-15)
	assert.InDelta(t, 1.0003, EffectiveIndexFromInverseGroupVelocity(1.0003/lightSpeed), 1e-15)
}
