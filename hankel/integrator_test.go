package hankel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/HankelXUV/grid"
	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
	"github.com/bob-anderson-ok/HankelXUV/prefactor"
	"github.com/bob-anderson-ok/HankelXUV/refindex"
	"github.com/bob-anderson-ok/HankelXUV/source"
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

// uniformProvider serves planes of constant amplitude on the given grids.
func uniformProvider(t *testing.T, z, r, omega []float64, amplitude complex128) *source.Provider {
	t.Helper()
	field := make([][][]complex128, len(z))
	for kz := range field {
		field[kz] = make([][]complex128, len(omega))
		for ko := range field[kz] {
			field[kz][ko] = make([]complex128, len(r))
			for kr := range field[kz][ko] {
				field[kz][ko][kr] = amplitude
			}
		}
	}
	p, err := source.NewStatic(grid.MustNew(z...), grid.MustNew(r...), grid.MustNew(omega...), field, source.Options{})
	require.NoError(t, err)
	return p
}

func vacuumConfig(distance float64, rFF []float64) Config {
	return Config{
		Distance:        distance,
		RgridFF:         rFF,
		Gas:             refindex.Vacuum,
		AbsorptionTable: refindex.Henke,
		DispersionTable: refindex.Henke,
		Lookup:          refindex.NewTables(),
		StoreEntryExit:  true,
	}
}

func argonConfig(p prefactor.Pressure) Config {
	return Config{
		Distance:          0.5,
		RgridFF:           []float64{0, 1e-4},
		Gas:               refindex.Argon,
		AbsorptionTable:   refindex.Henke,
		DispersionTable:   refindex.NIST,
		IncludeAbsorption: true,
		IncludeDispersion: true,
		Pressure:          p,
		Lookup:            flatLookup{delta: 1e-8, beta: 1e-9},
		NearField:         true,
	}
}

func TestVacuumThreePlanes(t *testing.T) {
	z := []float64{0, 1, 2}
	omega := []float64{1e15, 2e15}
	p := uniformProvider(t, z, []float64{0}, omega, 1)

	it, err := NewIntegrator(vacuumConfig(10, []float64{0}))
	require.NoError(t, err)
	res, err := it.Run(context.Background(), p)
	require.NoError(t, err)

	plane := mat.NewCDense(2, 1, []complex128{1, 1})
	single, err := Transform(plane, omega, []float64{0}, 10, []float64{0}, TransformOptions{})
	require.NoError(t, err)
	for ko := range omega {
		assert.Equal(t, 2*single.At(ko, 0), res.FarField.At(ko, 0))
	}
	assert.Equal(t, omega, res.Omega)
	assert.Nil(t, res.Z)
}

func TestVacuumTrapezoidAlongZ(t *testing.T) {
	z := []float64{0, 0.5, 1.5}
	r := grid.Linspace(0, 5e-5, 21)
	omega := []float64{1e16, 2e16}
	rFF := []float64{0, 2e-4}
	const distance = 4.0

	cfg := vacuumConfig(distance, rFF)
	cfg.NearField = true
	it, err := NewIntegrator(cfg)
	require.NoError(t, err)
	res, err := it.Run(context.Background(), uniformProvider(t, z, r, omega, 1))
	require.NoError(t, err)

	plane, _ := disc(omega, len(r))
	transforms := make([]*mat.CDense, len(z))
	for k := range z {
		transforms[k], err = Transform(plane, omega, r, distance-z[k], rFF, TransformOptions{NearField: true})
		require.NoError(t, err)
	}
	for ko := range omega {
		for j := range rFF {
			want := 0.25*(transforms[0].At(ko, j)+transforms[1].At(ko, j)) +
				0.5*(transforms[1].At(ko, j)+transforms[2].At(ko, j))
			assert.InDelta(t, real(want), real(res.FarField.At(ko, j)), 1e-22)
			assert.InDelta(t, imag(want), imag(res.FarField.At(ko, j)), 1e-22)
		}
	}
	assert.True(t, mat.CEqual(transforms[0], res.Entry))
	assert.True(t, mat.CEqual(transforms[2], res.Exit))
}

func TestRunIsRepeatable(t *testing.T) {
	z := []float64{0, 0.1, 0.3, 0.4}
	r := grid.Linspace(0, 5e-5, 11)
	omega := []float64{1e16, 1.5e16, 2e16}
	p := uniformProvider(t, z, r, omega, complex(1, -0.5))

	it, err := NewIntegrator(argonConfig(prefactor.ZProfile{Z: []float64{0, 0.4}, Value: []float64{1, 0.2}}))
	require.NoError(t, err)
	first, err := it.Run(context.Background(), p)
	require.NoError(t, err)
	second, err := it.Run(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, mat.CEqual(first.FarField, second.FarField))
}

func TestCumulativeOutputs(t *testing.T) {
	z := []float64{0, 0.1, 0.2, 0.3}
	r := grid.Linspace(0, 5e-5, 11)
	omega := []float64{1e16, 2e16}

	cfg := argonConfig(prefactor.ZProfile{Z: []float64{0, 0.3}, Value: []float64{0.5, 1}})
	cfg.StoreCumulative = true
	cfg.StoreNonNormalisedCumulative = true
	it, err := NewIntegrator(cfg)
	require.NoError(t, err)
	res, err := it.Run(context.Background(), uniformProvider(t, z, r, omega, 1))
	require.NoError(t, err)

	assert.Equal(t, z, res.Z)
	require.Len(t, res.Cumulative, len(z)-1)
	require.Len(t, res.CumulativeRaw, len(z)-1)
	assert.True(t, mat.CEqual(res.FarField, res.CumulativeRaw[len(z)-2]))

	factor, err := prefactor.New(grid.MustNew(z...), grid.MustNew(r...), grid.MustNew(omega...), cfg.prefactor())
	require.NoError(t, err)
	for k := range res.Cumulative {
		renorm, ok := factor.Renorm(k)
		require.True(t, ok)
		for ko := range omega {
			for j := range cfg.RgridFF {
				want := complex(renorm[ko], 0) * res.CumulativeRaw[k].At(ko, j)
				got := res.Cumulative[k].At(ko, j)
				assert.InDelta(t, real(want), real(got), 1e-22, "step %d", k)
				assert.InDelta(t, imag(want), imag(got), 1e-22, "step %d", k)
			}
		}
	}

	// Snapshots are scaled with the absorption still ahead of the step's
	// first plane, so even the last one differs from the raw integral.
	first, raw := res.Cumulative[0].At(0, 0), res.CumulativeRaw[0].At(0, 0)
	assert.Greater(t, real(first)*real(first)+imag(first)*imag(first), real(raw)*real(raw)+imag(raw)*imag(raw))
	last, rawLast := res.Cumulative[len(z)-2].At(0, 0), res.CumulativeRaw[len(z)-2].At(0, 0)
	assert.Greater(t, real(last)*real(last)+imag(last)*imag(last), real(rawLast)*real(rawLast)+imag(rawLast)*imag(rawLast))
	assert.Nil(t, res.Entry)
}

func TestRadialPressureWithoutCumulative(t *testing.T) {
	z := []float64{0, 0.2}
	r := grid.Linspace(0, 5e-5, 6)
	omega := []float64{1e16}

	cfg := argonConfig(prefactor.RProfile{R: []float64{0, 5e-5}, Value: []float64{1, 0}})
	cfg.StoreNonNormalisedCumulative = true
	it, err := NewIntegrator(cfg)
	require.NoError(t, err)
	res, err := it.Run(context.Background(), uniformProvider(t, z, r, omega, 1))
	require.NoError(t, err)
	assert.Len(t, res.CumulativeRaw, 1)
}

func TestNewIntegratorErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"longitudinal rule", func(c *Config) { c.Longitudinal = "simpson" }, faults.ErrNotImplemented},
		{"no lookup", func(c *Config) { c.Lookup = nil }, faults.ErrConfig},
		{"unknown gas", func(c *Config) { c.Gas = refindex.Xenon }, faults.ErrConfig},
		{"excluded table still checked", func(c *Config) {
			c.Gas = refindex.Krypton
			c.IncludeAbsorption, c.IncludeDispersion = false, false
		}, faults.ErrConfig},
		{"bad pressure", func(c *Config) { c.Pressure = prefactor.Scalar(-2) }, faults.ErrConfig},
		{"empty far field", func(c *Config) { c.RgridFF = nil }, faults.ErrConfig},
		{"zero distance", func(c *Config) { c.Distance = 0 }, faults.ErrConfig},
		{"negative distance", func(c *Config) { c.Distance = -1 }, faults.ErrConfig},
		{"cumulative with r table", func(c *Config) {
			c.StoreCumulative = true
			c.Pressure = prefactor.RProfile{R: []float64{0, 1}, Value: []float64{1, 1}}
		}, faults.ErrNotImplemented},
		{"cumulative with zr table", func(c *Config) {
			c.StoreCumulative = true
			c.Pressure = prefactor.ZRProfile{Z: []float64{0}, R: []float64{0}, Value: [][]float64{{1}}}
		}, ErrRenormUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := argonConfig(prefactor.Scalar(1))
			tc.mutate(&cfg)
			_, err := NewIntegrator(cfg)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRunRejectsMediumBeyondScreen(t *testing.T) {
	it, err := NewIntegrator(vacuumConfig(1, []float64{0}))
	require.NoError(t, err)
	_, err = it.Run(context.Background(), uniformProvider(t, []float64{0, 0.5, 1}, []float64{0}, []float64{1e15}, 1))
	assert.ErrorIs(t, err, faults.ErrConfig)
}

func TestRunHonoursCancellation(t *testing.T) {
	it, err := NewIntegrator(vacuumConfig(10, []float64{0}))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = it.Run(ctx, uniformProvider(t, []float64{0, 1}, []float64{0, 1e-5}, []float64{1e16}, 1))
	assert.ErrorIs(t, err, context.Canceled)
}
