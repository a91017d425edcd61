package main

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/HankelXUV/grid"
	"github.com/bob-anderson-ok/HankelXUV/h5store"
	"github.com/bob-anderson-ok/HankelXUV/hankel"
	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
	"github.com/bob-anderson-ok/HankelXUV/prefactor"
	"github.com/bob-anderson-ok/HankelXUV/source"
	"github.com/bob-anderson-ok/HankelXUV/spectrum"
)

func runHankel(ctx context.Context, params *RunParameters) (err error) {
	programStart := time.Now()

	lookup, err := loadLookup(params.TablesDir)
	if err != nil {
		return err
	}
	cfg, err := params.HankelConfig(lookup)
	if err != nil {
		return err
	}
	integrator, err := hankel.NewIntegrator(cfg)
	if err != nil {
		return err
	}

	in, err := h5store.Open(params.InputFile)
	if err != nil {
		return err
	}
	// The dynamic stream reads from the archive until Run returns
	defer func() {
		if cerr := in.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	provider, err := openProvider(in, params)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n", params.Title)
	fmt.Printf("Source: %s (%s), %d planes, %d radii, %d frequencies\n",
		params.InputFile, provider.Kind(), provider.Z.Len(), provider.R.Len(), provider.Omega.Len())
	fmt.Printf("Medium: %s, pressure regime %v, far field at %g m on %d radii\n",
		params.Gas, params.Pressure.Kind(), params.DistanceFF, params.NrFF)

	if zp, ok := params.Pressure.(prefactor.ZProfile); ok && params.PressurePlot != "" {
		if err := MakePressurePlot(zp, params.PressurePlot); err != nil {
			return fmt.Errorf("pressure plot: %w", err)
		}
	}

	integrationStart := time.Now()
	result, err := integrator.Run(ctx, provider)
	if err != nil {
		return err
	}
	fmt.Printf("Integration time: %s\n", time.Since(integrationStart))

	var buildUp *mat.CDense
	if params.StoreOnAxisBuildUp {
		if buildUp, err = onAxisBuildUp(provider); err != nil {
			return fmt.Errorf("on-axis build-up: %w", err)
		}
	}
	if err := writeResult(params, result, provider.Z.Values(), buildUp); err != nil {
		return err
	}
	fmt.Printf("Far field written to %s\n", params.OutputFile)

	if err := saveFarFieldPlots(params, result); err != nil {
		return err
	}

	fmt.Printf("Total run time: %s\n", time.Since(programStart))
	return nil
}

// openProvider reads the grids from the archive and builds the source. The
// z grid is truncated to the planes actually present in the field dataset.
func openProvider(in *h5store.File, params *RunParameters) (*source.Provider, error) {
	zv, err := in.ReadFloats(params.ZgridPath)
	if err != nil {
		return nil, err
	}
	rv, err := in.ReadFloats(params.RgridPath)
	if err != nil {
		return nil, err
	}
	dims, err := in.Dims(params.FieldPath)
	if err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("%s: scalar dataset", params.FieldPath)
	}
	nz, err := source.ConsistentLength(len(zv), dims[0])
	if err != nil {
		return nil, err
	}

	z, err := grid.New(zv[:nz])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", params.ZgridPath, err)
	}
	r, err := grid.New(rv)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", params.RgridPath, err)
	}
	opts := source.Options{
		OMin:  params.KoMin,
		OMax:  params.KoMax,
		OStep: params.KoStep,
		RMax:  params.KrMax,
		RStep: params.KrStep,
		ZStep: params.KzStep,
	}
	if params.DataSource == timeDomainSource {
		return timeDomainProvider(in, params, z, r, dims, opts)
	}

	ov, err := in.ReadFloats(params.OgridPath)
	if err != nil {
		return nil, err
	}
	omega, err := grid.New(ov)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", params.OgridPath, err)
	}

	input := source.Input{DataSource: params.DataSource, Store: in, Path: params.FieldPath}
	if params.DataSource == "static" {
		if input.Field, err = source.ReadField(in, params.FieldPath, nz); err != nil {
			return nil, err
		}
	}
	return source.New(z, r, omega, input, opts)
}

// timeDomainProvider loads a real (z, r, t) field and its time grid and
// serves the one-sided spectra from memory.
func timeDomainProvider(in *h5store.File, params *RunParameters, z, r grid.Grid, dims []int, opts source.Options) (*source.Provider, error) {
	t, err := in.ReadFloats(params.TgridPath)
	if err != nil {
		return nil, err
	}
	nz, nr, nt := z.Len(), r.Len(), len(t)
	if len(dims) != 3 || dims[1] != nr || dims[2] != nt {
		return nil, fmt.Errorf("%s: shape %v, want (>=%d, %d, %d): %w", params.FieldPath, dims, nz, nr, nt, faults.ErrShape)
	}
	data, err := in.ReadHyperslab(params.FieldPath, []int{0, 0, 0}, []int{1, 1, 1}, []int{nz, nr, nt})
	if err != nil {
		return nil, err
	}
	traces := make([][][]float64, nz)
	for kz := range traces {
		traces[kz] = make([][]float64, nr)
		for kr := range traces[kz] {
			off := (kz*nr + kr) * nt
			traces[kz][kr] = data[off : off+nt]
		}
	}
	ov, field, err := source.FromTimeDomain(t, traces)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", params.FieldPath, err)
	}
	omega, err := grid.New(ov)
	if err != nil {
		return nil, err
	}
	return source.NewStatic(z, r, omega, field, opts)
}

// onAxisBuildUp streams the source once more and accumulates its r = 0
// samples along z. The result is (omega x z).
func onAxisBuildUp(p *source.Provider) (*mat.CDense, error) {
	stream := p.Stream()
	samples := make([][]complex128, p.Omega.Len())
	for ko := range samples {
		samples[ko] = make([]complex128, stream.Len())
	}
	for kz := 0; stream.HasNext(); kz++ {
		plane, err := stream.NextPlane()
		if err != nil {
			return nil, err
		}
		for ko := range samples {
			samples[ko][kz] = plane.At(ko, 0)
		}
	}
	return spectrum.BuildUp(p.Z.Values(), samples)
}

func writeResult(params *RunParameters, result *hankel.Result, z []float64, buildUp *mat.CDense) (err error) {
	w, err := h5store.Create(params.OutputFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	writes := []func() error{
		func() error { return w.WriteFloats("grids/ogrid", result.Omega) },
		func() error { return w.WriteFloats("grids/rgrid_FF", result.RgridFF) },
		func() error { return w.WriteFloats("inputs/distance_FF", []float64{params.DistanceFF}) },
		func() error {
			return w.WriteFloats("inputs/effective_IR_refractive_index", []float64{params.EffectiveIRIndex})
		},
		func() error { return w.WriteComplex("FF_integrated", result.FarField) },
	}
	if result.Z != nil || buildUp != nil {
		writes = append(writes, func() error { return w.WriteFloats("grids/zgrid", z) })
	}
	if buildUp != nil {
		writes = append(writes, func() error { return w.WriteComplex("on_axis_signal_buildup", buildUp) })
	}
	if params.IntensityPNG != "" {
		if scale := intensityScale(spectrum.Intensity(result.FarField)); scale > 0 {
			writes = append(writes, func() error { return w.WriteFloats(intensityScalePath, []float64{scale}) })
		}
	}
	if len(result.Cumulative) > 0 {
		writes = append(writes, func() error { return w.WriteCube("cumulative_field", result.Cumulative) })
	}
	if len(result.CumulativeRaw) > 0 {
		writes = append(writes, func() error { return w.WriteCube("cumulative_field_no_norm", result.CumulativeRaw) })
	}
	if result.Entry != nil {
		writes = append(writes,
			func() error { return w.WriteComplex("entry_plane_transform", result.Entry) },
			func() error { return w.WriteComplex("exit_plane_transform", result.Exit) })
	}
	for _, write := range writes {
		if err := write(); err != nil {
			return err
		}
	}
	return nil
}
