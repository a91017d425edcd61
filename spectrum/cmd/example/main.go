// Example program demonstrating how to use the spectrum package to:
// 1. Integrate a synthetic Gaussian source through a vacuum target
// 2. Extract the on-axis spectrum and an angular lineout
// 3. Plot both and save the far-field intensity as a 16-bit image
//
// Usage:
//
//	go run main.go
//
// The plots are written to the current directory.
package main

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/bob-anderson-ok/HankelXUV/grid"
	"github.com/bob-anderson-ok/HankelXUV/hankel"
	"github.com/bob-anderson-ok/HankelXUV/refindex"
	"github.com/bob-anderson-ok/HankelXUV/source"
	"github.com/bob-anderson-ok/HankelXUV/spectrum"
)

func main() {
	fmt.Println("Far-field Spectrum Example")
	fmt.Println("==========================")

	// Harmonics 15..35 of an 800 nm driver
	const omega0 = 2.354564e15
	omegaValues := grid.Linspace(15*omega0, 35*omega0, 201)
	z := grid.MustNew(grid.Linspace(0, 5e-3, 11)...)
	r := grid.MustNew(grid.Linspace(0, 1e-4, 101)...)
	omega := grid.MustNew(omegaValues...)

	// Gaussian beam of 30 µm waist whose strength peaks at H25
	field := make([][][]complex128, z.Len())
	for kz := range field {
		field[kz] = make([][]complex128, omega.Len())
		for ko, w := range omegaValues {
			amplitude := math.Exp(-math.Pow((w/omega0-25)/4, 2))
			field[kz][ko] = make([]complex128, r.Len())
			for kr := range field[kz][ko] {
				rho := r.At(kr) / 30e-6
				field[kz][ko][kr] = complex(amplitude*math.Exp(-rho*rho), 0)
			}
		}
	}
	target, err := source.NewStatic(z, r, omega, field, source.Options{})
	if err != nil {
		log.Fatalf("Failed to build source: %v", err)
	}

	rFF := grid.Linspace(0, 5e-3, 64)
	const distance = 1.0
	integrator, err := hankel.NewIntegrator(hankel.Config{
		Distance:        distance,
		RgridFF:         rFF,
		Gas:             refindex.Vacuum,
		AbsorptionTable: refindex.Henke,
		DispersionTable: refindex.Henke,
		Lookup:          refindex.NewTables(),
		NearField:       true,
	})
	if err != nil {
		log.Fatalf("Failed to configure integrator: %v", err)
	}
	result, err := integrator.Run(context.Background(), target)
	if err != nil {
		log.Fatalf("Integration failed: %v", err)
	}

	intensity := spectrum.Intensity(result.FarField)
	onAxis := spectrum.Normalize(spectrum.OnAxis(intensity, result.Omega, 0))
	fmt.Printf("\nComputed %d spectral points on %d far-field radii\n", len(onAxis), len(rFF))

	err = spectrum.SaveSpectrumPlot("onaxis_spectrum.png", onAxis, spectrum.PlotOptions{
		Title:  "On-axis far-field spectrum",
		XLabel: "photon energy (eV)",
		YLabel: "normalized intensity",
		Log:    true,
	}, 1200, 500)
	if err != nil {
		log.Printf("Could not save spectrum plot: %v\n", err)
	} else {
		fmt.Println("Saved spectrum plot to onaxis_spectrum.png")
	}

	// Lineout at H25
	lineout := spectrum.Normalize(spectrum.Lineout(intensity, rFF, distance, 100))
	err = spectrum.SaveSpectrumPlot("h25_lineout.png", lineout, spectrum.PlotOptions{
		Title:  "H25 angular profile",
		XLabel: "angle (mrad)",
		YLabel: "normalized intensity",
		XStep:  0.5,
	}, 1200, 500)
	if err != nil {
		log.Printf("Could not save lineout plot: %v\n", err)
	} else {
		fmt.Println("Saved lineout plot to h25_lineout.png")
	}

	peak := 0.0
	for _, row := range intensity {
		for _, v := range row {
			peak = math.Max(peak, v)
		}
	}
	if peak > 0 {
		if err := spectrum.SaveIntensityPNG("farfield16bit.png", intensity, math.MaxUint16/peak); err != nil {
			log.Printf("Could not save intensity image: %v\n", err)
		} else {
			fmt.Println("Saved far-field intensity to farfield16bit.png")
		}
	}
}
