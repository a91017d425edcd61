package main

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/bob-anderson-ok/HankelXUV/h5store"
	"github.com/bob-anderson-ok/HankelXUV/hankel"
	"github.com/bob-anderson-ok/HankelXUV/prefactor"
	"github.com/bob-anderson-ok/HankelXUV/spectrum"
)

// saveFarFieldPlots writes whichever plots and images the run file asks for.
func saveFarFieldPlots(params *RunParameters, result *hankel.Result) error {
	intensity := spectrum.Intensity(result.FarField)

	if params.SpectrumPlot != "" {
		pts := spectrum.Normalize(spectrum.OnAxis(intensity, result.Omega, 0))
		err := spectrum.SaveSpectrumPlot(params.SpectrumPlot, pts, spectrum.PlotOptions{
			Title:  plotTitle(params, "on-axis far-field spectrum"),
			XLabel: "photon energy (eV)",
			YLabel: "normalized intensity",
			Log:    true,
		}, 1200, 500)
		if err != nil {
			return fmt.Errorf("spectrum plot: %w", err)
		}
		fmt.Printf("Saved on-axis spectrum to %s\n", params.SpectrumPlot)
	}

	if params.LineoutPlot != "" {
		ko := nearestIndex(result.Omega, params.LineoutOmega)
		pts := spectrum.Normalize(spectrum.Lineout(intensity, result.RgridFF, params.DistanceFF, ko))
		err := spectrum.SaveSpectrumPlot(params.LineoutPlot, pts, spectrum.PlotOptions{
			Title:  plotTitle(params, fmt.Sprintf("angular profile at %.3e rad/s", result.Omega[ko])),
			XLabel: "angle (mrad)",
			YLabel: "normalized intensity",
		}, 1200, 500)
		if err != nil {
			return fmt.Errorf("lineout plot: %w", err)
		}
		fmt.Printf("Saved lineout to %s\n", params.LineoutPlot)
	}

	if params.IntensityPNG != "" {
		// Full 16-bit range; the scale is stored in the result archive for replot
		if scale := intensityScale(intensity); scale > 0 {
			if err := spectrum.SaveIntensityPNG(params.IntensityPNG, intensity, scale); err != nil {
				return err
			}
			fmt.Printf("Saved 16-bit intensity map to %s (scale %.6e)\n", params.IntensityPNG, scale)
		}
	}
	if params.IntensityViewPNG != "" {
		view, err := MatrixToGrayViewPercentile(logIntensity(intensity), 1, 99.9)
		if err != nil {
			return err
		}
		if err := SaveGrayPNG(params.IntensityViewPNG, view); err != nil {
			return err
		}
		fmt.Printf("Saved intensity view to %s\n", params.IntensityViewPNG)
	}
	return nil
}

// intensityScalePath holds the 16-bit PNG scale in the result archive.
const intensityScalePath = "outputs/intensity_png_scale"

// intensityScale maps the peak intensity to 65535, or returns 0 for an
// all-zero map.
func intensityScale(intensity [][]float64) float64 {
	peak := 0.0
	for _, row := range intensity {
		for _, v := range row {
			peak = math.Max(peak, v)
		}
	}
	if peak == 0 {
		return 0
	}
	return math.MaxUint16 / peak
}

// replotSpectrum redraws the on-axis spectrum from a saved 16-bit intensity
// map, using the frequency grid and scale stored in the result archive.
func replotSpectrum(resultFile, pngFile, plotFile string) (err error) {
	archive, err := h5store.Open(resultFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := archive.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	omega, err := archive.ReadFloats("grids/ogrid")
	if err != nil {
		return err
	}
	scale, err := archive.ReadScalar(intensityScalePath)
	if err != nil {
		return err
	}
	intensity, err := spectrum.LoadIntensityPNG(pngFile, scale)
	if err != nil {
		return err
	}
	if len(intensity) != len(omega) {
		return fmt.Errorf("%s has %d rows for %d frequencies in %s", pngFile, len(intensity), len(omega), resultFile)
	}
	pts := spectrum.Normalize(spectrum.OnAxis(intensity, omega, 0))
	return spectrum.SaveSpectrumPlot(plotFile, pts, spectrum.PlotOptions{
		Title:  "on-axis far-field spectrum",
		XLabel: "photon energy (eV)",
		YLabel: "normalized intensity",
		Log:    true,
	}, 1200, 500)
}

func plotTitle(params *RunParameters, what string) string {
	if params.Title == "" {
		return what
	}
	return params.Title + ": " + what
}

func nearestIndex(xs []float64, x float64) int {
	best := 0
	for i, v := range xs {
		if math.Abs(v-x) < math.Abs(xs[best]-x) {
			best = i
		}
	}
	return best
}

// MakePressurePlot draws a tabulated z pressure profile.
func MakePressurePlot(p prefactor.ZProfile, filename string) error {
	plt := plot.New()

	// Modify the font fields directly on existing styles
	plt.Title.TextStyle.Font.Typeface = "Liberation"
	plt.Title.TextStyle.Font.Variant = "Sans"
	plt.Title.TextStyle.Font.Size = vg.Points(12)

	plt.X.Label.TextStyle.Font.Typeface = "Liberation"
	plt.X.Label.TextStyle.Font.Variant = "Sans"
	plt.X.Label.TextStyle.Font.Size = vg.Points(12)

	plt.Y.Label.TextStyle.Font.Typeface = "Liberation"
	plt.Y.Label.TextStyle.Font.Variant = "Sans"
	plt.Y.Label.TextStyle.Font.Size = vg.Points(12)

	plt.Title.Text = "Pressure profile"
	plt.X.Label.Text = "z (mm)"
	plt.Y.Label.Text = "pressure (bar at 0 °C)"
	plt.Add(plotter.NewGrid()) // grid + ticks
	plt.Y.Min = 0.0

	n := len(p.Z)
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = 1e3 * p.Z[i]
		pts[i].Y = p.Value[i]
	}

	linePoints, scatterPoints, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	linePoints.Color = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	linePoints.Width = vg.Points(1)

	scatterPoints.Shape = draw.CircleGlyph{}
	scatterPoints.Radius = vg.Points(2)
	scatterPoints.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}

	plt.Add(linePoints, scatterPoints)

	return plt.Save(8*vg.Inch, 4*vg.Inch, filename)
}
