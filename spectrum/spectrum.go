// Package spectrum provides diagnostics for far-field results: intensity
// maps, on-axis spectra, angular lineouts, spectrum plots and 16-bit
// intensity images.
package spectrum

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/cmplx"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/bob-anderson-ok/HankelXUV/grid"
	"github.com/bob-anderson-ok/HankelXUV/refindex"
)

// Point is one sample of a spectrum or lineout.
type Point struct {
	X, Y float64
}

// ErrNoSamples is returned when there is nothing to plot.
var ErrNoSamples = errors.New("spectrum: no samples")

// Intensity returns |E|^2 for every element of a far-field matrix, indexed
// [omega][rFF].
func Intensity(m *mat.CDense) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := range rows {
		out[i] = make([]float64, cols)
		for j := range cols {
			a := cmplx.Abs(m.At(i, j))
			out[i][j] = a * a
		}
	}
	return out
}

// OnAxis returns the spectrum at far-field radius index j against photon
// energy in eV. With rFF[0] == 0, j = 0 is the on-axis spectrum.
func OnAxis(intensity [][]float64, omega []float64, j int) []Point {
	pts := make([]Point, len(omega))
	for ko, w := range omega {
		pts[ko] = Point{X: refindex.PhotonEnergyEV(w), Y: intensity[ko][j]}
	}
	return pts
}

// Lineout returns the intensity at frequency index ko against the
// observation angle in mrad, atan(rFF/distance).
func Lineout(intensity [][]float64, rFF []float64, distance float64, ko int) []Point {
	pts := make([]Point, len(rFF))
	for j, rho := range rFF {
		pts[j] = Point{X: 1e3 * math.Atan2(rho, distance), Y: intensity[ko][j]}
	}
	return pts
}

// BuildUp integrates samples indexed [omega][z] cumulatively along z. Column
// k of the result is the signal accumulated from z[0] to z[k].
func BuildUp(z []float64, samples [][]complex128) (*mat.CDense, error) {
	if len(z) == 0 || len(samples) == 0 {
		return nil, ErrNoSamples
	}
	out := mat.NewCDense(len(samples), len(z), nil)
	for ko, row := range samples {
		if len(row) != len(z) {
			return nil, fmt.Errorf("spectrum: frequency %d has %d samples along z, want %d", ko, len(row), len(z))
		}
		for kz, v := range grid.CumulativeTrapezoidComplex(row, z, 0) {
			out.Set(ko, kz, v)
		}
	}
	return out, nil
}

// HarmonicOrders expresses frequencies in units of the driving frequency.
func HarmonicOrders(omega []float64, omega0 float64) []float64 {
	out := make([]float64, len(omega))
	copy(out, omega)
	floats.Scale(1/omega0, out)
	return out
}

// Normalize scales Y so the largest value is one. An all-zero series is
// returned unchanged.
func Normalize(pts []Point) []Point {
	out := make([]Point, len(pts))
	copy(out, pts)
	peak := 0.0
	for _, p := range pts {
		peak = math.Max(peak, p.Y)
	}
	if peak == 0 {
		return out
	}
	for i := range out {
		out[i].Y /= peak
	}
	return out
}

// StepTicks is a tick marker with a fixed step.
type StepTicks struct {
	Step   float64
	Format string
}

func (t StepTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	start := math.Ceil(min/t.Step) * t.Step
	for v := start; v <= max; v += t.Step {
		ticks = append(ticks, plot.Tick{
			Value: v,
			Label: fmt.Sprintf(t.Format, v),
		})
	}
	return ticks
}

// PlotOptions label a spectrum plot. Log switches the y axis to a
// logarithmic scale, dropping non-positive samples. XStep > 0 places x ticks
// every XStep.
type PlotOptions struct {
	Title, XLabel, YLabel string
	Log                   bool
	XStep                 float64
}

func setFonts(p *plot.Plot) {
	for _, f := range []*text.Style{&p.Title.TextStyle, &p.X.Label.TextStyle, &p.Y.Label.TextStyle} {
		f.Font.Typeface = "Liberation"
		f.Font.Variant = "Sans"
		f.Font.Size = vg.Points(12)
	}
	for _, f := range []*text.Style{&p.X.Tick.Label, &p.Y.Tick.Label} {
		f.Font.Typeface = "Liberation"
		f.Font.Variant = "Sans"
		f.Font.Size = vg.Points(10)
	}
}

// PlotSpectrum renders pts as a line plot of wPx x hPx pixels.
func PlotSpectrum(pts []Point, opts PlotOptions, wPx, hPx float64) (image.Image, error) {
	xys := make(plotter.XYs, 0, len(pts))
	for _, pt := range pts {
		if opts.Log && pt.Y <= 0 {
			continue
		}
		xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
	}
	if len(xys) == 0 {
		return nil, ErrNoSamples
	}

	p := plot.New()
	setFonts(p)
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	if opts.Log {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	if opts.XStep > 0 {
		p.X.Tick.Marker = StepTicks{Step: opts.XStep, Format: "%.2f"}
	}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	p.Add(line)

	// Render to image
	const dpi = 96
	width := vg.Length(wPx) * vg.Inch / dpi
	height := vg.Length(hPx) * vg.Inch / dpi

	c := vgimg.New(width, height)
	dc := vgdraw.New(c)
	p.Draw(dc)

	return c.Image(), nil
}

// SaveSpectrumPlot creates and saves a spectrum plot to a PNG file.
func SaveSpectrumPlot(filename string, pts []Point, opts PlotOptions, wPx, hPx float64) error {
	img, err := PlotSpectrum(pts, opts, wPx, hPx)
	if err != nil {
		return err
	}
	return SaveImageToFile(filename, img)
}

// IntensityImage maps an intensity matrix to a 16-bit grayscale image, one
// row per frequency. Pixel values are intensity*scale, clipped to 65535.
func IntensityImage(intensity [][]float64, scale float64) *image.Gray16 {
	h := len(intensity)
	w := 0
	if h > 0 {
		w = len(intensity[0])
	}
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y, row := range intensity {
		for x, v := range row {
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Max(0, math.Min(math.MaxUint16, math.Round(v*scale))))})
		}
	}
	return img
}

// SaveIntensityPNG writes IntensityImage(intensity, scale) to filename.
func SaveIntensityPNG(filename string, intensity [][]float64, scale float64) error {
	return SaveImageToFile(filename, IntensityImage(intensity, scale))
}

// LoadIntensityPNG reads a map written by SaveIntensityPNG back into an
// intensity matrix indexed [omega][rFF]. Clipped pixels stay at 65535/scale.
func LoadIntensityPNG(filename string, scale float64) (intensity [][]float64, err error) {
	if !(scale > 0) {
		return nil, fmt.Errorf("spectrum: intensity scale %g must be positive", scale)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	gray, ok := img.(*image.Gray16)
	if !ok {
		return nil, fmt.Errorf("spectrum: %s is %T, not a 16-bit grayscale intensity map", filename, img)
	}

	b := gray.Bounds()
	intensity = make([][]float64, b.Dy())
	for y := range intensity {
		intensity[y] = make([]float64, b.Dx())
		for x := range intensity[y] {
			intensity[y][x] = float64(gray.Gray16At(b.Min.X+x, b.Min.Y+y).Y) / scale
		}
	}
	return intensity, nil
}

// SaveImageToFile saves an image to a PNG file.
func SaveImageToFile(filename string, img image.Image) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return png.Encode(f, img)
}
