package spectrum_test

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/HankelXUV/spectrum"
)

// Example reads the on-axis spectrum and a lineout from a small far-field
// matrix (2 frequencies x 3 radii).
func Example() {
	farField := mat.NewCDense(2, 3, []complex128{
		2, 1 + 1i, 0,
		4i, 2, 1,
	})
	intensity := spectrum.Intensity(farField)

	for _, p := range spectrum.Normalize(spectrum.OnAxis(intensity, []float64{3e16, 6e16}, 0)) {
		fmt.Printf("%.2f eV: %.2f\n", p.X, p.Y)
	}
	for _, p := range spectrum.Lineout(intensity, []float64{0, 1e-3, 2e-3}, 1, 1) {
		fmt.Printf("%.3f mrad: %.0f\n", p.X, p.Y)
	}

	// Output:
	// 19.75 eV: 0.25
	// 39.49 eV: 1.00
	// 0.000 mrad: 16
	// 1.000 mrad: 4
	// 2.000 mrad: 1
}
