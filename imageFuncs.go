package main

import (
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// logIntensity maps intensities to log10, leaving non-positive entries as
// NaN so the display stretch ignores them.
func logIntensity(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for y, row := range m {
		out[y] = make([]float64, len(row))
		for x, v := range row {
			if v > 0 {
				out[y][x] = math.Log10(v)
			} else {
				out[y][x] = math.NaN()
			}
		}
	}
	return out
}

// MatrixToGrayViewPercentile maps the pLow..pHigh percentile range of m to
// 0..255 and clamps; NaN and Inf become black. Rows of m are image rows.
func MatrixToGrayViewPercentile(m [][]float64, pLow, pHigh float64) (*image.Gray, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil, errors.New("empty matrix")
	}
	h := len(m)
	w := len(m[0])
	for y := 1; y < h; y++ {
		if len(m[y]) != w {
			return nil, errors.New("ragged matrix")
		}
	}
	if !(0 <= pLow && pLow < pHigh && pHigh <= 100) {
		return nil, errors.New("percentiles must satisfy 0 <= pLow < pHigh <= 100")
	}

	// Collect finite values for percentile computation
	vals := make([]float64, 0, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := m[y][x]
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return nil, errors.New("matrix has no finite values")
	}
	sort.Float64s(vals)

	lo := stat.Quantile(pLow/100, stat.LinInterp, vals, nil)
	hi := stat.Quantile(pHigh/100, stat.LinInterp, vals, nil)
	if hi == lo {
		hi = lo + 1 // avoid divide-by-zero; image becomes mostly constant
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			v := m[y][x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				img.Pix[row+x] = 0
				continue
			}
			t := math.Max(0, math.Min(1, (v-lo)/(hi-lo)))
			img.Pix[row+x] = uint8(math.Round(t * 255.0))
		}
	}
	return img, nil
}

func SaveGrayPNG(filename string, img *image.Gray) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}
