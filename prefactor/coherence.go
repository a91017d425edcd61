package prefactor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/unit/constant"

	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
	"github.com/bob-anderson-ok/HankelXUV/refindex"
)

var lightSpeed = float64(constant.LightSpeedInVacuum)

// EffectiveIndexFromInverseGroupVelocity converts an inverse group velocity
// in s/m to the index of the corresponding co-moving frame.
func EffectiveIndexFromInverseGroupVelocity(invGroupVelocity float64) float64 {
	return invGroupVelocity * lightSpeed
}

// CoherenceLength returns pi / |omega * D| per frequency, where D is the
// dispersion rate of key k at the given pressure. A vanishing mismatch gives
// +Inf.
func CoherenceLength(lookup refindex.Lookup, k refindex.Key, omega []float64, pressure, nIR float64) ([]float64, error) {
	if lookup == nil || !lookup.Supports(k) {
		return nil, fmt.Errorf("prefactor: unsupported gas/table %s: %w", k, faults.ErrConfig)
	}
	out := make([]float64, len(omega))
	for i, w := range omega {
		d, err := lookup.Dispersion(w, pressure, k, nIR)
		if err != nil {
			return nil, err
		}
		mismatch := math.Abs(w * d)
		if mismatch == 0 {
			out[i] = math.Inf(1)
			continue
		}
		out[i] = math.Pi / mismatch
	}
	return out, nil
}
