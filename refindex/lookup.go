package refindex

import (
	"math"

	"gonum.org/v1/gonum/unit/constant"
)

var (
	lightSpeed = float64(constant.LightSpeedInVacuum)
	planck     = float64(constant.Planck)
	eCharge    = float64(constant.ElementaryCharge)
	boltzmann  = float64(constant.Boltzmann)
)

const (
	// classicalElectronRadius in metres (CODATA 2018).
	classicalElectronRadius = 2.8179403262e-15

	// Reference state for the tabulated coefficients: 1 bar, 0 °C.
	referencePressurePa   = 1e5
	referenceTemperatureK = 273.15
)

// ReferenceDensity is the ideal-gas number density (m^-3) at the reference
// state. Pressures handed to a Lookup are in units of this state, so a
// pressure of 1 means 1 bar at 0 °C.
var ReferenceDensity = referencePressurePa / (boltzmann * referenceTemperatureK)

// Lookup resolves dispersion and absorption for gas/table keys.
//
// Dispersion returns (n_IR - n_XUV(omega, pressure)) / c, the slowness
// mismatch between the driving field frame and the generated XUV field, in
// s/m. BetaRef returns the imaginary part of the XUV refractive index at the
// reference pressure. Both must be safe for concurrent use.
type Lookup interface {
	Keys() []Key
	Supports(k Key) bool
	Dispersion(omega, pressure float64, k Key, nIR float64) (float64, error)
	BetaRef(omega float64, k Key) (float64, error)
}

// PhotonEnergyEV converts an angular frequency in rad/s to photon energy in eV.
func PhotonEnergyEV(omega float64) float64 {
	return planck * omega / (2 * math.Pi * eCharge)
}

// Wavelength converts an angular frequency in rad/s to a vacuum wavelength in m.
func Wavelength(omega float64) float64 {
	return 2 * math.Pi * lightSpeed / omega
}

// scatteringPrefactor maps atomic scattering factors f1, f2 to delta, beta at
// the reference density: (r_e * lambda^2 / 2pi) * N_ref.
func scatteringPrefactor(omega float64) float64 {
	lambda := Wavelength(omega)
	return classicalElectronRadius * lambda * lambda * ReferenceDensity / (2 * math.Pi)
}

// FrameCorrection is the dispersion term left when the XUV index equals one:
// it keeps the co-moving frame of a driving field with index nIR.
func FrameCorrection(nIR float64) float64 {
	return (nIR - 1) / lightSpeed
}
