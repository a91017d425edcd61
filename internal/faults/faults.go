// Package faults holds the error taxonomy shared by the solver packages.
// Packages wrap these sentinels with context so that callers can test the
// category with errors.Is.
package faults

import "errors"

var (
	// ErrConfig is returned when a caller supplies an invalid combination of
	// options: an unknown data source, gas or table, a malformed pressure
	// profile or an unsupported output selection.
	ErrConfig = errors.New("configuration error")

	// ErrNotImplemented is returned for requests the solver knows about but
	// does not support, e.g. a non-trapezoidal longitudinal integrator.
	ErrNotImplemented = errors.New("not implemented")

	// ErrShape is returned when array dimensions do not agree with the grids
	// they are supposed to be sampled on.
	ErrShape = errors.New("inconsistent data shape")
)
