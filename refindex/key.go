// Package refindex is the refractive-index lookup service of the solver. For
// a photon angular frequency, gas species and table source it provides the
// dispersion term entering the phase-matching phase and the reference
// absorption coefficient.
package refindex

import (
	"fmt"
	"strings"

	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
)

// Gas species known to the lookup.
const (
	Helium  = "He"
	Neon    = "Ne"
	Argon   = "Ar"
	Krypton = "Kr"
	Xenon   = "Xe"
	Vacuum  = "vacuum"
)

// Table sources known to the lookup.
const (
	Henke = "Henke"
	NIST  = "NIST"
)

var knownGases = []string{Helium, Neon, Argon, Krypton, Xenon, Vacuum}
var knownTables = []string{Henke, NIST}

// Key selects one gas/table combination. Its string form is "<gas>_<table>",
// e.g. "Ar_NIST".
type Key struct {
	Gas   string
	Table string
}

func (k Key) String() string { return k.Gas + "_" + k.Table }

// IsVacuum reports whether the key refers to the vacuum pseudo-gas.
func (k Key) IsVacuum() bool { return k.Gas == Vacuum }

// ParseKey parses "<gas>_<table>".
func ParseKey(s string) (Key, error) {
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return Key{}, fmt.Errorf("refindex: malformed key %q: %w", s, faults.ErrConfig)
	}
	k := Key{Gas: s[:i], Table: s[i+1:]}
	if err := k.validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

func (k Key) validate() error {
	if !contains(knownGases, k.Gas) {
		return fmt.Errorf("refindex: unknown gas %q: %w", k.Gas, faults.ErrConfig)
	}
	if !contains(knownTables, k.Table) {
		return fmt.Errorf("refindex: unknown table source %q: %w", k.Table, faults.ErrConfig)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
