package refindex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"

	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
)

// missingValue marks absent f1 entries in Henke .nff files.
const missingValue = -9999

type scatteringTable struct {
	f1, f2 interp.PiecewiseLinear
}

// Tables is a Lookup backed by atomic scattering factor tables (photon energy
// in eV, f1, f2), one per gas/table key, in the column layout of the Henke
// .nff files. Vacuum keys are always supported.
//
// Tables are filled with Add or LoadDir and must not be modified once a
// computation is using them.
type Tables struct {
	byKey map[Key]*scatteringTable
}

// NewTables returns an empty set of tables that only supports vacuum.
func NewTables() *Tables {
	return &Tables{byKey: make(map[Key]*scatteringTable)}
}

// LoadDir loads every "<gas>_<table>.nff" file found in dir.
func LoadDir(dir string) (*Tables, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.nff"))
	if err != nil {
		return nil, err
	}
	t := NewTables()
	for _, p := range paths {
		k, err := ParseKey(strings.TrimSuffix(filepath.Base(p), ".nff"))
		if err != nil {
			return nil, fmt.Errorf("refindex: table file %q: %w", p, err)
		}
		if err := t.addFile(k, p); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tables) addFile(k Key, path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("refindex: failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err = t.Add(k, f); err != nil {
		return fmt.Errorf("refindex: %s: %w", path, err)
	}
	return nil
}

// Add parses one table for key k from r. Lines are "E f1 f2"; blank lines,
// lines starting with '#' and a non-numeric header line are skipped, as are
// rows whose f1 is the -9999 placeholder.
func (t *Tables) Add(k Key, r io.Reader) error {
	if err := k.validate(); err != nil {
		return err
	}
	if k.IsVacuum() {
		return fmt.Errorf("refindex: vacuum takes no table: %w", faults.ErrConfig)
	}

	var energy, f1, f2 []float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 3 {
			return fmt.Errorf("line %d: want 3 columns, got %d: %w", line, len(fields), faults.ErrShape)
		}
		var row [3]float64
		var perr error
		for i := range row {
			row[i], perr = strconv.ParseFloat(fields[i], 64)
			if perr != nil {
				break
			}
		}
		if perr != nil {
			if len(energy) == 0 {
				continue // header
			}
			return fmt.Errorf("line %d: %v: %w", line, perr, faults.ErrConfig)
		}
		if row[1] == missingValue {
			continue
		}
		if n := len(energy); n > 0 && row[0] <= energy[n-1] {
			return fmt.Errorf("line %d: photon energies not increasing: %w", line, faults.ErrConfig)
		}
		energy = append(energy, row[0])
		f1 = append(f1, row[1])
		f2 = append(f2, row[2])
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if len(energy) < 2 {
		return fmt.Errorf("table %s has %d usable rows: %w", k, len(energy), faults.ErrConfig)
	}

	st := &scatteringTable{}
	if err := st.f1.Fit(energy, f1); err != nil {
		return err
	}
	if err := st.f2.Fit(energy, f2); err != nil {
		return err
	}
	t.byKey[k] = st
	return nil
}

// Keys lists the supported combinations in a stable order, vacuum included.
func (t *Tables) Keys() []Key {
	keys := make([]Key, 0, len(t.byKey)+len(knownTables))
	for k := range t.byKey {
		keys = append(keys, k)
	}
	for _, table := range knownTables {
		keys = append(keys, Key{Gas: Vacuum, Table: table})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Supports reports whether k can be looked up.
func (t *Tables) Supports(k Key) bool {
	if k.IsVacuum() {
		return contains(knownTables, k.Table)
	}
	_, ok := t.byKey[k]
	return ok
}

func (t *Tables) table(k Key) (*scatteringTable, error) {
	st, ok := t.byKey[k]
	if !ok {
		return nil, fmt.Errorf("refindex: no table loaded for %s: %w", k, faults.ErrConfig)
	}
	return st, nil
}

// Dispersion implements Lookup. With n_XUV = 1 - pressure*delta_ref the
// result is (nIR - 1 + pressure*delta_ref) / c.
func (t *Tables) Dispersion(omega, pressure float64, k Key, nIR float64) (float64, error) {
	if k.IsVacuum() {
		return FrameCorrection(nIR), nil
	}
	st, err := t.table(k)
	if err != nil {
		return 0, err
	}
	delta := scatteringPrefactor(omega) * st.f1.Predict(PhotonEnergyEV(omega))
	return FrameCorrection(nIR) + pressure*delta/lightSpeed, nil
}

// BetaRef implements Lookup.
func (t *Tables) BetaRef(omega float64, k Key) (float64, error) {
	if k.IsVacuum() {
		return 0, nil
	}
	st, err := t.table(k)
	if err != nil {
		return 0, err
	}
	return scatteringPrefactor(omega) * st.f2.Predict(PhotonEnergyEV(omega)), nil
}
