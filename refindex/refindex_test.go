package refindex

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
)

const argonHenke = `# synthetic argon table
E(eV)	f1	f2
10	-9999	1
20	2.0	1.0
30	4.0	0.5
40	6.0	0.25
`

func TestParseKey(t *testing.T) {
	t.Parallel()

	k, err := ParseKey("Ar_NIST")
	require.NoError(t, err)
	assert.Equal(t, Key{Gas: Argon, Table: NIST}, k)
	assert.Equal(t, "Ar_NIST", k.String())

	for _, bad := range []string{"", "Ar", "Ar_", "_Henke", "H2_Henke", "Ar_CXRO"} {
		_, err := ParseKey(bad)
		assert.ErrorIs(t, err, faults.ErrConfig, bad)
	}
}

func TestVacuumIsAlwaysSupported(t *testing.T) {
	t.Parallel()

	tab := NewTables()
	assert.True(t, tab.Supports(Key{Gas: Vacuum, Table: Henke}))
	assert.False(t, tab.Supports(Key{Gas: Argon, Table: Henke}))

	d, err := tab.Dispersion(3e16, 5, Key{Gas: Vacuum, Table: NIST}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)

	d, err = tab.Dispersion(3e16, 5, Key{Gas: Vacuum, Table: NIST}, 1.0003)
	require.NoError(t, err)
	assert.InEpsilon(t, 0.0003/lightSpeed, d, 1e-9)

	b, err := tab.BetaRef(3e16, Key{Gas: Vacuum, Table: NIST})
	require.NoError(t, err)
	assert.Equal(t, 0.0, b)
}

func TestTablesInterpolateScatteringFactors(t *testing.T) {
	t.Parallel()

	tab := NewTables()
	k := Key{Gas: Argon, Table: Henke}
	require.NoError(t, tab.Add(k, strings.NewReader(argonHenke)))
	require.True(t, tab.Supports(k))

	// omega for a 25 eV photon: f1 = 3, f2 = 0.75
	omega := 25 * 2 * math.Pi * eCharge / planck
	assert.InDelta(t, 25, PhotonEnergyEV(omega), 1e-9)

	pref := scatteringPrefactor(omega)
	beta, err := tab.BetaRef(omega, k)
	require.NoError(t, err)
	assert.InEpsilon(t, 0.75*pref, beta, 1e-12)

	d, err := tab.Dispersion(omega, 2, k, 1)
	require.NoError(t, err)
	assert.InEpsilon(t, 2*3*pref/lightSpeed, d, 1e-12)

	// energies past the table are clamped to the last row
	far := 100 * 2 * math.Pi * eCharge / planck
	beta, err = tab.BetaRef(far, k)
	require.NoError(t, err)
	assert.InEpsilon(t, 0.25*scatteringPrefactor(far), beta, 1e-12)
}

func TestAddRejectsBadTables(t *testing.T) {
	t.Parallel()

	tab := NewTables()
	k := Key{Gas: Neon, Table: NIST}
	assert.ErrorIs(t, tab.Add(k, strings.NewReader("1 2 3\n")), faults.ErrConfig)
	assert.ErrorIs(t, tab.Add(k, strings.NewReader("1 2 3\n0.5 2 3\n")), faults.ErrConfig)
	assert.ErrorIs(t, tab.Add(k, strings.NewReader("1 2\n")), faults.ErrShape)
	assert.ErrorIs(t, tab.Add(Key{Gas: Vacuum, Table: NIST}, strings.NewReader(argonHenke)), faults.ErrConfig)

	_, err := tab.Dispersion(1e16, 1, k, 1)
	assert.ErrorIs(t, err, faults.ErrConfig)
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Ar_Henke.nff"), []byte(argonHenke), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Kr_NIST.nff"), []byte(argonHenke), 0o644))

	tab, err := LoadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, k := range tab.Keys() {
		names = append(names, k.String())
	}
	assert.Equal(t, []string{"Ar_Henke", "Kr_NIST", "vacuum_Henke", "vacuum_NIST"}, names)
}
