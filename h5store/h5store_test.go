package h5store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/HankelXUV/grid"
	"github.com/bob-anderson-ok/HankelXUV/source"
)

const fieldPath = "/outputs/FSourceTerm"

// writeArchive stores a (z, r, omega, 2) field whose entries encode their
// indices, plus the three grids.
func writeArchive(t *testing.T, name string, nz, nr, no int) {
	t.Helper()
	w, err := Create(name)
	require.NoError(t, err)

	data := make([]float64, 0, nz*nr*no*2)
	for kz := 0; kz < nz; kz++ {
		for kr := 0; kr < nr; kr++ {
			for ko := 0; ko < no; ko++ {
				data = append(data, float64(100*kz+10*kr+ko), -float64(ko))
			}
		}
	}
	require.NoError(t, w.WriteFloats(fieldPath, data, nz, nr, no, 2))
	require.NoError(t, w.WriteFloats("/outputs/zgrid", grid.Linspace(0, 1e-3, nz)))
	require.NoError(t, w.WriteFloats("/outputs/rgrid", grid.Linspace(0, 1e-4, nr)))
	require.NoError(t, w.WriteFloats("/outputs/omegagrid", grid.Linspace(1e15, 2e15, no)))
	require.NoError(t, w.WriteFloats("/inputs/distance", []float64{0.5}))
	require.NoError(t, w.Close())
}

func TestRoundTripGridsAndScalars(t *testing.T) {
	name := filepath.Join(t.TempDir(), "grids.h5")
	writeArchive(t, name, 3, 2, 4)

	f, err := Open(name)
	require.NoError(t, err)
	defer f.Close()

	dims, err := f.Dims(fieldPath)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 4, 2}, dims)

	z, err := f.ReadFloats("/outputs/zgrid")
	require.NoError(t, err)
	assert.Equal(t, grid.Linspace(0, 1e-3, 3), z)

	d, err := f.ReadScalar("/inputs/distance")
	require.NoError(t, err)
	assert.Equal(t, 0.5, d)
}

func TestDynamicSourceOverHDF5(t *testing.T) {
	name := filepath.Join(t.TempDir(), "field.h5")
	writeArchive(t, name, 3, 4, 5)

	f, err := Open(name)
	require.NoError(t, err)
	defer f.Close()

	z, _ := grid.New(grid.Linspace(0, 1e-3, 3))
	r, _ := grid.New(grid.Linspace(0, 1e-4, 4))
	o, _ := grid.New(grid.Linspace(1e15, 2e15, 5))
	p, err := source.NewDynamic(z, r, o, f, fieldPath, source.Options{OMin: 1, OStep: 2, RStep: 2})
	require.NoError(t, err)

	s := p.Stream()
	for kz := 0; s.HasNext(); kz++ {
		plane, err := s.NextPlane()
		require.NoError(t, err)
		rows, cols := plane.Dims()
		require.Equal(t, 2, rows)
		require.Equal(t, 2, cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				ko, kr := 1+2*i, 2*j
				assert.Equal(t, complex(float64(100*kz+10*kr+ko), -float64(ko)), plane.At(i, j))
			}
		}
	}
}

func TestWriteComplexAndCube(t *testing.T) {
	name := filepath.Join(t.TempDir(), "out.h5")
	w, err := Create(name)
	require.NoError(t, err)

	m := mat.NewCDense(2, 3, []complex128{1, 2i, 3, 4 - 1i, 5, 6i})
	require.NoError(t, w.WriteComplex("/result/FF_integrated", m))
	require.NoError(t, w.WriteCube("/result/cumulative", []*mat.CDense{m, m}))
	assert.Error(t, w.WriteCube("/result/empty", nil))
	require.NoError(t, w.Close())

	f, err := Open(name)
	require.NoError(t, err)
	defer f.Close()

	dims, err := f.Dims("/result/cumulative")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 3, 2}, dims)

	v, err := f.ReadFloats("/result/FF_integrated")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 2, 3, 0, 4, -1, 5, 0, 0, 6}, v)
}
