package h5store

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/hdf5"
)

// Writer creates an HDF5 archive for results. Complex arrays are stored with
// a trailing axis of length 2 holding (real, imaginary), the same convention
// the field sources use.
type Writer struct {
	f      *hdf5.File
	groups map[string]*hdf5.Group
}

// Create truncates or creates name.
func Create(name string) (*Writer, error) {
	f, err := hdf5.CreateFile(name, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("h5store: failed to create %s: %w", name, err)
	}
	return &Writer{f: f, groups: make(map[string]*hdf5.Group)}, nil
}

// Close closes all groups and the file.
func (w *Writer) Close() error {
	var first error
	for _, g := range w.groups {
		if err := g.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := w.f.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// WriteFloats stores data with the given shape at path. Parent groups are
// created as needed.
func (w *Writer) WriteFloats(path string, data []float64, shape ...int) (err error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != len(data) {
		return fmt.Errorf("h5store: %s: %d values for shape %v", path, len(data), shape)
	}

	parent, name, err := w.parent(path)
	if err != nil {
		return err
	}
	space, err := hdf5.CreateSimpleDataspace(toUint(shape), nil)
	if err != nil {
		return err
	}
	defer space.Close()

	var ds *hdf5.Dataset
	if parent == nil {
		ds, err = w.f.CreateDataset(name, hdf5.T_NATIVE_DOUBLE, space)
	} else {
		ds, err = parent.CreateDataset(name, hdf5.T_NATIVE_DOUBLE, space)
	}
	if err != nil {
		return fmt.Errorf("h5store: creating %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return ds.Write(&data)
}

// WriteComplex stores m as (rows, cols, 2).
func (w *Writer) WriteComplex(path string, m *mat.CDense) error {
	rows, cols := m.Dims()
	return w.WriteFloats(path, interleave(nil, m), rows, cols, 2)
}

// WriteCube stores a sequence of equally shaped matrices as (len, rows, cols, 2).
func (w *Writer) WriteCube(path string, ms []*mat.CDense) error {
	if len(ms) == 0 {
		return fmt.Errorf("h5store: %s: empty cube", path)
	}
	rows, cols := ms[0].Dims()
	data := make([]float64, 0, len(ms)*rows*cols*2)
	for _, m := range ms {
		if r, c := m.Dims(); r != rows || c != cols {
			return fmt.Errorf("h5store: %s: mixed shapes (%d,%d) and (%d,%d)", path, rows, cols, r, c)
		}
		data = interleave(data, m)
	}
	return w.WriteFloats(path, data, len(ms), rows, cols, 2)
}

func interleave(dst []float64, m *mat.CDense) []float64 {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			dst = append(dst, real(v), imag(v))
		}
	}
	return dst
}

// parent returns the group holding the last element of path, creating the
// chain of groups on first use. A nil group means the file root.
func (w *Writer) parent(path string) (*hdf5.Group, string, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 1 {
		return nil, parts[0], nil
	}
	var g *hdf5.Group
	prefix := ""
	for _, p := range parts[:len(parts)-1] {
		prefix += "/" + p
		if existing, ok := w.groups[prefix]; ok {
			g = existing
			continue
		}
		var err error
		if g == nil {
			g, err = w.f.CreateGroup(p)
		} else {
			g, err = g.CreateGroup(p)
		}
		if err != nil {
			return nil, "", fmt.Errorf("h5store: creating group %s: %w", prefix, err)
		}
		w.groups[prefix] = g
	}
	return g, parts[len(parts)-1], nil
}
