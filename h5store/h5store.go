// Package h5store reads CUPRAD/TDSE field datasets from HDF5 archives and
// writes far-field results back. It implements source.Store with one
// hyperslab read per call so that a dynamic source stream only ever holds a
// single z plane in memory.
package h5store

import (
	"fmt"

	"gonum.org/v1/hdf5"
)

// File is a read-only HDF5 archive.
type File struct {
	f    *hdf5.File
	name string
}

// Open opens name read-only.
func Open(name string) (*File, error) {
	f, err := hdf5.OpenFile(name, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("h5store: failed to open %s: %w", name, err)
	}
	return &File{f: f, name: name}, nil
}

// Close releases the archive. Streams reading from it must be finished first.
func (f *File) Close() error {
	return f.f.Close()
}

// Dims returns the extent of the dataset at path.
func (f *File) Dims(path string) (dims []int, err error) {
	ds, err := f.f.OpenDataset(path)
	if err != nil {
		return nil, fmt.Errorf("h5store: %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	space := ds.Space()
	defer space.Close()
	ext, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, fmt.Errorf("h5store: %s: %w", path, err)
	}
	dims = make([]int, len(ext))
	for i, d := range ext {
		dims[i] = int(d)
	}
	return dims, nil
}

// ReadHyperslab reads a strided block of the dataset at path into float64.
func (f *File) ReadHyperslab(path string, offset, stride, count []int) (out []float64, err error) {
	if len(offset) != len(stride) || len(offset) != len(count) {
		return nil, fmt.Errorf("h5store: hyperslab rank mismatch %d/%d/%d", len(offset), len(stride), len(count))
	}
	ds, err := f.f.OpenDataset(path)
	if err != nil {
		return nil, fmt.Errorf("h5store: %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	fileSpace := ds.Space()
	defer fileSpace.Close()
	if err = fileSpace.SelectHyperslab(toUint(offset), toUint(stride), toUint(count), nil); err != nil {
		return nil, fmt.Errorf("h5store: %s: selecting hyperslab: %w", path, err)
	}

	n := 1
	for _, c := range count {
		n *= c
	}
	memSpace, err := hdf5.CreateSimpleDataspace([]uint{uint(n)}, nil)
	if err != nil {
		return nil, err
	}
	defer memSpace.Close()

	out = make([]float64, n)
	if err = ds.ReadSubset(&out, memSpace, fileSpace); err != nil {
		return nil, fmt.Errorf("h5store: %s: reading hyperslab: %w", path, err)
	}
	return out, nil
}

// ReadFloats reads a whole dataset, e.g. a grid, flattened in row-major order.
func (f *File) ReadFloats(path string) (out []float64, err error) {
	dims, err := f.Dims(path)
	if err != nil {
		return nil, err
	}
	offset := make([]int, len(dims))
	stride := make([]int, len(dims))
	for i := range stride {
		stride[i] = 1
	}
	return f.ReadHyperslab(path, offset, stride, dims)
}

// ReadScalar reads a dataset holding a single number.
func (f *File) ReadScalar(path string) (float64, error) {
	v, err := f.ReadFloats(path)
	if err != nil {
		return 0, err
	}
	if len(v) != 1 {
		return 0, fmt.Errorf("h5store: %s holds %d values, want 1", path, len(v))
	}
	return v[0], nil
}

func toUint(v []int) []uint {
	u := make([]uint, len(v))
	for i, x := range v {
		u[i] = uint(x)
	}
	return u
}
