// Package source turns the field data of a long medium into the uniform form
// consumed by the longitudinal Hankel integrator: subsampled z, r and omega
// grids plus a forward-only stream of complex (omega, r) planes, one per z.
//
// The planes either come from a fully materialised array in memory
// ("static") or are read lazily, one plane per step, from on-disk storage
// ("dynamic"). In the dynamic case the Store must stay open until the stream
// has been consumed.
package source

import (
	"fmt"

	"github.com/bob-anderson-ok/HankelXUV/grid"
	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
)

// Kind tags where the planes of a Provider come from.
type Kind int

const (
	Static Kind = iota
	Dynamic
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps the data_source tag onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "static":
		return Static, nil
	case "dynamic":
		return Dynamic, nil
	}
	return 0, fmt.Errorf("source: data source %q is neither \"static\" nor \"dynamic\": %w", s, faults.ErrConfig)
}

// Options selects the part of the full-resolution grids that is used.
// Indices follow slice semantics [min:max:step]; a zero step means 1 and a
// zero or grid.End max means "through the last sample".
type Options struct {
	OMin, OMax, OStep int
	RMax, RStep       int
	ZStep             int
}

type selection struct {
	lo, hi, step int
}

func (s selection) count() int { return grid.Count(s.lo, s.hi, s.step) }

// index maps the i-th selected sample back to the full-resolution index.
func (s selection) index(i int) int { return s.lo + i*s.step }

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func choose(g grid.Grid, start, stop, step int) (grid.Grid, selection, error) {
	step = orDefault(step, 1)
	stop = orDefault(stop, grid.End)
	lo, hi, err := grid.SliceBounds(g.Len(), start, stop, step)
	if err != nil {
		return grid.Grid{}, selection{}, err
	}
	sub, err := g.Subsample(lo, hi, step)
	if err != nil {
		return grid.Grid{}, selection{}, err
	}
	return sub, selection{lo: lo, hi: hi, step: step}, nil
}

// Input describes where the field planes live. Field is used for "static"
// sources and is indexed [z][omega][r] on the full-resolution grids. Store
// and Path are used for "dynamic" sources; the dataset at Path has the
// layout (z, r, omega, 2) with the last axis holding real and imaginary parts.
type Input struct {
	DataSource string
	Field      [][][]complex128
	Store      Store
	Path       string
}

// Provider holds the subsampled grids and hands out plane streams.
type Provider struct {
	Z, R, Omega grid.Grid

	kind             Kind
	field            [][][]complex128
	store            Store
	path             string
	zSel, rSel, oSel selection
}

// New builds a Provider from full-resolution grids, the field input and the
// subsampling options. All configuration problems are reported here.
func New(z, r, omega grid.Grid, in Input, opts Options) (*Provider, error) {
	kind, err := ParseKind(in.DataSource)
	if err != nil {
		return nil, err
	}
	switch kind {
	case Static:
		return NewStatic(z, r, omega, in.Field, opts)
	default:
		return NewDynamic(z, r, omega, in.Store, in.Path, opts)
	}
}

func newProvider(z, r, omega grid.Grid, opts Options) (*Provider, error) {
	p := &Provider{}
	var err error
	if p.Z, p.zSel, err = choose(z, 0, grid.End, opts.ZStep); err != nil {
		return nil, fmt.Errorf("source: z grid: %w", err)
	}
	if p.R, p.rSel, err = choose(r, 0, opts.RMax, opts.RStep); err != nil {
		return nil, fmt.Errorf("source: r grid: %w", err)
	}
	if p.Omega, p.oSel, err = choose(omega, opts.OMin, opts.OMax, opts.OStep); err != nil {
		return nil, fmt.Errorf("source: omega grid: %w", err)
	}
	return p, nil
}

// NewStatic builds a Provider over an in-memory field indexed [z][omega][r].
func NewStatic(z, r, omega grid.Grid, field [][][]complex128, opts Options) (*Provider, error) {
	if len(field) != z.Len() {
		return nil, fmt.Errorf("source: field has %d planes for %d z samples: %w", len(field), z.Len(), faults.ErrShape)
	}
	for kz, plane := range field {
		if len(plane) != omega.Len() {
			return nil, fmt.Errorf("source: plane %d has %d frequencies, want %d: %w", kz, len(plane), omega.Len(), faults.ErrShape)
		}
		for ko, row := range plane {
			if len(row) != r.Len() {
				return nil, fmt.Errorf("source: plane %d frequency %d has %d radii, want %d: %w", kz, ko, len(row), r.Len(), faults.ErrShape)
			}
		}
	}
	p, err := newProvider(z, r, omega, opts)
	if err != nil {
		return nil, err
	}
	p.kind = Static
	p.field = field
	return p, nil
}

// NewDynamic builds a Provider that reads planes lazily from store.
func NewDynamic(z, r, omega grid.Grid, store Store, path string, opts Options) (*Provider, error) {
	if store == nil {
		return nil, fmt.Errorf("source: dynamic source without a store: %w", faults.ErrConfig)
	}
	dims, err := store.Dims(path)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", path, err)
	}
	if len(dims) != 4 || dims[1] != r.Len() || dims[2] != omega.Len() || dims[3] != 2 {
		return nil, fmt.Errorf("source: dataset %s has shape %v, want (>=%d, %d, %d, 2): %w",
			path, dims, z.Len(), r.Len(), omega.Len(), faults.ErrShape)
	}
	// CUPRAD may over-allocate along z; fewer planes than grid points is fatal.
	if dims[0] < z.Len() {
		return nil, fmt.Errorf("source: dataset %s holds %d planes for %d z samples: %w", path, dims[0], z.Len(), faults.ErrShape)
	}
	p, err := newProvider(z, r, omega, opts)
	if err != nil {
		return nil, err
	}
	p.kind = Dynamic
	p.store = store
	p.path = path
	return p, nil
}

// Kind reports whether the provider is static or dynamic.
func (p *Provider) Kind() Kind { return p.kind }

// Stream returns a fresh forward-only stream over the planes. Each call
// starts again at the first plane; a single stream must not be shared.
func (p *Provider) Stream() Stream {
	if p.kind == Static {
		return &staticStream{p: p}
	}
	return &dynamicStream{p: p}
}

// ConsistentLength returns the length shared by arrays that should all have
// been sampled on the same grid. Simulation outputs are sometimes over- or
// under-allocated; callers truncate to this length.
func ConsistentLength(lengths ...int) (int, error) {
	if len(lengths) == 0 {
		return 0, fmt.Errorf("source: no lengths given: %w", faults.ErrShape)
	}
	n := lengths[0]
	for _, l := range lengths[1:] {
		if l < n {
			n = l
		}
	}
	if n <= 0 {
		return 0, fmt.Errorf("source: no consistent samples in lengths %v: %w", lengths, faults.ErrShape)
	}
	return n, nil
}

// ReadField loads the first nz planes of a (z, r, omega, 2) dataset into the
// [z][omega][r] layout NewStatic expects, in a single read.
func ReadField(store Store, path string, nz int) ([][][]complex128, error) {
	dims, err := store.Dims(path)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", path, err)
	}
	if len(dims) != 4 || dims[3] != 2 || dims[0] < nz {
		return nil, fmt.Errorf("source: dataset %s has shape %v, want (>=%d, nr, no, 2): %w", path, dims, nz, faults.ErrShape)
	}
	nr, no := dims[1], dims[2]
	data, err := store.ReadHyperslab(path, []int{0, 0, 0, 0}, []int{1, 1, 1, 1}, []int{nz, nr, no, 2})
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", path, err)
	}
	if len(data) != nz*nr*no*2 {
		return nil, fmt.Errorf("source: %s: read %d values, want %d: %w", path, len(data), nz*nr*no*2, faults.ErrShape)
	}

	field := make([][][]complex128, nz)
	for kz := range field {
		field[kz] = make([][]complex128, no)
		for ko := range field[kz] {
			row := make([]complex128, nr)
			for kr := range row {
				i := ((kz*nr+kr)*no + ko) * 2
				row[kr] = complex(data[i], data[i+1])
			}
			field[kz][ko] = row
		}
	}
	return field, nil
}
