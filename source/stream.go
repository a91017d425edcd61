package source

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/HankelXUV/internal/faults"
)

// Stream yields the field planes in increasing z order. NextPlane returns an
// (omega, r) matrix owned by the caller. Streams are stateful and must be
// consumed from a single goroutine.
type Stream interface {
	// Len is the total number of planes the stream yields.
	Len() int
	HasNext() bool
	NextPlane() (*mat.CDense, error)
}

// Store is the slice-read capability required from on-disk field storage.
// ReadHyperslab returns count[0]*...*count[n-1] values in row-major order
// starting at offset and advancing by stride along every axis.
type Store interface {
	Dims(path string) ([]int, error)
	ReadHyperslab(path string, offset, stride, count []int) ([]float64, error)
}

type staticStream struct {
	p *Provider
	k int
}

func (s *staticStream) Len() int      { return s.p.zSel.count() }
func (s *staticStream) HasNext() bool { return s.k < s.Len() }

func (s *staticStream) NextPlane() (*mat.CDense, error) {
	if !s.HasNext() {
		return nil, ErrExhausted
	}
	p := s.p
	src := p.field[p.zSel.index(s.k)]
	no, nr := p.oSel.count(), p.rSel.count()
	data := make([]complex128, no*nr)
	for i := 0; i < no; i++ {
		row := src[p.oSel.index(i)]
		for j := 0; j < nr; j++ {
			data[i*nr+j] = row[p.rSel.index(j)]
		}
	}
	s.k++
	return mat.NewCDense(no, nr, data), nil
}

type dynamicStream struct {
	p *Provider
	k int
}

func (s *dynamicStream) Len() int      { return s.p.zSel.count() }
func (s *dynamicStream) HasNext() bool { return s.k < s.Len() }

// NextPlane reads exactly one z plane. The stored layout is (r, omega, re/im);
// it is transposed into the (omega, r) convention.
func (s *dynamicStream) NextPlane() (*mat.CDense, error) {
	if !s.HasNext() {
		return nil, ErrExhausted
	}
	p := s.p
	no, nr := p.oSel.count(), p.rSel.count()
	offset := []int{p.zSel.index(s.k), p.rSel.lo, p.oSel.lo, 0}
	stride := []int{1, p.rSel.step, p.oSel.step, 1}
	count := []int{1, nr, no, 2}
	raw, err := p.store.ReadHyperslab(p.path, offset, stride, count)
	if err != nil {
		return nil, fmt.Errorf("source: reading plane %d of %s: %w", s.k, p.path, err)
	}
	if len(raw) != nr*no*2 {
		return nil, fmt.Errorf("source: plane %d of %s: read %d values, want %d: %w", s.k, p.path, len(raw), nr*no*2, faults.ErrShape)
	}
	data := make([]complex128, no*nr)
	for j := 0; j < nr; j++ {
		for i := 0; i < no; i++ {
			at := 2 * (j*no + i)
			data[i*nr+j] = complex(raw[at], raw[at+1])
		}
	}
	s.k++
	return mat.NewCDense(no, nr, data), nil
}
