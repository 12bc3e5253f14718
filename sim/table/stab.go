package table

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Stored-table binary layout (little-endian, all fields 8 bytes wide):
//
//	"SKIRT X\n"
//	numAxes
//	axis names, axis units, axis scales   (8-byte space-padded strings)
//	per axis: numPoints, points...
//	numQuantities
//	quantity names, quantity units, quantity scales
//	values, quantity index fastest, then axis 0, axis 1, ...
//	"STABEND\n"
const (
	stabHeader  = "SKIRT X\n"
	stabTrailer = "STABEND\n"
	stabWord    = 8

	// maxStabCount guards allocations against corrupt length fields.
	maxStabCount = 1 << 28
)

type stabReader struct {
	r    *bufio.Reader
	name string
	buf  [stabWord]byte
}

func (s *stabReader) word() ([]byte, error) {
	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		return nil, resourceErrorf(s.name, err, "truncated stored table")
	}
	return s.buf[:], nil
}

func (s *stabReader) str() (string, error) {
	b, err := s.word()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), " \x00"), nil
}

func (s *stabReader) count(what string) (int, error) {
	b, err := s.word()
	if err != nil {
		return 0, err
	}
	n := binary.LittleEndian.Uint64(b)
	if n == 0 || n > maxStabCount {
		return 0, resourceErrorf(s.name, nil, "invalid %s count %d", what, n)
	}
	return int(n), nil
}

func (s *stabReader) float() (float64, error) {
	b, err := s.word()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (s *stabReader) strings(n int) ([]string, error) {
	out := make([]string, n)
	for i := range out {
		v, err := s.str()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// DecodeStab reads a stored table in binary layout from r and returns the
// table for the named quantity (the first quantity when quantity is empty).
func DecodeStab(name string, r io.Reader, quantity string) (*Table, error) {
	s := &stabReader{r: bufio.NewReader(r), name: name}
	tag, err := s.word()
	if err != nil {
		return nil, err
	}
	if string(tag) != stabHeader {
		return nil, resourceErrorf(name, nil, "missing stored table header")
	}

	numAxes, err := s.count("axis")
	if err != nil {
		return nil, err
	}
	if numAxes > MaxAxes {
		return nil, resourceErrorf(name, nil, "table has %d axes, at most %d supported", numAxes, MaxAxes)
	}
	axisNames, err := s.strings(numAxes)
	if err != nil {
		return nil, err
	}
	axisUnits, err := s.strings(numAxes)
	if err != nil {
		return nil, err
	}
	axisScales, err := s.strings(numAxes)
	if err != nil {
		return nil, err
	}
	axes := make([]Axis, numAxes)
	size := 1
	for k := range axes {
		scale, err := ParseScale(axisScales[k])
		if err != nil {
			return nil, resourceErrorf(name, err, "axis %q", axisNames[k])
		}
		n, err := s.count("point")
		if err != nil {
			return nil, err
		}
		if n > maxStabCount/size {
			return nil, resourceErrorf(name, nil, "table too large")
		}
		size *= n
		pts := make([]float64, n)
		for i := range pts {
			if pts[i], err = s.float(); err != nil {
				return nil, err
			}
		}
		axes[k] = Axis{Name: axisNames[k], Unit: axisUnits[k], Scale: scale, Points: pts}
	}

	numQuantities, err := s.count("quantity")
	if err != nil {
		return nil, err
	}
	qNames, err := s.strings(numQuantities)
	if err != nil {
		return nil, err
	}
	qUnits, err := s.strings(numQuantities)
	if err != nil {
		return nil, err
	}
	qScales, err := s.strings(numQuantities)
	if err != nil {
		return nil, err
	}
	selected := 0
	if quantity != "" {
		selected = -1
		for i, q := range qNames {
			if q == quantity {
				selected = i
				break
			}
		}
		if selected < 0 {
			return nil, resourceErrorf(name, nil, "quantity %q not found (available: %v)", quantity, qNames)
		}
	}
	qScale, err := ParseScale(qScales[selected])
	if err != nil {
		return nil, resourceErrorf(name, err, "quantity %q", qNames[selected])
	}

	values := make([]float64, size)
	for i := 0; i < size; i++ {
		for q := 0; q < numQuantities; q++ {
			v, err := s.float()
			if err != nil {
				return nil, err
			}
			if q == selected {
				values[i] = v
			}
		}
	}

	tag, err = s.word()
	if err != nil {
		return nil, err
	}
	if string(tag) != stabTrailer {
		return nil, resourceErrorf(name, nil, "value block size does not match axes (missing trailer)")
	}
	return New(name, axes, Quantity{Name: qNames[selected], Unit: qUnits[selected], Scale: qScale}, values)
}

type stabWriter struct {
	w   *bufio.Writer
	err error
	buf [stabWord]byte
}

func (s *stabWriter) str(v string) {
	if s.err != nil {
		return
	}
	if len(v) > stabWord {
		s.err = fmt.Errorf("stored table string %q longer than %d bytes", v, stabWord)
		return
	}
	copy(s.buf[:], v+strings.Repeat(" ", stabWord-len(v)))
	_, s.err = s.w.Write(s.buf[:])
}

func (s *stabWriter) uint(v uint64) {
	if s.err != nil {
		return
	}
	binary.LittleEndian.PutUint64(s.buf[:], v)
	_, s.err = s.w.Write(s.buf[:])
}

func (s *stabWriter) float(v float64) {
	s.uint(math.Float64bits(v))
}

// EncodeStab writes t to w in the stored-table binary layout with a single
// quantity.
func EncodeStab(w io.Writer, t *Table) error {
	if t == nil {
		return errors.New("nil table")
	}
	s := &stabWriter{w: bufio.NewWriter(w)}
	s.str(stabHeader)
	s.uint(uint64(len(t.axes)))
	for _, ax := range t.axes {
		s.str(ax.Name)
	}
	for _, ax := range t.axes {
		s.str(ax.Unit)
	}
	for _, ax := range t.axes {
		s.str(ax.Scale.String())
	}
	for _, ax := range t.axes {
		s.uint(uint64(len(ax.Points)))
		for _, p := range ax.Points {
			s.float(p)
		}
	}
	s.uint(1)
	s.str(t.quantity.Name)
	s.str(t.quantity.Unit)
	s.str(t.quantity.Scale.String())
	for _, v := range t.values {
		s.float(v)
	}
	s.str(stabTrailer)
	if s.err != nil {
		return fmt.Errorf("encode stored table: %w", s.err)
	}
	return s.w.Flush()
}
