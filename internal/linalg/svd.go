package linalg

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrUnderdetermined is returned when the design matrix has fewer rows than
// unknowns, so the null space is not one-dimensional.
var ErrUnderdetermined = errors.New("linalg: underdetermined system")

// DesignMatrix is an N×9 row-major system of homogeneous equations A·h = 0,
// as built by the DLT homography estimator.
type DesignMatrix struct {
	rows [][9]float64
}

// NewDesignMatrix returns an empty design matrix with room for n rows.
func NewDesignMatrix(n int) *DesignMatrix {
	return &DesignMatrix{rows: make([][9]float64, 0, n)}
}

// AddRow appends one equation scaled by s.
func (d *DesignMatrix) AddRow(row [9]float64, s float64) {
	for i := range row {
		row[i] *= s
	}
	d.rows = append(d.rows, row)
}

// Rows returns the number of equations.
func (d *DesignMatrix) Rows() int { return len(d.rows) }

// NullSpace returns the right singular vector of A associated with its
// smallest singular value, together with the singular values in descending
// order. A square 8-row system is padded with a zero row so the thin SVD
// exposes all nine right singular vectors.
func (d *DesignMatrix) NullSpace() ([9]float64, []float64, error) {
	var h [9]float64
	n := len(d.rows)
	if n < 8 {
		return h, nil, fmt.Errorf("%w: %d rows, need at least 8", ErrUnderdetermined, n)
	}
	m := n
	if m < 9 {
		m = 9
	}
	data := make([]float64, m*9)
	for i, row := range d.rows {
		copy(data[i*9:(i+1)*9], row[:])
	}
	a := mat.NewDense(m, 9, data)

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return h, nil, errors.New("linalg: SVD failed to converge")
	}
	var v mat.Dense
	svd.VTo(&v)
	values := svd.Values(nil)

	// Singular values come back in descending order, so the last column of V
	// spans the (approximate) null space.
	for i := range 9 {
		h[i] = v.At(i, 8)
	}
	return h, values, nil
}

// Reshape3 packs a 9-vector row-major into a Mat3.
func Reshape3(h [9]float64) Mat3 {
	return Mat3{
		{h[0], h[1], h[2]},
		{h[3], h[4], h[5]},
		{h[6], h[7], h[8]},
	}
}
