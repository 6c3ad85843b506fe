package linalg

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMat3_MulIdentity(t *testing.T) {
	t.Parallel()

	m := Mat3{{1, 2, 3}, {4, 5, 6}, {7, 8, 10}}
	assert.Equal(t, m, m.Mul(Identity3()))
	assert.Equal(t, m, Identity3().Mul(m))
}

func TestMat3_Transpose(t *testing.T) {
	t.Parallel()

	m := Mat3{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	want := Mat3{{1, 4, 7}, {2, 5, 8}, {3, 6, 9}}
	assert.Equal(t, want, m.Transpose())
	assert.Equal(t, m, m.Transpose().Transpose())
}

func TestInvert3(t *testing.T) {
	t.Parallel()

	m := Mat3{{2, 0, 1}, {1, 3, 2}, {1, 1, 1}}
	inv, err := Invert3(m)
	require.NoError(t, err)

	prod := m.Mul(inv)
	id := Identity3()
	for i := range 3 {
		for j := range 3 {
			assert.InDelta(t, id[i][j], prod[i][j], 1e-12)
		}
	}
}

func TestInvert3_Singular(t *testing.T) {
	t.Parallel()

	m := Mat3{{1, 2, 3}, {2, 4, 6}, {1, 1, 1}}
	_, err := Invert3(m)
	assert.True(t, errors.Is(err, ErrSingular))
}

func TestVec3_CrossOrthogonal(t *testing.T) {
	t.Parallel()

	a := Vec3{1, 2, 3}
	b := Vec3{-2, 0.5, 4}
	c := a.Cross(b)
	assert.InDelta(t, 0, c.Dot(a), 1e-12)
	assert.InDelta(t, 0, c.Dot(b), 1e-12)
	assert.Equal(t, Vec3{0, 0, 1}, Vec3{1, 0, 0}.Cross(Vec3{0, 1, 0}))
}

func TestVec3_NormalizeZero(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
	assert.InDelta(t, 1.0, Vec3{3, 4, 0}.Normalize().Norm(), 1e-12)
}

func TestMat3_IsFinite(t *testing.T) {
	t.Parallel()

	assert.True(t, Identity3().IsFinite())
	m := Identity3()
	m[1][2] = math.NaN()
	assert.False(t, m.IsFinite())
	m[1][2] = math.Inf(1)
	assert.False(t, m.IsFinite())
}

func TestDesignMatrix_NullSpace(t *testing.T) {
	t.Parallel()

	// Eight equations constructed orthogonal to a known vector.
	want := [9]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	d := NewDesignMatrix(8)
	for k := range 8 {
		var row [9]float64
		row[k] = want[k+1]
		row[k+1] = -want[k]
		d.AddRow(row, 1)
	}
	require.Equal(t, 8, d.Rows())

	h, values, err := d.NullSpace()
	require.NoError(t, err)
	require.Len(t, values, 9)
	assert.InDelta(t, 0, values[8], 1e-9)

	// Compare up to scale and sign.
	s := want[8] / h[8]
	for i := range 9 {
		assert.InDelta(t, want[i], h[i]*s, 1e-8)
	}
}

func TestDesignMatrix_Underdetermined(t *testing.T) {
	t.Parallel()

	d := NewDesignMatrix(2)
	d.AddRow([9]float64{1}, 1)
	_, _, err := d.NullSpace()
	assert.ErrorIs(t, err, ErrUnderdetermined)
}

func TestReshape3(t *testing.T) {
	t.Parallel()

	m := Reshape3([9]float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.Equal(t, Vec3{1, 4, 7}, m.Col(0))
	m.SetCol(2, Vec3{0, 0, 0})
	assert.Equal(t, Vec3{0, 0, 0}, m.Col(2))
}
