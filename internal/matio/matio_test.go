package matio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestParse(t *testing.T) {
	t.Run("Square matrix", func(t *testing.T) {
		m, err := Parse("1,4,6;2,1,7;3,7,8")
		assert.NoError(t, err)

		r, c := m.Dims()
		assert.Equal(t, 3, r)
		assert.Equal(t, 3, c)
		assert.Equal(t, 4.0, m.At(0, 1))
		assert.Equal(t, 8.0, m.At(2, 2))
	})

	t.Run("Whitespace and floats", func(t *testing.T) {
		m, err := Parse(" 0.5, -2 ; 1e3, 4 ")
		assert.NoError(t, err)
		assert.Equal(t, 0.5, m.At(0, 0))
		assert.Equal(t, -2.0, m.At(0, 1))
		assert.Equal(t, 1000.0, m.At(1, 0))
	})

	t.Run("Non-square accepted", func(t *testing.T) {
		m, err := Parse("1,2,3;4,5,6")
		assert.NoError(t, err)
		r, c := m.Dims()
		assert.Equal(t, 2, r)
		assert.Equal(t, 3, c)
	})

	t.Run("Ragged rows rejected", func(t *testing.T) {
		_, err := Parse("1,2;3")
		assert.Error(t, err)
	})

	t.Run("Bad value rejected", func(t *testing.T) {
		_, err := Parse("1,x;3,4")
		assert.Error(t, err)
	})

	t.Run("Empty literal rejected", func(t *testing.T) {
		_, err := Parse("  ")
		assert.Error(t, err)
	})
}

func TestFormatRoundTrip(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{0.5, -2, 1000, 4})

	got, err := Parse(Format(m))
	assert.NoError(t, err)
	assert.True(t, mat.Equal(m, got))
}

func TestRowsFromRows(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	rows := Rows(m)
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, rows)

	// Mutating the copy must not reach back into the matrix.
	rows[0][0] = 99
	assert.Equal(t, 1.0, m.At(0, 0))

	got, err := FromRows(Rows(m))
	assert.NoError(t, err)
	assert.True(t, mat.Equal(m, got))
}

func TestFromRowsRejectsBadShapes(t *testing.T) {
	_, err := FromRows(nil)
	assert.Error(t, err)

	_, err = FromRows([][]float64{{}})
	assert.Error(t, err)

	_, err = FromRows([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}
