// Package matio moves matrices in and out of the process: a small text
// literal format for flags, and Arrow IPC streams for files and HTTP
// bodies. Holders themselves are never serialized.
package matio

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Parse builds a matrix from a literal like "1,4,6;2,1,7;3,7,8".
// Rows are separated by ';', values by ','. All rows must have the
// same number of values. Non-square shapes are accepted; they only
// fail at inversion time.
func Parse(s string) (*mat.Dense, error) {
	rowSpecs := strings.Split(strings.TrimSpace(s), ";")
	if len(rowSpecs) == 1 && strings.TrimSpace(rowSpecs[0]) == "" {
		return nil, fmt.Errorf("empty matrix literal")
	}

	var (
		data []float64
		cols int
	)
	for i, rowSpec := range rowSpecs {
		fields := strings.Split(rowSpec, ",")
		if i == 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(fields), cols)
		}
		for j, field := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d value %d: %w", i, j, err)
			}
			data = append(data, v)
		}
	}

	return mat.NewDense(len(rowSpecs), cols, data), nil
}

// Format renders m in the same literal syntax Parse accepts.
func Format(m *mat.Dense) string {
	rows, cols := m.Dims()
	var sb strings.Builder
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteByte(';')
		}
		for j := 0; j < cols; j++ {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
	}
	return sb.String()
}

// Rows converts m to a row-major slice-of-slices, the shape used for
// CBOR request and response bodies.
func Rows(m *mat.Dense) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		copy(out[i], m.RawRowView(i))
	}
	return out
}

// FromRows builds a matrix from a row-major slice-of-slices.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("empty matrix row")
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
