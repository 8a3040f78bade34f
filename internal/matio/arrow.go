package matio

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"gonum.org/v1/gonum/mat"
)

// Arrow schema: a single "row" column of fixed_size_list<float64>[cols],
// one list entry per matrix row.

// WriteIPC writes m to w as an Arrow IPC stream.
func WriteIPC(w io.Writer, m *mat.Dense) error {
	rows, cols := m.Dims()

	pool := memory.NewGoAllocator()
	fslType := arrow.FixedSizeListOf(int32(cols), arrow.PrimitiveTypes.Float64)
	schema := arrow.NewSchema(
		[]arrow.Field{
			{Name: "row", Type: fslType},
		},
		nil,
	)

	rowBuilder := array.NewFixedSizeListBuilder(pool, int32(cols), arrow.PrimitiveTypes.Float64)
	defer rowBuilder.Release()
	valueBuilder := rowBuilder.ValueBuilder().(*array.Float64Builder)

	for i := 0; i < rows; i++ {
		rowBuilder.Append(true)
		valueBuilder.AppendValues(m.RawRowView(i), nil)
	}

	rowArr := rowBuilder.NewArray()
	defer rowArr.Release()

	rec := array.NewRecordBatch(schema, []arrow.Array{rowArr}, int64(rows))
	defer rec.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(schema))
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

// ReadIPC reads a matrix from an Arrow IPC stream produced by WriteIPC
// (or any stream whose first column is a fixed-size list of float64).
// Rows from multiple record batches are concatenated.
func ReadIPC(r io.Reader) (*mat.Dense, error) {
	reader, err := ipc.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create IPC reader: %w", err)
	}
	defer reader.Release()

	var (
		data []float64
		rows int
		cols int
	)
	for reader.Next() {
		rec := reader.Record()
		if rec.NumCols() == 0 {
			continue
		}

		col := rec.Column(0)
		indices := rec.Schema().FieldIndices("row")
		if len(indices) > 0 {
			col = rec.Column(indices[0])
		}

		fslArr, ok := col.(*array.FixedSizeList)
		if !ok {
			return nil, fmt.Errorf("column is %s, want fixed_size_list", col.DataType())
		}
		fslType := fslArr.DataType().(*arrow.FixedSizeListType)
		n := int(fslType.Len())
		if cols == 0 {
			cols = n
		} else if n != cols {
			return nil, fmt.Errorf("record has %d columns per row, want %d", n, cols)
		}

		values, ok := fslArr.ListValues().(*array.Float64)
		if !ok {
			return nil, fmt.Errorf("row values are %s, want float64", fslArr.ListValues().DataType())
		}
		for i := 0; i < fslArr.Len(); i++ {
			for j := 0; j < n; j++ {
				data = append(data, values.Value(i*n+j))
			}
		}
		rows += fslArr.Len()
	}
	if reader.Err() != nil {
		return nil, fmt.Errorf("error reading Arrow stream: %w", reader.Err())
	}
	if rows == 0 {
		return nil, fmt.Errorf("Arrow stream holds no matrix rows")
	}

	return mat.NewDense(rows, cols, data), nil
}
