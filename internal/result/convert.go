package result

import (
	"fmt"
	"time"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// valueFromArrowColumn extracts the value at row i of an Arrow column into a
// backend.Value, switching on the column's concrete array type. Grounded on
// §3's closed Value kind set — every Arrow type the server can send maps to
// exactly one of those kinds, so this switch is total over what the backend
// actually produces (an unrecognized Arrow type is a protocol violation, not
// a value this driver must tolerate).
func valueFromArrowColumn(col arrow.Array, i int) (backend.Value, error) {
	if col.IsNull(i) {
		return backend.Value{Kind: backend.KindNull}, nil
	}

	switch c := col.(type) {
	case *array.Boolean:
		return backend.Value{Kind: backend.KindBool, Bool: c.Value(i)}, nil
	case *array.Int8:
		return backend.Value{Kind: backend.KindInt8, I: int64(c.Value(i))}, nil
	case *array.Int16:
		return backend.Value{Kind: backend.KindInt16, I: int64(c.Value(i))}, nil
	case *array.Int32:
		return backend.Value{Kind: backend.KindInt32, I: int64(c.Value(i))}, nil
	case *array.Int64:
		return backend.Value{Kind: backend.KindInt64, I: c.Value(i)}, nil
	case *array.Float32:
		return backend.Value{Kind: backend.KindFloat32, F32: c.Value(i)}, nil
	case *array.Float64:
		return backend.Value{Kind: backend.KindFloat64, F64: c.Value(i)}, nil
	case *array.String:
		return backend.Value{Kind: backend.KindString, Str: c.Value(i)}, nil
	case *array.LargeString:
		return backend.Value{Kind: backend.KindString, Str: c.Value(i)}, nil
	case *array.Binary:
		return backend.Value{Kind: backend.KindBinary, Bytes: append([]byte(nil), c.Value(i)...)}, nil
	case *array.Date32:
		days := int32(c.Value(i))
		d := time.Unix(int64(days)*86400, 0).UTC()

		return backend.Value{Kind: backend.KindDate, Date: d}, nil
	case *array.Timestamp:
		dt, ok := c.DataType().(*arrow.TimestampType)
		if !ok {
			return backend.Value{}, fmt.Errorf("result: timestamp column missing type metadata")
		}

		t := c.Value(i).ToTime(dt.Unit)

		if dt.TimeZone == "" {
			naive := backend.NaiveTimestamp{
				Year: t.Year(), Month: t.Month(), Day: t.Day(),
				Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond(),
			}

			return backend.Value{Kind: backend.KindTimestampNaive, Naive: naive}, nil
		}

		return backend.Value{Kind: backend.KindTimestamp, TS: t}, nil
	case *array.Decimal128:
		dt, ok := c.DataType().(*arrow.Decimal128Type)
		if !ok {
			return backend.Value{}, fmt.Errorf("result: decimal column missing type metadata")
		}

		num := c.Value(i)

		return backend.Value{
			Kind: backend.KindDecimal,
			Dec:  backend.Decimal{Unscaled: num.BigInt(), Scale: int(dt.Scale)},
		}, nil
	default:
		return backend.Value{}, fmt.Errorf("result: unsupported arrow column type %T", col)
	}
}

// rowFromRecord builds one backend.Row from record at row index i, sharing
// schema across every row of the record (and, by the caller's construction,
// across every record of the chunk).
func rowFromRecord(schema *[]backend.ColumnDescription, cols []arrow.Array, i int) (backend.Row, error) {
	values := make([]backend.Value, len(cols))

	for colIdx, col := range cols {
		v, err := valueFromArrowColumn(col, i)
		if err != nil {
			return backend.Row{}, err
		}

		values[colIdx] = v
	}

	return backend.NewRow(schema, values), nil
}

// rowsFromRecords flattens every row of every record into a single slice,
// used by the cloud-fetch queue once a chunk's whole byte buffer has been
// decoded into record batches.
func rowsFromRecords(schema *[]backend.ColumnDescription, records []arrow.Record) ([]backend.Row, error) {
	var rows []backend.Row

	for _, rec := range records {
		cols := make([]arrow.Array, rec.NumCols())
		for i := range cols {
			cols[i] = rec.Column(i)
		}

		for r := 0; r < int(rec.NumRows()); r++ {
			row, err := rowFromRecord(schema, cols, r)
			if err != nil {
				return nil, err
			}

			rows = append(rows, row)
		}
	}

	return rows, nil
}

// releaseRecords drops the Arrow allocator references taken when decoding a
// stream buffer, once every row has been copied out into backend.Value form.
func releaseRecords(records []arrow.Record) {
	for _, rec := range records {
		rec.Release()
	}
}
