package sea

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// rowsFromDataArray converts an INLINE/JSON_ARRAY disposition result body
// into backend.Row values. Every cell in result.DataArray arrives as a
// string (or nil for SQL NULL) regardless of its declared column type —
// ported from original_source's conversion.py SqlTypeConverter, generalized
// from Python's dynamic typing to Go's closed backend.Value union.
func rowsFromDataArray(schema *[]backend.ColumnDescription, data [][]any) ([]backend.Row, error) {
	rows := make([]backend.Row, 0, len(data))

	for _, cells := range data {
		values := make([]backend.Value, len(cells))

		for i, cell := range cells {
			col := (*schema)[i]

			v, err := convertCell(cell, col)
			if err != nil {
				return nil, fmt.Errorf("sea: converting column %q: %w", col.Name, err)
			}

			values[i] = v
		}

		rows = append(rows, backend.NewRow(schema, values))
	}

	return rows, nil
}

func convertCell(cell any, col backend.ColumnDescription) (backend.Value, error) {
	if cell == nil {
		return backend.Value{Kind: backend.KindNull}, nil
	}

	str, ok := cell.(string)
	if !ok {
		return backend.Value{}, fmt.Errorf("sea: expected string cell, got %T", cell)
	}

	switch strings.ToLower(strings.TrimSpace(col.TypeName)) {
	case "tinyint":
		n, err := strconv.ParseInt(str, 10, 8)
		return backend.Value{Kind: backend.KindInt8, I: n}, err
	case "smallint":
		n, err := strconv.ParseInt(str, 10, 16)
		return backend.Value{Kind: backend.KindInt16, I: n}, err
	case "int":
		n, err := strconv.ParseInt(str, 10, 32)
		return backend.Value{Kind: backend.KindInt32, I: n}, err
	case "bigint":
		n, err := strconv.ParseInt(str, 10, 64)
		return backend.Value{Kind: backend.KindInt64, I: n}, err
	case "float":
		f, err := strconv.ParseFloat(str, 32)
		return backend.Value{Kind: backend.KindFloat32, F32: float32(f)}, err
	case "double":
		f, err := strconv.ParseFloat(str, 64)
		return backend.Value{Kind: backend.KindFloat64, F64: f}, err
	case "decimal":
		return convertDecimal(str, col.Scale)
	case "boolean":
		lower := strings.ToLower(str)
		b := lower == "true" || lower == "t" || lower == "1" || lower == "yes" || lower == "y"
		return backend.Value{Kind: backend.KindBool, Bool: b}, nil
	case "date":
		t, err := time.Parse("2006-01-02", str)
		return backend.Value{Kind: backend.KindDate, Date: t}, err
	case "timestamp":
		return convertTimestamp(str)
	case "binary":
		b, err := hex.DecodeString(str)
		return backend.Value{Kind: backend.KindBinary, Bytes: b}, err
	default: // char, varchar, string, interval_*, and anything unrecognized
		return backend.Value{Kind: backend.KindString, Str: str}, nil
	}
}

// convertDecimal parses a plain fixed-point string into a Decimal, rescaling
// to col's declared scale the way _convert_decimal quantizes — preserving
// the precision/scale round-trip property (§8).
func convertDecimal(str string, scale int) (backend.Value, error) {
	neg := strings.HasPrefix(str, "-")
	unsigned := strings.TrimPrefix(str, "-")

	intPart, fracPart, hasFrac := strings.Cut(unsigned, ".")

	digits := intPart + fracPart
	currentScale := 0

	if hasFrac {
		currentScale = len(fracPart)
	}

	unscaled, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return backend.Value{}, fmt.Errorf("sea: invalid decimal %q", str)
	}

	if scale > currentScale {
		unscaled.Mul(unscaled, pow10(scale-currentScale))
	} else if scale < currentScale {
		unscaled = roundHalfUp(unscaled, pow10(currentScale-scale))
	}

	if neg {
		unscaled.Neg(unscaled)
	}

	return backend.Value{Kind: backend.KindDecimal, Dec: backend.Decimal{Unscaled: unscaled, Scale: scale}}, nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// roundHalfUp divides unscaled by divisor, rounding the quotient's magnitude
// up when the remainder is at least half the divisor — matching the
// original's Decimal.quantize() rounding rather than truncating toward zero.
func roundHalfUp(unscaled, divisor *big.Int) *big.Int {
	quo, rem := new(big.Int), new(big.Int)
	quo.QuoRem(unscaled, divisor, rem)

	rem.Abs(rem)
	rem.Mul(rem, big.NewInt(2))

	if rem.Cmp(divisor) >= 0 {
		if unscaled.Sign() < 0 {
			quo.Sub(quo, big.NewInt(1))
		} else {
			quo.Add(quo, big.NewInt(1))
		}
	}

	return quo
}

// convertTimestamp parses SEA's timestamp string, which carries a zone
// offset only when the source column is tz-aware; an offset-free string
// becomes a NaiveTimestamp rather than silently assuming UTC.
func convertTimestamp(str string) (backend.Value, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999Z07:00", "2006-01-02T15:04:05.999999999Z07:00"} {
		if t, err := time.Parse(layout, str); err == nil {
			return backend.Value{Kind: backend.KindTimestamp, TS: t}, nil
		}
	}

	for _, layout := range []string{"2006-01-02 15:04:05.999999999", "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, str); err == nil {
			return backend.Value{Kind: backend.KindTimestampNaive, Naive: backend.NaiveTimestamp{
				Year: t.Year(), Month: t.Month(), Day: t.Day(),
				Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond(),
			}}, nil
		}
	}

	return backend.Value{}, fmt.Errorf("sea: unrecognized timestamp format %q", str)
}
