package backend

import (
	"fmt"
	"math/big"
	"time"
)

// ColumnDescription describes one column of a result schema. Immutable once
// received; ordering matches the result schema.
type ColumnDescription struct {
	Name         string
	TypeName     string // canonical spelling, e.g. "tinyint", "decimal", "interval_year_month"
	Precision    int
	Scale        int
	HasPrecScale bool
	Nullable     bool
}

// ValueKind tags the concrete Go type carried by a Value, forming a closed
// union over the column types §3 names (integers, float/double, decimal with
// preserved precision/scale, boolean, string, binary, date, and both
// tz-aware and tz-naive timestamps).
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindBool
	KindString
	KindBinary
	KindDate
	KindTimestamp      // tz-aware
	KindTimestampNaive // tz-naive (wall-clock, no offset)
)

// Decimal carries an arbitrary-precision value plus the declared scale, so
// round-tripping a value through SQL text and back preserves both precision
// and scale per §8's testable property.
type Decimal struct {
	Unscaled *big.Int // value * 10^Scale
	Scale    int
}

// String renders the decimal in plain fixed-point notation.
func (d Decimal) String() string {
	if d.Unscaled == nil {
		return "0"
	}

	if d.Scale <= 0 {
		return new(big.Int).Mul(d.Unscaled, pow10(-d.Scale)).String()
	}

	s := new(big.Int).Abs(d.Unscaled).String()
	for len(s) <= d.Scale {
		s = "0" + s
	}

	intPart, fracPart := s[:len(s)-d.Scale], s[len(s)-d.Scale:]

	sign := ""
	if d.Unscaled.Sign() < 0 {
		sign = "-"
	}

	return fmt.Sprintf("%s%s.%s", sign, intPart, fracPart)
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// NaiveTimestamp is a timestamp with no attached offset/zone — equality and
// formatting never consult a timezone, preserving §8's "tz-awareness
// preservation" round-trip property for the non-tz-aware timestamp type.
type NaiveTimestamp struct {
	Year                      int
	Month                     time.Month
	Day, Hour, Minute, Second int
	Nanosecond                int
}

func (n NaiveTimestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%09d",
		n.Year, n.Month, n.Day, n.Hour, n.Minute, n.Second, n.Nanosecond)
}

// Value is one cell of a Row. Exactly one of the typed fields is meaningful,
// selected by Kind; KindNull means the cell is SQL NULL regardless of the
// other fields' zero values.
type Value struct {
	Kind  ValueKind
	I     int64
	F32   float32
	F64   float64
	Dec   Decimal
	Bool  bool
	Str   string
	Bytes []byte
	Date  time.Time // date-only; time-of-day components are zero
	TS    time.Time
	Naive NaiveTimestamp
}

// IsNull reports whether the cell holds SQL NULL.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Row is a positionally indexed tuple of typed Values with lookup by column
// name. schema is shared (not copied) across all rows of one ResultSet.
type Row struct {
	schema *[]ColumnDescription
	Values []Value
}

// NewRow builds a Row bound to the given schema (shared by reference —
// callers must not mutate it after rows referencing it exist).
func NewRow(schema *[]ColumnDescription, values []Value) Row {
	return Row{schema: schema, Values: values}
}

// At returns the value at a positional index.
func (r Row) At(i int) Value { return r.Values[i] }

// ByName looks up a value by column name (case-sensitive, per §3).
func (r Row) ByName(name string) (Value, bool) {
	if r.schema == nil {
		return Value{}, false
	}

	for i, col := range *r.schema {
		if col.Name == name {
			return r.Values[i], true
		}
	}

	return Value{}, false
}

// Len returns the number of columns in the row.
func (r Row) Len() int { return len(r.Values) }

// ChunkLink describes an external cloud-fetch location for one ResultChunk —
// the tuple the Download Manager consumes (§4.4.2).
type ChunkLink struct {
	ChunkIndex     int64
	PresignedURL   string
	ExpiryTime     time.Time
	HTTPHeaders    map[string]string
	StartRowOffset int64
	RowCount       int64 // -1 if the server omitted it (§9 Open Question — lenient, trust buffer)
	ByteCount      int64
}

// ResultChunk is a contiguous horizontal slice of a result set. Exactly one
// of InlineRows, InlineArrow, or Link is populated.
type ResultChunk struct {
	ChunkIndex     int64
	StartRowOffset int64
	RowCount       int64
	ByteCount      int64

	InlineRows  []Row
	InlineArrow []byte // serialized Arrow record batch, possibly LZ4-framed
	Link        *ChunkLink
}
