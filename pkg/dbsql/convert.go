package dbsql

import "github.com/databricks/sqlwarehouse-go/internal/backend"

// valueToDriver narrows the closed backend.Value union down to the handful
// of types database/sql/driver.Value accepts (int64, float64, bool, []byte,
// string, time.Time, nil) — decimals and tz-naive timestamps have no
// lossless driver.Value representation, so they cross as their canonical
// string form (mirrors Decimal.String()/NaiveTimestamp.String(), the same
// representation SQL text round-trips through per §8).
func valueToDriver(v backend.Value) any {
	switch v.Kind {
	case backend.KindNull:
		return nil
	case backend.KindInt8, backend.KindInt16, backend.KindInt32, backend.KindInt64:
		return v.I
	case backend.KindFloat32:
		return float64(v.F32)
	case backend.KindFloat64:
		return v.F64
	case backend.KindDecimal:
		return v.Dec.String()
	case backend.KindBool:
		return v.Bool
	case backend.KindString:
		return v.Str
	case backend.KindBinary:
		return v.Bytes
	case backend.KindDate:
		return v.Date
	case backend.KindTimestamp:
		return v.TS
	case backend.KindTimestampNaive:
		return v.Naive.String()
	default:
		return nil
	}
}
