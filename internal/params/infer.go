// Package params implements parameter binding for the three paramstyles the
// driver accepts (§4.5): native named (":name"), native positional ("?"),
// and inline/legacy rendering of "%(name)s"/"%s" markers. Grounded on
// original_source's parameters/_types.py (the closed set of inferrable Go
// types) and parameters/inline.py (the escape table and paramstyle rewrite),
// translated from Python's isinstance chain into an idiomatic Go type switch.
package params

import (
	"fmt"
	"math/big"
	"time"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// Infer maps a Go value to its canonical backend type name and wire-ready
// Value, for callers binding native parameters without an explicit type
// override. This is a closed, total function over the types _types.py names
// as "inferrable": the default case rejects anything else rather than
// silently stringifying it, matching the Python driver's ProgrammingError on
// an unsupported object.
func Infer(value any) (typeName string, v backend.Value, err error) {
	switch val := value.(type) {
	case nil:
		return "void", backend.Value{Kind: backend.KindNull}, nil
	case bool:
		return "boolean", backend.Value{Kind: backend.KindBool, Bool: val}, nil
	case int:
		return "int", backend.Value{Kind: backend.KindInt32, I: int64(val)}, nil
	case int8:
		return "tinyint", backend.Value{Kind: backend.KindInt8, I: int64(val)}, nil
	case int16:
		return "smallint", backend.Value{Kind: backend.KindInt16, I: int64(val)}, nil
	case int32:
		return "int", backend.Value{Kind: backend.KindInt32, I: int64(val)}, nil
	case int64:
		return "bigint", backend.Value{Kind: backend.KindInt64, I: val}, nil
	case float32:
		return "float", backend.Value{Kind: backend.KindFloat32, F32: val}, nil
	case float64:
		return "double", backend.Value{Kind: backend.KindFloat64, F64: val}, nil
	case string:
		return "string", backend.Value{Kind: backend.KindString, Str: val}, nil
	case []byte:
		return "binary", backend.Value{Kind: backend.KindBinary, Bytes: val}, nil
	case *big.Int:
		return "decimal", backend.Value{Kind: backend.KindDecimal, Dec: backend.Decimal{Unscaled: val, Scale: 0}}, nil
	case backend.Decimal:
		return decimalTypeName(val), backend.Value{Kind: backend.KindDecimal, Dec: val}, nil
	case time.Time:
		return "timestamp", backend.Value{Kind: backend.KindTimestamp, TS: val}, nil
	case backend.NaiveTimestamp:
		return "timestamp_ntz", backend.Value{Kind: backend.KindTimestampNaive, Naive: val}, nil
	default:
		return "", backend.Value{}, fmt.Errorf("sqlwarehouse: unsupported parameter type %T: %w", value, errUnsupportedType)
	}
}

func decimalTypeName(d backend.Decimal) string {
	digits := 1
	if d.Unscaled != nil {
		digits = len(new(big.Int).Abs(d.Unscaled).String())
	}

	precision := digits
	if d.Scale > precision {
		precision = d.Scale
	}

	return fmt.Sprintf("decimal(%d,%d)", precision, d.Scale)
}
