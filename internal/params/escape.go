package params

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"
)

// Escaper renders Go values as literal SQL text for the inline/legacy
// paramstyle, mirroring original_source's ParamEscaper (itself inherited
// from PyHive): single-quote strings with backslashes doubled and single
// quotes backslash-escaped, ISO-ish
// formatting for temporal values, bare text for numbers, and comma-joined
// parenthesized lists for sequences.
type Escaper struct{}

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05.000000"
)

// EscapeArgs escapes every value in params, which must be a map[string]any
// (named) or a slice (positional).
func (Escaper) EscapeArgs(params any) (any, error) {
	switch p := params.(type) {
	case map[string]any:
		out := make(map[string]string, len(p))

		for k, v := range p {
			s, err := Escaper{}.EscapeItem(v)
			if err != nil {
				return nil, err
			}

			out[k] = s
		}

		return out, nil
	default:
		rv := reflect.ValueOf(params)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("sqlwarehouse: unsupported param format %T: %w", params, errUnsupportedType)
		}

		out := make([]string, rv.Len())

		for i := 0; i < rv.Len(); i++ {
			s, err := Escaper{}.EscapeItem(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}

			out[i] = s
		}

		return out, nil
	}
}

// EscapeItem renders one value as SQL literal text.
func (Escaper) EscapeItem(item any) (string, error) {
	switch v := item.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if v {
			return "TRUE", nil
		}

		return "FALSE", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", v), nil
	case *big.Int:
		return v.String(), nil
	case string:
		return escapeString(v), nil
	case []byte:
		return escapeString(string(v)), nil
	case time.Time:
		return "'" + v.Format(datetimeLayout) + "'", nil
	case dateOnly:
		return "'" + time.Time(v).Format(dateLayout) + "'", nil
	default:
		rv := reflect.ValueOf(item)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			return escapeSequence(rv)
		}

		return "", fmt.Errorf("sqlwarehouse: unsupported parameter object %v (%T): %w", item, item, errUnsupportedType)
	}
}

// dateOnly lets callers force date-only (no time-of-day) rendering, since Go
// has no separate date type; wrap a time.Time in dateOnly to get it.
type dateOnly time.Time

func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)

	return "'" + s + "'"
}

func escapeSequence(rv reflect.Value) (string, error) {
	parts := make([]string, rv.Len())

	for i := 0; i < rv.Len(); i++ {
		s, err := Escaper{}.EscapeItem(rv.Index(i).Interface())
		if err != nil {
			return "", err
		}

		parts[i] = s
	}

	return "(" + strings.Join(parts, ",") + ")", nil
}
