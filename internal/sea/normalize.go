package sea

import "strings"

// seaToThriftType maps the handful of SEA type spellings that diverge from
// Thrift's naming so the rest of the driver (column type mapping,
// conversion) only ever has to deal with one canonical vocabulary. Ported
// directly from original_source's sea/utils/normalize.py
// SEA_TO_THRIFT_TYPE_MAP.
var seaToThriftType = map[string]string{
	"BYTE":     "TINYINT",
	"SHORT":    "SMALLINT",
	"LONG":     "BIGINT",
	"INTERVAL": "INTERVAL",
}

// NormalizeTypeName canonicalizes one SEA column type name to the
// Thrift-convention spelling the rest of the driver expects, lower-cased to
// match this driver's ColumnDescription.TypeName convention (the teacher
// lower-cases similarly in internal/graph/items.go's toItem()
// normalization). It takes no interval qualifier, so INTERVAL maps to plain
// "interval"; NormalizeIntervalType distinguishes INTERVAL_YEAR_MONTH from
// INTERVAL_DAY_TIME the same way normalize.py inspects
// col_data["type_interval_type"].
func NormalizeTypeName(typeName string) string {
	return normalizeTypeName(typeName, "")
}

// NormalizeIntervalType is NormalizeTypeName for an INTERVAL column, where
// the qualifier (e.g. "YEAR TO MONTH", "DAY TO SECOND") disambiguates the
// two interval families.
func NormalizeIntervalType(typeName, qualifier string) string {
	return normalizeTypeName(typeName, qualifier)
}

func normalizeTypeName(typeName, intervalQualifier string) string {
	upper := strings.ToUpper(typeName)

	mapped, needsMapping := seaToThriftType[upper]
	if !needsMapping {
		return strings.ToLower(typeName)
	}

	if upper == "INTERVAL" && intervalQualifier != "" {
		q := strings.ToUpper(intervalQualifier)
		if strings.Contains(q, "YEAR") || strings.Contains(q, "MONTH") {
			return "interval_year_month"
		}

		return "interval_day_time"
	}

	return strings.ToLower(mapped)
}
