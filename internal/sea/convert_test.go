package sea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

func TestRowsFromDataArrayConvertsEachColumnKind(t *testing.T) {
	schema := []backend.ColumnDescription{
		{Name: "a", TypeName: "bigint"},
		{Name: "b", TypeName: "double"},
		{Name: "c", TypeName: "boolean"},
		{Name: "d", TypeName: "string"},
		{Name: "e", TypeName: "date"},
		{Name: "f", TypeName: "decimal", Scale: 2},
		{Name: "g", TypeName: "binary"},
		{Name: "h", TypeName: "bigint"},
	}

	data := [][]any{
		{"42", "3.5", "true", "hello", "2024-01-15", "19.9", "68656c6c6f", nil},
	}

	rows, err := rowsFromDataArray(&schema, data)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, int64(42), row.At(0).I)
	assert.Equal(t, 3.5, row.At(1).F64)
	assert.True(t, row.At(2).Bool)
	assert.Equal(t, "hello", row.At(3).Str)
	assert.Equal(t, 2024, row.At(4).Date.Year())
	assert.Equal(t, "19.90", row.At(5).Dec.String())
	assert.Equal(t, []byte("hello"), row.At(6).Bytes)
	assert.True(t, row.At(7).IsNull())
}

func TestRowsFromDataArrayDecimalRescalesToColumnScale(t *testing.T) {
	schema := []backend.ColumnDescription{{Name: "n", TypeName: "decimal", Scale: 4}}

	rows, err := rowsFromDataArray(&schema, [][]any{{"-1.5"}})
	require.NoError(t, err)

	assert.Equal(t, "-1.5000", rows[0].At(0).Dec.String())
}

func TestRowsFromDataArrayDecimalRoundsHalfUpWhenNarrowingScale(t *testing.T) {
	schema := []backend.ColumnDescription{{Name: "n", TypeName: "decimal", Scale: 2}}

	rows, err := rowsFromDataArray(&schema, [][]any{{"12.345"}, {"-12.345"}, {"12.344"}})
	require.NoError(t, err)

	assert.Equal(t, "12.35", rows[0].At(0).Dec.String())
	assert.Equal(t, "-12.35", rows[1].At(0).Dec.String())
	assert.Equal(t, "12.34", rows[2].At(0).Dec.String())
}

func TestRowsFromDataArrayTimestampFormats(t *testing.T) {
	schema := []backend.ColumnDescription{{Name: "ts", TypeName: "timestamp"}}

	aware, err := rowsFromDataArray(&schema, [][]any{{"2024-01-15T10:30:00Z"}})
	require.NoError(t, err)
	assert.Equal(t, backend.KindTimestamp, aware[0].At(0).Kind)

	naive, err := rowsFromDataArray(&schema, [][]any{{"2024-01-15 10:30:00.123"}})
	require.NoError(t, err)
	assert.Equal(t, backend.KindTimestampNaive, naive[0].At(0).Kind)
	assert.Equal(t, 2024, naive[0].At(0).Naive.Year)
}

func TestRowsFromDataArrayUnknownTypePassesThroughAsString(t *testing.T) {
	schema := []backend.ColumnDescription{{Name: "x", TypeName: "interval_year_month"}}

	rows, err := rowsFromDataArray(&schema, [][]any{{"1-2"}})
	require.NoError(t, err)

	assert.Equal(t, backend.KindString, rows[0].At(0).Kind)
	assert.Equal(t, "1-2", rows[0].At(0).Str)
}
