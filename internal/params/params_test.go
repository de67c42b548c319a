package params

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

func TestInferCoversClosedTypeSet(t *testing.T) {
	tn, v, err := Infer(int64(42))
	require.NoError(t, err)
	assert.Equal(t, "bigint", tn)
	assert.Equal(t, int64(42), v.I)

	tn, v, err = Infer(nil)
	require.NoError(t, err)
	assert.Equal(t, "void", tn)
	assert.True(t, v.IsNull())

	tn, _, err = Infer("hello")
	require.NoError(t, err)
	assert.Equal(t, "string", tn)
}

func TestInferRejectsUnsupportedType(t *testing.T) {
	_, _, err := Infer(struct{ X int }{X: 1})
	require.Error(t, err)
}

func TestInferPreservesDecimalScale(t *testing.T) {
	d := backend.Decimal{Unscaled: big.NewInt(12345), Scale: 2}

	tn, v, err := Infer(d)
	require.NoError(t, err)
	assert.Equal(t, "decimal(5,2)", tn)
	assert.Equal(t, 2, v.Dec.Scale)
}

func TestEscapeStringEscapesQuotesAndDoublesBackslashes(t *testing.T) {
	s, err := Escaper{}.EscapeItem(`it's a "test"\path`)
	require.NoError(t, err)
	assert.Equal(t, `'it\'s a "test"\\path'`, s)
}

func TestEscapeSequenceRendersParenthesizedList(t *testing.T) {
	s, err := Escaper{}.EscapeItem([]int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "(1,2,3)", s)
}

func TestEscapeNullRendersNULL(t *testing.T) {
	s, err := Escaper{}.EscapeItem(nil)
	require.NoError(t, err)
	assert.Equal(t, "NULL", s)
}

func TestEscapeDatetime(t *testing.T) {
	ts := time.Date(2024, 3, 5, 1, 2, 3, 0, time.UTC)

	s, err := Escaper{}.EscapeItem(ts)
	require.NoError(t, err)
	assert.Equal(t, "'2024-03-05 01:02:03.000000'", s)
}

func TestRewriteNamedMarkersLeavesUnmarkedTextAlone(t *testing.T) {
	in := "SELECT * FROM t WHERE a = %(a)s AND b = %(long_name)s"
	out := RewriteNamedMarkers(in)
	assert.Equal(t, "SELECT * FROM t WHERE a = :a AND b = :long_name", out)
}

func TestRewriteNamedMarkersNoOpWhenAbsent(t *testing.T) {
	in := "SELECT * FROM t WHERE a = :a"
	assert.Equal(t, in, RewriteNamedMarkers(in))
}

func TestContainsInlinePositionalMarkers(t *testing.T) {
	assert.True(t, ContainsInlinePositionalMarkers("SELECT * FROM t WHERE a = %s"))
	assert.False(t, ContainsInlinePositionalMarkers("SELECT * FROM t WHERE a = ?"))
}

func TestPrepareInlineNamed(t *testing.T) {
	out, err := PrepareInline("SELECT * FROM t WHERE a = %(a)s", map[string]any{"a": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = 1", out)
}

func TestPrepareInlinePositional(t *testing.T) {
	out, err := PrepareInline("SELECT * FROM t WHERE a = %s AND b = %s", nil, []any{1, "x"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = 1 AND b = 'x'", out)
}

func TestPrepareInlineNamedDoesNotCrossContaminate(t *testing.T) {
	out, err := PrepareInline(
		"SELECT * FROM t WHERE a = %(a)s AND b = %(b)s",
		map[string]any{"a": "%(b)s", "b": "real"},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = '%(b)s' AND b = 'real'", out)
}
