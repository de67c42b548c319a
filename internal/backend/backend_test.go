package backend

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalStringPreservesScale(t *testing.T) {
	cases := []struct {
		unscaled string
		scale    int
		want     string
	}{
		{"12345", 2, "123.45"},
		{"-12345", 2, "-123.45"},
		{"5", 0, "5"},
		{"5", 3, "0.005"},
		{"1", -2, "100"},
	}

	for _, tc := range cases {
		n, ok := new(big.Int).SetString(tc.unscaled, 10)
		require.True(t, ok)

		d := Decimal{Unscaled: n, Scale: tc.scale}
		assert.Equal(t, tc.want, d.String())
	}
}

func TestMapThriftStateIsTotal(t *testing.T) {
	assert.Equal(t, StateRunning, MapThriftState("running"))
	assert.Equal(t, StateSucceeded, MapThriftState("finished"))
	assert.Equal(t, StateCanceled, MapThriftState("canceled"))
	assert.Equal(t, StateClosed, MapThriftState("closed"))
	assert.Equal(t, StateFailed, MapThriftState("error"))
	assert.Equal(t, StateFailed, MapThriftState("some-unrecognized-future-code"))
}

func TestMapSEAStateIsTotal(t *testing.T) {
	assert.Equal(t, StateRunning, MapSEAState("PENDING"))
	assert.Equal(t, StateSucceeded, MapSEAState("SUCCEEDED"))
	assert.Equal(t, StateFailed, MapSEAState("FAILED"))
	assert.Equal(t, StateFailed, MapSEAState("anything-else"))
}

func TestCommandTypeIdempotency(t *testing.T) {
	assert.True(t, CommandCloseOperation.KnownIdempotent())
	assert.True(t, CommandCloseSession.KnownIdempotent())
	assert.True(t, CommandGetOperationStatus.KnownIdempotent())
	assert.False(t, CommandExecuteStatement.KnownIdempotent())
	assert.False(t, CommandOther.KnownIdempotent())
}

func TestSessionIDStringNeverLeaksSecret(t *testing.T) {
	s := SessionID{Backend: BackendThrift, GUID: "abc123", SecretGUID: "top-secret"}
	assert.NotContains(t, s.String(), "top-secret")
	assert.Equal(t, "thrift:abc123", s.String())
}

func TestSessionIDTextRoundTrip(t *testing.T) {
	s := SessionID{Backend: BackendSEA, GUID: "xyz"}

	text, err := s.MarshalText()
	require.NoError(t, err)

	var got SessionID

	require.NoError(t, got.UnmarshalText(text))
	assert.Equal(t, s.Backend, got.Backend)
	assert.Equal(t, s.GUID, got.GUID)
}

func TestRowByName(t *testing.T) {
	schema := []ColumnDescription{{Name: "id"}, {Name: "name"}}
	row := NewRow(&schema, []Value{{Kind: KindInt64, I: 1}, {Kind: KindString, Str: "alice"}})

	v, ok := row.ByName("name")
	require.True(t, ok)
	assert.Equal(t, "alice", v.Str)

	_, ok = row.ByName("missing")
	assert.False(t, ok)
}

func TestErrorsChainToSentinels(t *testing.T) {
	err := NewRequestError("boom", "ExecuteStatement", "sess-1", "", 503)
	assert.True(t, errors.Is(err, ErrRequest))
	assert.True(t, errors.Is(err, ErrOperational))
	assert.True(t, errors.Is(err, ErrDatabase))
	assert.Contains(t, err.Error(), "boom")
}

func TestServerOperationErrorChainsToServerOp(t *testing.T) {
	err := NewServerOperationError("statement failed", "diag info", "query-1")
	assert.True(t, errors.Is(err, ErrServerOp))
	assert.True(t, errors.Is(err, ErrDatabase))
}
