package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultCode(t *testing.T) {
	assert.True(t, CodeOK.IsOK())
	assert.False(t, CodeOK.IsError())
	assert.True(t, CodeNotAuthorized.IsError())
	assert.False(t, CodeNotAuthorized.IsAppError())
	assert.True(t, ResultCode(104).IsAppError())

	assert.Equal(t, "OK", CodeOK.String())
	assert.Equal(t, "NotAuthorized", CodeNotAuthorized.String())
	assert.Equal(t, "AppError(110)", ResultCode(110).String())
	assert.Equal(t, "Unknown(42)", ResultCode(42).String())
	assert.Equal(t, "Unknown(3)", ResultCode(3).String())
}

func TestTransaction(t *testing.T) {
	t.Run("empty transaction", func(t *testing.T) {
		var tx *Transaction
		require.ErrorIs(t, tx.ValidateBasic(), ErrEmptyTx)
		require.ErrorIs(t, (&Transaction{}).ValidateBasic(), ErrEmptyTx)
	})

	t.Run("hash is computed once", func(t *testing.T) {
		tx := &Transaction{Data: []byte("enter")}
		require.NoError(t, tx.ValidateBasic())
		h := tx.ComputeHash()
		require.Len(t, h, 32)
		require.Equal(t, h, tx.ComputeHash())
		require.Equal(t, 5, tx.Size())
	})

	t.Run("results", func(t *testing.T) {
		var check *TxCheckResult
		assert.False(t, check.IsOK())
		assert.True(t, (&TxCheckResult{}).IsOK())

		var exec *TxExecResult
		assert.False(t, exec.IsOK())
		assert.False(t, (&TxExecResult{Code: CodeAppErrorStart}).IsOK())
	})
}

func TestEvent(t *testing.T) {
	e := NewEvent(EventTicketBought).
		AddStringAttribute(AttributeKeyAccount, "abcd").
		AddIndexedAttribute(AttributeKeyAmount, []byte("10"))

	require.Equal(t, EventTicketBought, e.Type)
	require.Len(t, e.Attributes, 2)
	require.True(t, e.Attributes[1].Index)

	v, ok := e.Attribute(AttributeKeyAccount)
	require.True(t, ok)
	require.Equal(t, "abcd", v)

	_, ok = e.Attribute("missing")
	require.False(t, ok)
}

func TestQueries(t *testing.T) {
	bought := NewEvent(EventTicketBought).AddStringAttribute(AttributeKeyAccount, "alice")
	awarded := NewEvent(EventPrizeAwarded).AddStringAttribute(AttributeKeyAccount, "bob")
	empty := NewEvent(EventNoParticipants)

	tests := []struct {
		name  string
		query Query
		str   string
		match []bool
	}{
		{"all", QueryAll{}, "all", []bool{true, true, true}},
		{"event type", QueryEventType{EventType: EventPrizeAwarded}, "type=PrizeAwarded", []bool{false, true, false}},
		{
			"event types",
			QueryEventTypes{EventTypes: []string{EventPrizeAwarded, EventNoParticipants}},
			"types=[PrizeAwarded,NoParticipants]",
			[]bool{false, true, true},
		},
		{"attribute", QueryAttribute{Key: AttributeKeyAccount, Value: "alice"}, "account=alice", []bool{true, false, false}},
		{
			"and",
			QueryAnd{Queries: []Query{QueryEventType{EventType: EventPrizeAwarded}, QueryAttribute{Key: AttributeKeyAccount, Value: "bob"}}},
			"and(type=PrizeAwarded,account=bob)",
			[]bool{false, true, false},
		},
		{
			"or",
			QueryOr{Queries: []Query{QueryEventType{EventType: EventTicketBought}, QueryEventType{EventType: EventNoParticipants}}},
			"or(type=TicketBought,type=NoParticipants)",
			[]bool{true, false, true},
		},
		{
			"func",
			QueryFunc{Fn: func(e Event) bool { return len(e.Attributes) == 0 }, Description: "no-attrs"},
			"no-attrs",
			[]bool{false, false, true},
		},
		{"nil func", QueryFunc{}, "func", []bool{false, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.str, tt.query.String())
			for i, e := range []Event{bought, awarded, empty} {
				assert.Equal(t, tt.match[i], tt.query.Matches(e), "event %s", e.Type)
			}
		})
	}
}
