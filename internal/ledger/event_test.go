package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deviationScope/internal/model"
)

func typedRecord(t *testing.T, block, logIndex uint64, name string, data interface{}) model.TypedEventRecord {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return model.TypedEventRecord{
		EventHeader: model.EventHeader{
			BlockNumber: block,
			TxHash:      meta(block, logIndex).TxHash,
			LogIndex:    logIndex,
			Timestamp:   meta(block, logIndex).Timestamp,
			EventName:   name,
			PoolID:      testPoolID.Hex(),
		},
		Decoded: raw,
	}
}

func TestEventFromRecordSwap(t *testing.T) {
	record := typedRecord(t, 5, 2, model.EventSwap, model.SwapEventData{
		PoolID:    testPoolID.Hex(),
		TokenIn:   testTokenA.Hex(),
		TokenOut:  testTokenB.Hex(),
		AmountIn:  "1000000000000000000",
		AmountOut: "999",
	})

	evt, ok, err := EventFromRecord(record)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testPoolID, evt.PoolID)
	assert.Equal(t, "swap", evt.Kind())
	assert.Equal(t, meta(5, 2), evt.Meta)

	swap, isSwap := evt.Payload.(Swap)
	require.True(t, isSwap)
	assert.Equal(t, testTokenA, swap.TokenIn)
	assert.Equal(t, testTokenB, swap.TokenOut)
	assert.Equal(t, "1000000000000000000", swap.AmountIn.String())
	assert.Equal(t, "999", swap.AmountOut.String())
}

func TestEventFromRecordBalanceChanged(t *testing.T) {
	record := typedRecord(t, 5, 2, model.EventPoolBalanceChanged, model.PoolBalanceChangedData{
		PoolID: testPoolID.Hex(),
		Tokens: []string{testTokenB.Hex(), testTokenA.Hex()},
		Deltas: []string{"-5", "10"},
	})

	evt, ok, err := EventFromRecord(record)
	require.NoError(t, err)
	require.True(t, ok)
	changed := evt.Payload.(BalanceChanged)
	assert.Equal(t, testTokenB, changed.Tokens[0])
	assert.Equal(t, "-5", changed.Deltas[0].String())
	assert.Equal(t, "10", changed.Deltas[1].String())
}

func TestEventFromRecordRejectsMalformed(t *testing.T) {
	record := typedRecord(t, 5, 2, model.EventPoolBalanceChanged, model.PoolBalanceChangedData{
		PoolID: testPoolID.Hex(),
		Tokens: []string{testTokenA.Hex()},
		Deltas: []string{"1", "2"},
	})
	_, _, err := EventFromRecord(record)
	require.ErrorIs(t, err, ErrMalformedEvent)

	record = typedRecord(t, 5, 2, model.EventSwap, model.SwapEventData{
		PoolID:    "0x1234",
		TokenIn:   testTokenA.Hex(),
		TokenOut:  testTokenB.Hex(),
		AmountIn:  "1",
		AmountOut: "1",
	})
	_, _, err = EventFromRecord(record)
	require.ErrorIs(t, err, ErrMalformedEvent)

	record = typedRecord(t, 5, 2, model.EventSwap, model.SwapEventData{
		PoolID:    testPoolID.Hex(),
		TokenIn:   testTokenA.Hex(),
		TokenOut:  testTokenB.Hex(),
		AmountIn:  "1.5",
		AmountOut: "1",
	})
	_, _, err = EventFromRecord(record)
	require.ErrorIs(t, err, ErrMalformedEvent)
}

func TestEventFromRecordUnknownName(t *testing.T) {
	record := typedRecord(t, 5, 2, "FlashLoan", map[string]string{})
	_, ok, err := EventFromRecord(record)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackerClassify(t *testing.T) {
	tracker := testTracker(1_000_000)
	assert.Equal(t, AssetA, tracker.Classify(testTokenA))
	assert.Equal(t, AssetB, tracker.Classify(testTokenB))
	assert.Equal(t, AssetOther, tracker.Classify(testTokenX))
	assert.Equal(t, 0, AssetA.Index())
	assert.Equal(t, 1, AssetB.Index())
	assert.Equal(t, -1, AssetOther.Index())
	assert.True(t, tracker.Tracks(testPoolID))
	assert.False(t, tracker.Tracks(otherPoolID))
	require.NoError(t, tracker.Validate())
}
