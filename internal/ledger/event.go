package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"deviationScope/internal/model"
)

var ErrMalformedEvent = errors.New("malformed event")

// EventMeta locates an event in chain history.
type EventMeta struct {
	BlockNumber uint64
	Timestamp   uint64
	TxHash      string
	LogIndex    uint64
}

// RecordID is the append-only key of records emitted for the event.
func (m EventMeta) RecordID() string {
	return model.RecordID(m.TxHash, m.LogIndex)
}

// Event is one inbound Vault event. Payload is Registered, Swap or
// BalanceChanged.
type Event struct {
	Meta    EventMeta
	PoolID  common.Hash
	Payload interface{}
}

// Registered marks a pool registration.
type Registered struct{}

// Swap is an executed swap as reported by the Vault.
type Swap struct {
	TokenIn   common.Address
	TokenOut  common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
}

// BalanceChanged carries parallel token and signed delta lists.
type BalanceChanged struct {
	Tokens []common.Address
	Deltas []*big.Int
}

// Kind is a short label for logs and metrics.
func (e Event) Kind() string {
	switch e.Payload.(type) {
	case Registered:
		return "registered"
	case Swap:
		return "swap"
	case BalanceChanged:
		return "balance_changed"
	default:
		return "unknown"
	}
}

// EventFromRecord converts a decoded JSONL record into an Event. ok is false
// for event names the ledger does not consume.
func EventFromRecord(record model.TypedEventRecord) (Event, bool, error) {
	evt := Event{
		Meta: EventMeta{
			BlockNumber: record.BlockNumber,
			Timestamp:   record.Timestamp,
			TxHash:      record.TxHash,
			LogIndex:    record.LogIndex,
		},
	}

	switch record.EventName {
	case model.EventPoolRegistered:
		var data model.PoolRegisteredData
		if err := json.Unmarshal(record.Decoded, &data); err != nil {
			return Event{}, false, fmt.Errorf("decode pool registered: %w", err)
		}
		poolID, err := parsePoolID(data.PoolID)
		if err != nil {
			return Event{}, false, err
		}
		evt.PoolID = poolID
		evt.Payload = Registered{}
	case model.EventSwap:
		var data model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &data); err != nil {
			return Event{}, false, fmt.Errorf("decode swap: %w", err)
		}
		poolID, err := parsePoolID(data.PoolID)
		if err != nil {
			return Event{}, false, err
		}
		swap, err := swapFromData(data)
		if err != nil {
			return Event{}, false, err
		}
		evt.PoolID = poolID
		evt.Payload = swap
	case model.EventPoolBalanceChanged:
		var data model.PoolBalanceChangedData
		if err := json.Unmarshal(record.Decoded, &data); err != nil {
			return Event{}, false, fmt.Errorf("decode pool balance changed: %w", err)
		}
		poolID, err := parsePoolID(data.PoolID)
		if err != nil {
			return Event{}, false, err
		}
		changed, err := balanceChangedFromData(data)
		if err != nil {
			return Event{}, false, err
		}
		evt.PoolID = poolID
		evt.Payload = changed
	default:
		return Event{}, false, nil
	}

	return evt, true, nil
}

func swapFromData(data model.SwapEventData) (Swap, error) {
	tokenIn, err := parseAddress(data.TokenIn)
	if err != nil {
		return Swap{}, err
	}
	tokenOut, err := parseAddress(data.TokenOut)
	if err != nil {
		return Swap{}, err
	}
	amountIn, err := parseAmount(data.AmountIn)
	if err != nil {
		return Swap{}, err
	}
	amountOut, err := parseAmount(data.AmountOut)
	if err != nil {
		return Swap{}, err
	}
	return Swap{TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amountIn, AmountOut: amountOut}, nil
}

func balanceChangedFromData(data model.PoolBalanceChangedData) (BalanceChanged, error) {
	if len(data.Tokens) != len(data.Deltas) {
		return BalanceChanged{}, fmt.Errorf("%w: %d tokens, %d deltas", ErrMalformedEvent, len(data.Tokens), len(data.Deltas))
	}
	out := BalanceChanged{
		Tokens: make([]common.Address, 0, len(data.Tokens)),
		Deltas: make([]*big.Int, 0, len(data.Deltas)),
	}
	for i := range data.Tokens {
		token, err := parseAddress(data.Tokens[i])
		if err != nil {
			return BalanceChanged{}, err
		}
		delta, err := parseAmount(data.Deltas[i])
		if err != nil {
			return BalanceChanged{}, err
		}
		out.Tokens = append(out.Tokens, token)
		out.Deltas = append(out.Deltas, delta)
	}
	return out, nil
}

// ParsePoolID parses a 32-byte hex pool id.
func ParsePoolID(input string) (common.Hash, error) {
	return parsePoolID(input)
}

func parsePoolID(input string) (common.Hash, error) {
	data, err := hexutil.Decode(strings.TrimSpace(input))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: invalid pool id %q", ErrMalformedEvent, input)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: pool id length %d", ErrMalformedEvent, len(data))
	}
	return common.BytesToHash(data), nil
}

func parseAddress(input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("%w: invalid address %q", ErrMalformedEvent, input)
	}
	return common.HexToAddress(input), nil
}

func parseAmount(input string) (*big.Int, error) {
	if input == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid int %q", ErrMalformedEvent, input)
	}
	return parsed, nil
}
