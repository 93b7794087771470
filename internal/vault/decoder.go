package vault

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"deviationScope/internal/model"
)

// DecoderConfig configures decoder behavior.
type DecoderConfig struct {
	// Vault restricts decoding to logs emitted by this address when set.
	Vault common.Address
	// PoolID restricts decoding to one pool when set.
	PoolID common.Hash
}

// Decoder decodes Balancer Vault pool events.
type Decoder struct {
	cfg         DecoderConfig
	vaultABI    abi.ABI
	topicToName map[string]string
}

func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	parsed, err := VaultABI()
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]string, 3)
	for _, name := range []string{model.EventPoolRegistered, model.EventSwap, model.EventPoolBalanceChanged} {
		topicToName[strings.ToLower(parsed.Events[name].ID.Hex())] = name
	}

	return &Decoder{
		cfg:         cfg,
		vaultABI:    parsed,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// EventName returns the Vault event name for topic0, or "" when unsupported.
func (d *Decoder) EventName(topic0 string) string {
	return d.topicToName[strings.ToLower(topic0)]
}

// Accepts reports whether the log passes the vault and pool filters. The
// pool id of every Vault event is its first indexed topic.
func (d *Decoder) Accepts(log model.LogRecord) bool {
	if d.cfg.Vault != (common.Address{}) {
		if !common.IsHexAddress(log.Address) || common.HexToAddress(log.Address) != d.cfg.Vault {
			return false
		}
	}
	if d.cfg.PoolID != (common.Hash{}) {
		if len(log.Topics) < 2 || common.HexToHash(log.Topics[1]) != d.cfg.PoolID {
			return false
		}
	}
	return true
}

// Decode converts a LogRecord into a TypedEvent.
func (d *Decoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid vault address: %s", log.Address)
	}

	switch name {
	case model.EventPoolRegistered:
		decoded, err := d.decodePoolRegistered(log)
		if err != nil {
			return nil, err
		}
		return buildTypedEvent(log, name, decoded.PoolID, decoded), nil
	case model.EventSwap:
		decoded, err := d.decodeSwap(log)
		if err != nil {
			return nil, err
		}
		return buildTypedEvent(log, name, decoded.PoolID, decoded), nil
	case model.EventPoolBalanceChanged:
		decoded, err := d.decodePoolBalanceChanged(log)
		if err != nil {
			return nil, err
		}
		return buildTypedEvent(log, name, decoded.PoolID, decoded), nil
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func buildTypedEvent(log model.LogRecord, name, poolID string, decoded interface{}) *model.TypedEvent {
	return &model.TypedEvent{
		EventHeader: model.HeaderFromLog(log, name, poolID),
		Decoded:     decoded,
		Raw:         &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data},
	}
}

func (d *Decoder) decodePoolRegistered(log model.LogRecord) (model.PoolRegisteredData, error) {
	event := d.vaultABI.Events[model.EventPoolRegistered]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.PoolRegisteredData{}, err
	}

	var indexed struct {
		PoolId      [32]byte
		PoolAddress common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.PoolRegisteredData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.PoolRegisteredData{}, err
	}
	if len(values) != 1 {
		return model.PoolRegisteredData{}, fmt.Errorf("unexpected pool registered values: %d", len(values))
	}
	specialization, ok := values[0].(uint8)
	if !ok {
		return model.PoolRegisteredData{}, fmt.Errorf("unsupported specialization type %T", values[0])
	}

	return model.PoolRegisteredData{
		PoolID:         common.Hash(indexed.PoolId).Hex(),
		PoolAddress:    indexed.PoolAddress.Hex(),
		Specialization: specialization,
	}, nil
}

func (d *Decoder) decodeSwap(log model.LogRecord) (model.SwapEventData, error) {
	event := d.vaultABI.Events[model.EventSwap]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.SwapEventData{}, err
	}

	var indexed struct {
		PoolId   [32]byte
		TokenIn  common.Address
		TokenOut common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.SwapEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.SwapEventData{}, err
	}
	if len(values) != 2 {
		return model.SwapEventData{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}
	amountIn, err := asBigInt(values[0])
	if err != nil {
		return model.SwapEventData{}, err
	}
	amountOut, err := asBigInt(values[1])
	if err != nil {
		return model.SwapEventData{}, err
	}

	return model.SwapEventData{
		PoolID:    common.Hash(indexed.PoolId).Hex(),
		TokenIn:   indexed.TokenIn.Hex(),
		TokenOut:  indexed.TokenOut.Hex(),
		AmountIn:  amountIn.String(),
		AmountOut: amountOut.String(),
	}, nil
}

func (d *Decoder) decodePoolBalanceChanged(log model.LogRecord) (model.PoolBalanceChangedData, error) {
	event := d.vaultABI.Events[model.EventPoolBalanceChanged]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.PoolBalanceChangedData{}, err
	}

	var indexed struct {
		PoolId            [32]byte
		LiquidityProvider common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.PoolBalanceChangedData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.PoolBalanceChangedData{}, err
	}
	if len(values) != 3 {
		return model.PoolBalanceChangedData{}, fmt.Errorf("unexpected pool balance changed values: %d", len(values))
	}

	tokens, ok := values[0].([]common.Address)
	if !ok {
		return model.PoolBalanceChangedData{}, fmt.Errorf("unsupported tokens type %T", values[0])
	}
	deltas, ok := values[1].([]*big.Int)
	if !ok {
		return model.PoolBalanceChangedData{}, fmt.Errorf("unsupported deltas type %T", values[1])
	}
	fees, ok := values[2].([]*big.Int)
	if !ok {
		return model.PoolBalanceChangedData{}, fmt.Errorf("unsupported protocol fees type %T", values[2])
	}
	if len(tokens) != len(deltas) {
		return model.PoolBalanceChangedData{}, fmt.Errorf("tokens and deltas length mismatch: %d != %d", len(tokens), len(deltas))
	}

	out := model.PoolBalanceChangedData{
		PoolID:             common.Hash(indexed.PoolId).Hex(),
		LiquidityProvider:  indexed.LiquidityProvider.Hex(),
		Tokens:             make([]string, 0, len(tokens)),
		Deltas:             make([]string, 0, len(deltas)),
		ProtocolFeeAmounts: make([]string, 0, len(fees)),
	}
	for i := range tokens {
		out.Tokens = append(out.Tokens, tokens[i].Hex())
		out.Deltas = append(out.Deltas, deltas[i].String())
	}
	for _, fee := range fees {
		out.ProtocolFeeAmounts = append(out.ProtocolFeeAmounts, fee.String())
	}
	return out, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
