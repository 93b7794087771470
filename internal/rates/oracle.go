package rates

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Oracle returns the current rate of a provider at 1e18 scale.
// A nil block reads the latest state.
type Oracle interface {
	GetRate(ctx context.Context, provider common.Address, block *big.Int) (*big.Int, error)
}

// ContractCaller is the subset of the chain client used for eth_call.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainOracle reads getRate() from rate provider contracts. It never caches.
type ChainOracle struct {
	caller ContractCaller
}

func NewChainOracle(caller ContractCaller) *ChainOracle {
	return &ChainOracle{caller: caller}
}

// GetRate calls getRate() on the provider.
func (o *ChainOracle) GetRate(ctx context.Context, provider common.Address, block *big.Int) (*big.Int, error) {
	if o == nil || o.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	parsed, err := RateProviderABI()
	if err != nil {
		return nil, fmt.Errorf("parse rate provider abi: %w", err)
	}

	data, err := parsed.Pack("getRate")
	if err != nil {
		return nil, fmt.Errorf("pack getRate: %w", err)
	}

	msg := ethereum.CallMsg{To: &provider, Data: data}
	resp, err := o.caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call getRate %s: %w", provider.Hex(), err)
	}

	values, err := parsed.Unpack("getRate", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack getRate: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("getRate return size %d", len(values))
	}
	rate, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getRate unexpected type %T", values[0])
	}
	if rate.Sign() <= 0 {
		return nil, fmt.Errorf("getRate %s returned non-positive rate %s", provider.Hex(), rate)
	}
	return rate, nil
}

// StaticOracle serves fixed rates. Unknown providers fail.
type StaticOracle struct {
	mu    sync.Mutex
	rates map[common.Address]*big.Int
	err   error
	calls int
}

func NewStaticOracle(rates map[common.Address]*big.Int) *StaticOracle {
	copied := make(map[common.Address]*big.Int, len(rates))
	for addr, rate := range rates {
		copied[addr] = new(big.Int).Set(rate)
	}
	return &StaticOracle{rates: copied}
}

// SetRate replaces the rate of a provider.
func (o *StaticOracle) SetRate(provider common.Address, rate *big.Int) {
	o.mu.Lock()
	o.rates[provider] = new(big.Int).Set(rate)
	o.mu.Unlock()
}

// SetError makes every following call fail with err; nil clears it.
func (o *StaticOracle) SetError(err error) {
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
}

// Calls returns how many reads were served or failed.
func (o *StaticOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func (o *StaticOracle) GetRate(ctx context.Context, provider common.Address, block *big.Int) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	rate, ok := o.rates[provider]
	if !ok {
		return nil, fmt.Errorf("no rate for provider %s", provider.Hex())
	}
	return new(big.Int).Set(rate), nil
}
