package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Asset classifies a token against the tracked pair.
type Asset int

const (
	AssetOther Asset = iota
	AssetA
	AssetB
)

func (a Asset) String() string {
	switch a {
	case AssetA:
		return "A"
	case AssetB:
		return "B"
	default:
		return "other"
	}
}

// Index is the solver position of the asset: A is 0, B is 1, other is -1.
func (a Asset) Index() int {
	switch a {
	case AssetA:
		return 0
	case AssetB:
		return 1
	default:
		return -1
	}
}

// Tracker identifies the single pool and token pair the ledger follows.
type Tracker struct {
	PoolID        common.Hash
	TokenA        common.Address
	TokenB        common.Address
	RateProviderA common.Address
	RateProviderB common.Address
	// Amp is the amplification parameter scaled by stable.AmpPrecision.
	Amp *big.Int
}

// Validate checks that every identifier is set and the pair is distinct.
func (t Tracker) Validate() error {
	var zeroAddr common.Address
	switch {
	case t.PoolID == (common.Hash{}):
		return errors.New("pool id is required")
	case t.TokenA == zeroAddr || t.TokenB == zeroAddr:
		return errors.New("both tracked tokens are required")
	case t.TokenA == t.TokenB:
		return fmt.Errorf("tracked tokens must differ: %s", t.TokenA.Hex())
	case t.RateProviderA == zeroAddr || t.RateProviderB == zeroAddr:
		return errors.New("both rate providers are required")
	case t.Amp == nil || t.Amp.Sign() <= 0:
		return errors.New("amp must be positive")
	}
	return nil
}

// Tracks reports whether poolID is the tracked pool.
func (t Tracker) Tracks(poolID common.Hash) bool {
	return poolID == t.PoolID
}

// PoolKey is the storage key of the tracked pool.
func (t Tracker) PoolKey() string {
	return t.PoolID.Hex()
}

// Classify maps a token address to its asset slot.
func (t Tracker) Classify(token common.Address) Asset {
	switch token {
	case t.TokenA:
		return AssetA
	case t.TokenB:
		return AssetB
	default:
		return AssetOther
	}
}

// RateProvider returns the provider of a tracked asset.
func (t Tracker) RateProvider(asset Asset) (common.Address, bool) {
	switch asset {
	case AssetA:
		return t.RateProviderA, true
	case AssetB:
		return t.RateProviderB, true
	default:
		return common.Address{}, false
	}
}
