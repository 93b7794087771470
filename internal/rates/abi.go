package rates

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const rateProviderABIJSON = `[
  {"inputs": [], "name": "getRate", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	rateProviderABI     abi.ABI
	rateProviderABIOnce sync.Once
	rateProviderABIErr  error
)

// RateProviderABI returns the parsed rate provider ABI.
func RateProviderABI() (abi.ABI, error) {
	rateProviderABIOnce.Do(func() {
		rateProviderABI, rateProviderABIErr = abi.JSON(strings.NewReader(rateProviderABIJSON))
	})
	return rateProviderABI, rateProviderABIErr
}
