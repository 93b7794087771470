package vault

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const vaultABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "poolAddress", "type": "address"},
      {"indexed": false, "internalType": "enum IVault.PoolSpecialization", "name": "specialization", "type": "uint8"}
    ],
    "name": "PoolRegistered",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "contract IERC20", "name": "tokenIn", "type": "address"},
      {"indexed": true, "internalType": "contract IERC20", "name": "tokenOut", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amountIn", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountOut", "type": "uint256"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "liquidityProvider", "type": "address"},
      {"indexed": false, "internalType": "contract IERC20[]", "name": "tokens", "type": "address[]"},
      {"indexed": false, "internalType": "int256[]", "name": "deltas", "type": "int256[]"},
      {"indexed": false, "internalType": "uint256[]", "name": "protocolFeeAmounts", "type": "uint256[]"}
    ],
    "name": "PoolBalanceChanged",
    "type": "event"
  }
]`

var (
	vaultABI     abi.ABI
	vaultABIOnce sync.Once
	vaultABIErr  error
)

// VaultABI returns the parsed Vault event ABI.
func VaultABI() (abi.ABI, error) {
	vaultABIOnce.Do(func() {
		vaultABI, vaultABIErr = abi.JSON(strings.NewReader(vaultABIJSON))
	})
	return vaultABI, vaultABIErr
}

// EventTopics returns the topic0 hashes of the decoded Vault events.
func EventTopics() ([]string, error) {
	parsed, err := VaultABI()
	if err != nil {
		return nil, err
	}
	names := []string{"PoolRegistered", "Swap", "PoolBalanceChanged"}
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, parsed.Events[name].ID.Hex())
	}
	return out, nil
}
