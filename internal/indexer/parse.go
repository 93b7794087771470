package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"deviationScope/internal/vault"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParseTopic0 converts topic0 hashes into common.Hash. An empty list selects
// the Vault events the ledger consumes.
func ParseTopic0(inputs []string) ([]common.Hash, error) {
	if len(cleanInputs(inputs)) == 0 {
		defaults, err := vault.EventTopics()
		if err != nil {
			return nil, fmt.Errorf("vault topics: %w", err)
		}
		inputs = defaults
	}

	topics := make([]common.Hash, 0, len(inputs))
	for _, input := range cleanInputs(inputs) {
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("invalid topic0: %s", input)
		}
		if len(data) != common.HashLength {
			return nil, fmt.Errorf("invalid topic0 length: %s", input)
		}
		topics = append(topics, common.BytesToHash(data))
	}
	return topics, nil
}

func cleanInputs(inputs []string) []string {
	out := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if input = strings.TrimSpace(input); input != "" {
			out = append(out, input)
		}
	}
	return out
}
