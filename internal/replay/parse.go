package replay

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParsePairs converts pair address strings into common.Address.
func ParsePairs(inputs []string) ([]common.Address, error) {
	pairs := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid pair address: %s", input)
		}
		pairs = append(pairs, common.HexToAddress(input))
	}
	return pairs, nil
}
