package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const pairABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint24", "name": "id", "type": "uint24"},
      {"indexed": false, "internalType": "bytes32", "name": "amountsIn", "type": "bytes32"},
      {"indexed": false, "internalType": "bytes32", "name": "amountsOut", "type": "bytes32"},
      {"indexed": false, "internalType": "uint24", "name": "volatilityAccumulator", "type": "uint24"},
      {"indexed": false, "internalType": "bytes32", "name": "totalFees", "type": "bytes32"},
      {"indexed": false, "internalType": "bytes32", "name": "protocolFees", "type": "bytes32"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256[]", "name": "ids", "type": "uint256[]"},
      {"indexed": false, "internalType": "bytes32[]", "name": "amounts", "type": "bytes32[]"}
    ],
    "name": "DepositedToBins",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256[]", "name": "ids", "type": "uint256[]"},
      {"indexed": false, "internalType": "bytes32[]", "name": "amounts", "type": "bytes32[]"}
    ],
    "name": "WithdrawnFromBins",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "uint24", "name": "id", "type": "uint24"},
      {"indexed": false, "internalType": "bytes32", "name": "totalFees", "type": "bytes32"},
      {"indexed": false, "internalType": "bytes32", "name": "protocolFees", "type": "bytes32"}
    ],
    "name": "CompositionFees",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "feeRecipient", "type": "address"},
      {"indexed": false, "internalType": "bytes32", "name": "protocolFees", "type": "bytes32"}
    ],
    "name": "CollectedProtocolFees",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "uint16", "name": "baseFactor", "type": "uint16"},
      {"indexed": false, "internalType": "uint16", "name": "filterPeriod", "type": "uint16"},
      {"indexed": false, "internalType": "uint16", "name": "decayPeriod", "type": "uint16"},
      {"indexed": false, "internalType": "uint16", "name": "reductionFactor", "type": "uint16"},
      {"indexed": false, "internalType": "uint24", "name": "variableFeeControl", "type": "uint24"},
      {"indexed": false, "internalType": "uint16", "name": "protocolShare", "type": "uint16"},
      {"indexed": false, "internalType": "uint24", "name": "maxVolatilityAccumulator", "type": "uint24"}
    ],
    "name": "StaticFeeParametersSet",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "uint16", "name": "oracleLength", "type": "uint16"}
    ],
    "name": "OracleLengthIncreased",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "uint24", "name": "idReference", "type": "uint24"},
      {"indexed": false, "internalType": "uint24", "name": "volatilityReference", "type": "uint24"}
    ],
    "name": "ForcedDecay",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256[]", "name": "ids", "type": "uint256[]"},
      {"indexed": false, "internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}
    ],
    "name": "TransferBatch",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "getTokenX",
    "outputs": [{"internalType": "address", "name": "tokenX", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getTokenY",
    "outputs": [{"internalType": "address", "name": "tokenY", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getBinStep",
    "outputs": [{"internalType": "uint16", "name": "binStep", "type": "uint16"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getActiveId",
    "outputs": [{"internalType": "uint24", "name": "activeId", "type": "uint24"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getStaticFeeParameters",
    "outputs": [
      {"internalType": "uint16", "name": "baseFactor", "type": "uint16"},
      {"internalType": "uint16", "name": "filterPeriod", "type": "uint16"},
      {"internalType": "uint16", "name": "decayPeriod", "type": "uint16"},
      {"internalType": "uint16", "name": "reductionFactor", "type": "uint16"},
      {"internalType": "uint24", "name": "variableFeeControl", "type": "uint24"},
      {"internalType": "uint16", "name": "protocolShare", "type": "uint16"},
      {"internalType": "uint24", "name": "maxVolatilityAccumulator", "type": "uint24"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getReserves",
    "outputs": [
      {"internalType": "uint128", "name": "reserveX", "type": "uint128"},
      {"internalType": "uint128", "name": "reserveY", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	pairABI     abi.ABI
	pairABIOnce sync.Once
	pairABIErr  error
)

// PairABI returns the parsed bin-pair ABI.
func PairABI() (abi.ABI, error) {
	pairABIOnce.Do(func() {
		pairABI, pairABIErr = abi.JSON(strings.NewReader(pairABIJSON))
	})
	return pairABI, pairABIErr
}
