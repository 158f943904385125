package model

import (
	"encoding/json"
)

// Operation kinds as stored in the journal.
const (
	OpSwap                 = "swap"
	OpDeposit              = "deposit"
	OpWithdraw             = "withdraw"
	OpCompositionFees      = "composition_fees"
	OpSetStaticFee         = "set_static_fee"
	OpIncreaseOracleLength = "increase_oracle_length"
	OpForceDecay           = "force_decay"
	OpCollectProtocolFees  = "collect_protocol_fees"
	// OpTransferBatch is a pre-merge kind: share movements folded into the
	// adjacent deposit or withdrawal before journaling.
	OpTransferBatch = "transfer_batch"
)

// Operation is one journal line: a pair event translated into engine terms,
// ordered by (block_number, log_index). Amounts are decimal strings.
type Operation struct {
	Kind         string           `json:"kind"`
	ChainID      uint64           `json:"chain_id,omitempty"`
	Pair         string           `json:"pair"`
	BlockNumber  uint64           `json:"block_number"`
	TxHash       string           `json:"tx_hash"`
	LogIndex     uint64           `json:"log_index"`
	Timestamp    uint64           `json:"timestamp"`
	Sender       string           `json:"sender,omitempty"`
	From         string           `json:"from,omitempty"`
	To           string           `json:"to,omitempty"`
	SwapForY     bool             `json:"swap_for_y,omitempty"`
	AmountIn     string           `json:"amount_in,omitempty"`
	AmountX      string           `json:"amount_x,omitempty"`
	AmountY      string           `json:"amount_y,omitempty"`
	Bins         []BinAmounts     `json:"bins,omitempty"`
	Static       *StaticFeeConfig `json:"static,omitempty"`
	OracleLength uint16           `json:"oracle_length,omitempty"`
	Raw          *RawLogRef       `json:"raw,omitempty"`
}

// BinAmounts carries the per-bin legs of an operation. For swaps AmountX and
// AmountY are the amounts moved through the bin on each side; for deposits
// and withdrawals they are the effective amounts and Shares the token delta.
// Fee fields follow the packed fee words, one half per side.
type BinAmounts struct {
	ID           uint32 `json:"id"`
	AmountX      string `json:"amount_x,omitempty"`
	AmountY      string `json:"amount_y,omitempty"`
	Shares       string `json:"shares,omitempty"`
	FeeX         string `json:"fee_x,omitempty"`
	FeeY         string `json:"fee_y,omitempty"`
	ProtocolFeeX string `json:"protocol_fee_x,omitempty"`
	ProtocolFeeY string `json:"protocol_fee_y,omitempty"`
}

// StaticFeeConfig mirrors the immutable fee configuration of a pair.
type StaticFeeConfig struct {
	BaseFactor               uint16 `json:"base_factor"`
	FilterPeriod             uint16 `json:"filter_period"`
	DecayPeriod              uint16 `json:"decay_period"`
	ReductionFactor          uint16 `json:"reduction_factor"`
	VariableFeeControl       uint32 `json:"variable_fee_control"`
	ProtocolShare            uint16 `json:"protocol_share"`
	MaxVolatilityAccumulator uint32 `json:"max_volatility_accumulator"`
}

// RawLogRef keeps a minimal raw reference for traceability.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}

// MarshalJSON ensures Operation is encoded with stable field names.
func (op Operation) MarshalJSON() ([]byte, error) {
	type Alias Operation
	return json.Marshal(Alias(op))
}

// UnmarshalJSON decodes an Operation from JSON.
func (op *Operation) UnmarshalJSON(data []byte) error {
	type Alias Operation
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*op = Operation(a)
	return nil
}
