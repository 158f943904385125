package model

// SwapRecord is the applied outcome of one swap operation. The fee fields
// are denominated in the input token.
type SwapRecord struct {
	ChainID               uint64       `json:"chain_id,omitempty"`
	Pair                  string       `json:"pair"`
	BlockNumber           uint64       `json:"block_number"`
	TxHash                string       `json:"tx_hash"`
	LogIndex              uint64       `json:"log_index"`
	Timestamp             uint64       `json:"timestamp"`
	SwapForY              bool         `json:"swap_for_y"`
	AmountIn              string       `json:"amount_in"`
	AmountOut             string       `json:"amount_out"`
	TotalFee              string       `json:"total_fee"`
	ProtocolFee           string       `json:"protocol_fee"`
	IDBefore              uint32       `json:"id_before"`
	IDAfter               uint32       `json:"id_after"`
	VolatilityAccumulator uint32       `json:"volatility_accumulator"`
	Bins                  []BinAmounts `json:"bins,omitempty"`
}

// LiquidityRecord is the applied outcome of one deposit or withdrawal. The
// fee fields carry composition fees and are set on deposits only.
type LiquidityRecord struct {
	Kind        string       `json:"kind"`
	ChainID     uint64       `json:"chain_id,omitempty"`
	Pair        string       `json:"pair"`
	BlockNumber uint64       `json:"block_number"`
	TxHash      string       `json:"tx_hash"`
	LogIndex    uint64       `json:"log_index"`
	Timestamp   uint64       `json:"timestamp"`
	AmountX     string       `json:"amount_x"`
	AmountY     string       `json:"amount_y"`
	FeeX        string       `json:"fee_x,omitempty"`
	FeeY        string       `json:"fee_y,omitempty"`
	Bins        []BinAmounts `json:"bins,omitempty"`
}
