package model

// PoolSnapshot is a full-fidelity export of one pool's state. Packed words
// are hex so the snapshot stays storage-equivalent; supplies and reserves
// are decimal strings.
type PoolSnapshot struct {
	Pair          string        `json:"pair"`
	ChainID       uint64        `json:"chain_id,omitempty"`
	TokenX        string        `json:"token_x"`
	TokenY        string        `json:"token_y"`
	BinStep       uint16        `json:"bin_step"`
	Parameters    string        `json:"parameters"`
	Bins          []BinSnapshot `json:"bins"`
	OracleSamples []string      `json:"oracle_samples,omitempty"`
	ReserveX      string        `json:"reserve_x"`
	ReserveY      string        `json:"reserve_y"`
	ProtocolFeeX  string        `json:"protocol_fee_x"`
	ProtocolFeeY  string        `json:"protocol_fee_y"`
	BlockNumber   uint64        `json:"block_number,omitempty"`
	Timestamp     uint64        `json:"timestamp,omitempty"`
}

// BinSnapshot is one bin's packed reserves word (hex) and share supply
// (decimal).
type BinSnapshot struct {
	ID       uint32 `json:"id"`
	Reserves string `json:"reserves"`
	Supply   string `json:"supply"`
}
