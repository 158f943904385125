package model

// DecodeError records a pair log the decoder could not translate.
type DecodeError struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Data        string `json:"data,omitempty"`
	Error       string `json:"error"`
}
