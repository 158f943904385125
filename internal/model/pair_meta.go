package model

// PairMeta captures immutable pair metadata with optional live fields.
type PairMeta struct {
	ChainID        uint64           `json:"chain_id"`
	Address        string           `json:"address"`
	TokenX         TokenMeta        `json:"token_x"`
	TokenY         TokenMeta        `json:"token_y"`
	BinStep        uint16           `json:"bin_step"`
	ActiveID       uint32           `json:"active_id,omitempty"`
	Static         *StaticFeeConfig `json:"static,omitempty"`
	FirstSeenBlock uint64           `json:"first_seen_block,omitempty"`
}

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}
