package config

import "github.com/spf13/pflag"

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	Snapshots string
	PGDSN     string
	ChainID   uint64
	Pair      string
	AmountIn  string
	AmountOut string
	SwapForY  bool
	Bins      int
	TwapAgo   uint64
	At        string
	LogLevel  string
}

// LoadQuote merges config file, environment variables, and flags into
// QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"snapshots": "./data/records/snapshots.jsonl",
		"bins":      5,
		"log-level": "info",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	return QuoteConfig{
		Snapshots: v.GetString("snapshots"),
		PGDSN:     v.GetString("pg-dsn"),
		ChainID:   v.GetUint64("chain-id"),
		Pair:      v.GetString("pair"),
		AmountIn:  v.GetString("amount-in"),
		AmountOut: v.GetString("amount-out"),
		SwapForY:  v.GetBool("swap-for-y"),
		Bins:      v.GetInt("bins"),
		TwapAgo:   v.GetUint64("twap-ago"),
		At:        v.GetString("at"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}
