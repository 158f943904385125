package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ShadowConfig holds configuration for the shadow command.
type ShadowConfig struct {
	RPCURL            string
	FromBlock         uint64
	ToBlock           uint64
	Pairs             []string
	BatchSize         uint64
	Journal           string
	Errors            string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	PGDSN             string
	LogLevel          string
}

// LoadShadow merges config file, environment variables, and flags into
// ShadowConfig.
func LoadShadow(cfgFile string, flags *pflag.FlagSet) (ShadowConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size":         uint64(2000),
		"journal":            "./data/journal.jsonl",
		"errors":             "./data/decode_errors.jsonl",
		"checkpoint":         "./data/shadow_checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"log-level":          "info",
	})
	if err != nil {
		return ShadowConfig{}, err
	}

	return ShadowConfig{
		RPCURL:            v.GetString("rpc"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Pairs:             getStringSlice(v, "pair"),
		BatchSize:         v.GetUint64("batch-size"),
		Journal:           v.GetString("journal"),
		Errors:            v.GetString("errors"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		PGDSN:             v.GetString("pg-dsn"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}
