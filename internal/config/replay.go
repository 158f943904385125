package config

import "github.com/spf13/pflag"

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Journal           string
	Pools             string
	OutDir            string
	PGDSN             string
	Restore           bool
	Checkpoint        string
	CheckpointEnabled bool
	FlushEvery        int
	LogLevel          string
}

// LoadReplay merges config file, environment variables, and flags into
// ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"journal":            "./data/journal.jsonl",
		"out-dir":            "./data/records",
		"checkpoint":         "./data/replay_checkpoint.json",
		"checkpoint-enabled": true,
		"flush-every":        256,
		"log-level":          "info",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Journal:           v.GetString("journal"),
		Pools:             v.GetString("pools"),
		OutDir:            v.GetString("out-dir"),
		PGDSN:             v.GetString("pg-dsn"),
		Restore:           v.GetBool("restore"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		FlushEvery:        v.GetInt("flush-every"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}
