package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "binbook",
		Short:        "Shadow engine for bin-liquidity pairs",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	shadowCmd := &cobra.Command{
		Use:   "shadow",
		Short: "Scan pair logs into an operation journal",
		RunE:  runShadow,
	}

	shadowCmd.Flags().String("rpc", "", "chain RPC URL")
	shadowCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	shadowCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	shadowCmd.Flags().StringSlice("pair", nil, "pair addresses (comma-separated)")
	shadowCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	shadowCmd.Flags().String("journal", "./data/journal.jsonl", "operation journal JSONL path")
	shadowCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL path")
	shadowCmd.Flags().String("checkpoint", "./data/shadow_checkpoint.json", "checkpoint file path")
	shadowCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	shadowCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	shadowCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	shadowCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for pair metadata upserts")
	shadowCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(shadowCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal through the engine",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("journal", "./data/journal.jsonl", "operation journal JSONL path")
	replayCmd.Flags().String("pools", "", "pool bootstrap file (JSON array of pair metadata)")
	replayCmd.Flags().String("out-dir", "./data/records", "applied records output directory")
	replayCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for records and snapshots")
	replayCmd.Flags().Bool("restore", false, "restore pool state from stored snapshots")
	replayCmd.Flags().String("checkpoint", "./data/replay_checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().Int("flush-every", 256, "records buffered between sink writes")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate applied swaps into window metrics",
		RunE:  runStats,
	}

	statsCmd.Flags().String("rpc", "", "optional chain RPC URL for decimals and TVL")
	statsCmd.Flags().String("in", "./data/records/swaps.jsonl", "applied swaps JSONL path")
	statsCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	statsCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	statsCmd.Flags().Int("batch-size", 500, "batch size for DB writes")
	statsCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	statsCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	statsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(statsCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Answer one-shot queries against a replayed snapshot",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("snapshots", "./data/records/snapshots.jsonl", "snapshots JSONL path")
	quoteCmd.Flags().String("pg-dsn", "", "optional Postgres DSN to load the snapshot from")
	quoteCmd.Flags().Uint64("chain-id", 0, "chain id for the Postgres snapshot lookup")
	quoteCmd.Flags().String("pair", "", "pair address")
	quoteCmd.Flags().String("amount-in", "", "exact-in quote amount")
	quoteCmd.Flags().String("amount-out", "", "exact-out quote amount")
	quoteCmd.Flags().Bool("swap-for-y", true, "quote direction, X in Y out when true")
	quoteCmd.Flags().Int("bins", 5, "bins to print around the active id")
	quoteCmd.Flags().Uint64("twap-ago", 0, "TWAP lookback in seconds, 0 disables")
	quoteCmd.Flags().String("at", "", "evaluation time (unix seconds or RFC3339), default snapshot time")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
