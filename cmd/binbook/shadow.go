package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"binbook/internal/chain"
	"binbook/internal/config"
	"binbook/internal/dex"
	"binbook/internal/model"
	"binbook/internal/replay"
	"binbook/internal/storage"
	"binbook/internal/storage/postgres"
)

func runShadow(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadShadow(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	pairs, err := replay.ParsePairs(cfg.Pairs)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("pair list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	decoder, err := dex.NewPairDecoder()
	if err != nil {
		return err
	}

	if cfg.PGDSN != "" {
		if err := upsertPairMeta(ctx, chainClient, pairs, cfg, logger); err != nil {
			return err
		}
	}

	checkpoint := cfg.Checkpoint
	if !cfg.CheckpointEnabled {
		checkpoint = ""
	}
	runner, err := replay.NewShadowRunner(replay.ShadowConfig{
		FromBlock:   cfg.FromBlock,
		ToBlock:     cfg.ToBlock,
		Pairs:       pairs,
		BatchSize:   cfg.BatchSize,
		Checkpoint:  checkpoint,
		Resume:      cfg.CheckpointEnabled,
		MaxAttempts: cfg.MaxRetries,
		RetryDelay:  cfg.RetryBackoff,
	}, chainClient, decoder, storage.NewJsonlJournal(cfg.Journal), storage.NewJsonlErrors(cfg.Errors), logger)
	if err != nil {
		return err
	}

	logger.Info("shadow start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("pairs", len(pairs)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("journal", cfg.Journal),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

// upsertPairMeta reads each pair's static metadata over eth_call and stores
// it, so later passes can resolve decimals without touching the chain.
func upsertPairMeta(ctx context.Context, chainClient *chain.Client, pairs []common.Address, cfg config.ShadowConfig, logger *zap.Logger) error {
	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	tokenCache := dex.NewTokenMetaCache()
	metas := make([]model.PairMeta, 0, len(pairs))
	for _, pair := range pairs {
		meta, err := dex.FetchPairMeta(ctx, chainClient, pair, tokenCache, logger)
		if err != nil {
			logger.Warn("pair metadata fetch failed",
				zap.String("pair", pair.Hex()),
				zap.Error(err))
			continue
		}
		meta.ChainID = chainID
		meta.FirstSeenBlock = cfg.FromBlock
		metas = append(metas, meta)
	}
	if len(metas) == 0 {
		return nil
	}
	return store.UpsertPairs(ctx, metas)
}
