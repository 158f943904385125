package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"binbook/internal/config"
	"binbook/internal/engine"
	"binbook/internal/model"
	"binbook/internal/replay"
	"binbook/internal/storage"
	"binbook/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Journal == "" {
		return fmt.Errorf("journal path is required")
	}
	if cfg.Pools == "" {
		return fmt.Errorf("pools file is required")
	}

	metas, err := loadPoolsFile(cfg.Pools)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		return fmt.Errorf("pools file names no pairs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *postgres.Store
	if cfg.PGDSN != "" {
		if store, err = postgres.NewStore(ctx, cfg.PGDSN); err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
	}

	eng := engine.New(logger)
	if err := bootstrapPools(ctx, eng, metas, cfg, store, logger); err != nil {
		return err
	}

	sinks := []storage.RecordSink{storage.NewJsonlRecords(cfg.OutDir)}
	if store != nil {
		sinks = append(sinks, store.Sink(ctx))
	}

	checkpoint := cfg.Checkpoint
	if !cfg.CheckpointEnabled {
		checkpoint = ""
	}
	runner, err := replay.NewReplayRunner(replay.ReplayConfig{
		JournalPath: cfg.Journal,
		Checkpoint:  checkpoint,
		Resume:      cfg.CheckpointEnabled,
		FlushEvery:  cfg.FlushEvery,
	}, eng, sinks, logger)
	if err != nil {
		return err
	}

	logger.Info("replay start",
		zap.String("journal", cfg.Journal),
		zap.String("out_dir", cfg.OutDir),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("pools", len(metas)),
		zap.Bool("restore", cfg.Restore),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	if err := runner.Run(ctx); err != nil {
		return err
	}
	if n := runner.Divergences(); n > 0 {
		logger.Warn("replay finished with divergences", zap.Uint64("divergences", n))
	}
	return nil
}

// bootstrapPools seeds the engine for every pair in the pools file, from a
// stored snapshot when restoring, from fresh metadata otherwise.
func bootstrapPools(ctx context.Context, eng *engine.Engine, metas []model.PairMeta, cfg config.ReplayConfig, store *postgres.Store, logger *zap.Logger) error {
	var fileSnaps map[string]model.PoolSnapshot
	if cfg.Restore && store == nil {
		var err error
		if fileSnaps, err = loadSnapshotsFile(snapshotsPath(cfg.OutDir)); err != nil {
			return err
		}
	}

	for _, meta := range metas {
		if cfg.Restore {
			snap, ok, err := lookupSnapshot(ctx, store, fileSnaps, meta)
			if err != nil {
				return err
			}
			if ok {
				if _, err := eng.AddPoolFromSnapshot(snap); err != nil {
					return fmt.Errorf("restore pool %s: %w", meta.Address, err)
				}
				logger.Info("pool restored from snapshot",
					zap.String("pair", meta.Address),
					zap.Uint64("block", snap.BlockNumber))
				continue
			}
			logger.Warn("no snapshot to restore, seeding fresh pool",
				zap.String("pair", meta.Address))
		}

		poolCfg, err := engine.PoolConfigFromMeta(meta)
		if err != nil {
			return err
		}
		if _, err := eng.AddPool(meta.ChainID, poolCfg); err != nil {
			return fmt.Errorf("add pool %s: %w", meta.Address, err)
		}
	}
	return nil
}

func lookupSnapshot(ctx context.Context, store *postgres.Store, fileSnaps map[string]model.PoolSnapshot, meta model.PairMeta) (model.PoolSnapshot, bool, error) {
	if store != nil {
		return store.LoadSnapshot(ctx, meta.ChainID, meta.Address)
	}
	snap, ok := fileSnaps[strings.ToLower(meta.Address)]
	return snap, ok, nil
}

func loadPoolsFile(path string) ([]model.PairMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pools file: %w", err)
	}
	var metas []model.PairMeta
	if err := json.Unmarshal(data, &metas); err != nil {
		return nil, fmt.Errorf("parse pools file: %w", err)
	}
	return metas, nil
}
