package stats

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"binbook/internal/chain"
	"binbook/internal/dex"
	"binbook/internal/model"
)

// The replay path recomputes every fee from pool state, so window fees are
// exact rather than estimated from a fee tier.
const feeMethodExact = "exact_from_replay"

const (
	tvlMethodSnapshot = "snapshot_reserves"
	tvlMethodBlock    = "reserves_at_block"
	tvlMethodLatest   = "reserves_latest"
	tvlMethodNone     = "unavailable"
)

// MetricsStore receives finished windows.
type MetricsStore interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PairWindowMetrics) error
}

// SnapshotSource serves replayed pool snapshots for TVL valuation.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, chainID uint64, pair string) (model.PoolSnapshot, bool, error)
}

// Config controls the aggregation pass.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	// RecomputeFrom discards the saved state and reprocesses records at or
	// after this timestamp.
	RecomputeFrom uint64
	StateStore    StateStore
	Snapshots     SnapshotSource
}

// Aggregator folds a swap record stream into pair window metrics. The chain
// client is optional: without one, token decimals default to zero and TVL is
// reported unavailable.
type Aggregator struct {
	cfg          Config
	store        MetricsStore
	chainClient  *chain.Client
	logger       *zap.Logger
	pairMeta     *dex.PairMetaCache
	tokenMeta    *dex.TokenMetaCache
	accumulators map[string]*Accumulator
}

// NewAggregator wires an aggregator over a metrics store.
func NewAggregator(cfg Config, store MetricsStore, chainClient *chain.Client, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		store:        store,
		chainClient:  chainClient,
		logger:       logger,
		pairMeta:     dex.NewPairMetaCache(),
		tokenMeta:    dex.NewTokenMetaCache(),
		accumulators: make(map[string]*Accumulator),
	}
}

// Run aggregates one swap records JSONL file, in record order. Windows close
// when a record for the same pair lands past their end, and whatever is
// still open when the file ends is flushed at the end of the run.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.store == nil {
		return fmt.Errorf("metrics store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be positive")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 500
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open records: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	batch := make([]model.PairWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, flushed, skipped, failed int

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var rec model.SwapRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			failed++
			a.logger.Warn("decode swap record", zap.Error(err))
			continue
		}
		if rec.Timestamp <= startTs {
			skipped++
			continue
		}

		windowStart := rec.Timestamp - rec.Timestamp%a.cfg.WindowSeconds
		windowEnd := windowStart + a.cfg.WindowSeconds

		key := strings.ToLower(rec.Pair)
		acc := a.accumulators[key]
		if acc == nil {
			acc = NewAccumulator(rec, windowStart, windowEnd)
			a.accumulators[key] = acc
		} else if acc.WindowStart != windowStart {
			metrics, err := a.finishWindow(ctx, acc)
			if err != nil {
				return err
			}
			batch = append(batch, *metrics)
			flushed++
			acc = NewAccumulator(rec, windowStart, windowEnd)
			a.accumulators[key] = acc
		}

		if err := acc.Add(rec); err != nil {
			failed++
			a.logger.Warn("aggregate swap",
				zap.Error(err),
				zap.String("pair", rec.Pair),
				zap.Uint64("block", rec.BlockNumber))
			continue
		}
		if rec.Timestamp > maxTs {
			maxTs = rec.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan records: %w", err)
	}

	for _, acc := range a.accumulators {
		metrics, err := a.finishWindow(ctx, acc)
		if err != nil {
			return err
		}
		batch = append(batch, *metrics)
		flushed++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregation complete",
		zap.Int("records", total),
		zap.Int("windows", flushed),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil || !ok {
		return 0, err
	}
	return last, nil
}

// saveState records the newest timestamp that is safe to skip on the next
// run: nothing older than the earliest still-open window may be marked done.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}
	var safeTs uint64
	for _, acc := range a.accumulators {
		if safeTs == 0 || acc.WindowStart < safeTs {
			safeTs = acc.WindowStart
		}
	}
	if safeTs > 0 {
		safeTs--
	} else {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) finishWindow(ctx context.Context, acc *Accumulator) (*model.PairWindowMetrics, error) {
	decimalsX, decimalsY := a.pairDecimals(ctx, acc.Pair)

	var tvlX, tvlY *string
	var tvlXInt, tvlYInt *big.Int
	tvlMethod := tvlMethodNone
	if reserveX, reserveY, ok := a.snapshotReserves(ctx, acc); ok {
		tvlXInt, tvlYInt = reserveX, reserveY
		x := formatTokenAmount(reserveX, decimalsX)
		y := formatTokenAmount(reserveY, decimalsY)
		tvlX, tvlY = &x, &y
		tvlMethod = tvlMethodSnapshot
	} else if a.chainClient != nil && acc.LastBlock > 0 {
		reserveX, reserveY, method, err := a.fetchTVL(ctx, acc.Pair, acc.LastBlock)
		if err != nil {
			a.logger.Warn("tvl fetch failed", zap.String("pair", acc.Pair), zap.Error(err))
		} else {
			tvlXInt, tvlYInt = reserveX, reserveY
			x := formatTokenAmount(reserveX, decimalsX)
			y := formatTokenAmount(reserveY, decimalsY)
			tvlX, tvlY = &x, &y
			tvlMethod = method
		}
	}

	feeRateX, feeRateY := computeFeeRates(acc.FeeX, acc.FeeY, tvlXInt, tvlYInt)
	apr := computeAPR(feeRateX, feeRateY, a.cfg.WindowSeconds)

	return &model.PairWindowMetrics{
		ChainID:        acc.ChainID,
		Pair:           acc.Pair,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		VolumeX:        formatTokenAmount(acc.VolumeX, decimalsX),
		VolumeY:        formatTokenAmount(acc.VolumeY, decimalsY),
		FeeX:           formatTokenAmount(acc.FeeX, decimalsX),
		FeeY:           formatTokenAmount(acc.FeeY, decimalsY),
		ProtocolFeeX:   formatTokenAmount(acc.ProtocolFeeX, decimalsX),
		ProtocolFeeY:   formatTokenAmount(acc.ProtocolFeeY, decimalsY),
		FeeRateX:       feeRateX,
		FeeRateY:       feeRateY,
		TVLX:           tvlX,
		TVLY:           tvlY,
		APR:            apr,
		FeeMethod:      feeMethodExact,
		TVLMethod:      tvlMethod,
	}, nil
}

// pairDecimals resolves the pair's token decimals through the metadata
// caches. Without a chain client, raw integer amounts pass through.
func (a *Aggregator) pairDecimals(ctx context.Context, pair string) (uint8, uint8) {
	if a.chainClient == nil || !common.IsHexAddress(pair) {
		return 0, 0
	}
	addr := common.HexToAddress(pair)
	meta, ok := a.pairMeta.Get(addr)
	if !ok {
		fetched, err := dex.FetchPairMeta(ctx, a.chainClient, addr, a.tokenMeta, a.logger)
		if err != nil {
			a.logger.Warn("pair metadata fetch failed", zap.String("pair", pair), zap.Error(err))
			return 0, 0
		}
		a.pairMeta.Set(addr, fetched)
		meta = fetched
	}
	return meta.TokenX.Decimals, meta.TokenY.Decimals
}
