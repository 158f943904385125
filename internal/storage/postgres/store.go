package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"binbook/internal/model"
)

// Store provides Postgres persistence for applied records, metrics, and
// replay state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPairs inserts or updates pair metadata.
func (s *Store) UpsertPairs(ctx context.Context, pairs []model.PairMeta) error {
	if len(pairs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pairs {
		batch.Queue(`
			INSERT INTO pairs (
				chain_id, pair_address, token_x, token_y, token_x_decimals, token_y_decimals,
				token_x_symbol, token_y_symbol, bin_step, first_seen_block, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
			ON CONFLICT (chain_id, pair_address)
			DO UPDATE SET
				token_x = EXCLUDED.token_x,
				token_y = EXCLUDED.token_y,
				token_x_decimals = EXCLUDED.token_x_decimals,
				token_y_decimals = EXCLUDED.token_y_decimals,
				token_x_symbol = EXCLUDED.token_x_symbol,
				token_y_symbol = EXCLUDED.token_y_symbol,
				bin_step = EXCLUDED.bin_step,
				first_seen_block = LEAST(pairs.first_seen_block, EXCLUDED.first_seen_block),
				updated_at = now()
		`,
			int64(p.ChainID),
			p.Address,
			p.TokenX.Address,
			p.TokenY.Address,
			int16(p.TokenX.Decimals),
			int16(p.TokenY.Decimals),
			p.TokenX.Symbol,
			p.TokenY.Symbol,
			int32(p.BinStep),
			int64(p.FirstSeenBlock),
		)
	}
	return s.sendBatch(ctx, batch, len(pairs))
}

// PutSwapRecords inserts or updates applied swaps, keyed by log position.
func (s *Store) PutSwapRecords(ctx context.Context, recs []model.SwapRecord) error {
	if len(recs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range recs {
		bins, err := json.Marshal(r.Bins)
		if err != nil {
			return fmt.Errorf("marshal swap bins: %w", err)
		}
		batch.Queue(`
			INSERT INTO swaps (
				chain_id, pair, block_number, tx_hash, log_index, ts,
				swap_for_y, amount_in, amount_out, total_fee, protocol_fee,
				id_before, id_after, volatility_accumulator, bins, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
			ON CONFLICT (chain_id, pair, block_number, log_index)
			DO UPDATE SET
				tx_hash = EXCLUDED.tx_hash,
				ts = EXCLUDED.ts,
				swap_for_y = EXCLUDED.swap_for_y,
				amount_in = EXCLUDED.amount_in,
				amount_out = EXCLUDED.amount_out,
				total_fee = EXCLUDED.total_fee,
				protocol_fee = EXCLUDED.protocol_fee,
				id_before = EXCLUDED.id_before,
				id_after = EXCLUDED.id_after,
				volatility_accumulator = EXCLUDED.volatility_accumulator,
				bins = EXCLUDED.bins,
				updated_at = now()
		`,
			int64(r.ChainID),
			r.Pair,
			int64(r.BlockNumber),
			r.TxHash,
			int64(r.LogIndex),
			int64(r.Timestamp),
			r.SwapForY,
			r.AmountIn,
			r.AmountOut,
			r.TotalFee,
			r.ProtocolFee,
			int64(r.IDBefore),
			int64(r.IDAfter),
			int64(r.VolatilityAccumulator),
			string(bins),
		)
	}
	return s.sendBatch(ctx, batch, len(recs))
}

// PutLiquidityRecords inserts or updates applied deposits and withdrawals.
func (s *Store) PutLiquidityRecords(ctx context.Context, recs []model.LiquidityRecord) error {
	if len(recs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range recs {
		bins, err := json.Marshal(r.Bins)
		if err != nil {
			return fmt.Errorf("marshal liquidity bins: %w", err)
		}
		batch.Queue(`
			INSERT INTO liquidity_events (
				chain_id, pair, block_number, tx_hash, log_index, ts,
				kind, amount_x, amount_y, fee_x, fee_y, bins, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
			ON CONFLICT (chain_id, pair, block_number, log_index)
			DO UPDATE SET
				tx_hash = EXCLUDED.tx_hash,
				ts = EXCLUDED.ts,
				kind = EXCLUDED.kind,
				amount_x = EXCLUDED.amount_x,
				amount_y = EXCLUDED.amount_y,
				fee_x = EXCLUDED.fee_x,
				fee_y = EXCLUDED.fee_y,
				bins = EXCLUDED.bins,
				updated_at = now()
		`,
			int64(r.ChainID),
			r.Pair,
			int64(r.BlockNumber),
			r.TxHash,
			int64(r.LogIndex),
			int64(r.Timestamp),
			r.Kind,
			r.AmountX,
			r.AmountY,
			r.FeeX,
			r.FeeY,
			string(bins),
		)
	}
	return s.sendBatch(ctx, batch, len(recs))
}

// PutSnapshots stores the latest snapshot per pair as jsonb.
func (s *Store) PutSnapshots(ctx context.Context, snaps []model.PoolSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snaps {
		body, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		batch.Queue(`
			INSERT INTO pool_snapshots (
				chain_id, pair, block_number, ts, snapshot, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (chain_id, pair)
			DO UPDATE SET
				block_number = EXCLUDED.block_number,
				ts = EXCLUDED.ts,
				snapshot = EXCLUDED.snapshot,
				updated_at = now()
		`,
			int64(snap.ChainID),
			snap.Pair,
			int64(snap.BlockNumber),
			int64(snap.Timestamp),
			string(body),
		)
	}
	return s.sendBatch(ctx, batch, len(snaps))
}

// LoadSnapshot returns the stored snapshot for a pair, if any.
func (s *Store) LoadSnapshot(ctx context.Context, chainID uint64, pair string) (model.PoolSnapshot, bool, error) {
	var body []byte
	row := s.pool.QueryRow(ctx,
		`SELECT snapshot FROM pool_snapshots WHERE chain_id=$1 AND pair=$2`,
		int64(chainID), pair)
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolSnapshot{}, false, nil
		}
		return model.PoolSnapshot{}, false, err
	}
	var snap model.PoolSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

// UpsertWindowMetrics inserts or updates per-pair window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PairWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pair_window_metrics (
				chain_id, pair, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, volume_x, volume_y, fee_x, fee_y, protocol_fee_x, protocol_fee_y,
				fee_rate_x, fee_rate_y, tvl_x, tvl_y, apr, fee_method, tvl_method, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,now(),now())
			ON CONFLICT (chain_id, pair, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				volume_x = EXCLUDED.volume_x,
				volume_y = EXCLUDED.volume_y,
				fee_x = EXCLUDED.fee_x,
				fee_y = EXCLUDED.fee_y,
				protocol_fee_x = EXCLUDED.protocol_fee_x,
				protocol_fee_y = EXCLUDED.protocol_fee_y,
				fee_rate_x = EXCLUDED.fee_rate_x,
				fee_rate_y = EXCLUDED.fee_rate_y,
				tvl_x = EXCLUDED.tvl_x,
				tvl_y = EXCLUDED.tvl_y,
				apr = EXCLUDED.apr,
				fee_method = EXCLUDED.fee_method,
				tvl_method = EXCLUDED.tvl_method,
				updated_at = now()
		`,
			int64(m.ChainID),
			m.Pair,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			m.VolumeX,
			m.VolumeY,
			m.FeeX,
			m.FeeY,
			m.ProtocolFeeX,
			m.ProtocolFeeY,
			m.FeeRateX,
			m.FeeRateY,
			m.TVLX,
			m.TVLY,
			m.APR,
			m.FeeMethod,
			m.TVLMethod,
		)
	}
	return s.sendBatch(ctx, batch, len(metrics))
}

// LoadState returns the cursor stored under a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var cursor uint64
	row := s.pool.QueryRow(ctx, `SELECT cursor FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&cursor); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return cursor, true, nil
}

// SaveState upserts the cursor stored under a name.
func (s *Store) SaveState(ctx context.Context, name string, cursor uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, cursor, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET cursor = EXCLUDED.cursor, updated_at = now()
	`, name, cursor)
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
