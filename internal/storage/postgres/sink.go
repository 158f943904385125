package postgres

import (
	"context"

	"binbook/internal/model"
	"binbook/internal/storage"
)

// Sink binds the store to a context so it can serve as a replay record
// sink alongside the JSONL writer.
func (s *Store) Sink(ctx context.Context) storage.RecordSink {
	return &recordSink{ctx: ctx, store: s}
}

type recordSink struct {
	ctx   context.Context
	store *Store
}

func (r *recordSink) PutSwapRecords(recs []model.SwapRecord) error {
	return r.store.PutSwapRecords(r.ctx, recs)
}

func (r *recordSink) PutLiquidityRecords(recs []model.LiquidityRecord) error {
	return r.store.PutLiquidityRecords(r.ctx, recs)
}

func (r *recordSink) PutSnapshots(snaps []model.PoolSnapshot) error {
	return r.store.PutSnapshots(r.ctx, snaps)
}
