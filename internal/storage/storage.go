package storage

import "binbook/internal/model"

// Journal is an append-only sink for engine operations, ordered by
// (block_number, log_index).
type Journal interface {
	AppendOperations(ops []model.Operation) error
}

// RecordSink receives the applied outcomes of a replay run.
type RecordSink interface {
	PutSwapRecords(recs []model.SwapRecord) error
	PutLiquidityRecords(recs []model.LiquidityRecord) error
	PutSnapshots(snaps []model.PoolSnapshot) error
}
