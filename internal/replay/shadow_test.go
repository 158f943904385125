package replay

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"binbook/internal/book"
	"binbook/internal/dex"
	"binbook/internal/model"
)

type fakeChain struct {
	latest uint64
	logs   []types.Log
	calls  []BlockRange
}

func (f *fakeChain) ChainID(context.Context) (uint64, error)           { return 43114, nil }
func (f *fakeChain) LatestBlockNumber(context.Context) (uint64, error) { return f.latest, nil }
func (f *fakeChain) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return number * 2, nil
}

func (f *fakeChain) FilterLogs(_ context.Context, from, to uint64, _ []common.Address, _ []common.Hash) ([]types.Log, error) {
	f.calls = append(f.calls, BlockRange{From: from, To: to})
	var out []types.Log
	for _, lg := range f.logs {
		if lg.BlockNumber >= from && lg.BlockNumber <= to {
			out = append(out, lg)
		}
	}
	return out, nil
}

type memJournal struct {
	batches [][]model.Operation
}

func (j *memJournal) AppendOperations(ops []model.Operation) error {
	j.batches = append(j.batches, ops)
	return nil
}

type memErrSink struct {
	errs []model.DecodeError
}

func (s *memErrSink) PutDecodeErrors(errs []model.DecodeError) error {
	s.errs = append(s.errs, errs...)
	return nil
}

func TestShadowRunnerJournalsBatches(t *testing.T) {
	pair := common.HexToAddress("0x1111111111111111111111111111111111111111")
	swapLog := swapChainLog(t, pair, 10, 0)
	chain := &fakeChain{
		latest: 13,
		logs: []types.Log{
			swapLog,
			swapLog, // provider hiccup, same log twice
			{
				Address:     pair,
				Topics:      swapLog.Topics,
				Data:        []byte{0x01, 0x02},
				BlockNumber: 11,
				TxHash:      txHashFor(11),
				Index:       0,
			},
			decayChainLog(t, pair, 12, 0),
			func() types.Log {
				lg := decayChainLog(t, pair, 12, 1)
				lg.Removed = true
				return lg
			}(),
		},
	}
	journal := &memJournal{}
	errSink := &memErrSink{}
	marks := filepath.Join(t.TempDir(), "shadow.json")

	runner := newTestShadowRunner(t, chain, journal, errSink, marks)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantCalls := []BlockRange{{From: 10, To: 11}, {From: 12, To: 13}}
	if len(chain.calls) != 2 || chain.calls[0] != wantCalls[0] || chain.calls[1] != wantCalls[1] {
		t.Fatalf("filter calls = %v, want %v", chain.calls, wantCalls)
	}

	if len(journal.batches) != 2 {
		t.Fatalf("journal batches = %d, want 2", len(journal.batches))
	}
	first := journal.batches[0]
	if len(first) != 1 || first[0].Kind != model.OpSwap {
		t.Fatalf("first batch = %+v", first)
	}
	if first[0].ChainID != 43114 || first[0].Timestamp != 20 {
		t.Fatalf("swap stamps = chain %d ts %d", first[0].ChainID, first[0].Timestamp)
	}
	second := journal.batches[1]
	if len(second) != 1 || second[0].Kind != model.OpForceDecay {
		t.Fatalf("second batch = %+v", second)
	}

	if len(errSink.errs) != 1 {
		t.Fatalf("decode errors = %d, want 1", len(errSink.errs))
	}
	if errSink.errs[0].BlockNumber != 11 || errSink.errs[0].Address != pair.Hex() {
		t.Fatalf("decode error = %+v", errSink.errs[0])
	}

	cp, ok, err := NewCheckpointStore(marks, StageShadow, true).Load()
	if err != nil || !ok || cp.Cursor != 13 {
		t.Fatalf("checkpoint = %+v ok %v err %v", cp, ok, err)
	}
}

func TestShadowRunnerResumesFromCheckpoint(t *testing.T) {
	pair := common.HexToAddress("0x1111111111111111111111111111111111111111")
	chain := &fakeChain{latest: 13, logs: []types.Log{decayChainLog(t, pair, 12, 0)}}
	journal := &memJournal{}
	marks := filepath.Join(t.TempDir(), "shadow.json")
	if err := NewCheckpointStore(marks, StageShadow, true).Save(11); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	runner := newTestShadowRunner(t, chain, journal, nil, marks)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(chain.calls) != 1 || chain.calls[0] != (BlockRange{From: 12, To: 13}) {
		t.Fatalf("filter calls = %v", chain.calls)
	}

	// A second run has nothing left to scan.
	runner = newTestShadowRunner(t, &fakeChain{latest: 13}, journal, nil, marks)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(journal.batches) != 1 {
		t.Fatalf("journal batches = %d, want 1", len(journal.batches))
	}
}

func TestNewShadowRunnerValidates(t *testing.T) {
	decoder, err := dex.NewPairDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	pair := common.HexToAddress("0x1111111111111111111111111111111111111111")
	cfg := ShadowConfig{FromBlock: 1, ToBlock: 2, Pairs: []common.Address{pair}, BatchSize: 10}

	if _, err := NewShadowRunner(cfg, nil, decoder, &memJournal{}, nil, nil); err == nil {
		t.Fatalf("expected error for nil chain")
	}
	if _, err := NewShadowRunner(cfg, &fakeChain{}, decoder, nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil journal")
	}
	bad := cfg
	bad.Pairs = nil
	if _, err := NewShadowRunner(bad, &fakeChain{}, decoder, &memJournal{}, nil, nil); err == nil {
		t.Fatalf("expected error for empty pairs")
	}
	bad = cfg
	bad.BatchSize = 0
	if _, err := NewShadowRunner(bad, &fakeChain{}, decoder, &memJournal{}, nil, nil); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func newTestShadowRunner(t *testing.T, chain ChainSource, journal *memJournal, errSink ErrorSink, marks string) *ShadowRunner {
	t.Helper()
	decoder, err := dex.NewPairDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	cfg := ShadowConfig{
		FromBlock:   10,
		ToBlock:     13,
		Pairs:       []common.Address{common.HexToAddress("0x1111111111111111111111111111111111111111")},
		BatchSize:   2,
		Checkpoint:  marks,
		Resume:      true,
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
	}
	runner, err := NewShadowRunner(cfg, chain, decoder, journal, errSink, zap.NewNop())
	if err != nil {
		t.Fatalf("building runner: %v", err)
	}
	return runner
}

func swapChainLog(t *testing.T, pair common.Address, block uint64, index uint) types.Log {
	t.Helper()
	parsed, err := dex.PairABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	data, err := parsed.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(8388608),
		packedWord(t, 20011, 0),
		packedWord(t, 0, 20000),
		big.NewInt(0),
		packedWord(t, 11, 0),
		packedWord(t, 1, 0),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	return types.Log{
		Address: pair,
		Topics: []common.Hash{
			parsed.Events["Swap"].ID,
			addressTopic(sender),
			addressTopic(sender),
		},
		Data:        data,
		BlockNumber: block,
		TxHash:      txHashFor(block),
		Index:       index,
	}
}

func decayChainLog(t *testing.T, pair common.Address, block uint64, index uint) types.Log {
	t.Helper()
	parsed, err := dex.PairABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	data, err := parsed.Events["ForcedDecay"].Inputs.NonIndexed().Pack(big.NewInt(8388600), big.NewInt(5000))
	if err != nil {
		t.Fatalf("pack decay: %v", err)
	}
	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	return types.Log{
		Address:     pair,
		Topics:      []common.Hash{parsed.Events["ForcedDecay"].ID, addressTopic(sender)},
		Data:        data,
		BlockNumber: block,
		TxHash:      txHashFor(block),
		Index:       index,
	}
}

func packedWord(t *testing.T, x, y uint64) [32]byte {
	t.Helper()
	amts, err := book.NewAmounts(uint256.NewInt(x), uint256.NewInt(y))
	if err != nil {
		t.Fatalf("building amounts: %v", err)
	}
	return amts.Pack()
}

func addressTopic(addr common.Address) common.Hash {
	var h common.Hash
	copy(h[12:], addr.Bytes())
	return h
}

func txHashFor(block uint64) common.Hash {
	return common.HexToHash(fmt.Sprintf("0x%064x", block))
}
