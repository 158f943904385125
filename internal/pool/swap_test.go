package pool

import (
	"errors"
	"reflect"
	"testing"

	"github.com/holiman/uint256"

	"binbook/internal/book"
)

func TestSwapDrainsActiveBinExactly(t *testing.T) {
	pl := newTestPool(t)
	seedLiquidity(t, pl, 1000)

	// 60000 Y at the unit price costs 60000 X plus the 0.05% fee on top.
	res, err := pl.Swap(uint256.NewInt(60_031), true, 1060)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AmountIn.X.Uint64() != 60_031 || !res.AmountIn.Y.IsZero() {
		t.Fatalf("amount in = %s/%s, want 60031/0", res.AmountIn.X.ToBig(), res.AmountIn.Y.ToBig())
	}
	if res.AmountOut.Y.Uint64() != 60_000 || !res.AmountOut.X.IsZero() {
		t.Fatalf("amount out = %s/%s, want 0/60000", res.AmountOut.X.ToBig(), res.AmountOut.Y.ToBig())
	}
	if res.TotalFee.X.Uint64() != 31 || res.ProtocolFee.X.Uint64() != 3 {
		t.Fatalf("fees = %s protocol %s, want 31 and 3", res.TotalFee.X.ToBig(), res.ProtocolFee.X.ToBig())
	}
	if res.IDBefore != testActiveID || res.IDAfter != testActiveID {
		t.Fatalf("ids = %d -> %d, want the cursor to stay put", res.IDBefore, res.IDAfter)
	}
	if len(res.Bins) != 1 || res.Bins[0].ID != testActiveID {
		t.Fatalf("bin trace = %+v", res.Bins)
	}
	if res.Bins[0].AmountIn.X.Uint64() != 60_028 {
		t.Fatalf("bin kept %s, want 60028 after the protocol cut", res.Bins[0].AmountIn.X.ToBig())
	}
	bin := pl.GetBinReserves(testActiveID)
	if bin.X.Uint64() != 120_028 || !bin.Y.IsZero() {
		t.Fatalf("active bin = %s/%s, want 120028/0", bin.X.ToBig(), bin.Y.ToBig())
	}
	checkReserveInvariant(t, pl)

	// The drained bin offers no Y, so the next swap walks down to the first
	// live bin below and consumes everything it asked with.
	res2, err := pl.Swap(uint256.NewInt(10_000), true, 1060)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res2.IDAfter != testActiveID-1 || pl.GetActiveID() != testActiveID-1 {
		t.Fatalf("active id = %d, want %d", res2.IDAfter, testActiveID-1)
	}
	if len(res2.Bins) != 1 || res2.Bins[0].ID != testActiveID-1 {
		t.Fatalf("bin trace = %+v", res2.Bins)
	}
	if res2.AmountIn.X.Uint64() != 10_000 {
		t.Fatalf("amount in = %s, want the full 10000", res2.AmountIn.X.ToBig())
	}
	if res2.Bins[0].VolatilityAccumulator != 10_000 {
		t.Fatalf("accumulator = %d, want 10000 for one bin crossed", res2.Bins[0].VolatilityAccumulator)
	}
	checkReserveInvariant(t, pl)
}

func TestSwapWalksAcrossBins(t *testing.T) {
	pl := newTestPool(t)
	seedLiquidity(t, pl, 1000)

	res, err := pl.Swap(uint256.NewInt(100_000), true, 1060)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AmountIn.X.Uint64() != 100_000 {
		t.Fatalf("amount in = %s, want the full 100000", res.AmountIn.X.ToBig())
	}
	if res.IDBefore != testActiveID || res.IDAfter != testActiveID-1 {
		t.Fatalf("ids = %d -> %d, want %d -> %d", res.IDBefore, res.IDAfter, testActiveID, testActiveID-1)
	}
	if len(res.Bins) != 2 {
		t.Fatalf("bin trace has %d entries, want 2", len(res.Bins))
	}
	first, second := res.Bins[0], res.Bins[1]
	if first.ID != testActiveID || second.ID != testActiveID-1 {
		t.Fatalf("trace ids = %d, %d", first.ID, second.ID)
	}
	if first.AmountOut.Y.Uint64() != 60_000 || first.Fee.X.Uint64() != 31 || first.ProtocolFee.X.Uint64() != 3 {
		t.Fatalf("first bin = %+v", first)
	}
	if first.VolatilityAccumulator != 0 || second.VolatilityAccumulator != 10_000 {
		t.Fatalf("accumulators = %d, %d", first.VolatilityAccumulator, second.VolatilityAccumulator)
	}
	if second.AmountIn.X.Uint64() != 39_967 || second.Fee.X.Uint64() != 20 || second.ProtocolFee.X.Uint64() != 2 {
		t.Fatalf("second bin = %+v", second)
	}
	if second.AmountOut.Y.IsZero() || second.AmountOut.Y.Uint64() > 39_949 {
		t.Fatalf("second bin out = %s", second.AmountOut.Y.ToBig())
	}
	if res.TotalFee.X.Uint64() != 51 || res.ProtocolFee.X.Uint64() != 5 {
		t.Fatalf("fees = %s protocol %s, want 51 and 5", res.TotalFee.X.ToBig(), res.ProtocolFee.X.ToBig())
	}
	sum := new(uint256.Int).Add(&first.AmountOut.Y, &second.AmountOut.Y)
	if !res.AmountOut.Y.Eq(sum) {
		t.Fatalf("amount out = %s, bins sum to %s", res.AmountOut.Y.ToBig(), sum.ToBig())
	}
	if res.VolatilityAccumulator != 10_000 {
		t.Fatalf("final accumulator = %d, want 10000", res.VolatilityAccumulator)
	}
	checkReserveInvariant(t, pl)
}

func TestSwapFailuresLeavePoolUntouched(t *testing.T) {
	pl := newTestPool(t)
	seedLiquidity(t, pl, 1000)
	before := pl.Snapshot()

	if _, err := pl.Swap(new(uint256.Int), true, 1060); !errors.Is(err, ErrInsufficientAmountIn) {
		t.Fatalf("zero input: got %v", err)
	}
	// One wei is consumed whole by the fee and buys nothing.
	if _, err := pl.Swap(uint256.NewInt(1), true, 1060); !errors.Is(err, ErrInsufficientAmountOut) {
		t.Fatalf("one wei: got %v", err)
	}
	// More Y in than the X side of the book can pay out.
	if _, err := pl.Swap(uint256.NewInt(1_000_000_000), false, 1060); !errors.Is(err, ErrOutOfLiquidity) {
		t.Fatalf("draining the book: got %v", err)
	}
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 130)
	if _, err := pl.Swap(huge, true, 1060); !errors.Is(err, book.ErrAmountOverflow) {
		t.Fatalf("129-bit input: got %v", err)
	}

	if after := pl.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("failed swaps must leave the pool untouched")
	}
}

func TestSwapRejectsOlderTimestamp(t *testing.T) {
	pl := newTestPool(t)
	seedLiquidity(t, pl, 1000)

	if _, err := pl.Swap(uint256.NewInt(10_000), true, 1060); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := pl.Swap(uint256.NewInt(10_000), true, 1059); !errors.Is(err, book.ErrNonMonotonicTime) {
		t.Fatalf("older timestamp: got %v", err)
	}
}

func TestSwapWritesOracle(t *testing.T) {
	pl := newTestPool(t)
	seedLiquidity(t, pl, 1000)
	if err := pl.IncreaseOracleLength(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := pl.Swap(uint256.NewInt(60_031), true, 1060); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := pl.GetOracleSampleAt(0, 1060)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CumulativeID != uint64(testActiveID)*1060 {
		t.Fatalf("cumulative id = %d, want %d", s.CumulativeID, uint64(testActiveID)*1060)
	}
	if s.At != 1060 {
		t.Fatalf("sample at = %d, want 1060", s.At)
	}

	// The second swap lands one bin lower and accumulates sixty more
	// seconds of id, volatility, and crossings.
	if _, err := pl.Swap(uint256.NewInt(10_000), true, 1120); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err = pl.GetOracleSampleAt(0, 1120)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantID := uint64(testActiveID)*1060 + uint64(testActiveID-1)*60
	if s.CumulativeID != wantID {
		t.Fatalf("cumulative id = %d, want %d", s.CumulativeID, wantID)
	}
	if s.CumulativeVolatility != 600_000 {
		t.Fatalf("cumulative volatility = %d, want 600000", s.CumulativeVolatility)
	}
	if s.CumulativeBinCrossed != 60 {
		t.Fatalf("cumulative bins crossed = %d, want 60", s.CumulativeBinCrossed)
	}
}
