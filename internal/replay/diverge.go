package replay

import (
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"binbook/internal/model"
)

// checkSwap compares the replayed swap against the journaled event: the
// consumed input and paid output must land on the event amounts exactly,
// and the last bin crossed names the active bin after the swap.
func (r *ReplayRunner) checkSwap(op model.Operation, rec *model.SwapRecord) {
	if normDec(op.AmountIn) != normDec(rec.AmountIn) {
		r.diverged("swap input diverged", op,
			zap.String("journal", normDec(op.AmountIn)),
			zap.String("computed", normDec(rec.AmountIn)))
	}

	if n := len(op.Bins); n > 0 {
		if last := op.Bins[n-1].ID; last != rec.IDAfter {
			r.diverged("active bin diverged", op,
				zap.Uint32("journal", last),
				zap.Uint32("computed", rec.IDAfter))
		}
	}

	journalOut, err := sumOutSide(op.Bins, op.SwapForY)
	if err == nil && len(op.Bins) > 0 && journalOut != normDec(rec.AmountOut) {
		r.diverged("swap output diverged", op,
			zap.String("journal", journalOut),
			zap.String("computed", rec.AmountOut))
	}
}

// checkLiquidity compares the replayed deposit or withdrawal totals and,
// when the journal carries exact share counts, the per-bin shares.
func (r *ReplayRunner) checkLiquidity(op model.Operation, rec *model.LiquidityRecord) {
	if normDec(op.AmountX) != normDec(rec.AmountX) || normDec(op.AmountY) != normDec(rec.AmountY) {
		r.diverged("liquidity amounts diverged", op,
			zap.String("journal_x", normDec(op.AmountX)),
			zap.String("journal_y", normDec(op.AmountY)),
			zap.String("computed_x", normDec(rec.AmountX)),
			zap.String("computed_y", normDec(rec.AmountY)))
	}
	for i, b := range op.Bins {
		if b.Shares == "" || i >= len(rec.Bins) {
			continue
		}
		if got := rec.Bins[i].Shares; got != b.Shares {
			r.diverged("bin shares diverged", op,
				zap.Uint32("bin", b.ID),
				zap.String("journal", b.Shares),
				zap.String("computed", got))
		}
	}
}

func (r *ReplayRunner) diverged(msg string, op model.Operation, fields ...zap.Field) {
	r.divergences++
	base := []zap.Field{
		zap.String("kind", op.Kind),
		zap.String("pair", op.Pair),
		zap.Uint64("block", op.BlockNumber),
		zap.Uint64("log_index", op.LogIndex),
	}
	r.logger.Warn(msg, append(base, fields...)...)
}

// sumOutSide totals the output side of the journaled swap bins.
func sumOutSide(bins []model.BinAmounts, swapForY bool) (string, error) {
	total := new(uint256.Int)
	for _, b := range bins {
		side := b.AmountX
		if swapForY {
			side = b.AmountY
		}
		if side == "" {
			continue
		}
		v := new(uint256.Int)
		if err := v.SetFromDecimal(side); err != nil {
			return "", err
		}
		total.Add(total, v)
	}
	return total.Dec(), nil
}

// normDec treats the empty string as zero, since omitted journal fields and
// computed zeros must compare equal.
func normDec(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
