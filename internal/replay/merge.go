package replay

import (
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"binbook/internal/model"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// MergeOperations folds the raw per-log operations of one scan batch into
// journal form. Within one transaction a pair emits one swap log per bin
// crossed; consecutive same-direction legs collapse into a single swap
// spanning their bins. Share mints and burns arrive as transfer batches
// against the zero address and are folded into the deposit or withdrawal
// beside them, and composition fee logs annotate the deposit bin they were
// charged on. Everything that finds no home passes through unchanged.
func MergeOperations(ops []model.Operation, logger *zap.Logger) []model.Operation {
	if logger == nil {
		logger = zap.NewNop()
	}
	merged := make([]model.Operation, 0, len(ops))
	for start := 0; start < len(ops); {
		end := start + 1
		for end < len(ops) && ops[end].Pair == ops[start].Pair && ops[end].TxHash == ops[start].TxHash {
			end++
		}
		merged = append(merged, mergeGroup(ops[start:end], logger)...)
		start = end
	}
	return merged
}

// mergeGroup folds the operations of one (pair, transaction) run. The group
// is copied before annotation so the caller's slice stays untouched.
func mergeGroup(group []model.Operation, logger *zap.Logger) []model.Operation {
	if len(group) == 1 {
		return group
	}

	ops := make([]model.Operation, len(group))
	copy(ops, group)
	for i := range ops {
		if k := ops[i].Kind; k == model.OpDeposit || k == model.OpWithdraw {
			ops[i].Bins = append([]model.BinAmounts(nil), ops[i].Bins...)
		}
	}

	consumed := make([]bool, len(ops))
	for i := range ops {
		switch ops[i].Kind {
		case model.OpTransferBatch:
			if foldTransfer(ops, i) {
				consumed[i] = true
			} else if ops[i].From == zeroAddress || ops[i].To == zeroAddress {
				logger.Debug("transfer batch left standalone",
					zap.String("pair", ops[i].Pair),
					zap.String("tx", ops[i].TxHash))
			}
		case model.OpCompositionFees:
			if foldCompositionFees(ops, i) {
				consumed[i] = true
			}
		}
	}

	out := make([]model.Operation, 0, len(ops))
	for i := 0; i < len(ops); i++ {
		if consumed[i] {
			continue
		}
		if ops[i].Kind != model.OpSwap {
			out = append(out, ops[i])
			continue
		}
		last := i
		for last+1 < len(ops) && ops[last+1].Kind == model.OpSwap && ops[last+1].SwapForY == ops[i].SwapForY {
			last++
		}
		if merged, ok := mergeSwapRun(ops[i:last+1], logger); ok {
			out = append(out, merged)
		} else {
			out = append(out, ops[i:last+1]...)
		}
		i = last
	}
	return out
}

// mergeSwapRun sums the per-bin legs of one swap into the head operation.
func mergeSwapRun(legs []model.Operation, logger *zap.Logger) (model.Operation, bool) {
	head := legs[0]
	if len(legs) == 1 {
		return head, true
	}
	total := new(uint256.Int)
	bins := make([]model.BinAmounts, 0, len(legs))
	for _, leg := range legs {
		if leg.AmountIn != "" {
			v := new(uint256.Int)
			if err := v.SetFromDecimal(leg.AmountIn); err != nil {
				logger.Warn("swap legs left unmerged",
					zap.String("pair", head.Pair),
					zap.String("tx", head.TxHash),
					zap.String("amount_in", leg.AmountIn),
					zap.Error(err))
				return model.Operation{}, false
			}
			total.Add(total, v)
		}
		bins = append(bins, leg.Bins...)
	}
	head.AmountIn = total.Dec()
	head.Bins = bins
	return head, true
}

// foldTransfer attaches minted or burned share counts to the deposit or
// withdrawal in the same group. Transfers between two holders stay as they
// are.
func foldTransfer(ops []model.Operation, i int) bool {
	tr := ops[i]
	var kind string
	switch {
	case tr.From == zeroAddress:
		kind = model.OpDeposit
	case tr.To == zeroAddress:
		kind = model.OpWithdraw
	default:
		return false
	}
	for j := range ops {
		if ops[j].Kind == kind && attachShares(ops[j].Bins, tr.Bins) {
			return true
		}
	}
	return false
}

// attachShares copies share counts onto the target bins, but only when every
// source bin has a matching target with no shares set yet. Partial matches
// change nothing.
func attachShares(dst, src []model.BinAmounts) bool {
	idx := make(map[uint32]int, len(dst))
	for k, b := range dst {
		idx[b.ID] = k
	}
	for _, s := range src {
		k, ok := idx[s.ID]
		if !ok || dst[k].Shares != "" {
			return false
		}
	}
	for _, s := range src {
		dst[idx[s.ID]].Shares = s.Shares
	}
	return true
}

// foldCompositionFees copies the fee halves onto the deposit bin they were
// charged on.
func foldCompositionFees(ops []model.Operation, i int) bool {
	cf := ops[i]
	if len(cf.Bins) != 1 {
		return false
	}
	fees := cf.Bins[0]
	for j := range ops {
		if ops[j].Kind != model.OpDeposit {
			continue
		}
		for k := range ops[j].Bins {
			b := &ops[j].Bins[k]
			if b.ID != fees.ID || b.FeeX != "" || b.FeeY != "" {
				continue
			}
			b.FeeX, b.FeeY = fees.FeeX, fees.FeeY
			b.ProtocolFeeX, b.ProtocolFeeY = fees.ProtocolFeeX, fees.ProtocolFeeY
			return true
		}
	}
	return false
}
