package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"binbook/internal/book"
)

// BurnLiquidity names shares to burn in one bin.
type BurnLiquidity struct {
	ID     uint32
	Shares *uint256.Int
}

// BinBurn is the trace of one bin drained by a withdrawal.
type BinBurn struct {
	ID      uint32
	Amounts book.Amounts
	Shares  *uint256.Int
}

// BurnResult reports a committed withdrawal.
type BurnResult struct {
	Amounts book.Amounts
	Bins    []BinBurn
}

// Burn redeems shares pro rata against their bins. Bins whose supply hits
// zero leave the index; rounding dust stays behind in the bin, invisible to
// swaps until someone deposits there again. Withdrawals take no timestamp
// because they move no price and touch neither the volatility state nor the
// oracle. Any error leaves the pool untouched.
func (pl *Pool) Burn(burns []BurnLiquidity) (BurnResult, error) {
	if len(burns) == 0 {
		return BurnResult{}, ErrEmptyBurns
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	stagedBins := make(map[uint32]book.Amounts, len(burns))
	stagedSupplies := make(map[uint32]*uint256.Int, len(burns))
	var total book.Amounts
	trace := make([]BinBurn, 0, len(burns))

	for _, b := range burns {
		if b.Shares == nil || b.Shares.IsZero() {
			return BurnResult{}, fmt.Errorf("bin %d: %w", b.ID, ErrZeroShares)
		}
		supply := pl.supplyAt(stagedSupplies, b.ID)
		if b.Shares.Gt(supply) {
			return BurnResult{}, fmt.Errorf("bin %d: %w", b.ID, ErrBurnTooLarge)
		}
		reserves := pl.binAt(stagedBins, b.ID)

		out, err := book.GetAmountOutOfBin(reserves, b.Shares, supply)
		if err != nil {
			return BurnResult{}, err
		}
		if out.IsZero() {
			return BurnResult{}, fmt.Errorf("bin %d: %w", b.ID, ErrZeroAmount)
		}

		newReserves, err := reserves.Sub(out)
		if err != nil {
			return BurnResult{}, err
		}
		stagedBins[b.ID] = newReserves
		stagedSupplies[b.ID] = new(uint256.Int).Sub(supply, b.Shares)
		if total, err = total.Add(out); err != nil {
			return BurnResult{}, err
		}
		trace = append(trace, BinBurn{ID: b.ID, Amounts: out, Shares: new(uint256.Int).Set(b.Shares)})
	}

	newReserves, err := pl.reserves.Sub(total)
	if err != nil {
		return BurnResult{}, err
	}

	for id, r := range stagedBins {
		if r.IsZero() {
			delete(pl.bins, id)
		} else {
			pl.bins[id] = r
		}
	}
	for id, s := range stagedSupplies {
		if s.IsZero() {
			delete(pl.supplies, id)
			pl.tree.Remove(id)
		} else {
			pl.supplies[id] = s
		}
	}
	pl.reserves = newReserves

	return BurnResult{Amounts: total, Bins: trace}, nil
}

// SharesForAmounts converts a target payout into the share count Burn would
// redeem for it, through the bin's current liquidity ratio. Shares round
// down like the issue path, so the redeemed amounts can land a unit short of
// the target.
func (pl *Pool) SharesForAmounts(id uint32, amounts book.Amounts) (*uint256.Int, error) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	supply, ok := pl.supplies[id]
	if !ok {
		return nil, fmt.Errorf("bin %d: %w", id, ErrZeroShares)
	}
	price, err := pl.prices.PriceFromID(id, pl.binStep)
	if err != nil {
		return nil, err
	}
	liquidity, err := book.GetLiquidity(amounts, price)
	if err != nil {
		return nil, err
	}
	binLiquidity, err := book.GetLiquidity(pl.bins[id], price)
	if err != nil {
		return nil, err
	}
	return book.SharesForLiquidity(liquidity, supply, binLiquidity)
}
