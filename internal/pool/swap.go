package pool

import (
	"github.com/holiman/uint256"

	"binbook/internal/book"
)

// BinSwap is the trace of one bin crossed by a swap. AmountIn is what the
// bin kept, net of the protocol cut.
type BinSwap struct {
	ID                    uint32
	AmountIn              book.Amounts
	AmountOut             book.Amounts
	Fee                   book.Amounts
	ProtocolFee           book.Amounts
	VolatilityAccumulator uint32
}

// SwapResult reports a committed swap. AmountIn is the input actually
// consumed, protocol cut included; residual input past the last bin is the
// caller's to refund.
type SwapResult struct {
	AmountIn              book.Amounts
	AmountOut             book.Amounts
	TotalFee              book.Amounts
	ProtocolFee           book.Amounts
	IDBefore              uint32
	IDAfter               uint32
	VolatilityAccumulator uint32
	Bins                  []BinSwap
}

// Swap trades amountIn through the book at time now. It rolls the
// volatility references once, then walks bins in price order: each non-empty
// bin charges its fee, keeps the input net of the protocol cut, and pays out
// until the input is exhausted or the tree runs out of bins. The oracle and
// the new active id commit together with the bin writes; any error leaves
// the pool untouched.
func (pl *Pool) Swap(amountIn *uint256.Int, swapForY bool, now uint64) (SwapResult, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	var zero uint256.Int
	var full book.Amounts
	var err error
	if swapForY {
		full, err = book.NewAmounts(amountIn, &zero)
	} else {
		full, err = book.NewAmounts(&zero, amountIn)
	}
	if err != nil {
		return SwapResult{}, err
	}
	if full.IsZero() {
		return SwapResult{}, ErrInsufficientAmountIn
	}

	params, err := pl.params.UpdateReferences(now)
	if err != nil {
		return SwapResult{}, err
	}
	params.TimeOfLastUpdate = now

	idBefore := pl.params.ActiveID
	id := idBefore
	left := full
	stagedBins := make(map[uint32]book.Amounts)
	var amountsOut, totalFees, protocolFees book.Amounts
	var trace []BinSwap

	for {
		reserves := pl.bins[id]
		outEmpty := swapForY && reserves.Y.IsZero() || !swapForY && reserves.X.IsZero()
		if !outEmpty {
			params = params.UpdateVolatilityAccumulator(id)
			price, err := pl.prices.PriceFromID(id, pl.binStep)
			if err != nil {
				return SwapResult{}, err
			}
			in, out, fees, err := book.GetSwapAmounts(reserves, params, pl.binStep, swapForY, price, left)
			if err != nil {
				return SwapResult{}, err
			}
			if !in.IsZero() {
				if left, err = left.Sub(in); err != nil {
					return SwapResult{}, err
				}
				if amountsOut, err = amountsOut.Add(out); err != nil {
					return SwapResult{}, err
				}
				if totalFees, err = totalFees.Add(fees); err != nil {
					return SwapResult{}, err
				}

				binIn := in
				pFees := fees.ScalarMulDivBasisPoint(params.ProtocolShare)
				if !pFees.IsZero() {
					if protocolFees, err = protocolFees.Add(pFees); err != nil {
						return SwapResult{}, err
					}
					if binIn, err = in.Sub(pFees); err != nil {
						return SwapResult{}, err
					}
				}
				newReserves, err := reserves.Add(binIn)
				if err != nil {
					return SwapResult{}, err
				}
				if newReserves, err = newReserves.Sub(out); err != nil {
					return SwapResult{}, err
				}
				stagedBins[id] = newReserves
				trace = append(trace, BinSwap{
					ID:                    id,
					AmountIn:              binIn,
					AmountOut:             out,
					Fee:                   fees,
					ProtocolFee:           pFees,
					VolatilityAccumulator: params.VolatilityAccumulator,
				})
			}
		}

		if left.IsZero() {
			break
		}
		var next uint32
		var ok bool
		if swapForY {
			next, ok = pl.tree.FindFirstRight(id)
		} else {
			next, ok = pl.tree.FindFirstLeft(id)
		}
		if !ok {
			return SwapResult{}, ErrOutOfLiquidity
		}
		id = next
	}

	if amountsOut.IsZero() {
		return SwapResult{}, ErrInsufficientAmountOut
	}

	consumed, err := full.Sub(left)
	if err != nil {
		return SwapResult{}, err
	}
	newReserves, err := pl.reserves.Add(consumed)
	if err != nil {
		return SwapResult{}, err
	}
	if newReserves, err = newReserves.Sub(amountsOut); err != nil {
		return SwapResult{}, err
	}
	newProtocol, err := pl.protocolFees.Add(protocolFees)
	if err != nil {
		return SwapResult{}, err
	}
	params, write, hasWrite, err := pl.oracle.Update(params, id, now)
	if err != nil {
		return SwapResult{}, err
	}

	params.ActiveID = id
	for bid, r := range stagedBins {
		pl.bins[bid] = r
	}
	pl.reserves = newReserves
	pl.protocolFees = newProtocol
	pl.params = params
	if hasWrite {
		pl.oracle.Apply(write)
	}

	return SwapResult{
		AmountIn:              consumed,
		AmountOut:             amountsOut,
		TotalFee:              totalFees,
		ProtocolFee:           protocolFees,
		IDBefore:              idBefore,
		IDAfter:               id,
		VolatilityAccumulator: params.VolatilityAccumulator,
		Bins:                  trace,
	}, nil
}
