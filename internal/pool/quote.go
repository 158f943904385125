package pool

import (
	"github.com/holiman/uint256"

	"binbook/internal/book"
)

// Quote is a read-only swap simulation. An exact-in quote fills AmountIn
// (consumed), AmountInLeft, and AmountOut; an exact-out quote fills
// AmountOut (delivered), AmountOutLeft, and AmountIn (required). Fee is the
// total charged in the input token. Running out of bins is not an error:
// the unfilled remainder is reported in the Left field.
type Quote struct {
	AmountIn      *uint256.Int
	AmountInLeft  *uint256.Int
	AmountOut     *uint256.Int
	AmountOutLeft *uint256.Int
	Fee           *uint256.Int
}

func emptyQuote() Quote {
	return Quote{
		AmountIn:      new(uint256.Int),
		AmountInLeft:  new(uint256.Int),
		AmountOut:     new(uint256.Int),
		AmountOutLeft: new(uint256.Int),
		Fee:           new(uint256.Int),
	}
}

// QuoteSwapOut simulates swapping amountIn at time now without touching the
// pool.
func (pl *Pool) QuoteSwapOut(amountIn *uint256.Int, swapForY bool, now uint64) (Quote, error) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	var zero uint256.Int
	var left book.Amounts
	var err error
	if swapForY {
		left, err = book.NewAmounts(amountIn, &zero)
	} else {
		left, err = book.NewAmounts(&zero, amountIn)
	}
	if err != nil {
		return Quote{}, err
	}
	params, err := pl.params.UpdateReferences(now)
	if err != nil {
		return Quote{}, err
	}

	q := emptyQuote()
	id := params.ActiveID
	for {
		reserves := pl.bins[id]
		outEmpty := swapForY && reserves.Y.IsZero() || !swapForY && reserves.X.IsZero()
		if !outEmpty {
			params = params.UpdateVolatilityAccumulator(id)
			price, err := pl.prices.PriceFromID(id, pl.binStep)
			if err != nil {
				return Quote{}, err
			}
			in, out, fees, err := book.GetSwapAmounts(reserves, params, pl.binStep, swapForY, price, left)
			if err != nil {
				return Quote{}, err
			}
			if !in.IsZero() {
				if left, err = left.Sub(in); err != nil {
					return Quote{}, err
				}
				if swapForY {
					q.AmountOut.Add(q.AmountOut, &out.Y)
					q.Fee.Add(q.Fee, &fees.X)
				} else {
					q.AmountOut.Add(q.AmountOut, &out.X)
					q.Fee.Add(q.Fee, &fees.Y)
				}
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
			break
		}
		id = next
	}

	if swapForY {
		q.AmountInLeft.Set(&left.X)
	} else {
		q.AmountInLeft.Set(&left.Y)
	}
	q.AmountIn.Sub(amountIn, q.AmountInLeft)
	return q, nil
}

// QuoteSwapIn simulates buying amountOut at time now without touching the
// pool, sizing the input the walk would need.
func (pl *Pool) QuoteSwapIn(amountOut *uint256.Int, swapForY bool, now uint64) (Quote, error) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	var zero uint256.Int
	var left book.Amounts
	var err error
	if swapForY {
		left, err = book.NewAmounts(&zero, amountOut)
	} else {
		left, err = book.NewAmounts(amountOut, &zero)
	}
	if err != nil {
		return Quote{}, err
	}
	params, err := pl.params.UpdateReferences(now)
	if err != nil {
		return Quote{}, err
	}

	q := emptyQuote()
	id := params.ActiveID
	for {
		reserves := pl.bins[id]
		outEmpty := swapForY && reserves.Y.IsZero() || !swapForY && reserves.X.IsZero()
		if !outEmpty {
			params = params.UpdateVolatilityAccumulator(id)
			price, err := pl.prices.PriceFromID(id, pl.binStep)
			if err != nil {
				return Quote{}, err
			}
			in, out, fees, err := book.GetSwapAmountsExactOut(reserves, params, pl.binStep, swapForY, price, left)
			if err != nil {
				return Quote{}, err
			}
			if !out.IsZero() {
				if left, err = left.Sub(out); err != nil {
					return Quote{}, err
				}
				if swapForY {
					q.AmountIn.Add(q.AmountIn, &in.X)
					q.Fee.Add(q.Fee, &fees.X)
				} else {
					q.AmountIn.Add(q.AmountIn, &in.Y)
					q.Fee.Add(q.Fee, &fees.Y)
				}
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
			break
		}
		id = next
	}

	if swapForY {
		q.AmountOutLeft.Set(&left.Y)
	} else {
		q.AmountOutLeft.Set(&left.X)
	}
	q.AmountOut.Sub(amountOut, q.AmountOutLeft)
	return q, nil
}
