package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"binbook/internal/book"
)

// BinMint is the trace of one bin funded by a deposit. Amounts is what the
// bin kept, net of the protocol cut on composition fees.
type BinMint struct {
	ID      uint32
	Amounts book.Amounts
	Shares  *uint256.Int
	Fees    book.Amounts
}

// MintResult reports a committed deposit. AmountsIn is the effective total
// the pool kept; AmountsLeft is the remainder the caller should refund.
type MintResult struct {
	AmountsIn    book.Amounts
	AmountsLeft  book.Amounts
	Fees         book.Amounts
	ProtocolFees book.Amounts
	Bins         []BinMint
}

// BinDeposit names exact amounts bound for one bin.
type BinDeposit struct {
	ID      uint32
	Amounts book.Amounts
}

// depositStaging collects the writes of an in-flight deposit so they commit
// together or not at all.
type depositStaging struct {
	params       book.Parameters
	bins         map[uint32]book.Amounts
	supplies     map[uint32]*uint256.Int
	treeAdds     []uint32
	write        book.SampleWrite
	hasWrite     bool
	oracleStaged bool

	consumed book.Amounts
	fees     book.Amounts
	protocol book.Amounts
	trace    []BinMint
}

// Mint distributes amounts across the configured bins at time now. Deposits
// away from the active bin must stay on the correct side; deposits into the
// active bin pay composition fees on the part that implicitly swapped, which
// reprices their shares, feeds the protocol cut, and writes the oracle.
// Configs hitting the same bin twice see the earlier config's writes. Any
// error leaves the pool untouched.
func (pl *Pool) Mint(cfgs []book.LiquidityConfig, amounts book.Amounts, now uint64) (MintResult, error) {
	if len(cfgs) == 0 {
		return MintResult{}, ErrEmptyLiquidityConfigs
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	st := pl.newDepositStaging(len(cfgs))
	for _, cfg := range cfgs {
		if err := cfg.Validate(); err != nil {
			return MintResult{}, err
		}
		if err := pl.stageDeposit(st, cfg.BinID, cfg.AmountsToBin(amounts), now); err != nil {
			return MintResult{}, err
		}
	}
	return pl.commitDeposit(st, amounts)
}

// DepositExact credits each bin with the given amounts directly, bypassing
// the distribution arithmetic. It is the replay entry point: per-bin
// amounts recovered from a journaled deposit go back in as-is, with the
// same side checks, composition fees, and staging as Mint.
func (pl *Pool) DepositExact(bins []BinDeposit, now uint64) (MintResult, error) {
	if len(bins) == 0 {
		return MintResult{}, ErrEmptyLiquidityConfigs
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	var total book.Amounts
	var err error
	for _, b := range bins {
		if total, err = total.Add(b.Amounts); err != nil {
			return MintResult{}, err
		}
	}

	st := pl.newDepositStaging(len(bins))
	for _, b := range bins {
		if err := pl.stageDeposit(st, b.ID, b.Amounts, now); err != nil {
			return MintResult{}, err
		}
	}
	return pl.commitDeposit(st, total)
}

func (pl *Pool) newDepositStaging(n int) *depositStaging {
	return &depositStaging{
		params:   pl.params,
		bins:     make(map[uint32]book.Amounts, n),
		supplies: make(map[uint32]*uint256.Int, n),
		trace:    make([]BinMint, 0, n),
	}
}

// stageDeposit pushes maxToBin into one bin on top of the staged state.
func (pl *Pool) stageDeposit(st *depositStaging, id uint32, maxToBin book.Amounts, now uint64) error {
	activeID := st.params.ActiveID
	reserves := pl.binAt(st.bins, id)
	supply := pl.supplyAt(st.supplies, id)
	price, err := pl.prices.PriceFromID(id, pl.binStep)
	if err != nil {
		return err
	}

	shares, effective, err := book.GetSharesAndEffectiveAmountsIn(reserves, maxToBin, price, supply)
	if err != nil {
		return err
	}
	toBin := effective

	var fees book.Amounts
	if id == activeID {
		fees, err = book.GetCompositionFees(reserves, st.params, pl.binStep, effective, supply, shares)
		if err != nil {
			return err
		}
		if !fees.IsZero() {
			// Shares reprice off the fee-free remainder; the protocol cut
			// comes out of what the bin keeps.
			net, err := effective.Sub(fees)
			if err != nil {
				return err
			}
			userLiquidity, err := book.GetLiquidity(net, price)
			if err != nil {
				return err
			}
			binLiquidity, err := book.GetLiquidity(reserves, price)
			if err != nil {
				return err
			}
			if shares, err = book.SharesForLiquidity(userLiquidity, supply, binLiquidity); err != nil {
				return err
			}
			pFees := fees.ScalarMulDivBasisPoint(st.params.ProtocolShare)
			if !pFees.IsZero() {
				if toBin, err = toBin.Sub(pFees); err != nil {
					return err
				}
				if st.protocol, err = st.protocol.Add(pFees); err != nil {
					return err
				}
			}
			if st.fees, err = st.fees.Add(fees); err != nil {
				return err
			}
			if !st.oracleStaged {
				st.params, st.write, st.hasWrite, err = pl.oracle.Update(st.params, activeID, now)
				if err != nil {
					return err
				}
				st.oracleStaged = true
			}
		}
	} else if err := book.VerifyAmounts(effective, activeID, id); err != nil {
		return err
	}

	if shares.IsZero() || toBin.IsZero() {
		return fmt.Errorf("bin %d: %w", id, ErrZeroShares)
	}
	if supply.IsZero() {
		st.treeAdds = append(st.treeAdds, id)
	}

	newReserves, err := reserves.Add(toBin)
	if err != nil {
		return err
	}
	st.bins[id] = newReserves
	st.supplies[id] = new(uint256.Int).Add(supply, shares)
	if st.consumed, err = st.consumed.Add(effective); err != nil {
		return err
	}
	st.trace = append(st.trace, BinMint{ID: id, Amounts: toBin, Shares: shares, Fees: fees})
	return nil
}

// commitDeposit lands a fully staged deposit. amounts is the total offered;
// the unconsumed remainder comes back in the result.
func (pl *Pool) commitDeposit(st *depositStaging, amounts book.Amounts) (MintResult, error) {
	left, err := amounts.Sub(st.consumed)
	if err != nil {
		return MintResult{}, err
	}
	newReserves, err := pl.reserves.Add(st.consumed)
	if err != nil {
		return MintResult{}, err
	}
	newProtocol, err := pl.protocolFees.Add(st.protocol)
	if err != nil {
		return MintResult{}, err
	}

	for id, r := range st.bins {
		pl.bins[id] = r
	}
	for id, s := range st.supplies {
		pl.supplies[id] = s
	}
	for _, id := range st.treeAdds {
		pl.tree.Add(id)
	}
	pl.reserves = newReserves
	pl.protocolFees = newProtocol
	pl.params = st.params
	if st.hasWrite {
		pl.oracle.Apply(st.write)
	}

	return MintResult{
		AmountsIn:    st.consumed,
		AmountsLeft:  left,
		Fees:         st.fees,
		ProtocolFees: st.protocol,
		Bins:         st.trace,
	}, nil
}
