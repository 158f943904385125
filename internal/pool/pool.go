// Package pool layers the per-pair state machine over the bin math: one
// Pool owns the bins, share supplies, parameter word, bin index, and oracle
// of a single market and serializes every operation behind one lock.
// Mutating entry points stage their writes and commit only after the whole
// operation has validated, so a failed call leaves the pool untouched.
package pool

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"binbook/internal/book"
)

const defaultPriceCacheSize = 1024

// Config seeds a fresh pool. PriceCacheSize falls back to a default when
// zero.
type Config struct {
	Pair           string
	TokenX         string
	TokenY         string
	BinStep        uint16
	ActiveID       uint32
	Static         book.StaticFeeParameters
	PriceCacheSize int
}

// Pool is the state machine of one pair. Reserves aggregate every bin plus
// the accrued protocol fees; the tree indexes exactly the bins with
// outstanding shares.
type Pool struct {
	mu sync.RWMutex

	pair    string
	tokenX  string
	tokenY  string
	binStep uint16

	params   book.Parameters
	bins     map[uint32]book.Amounts
	supplies map[uint32]*uint256.Int
	tree     *book.Tree
	oracle   *book.Oracle

	reserves     book.Amounts
	protocolFees book.Amounts

	prices *book.PriceCache
}

// New builds an empty pool at the configured active id. The oracle starts
// with no slots; IncreaseOracleLength activates it.
func New(cfg Config) (*Pool, error) {
	if cfg.BinStep == 0 || cfg.BinStep > 10_000 {
		return nil, fmt.Errorf("bin step %d: %w", cfg.BinStep, book.ErrInvalidParameter)
	}
	params, err := book.Parameters{}.SetStaticFeeParameters(cfg.Static)
	if err != nil {
		return nil, err
	}
	params.ActiveID = cfg.ActiveID
	params.IDReference = cfg.ActiveID

	size := cfg.PriceCacheSize
	if size <= 0 {
		size = defaultPriceCacheSize
	}
	prices, err := book.NewPriceCache(size)
	if err != nil {
		return nil, err
	}
	if _, err := prices.PriceFromID(cfg.ActiveID, cfg.BinStep); err != nil {
		return nil, fmt.Errorf("active id %d: %w", cfg.ActiveID, err)
	}

	return &Pool{
		pair:     cfg.Pair,
		tokenX:   cfg.TokenX,
		tokenY:   cfg.TokenY,
		binStep:  cfg.BinStep,
		params:   params,
		bins:     make(map[uint32]book.Amounts),
		supplies: make(map[uint32]*uint256.Int),
		tree:     book.NewTree(),
		oracle:   book.NewOracle(),
		prices:   prices,
	}, nil
}

func (pl *Pool) Pair() string    { return pl.pair }
func (pl *Pool) TokenX() string  { return pl.tokenX }
func (pl *Pool) TokenY() string  { return pl.tokenY }
func (pl *Pool) BinStep() uint16 { return pl.binStep }

func (pl *Pool) GetActiveID() uint32 {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.params.ActiveID
}

// GetBinReserves returns the reserves held by one bin. Bins never written
// read as zero.
func (pl *Pool) GetBinReserves(id uint32) book.Amounts {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.bins[id]
}

// GetTotalSupply returns the outstanding shares of one bin.
func (pl *Pool) GetTotalSupply(id uint32) *uint256.Int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	if s, ok := pl.supplies[id]; ok {
		return new(uint256.Int).Set(s)
	}
	return new(uint256.Int)
}

// GetReserves returns the pool totals, protocol fees included.
func (pl *Pool) GetReserves() book.Amounts {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.reserves
}

func (pl *Pool) GetProtocolFees() book.Amounts {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.protocolFees
}

func (pl *Pool) GetStaticFeeParameters() book.StaticFeeParameters {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.params.Static()
}

// GetNextNonEmptyBin returns the closest bin with outstanding shares in the
// direction a swap would walk: strictly below id when swapping for Y,
// strictly above otherwise.
func (pl *Pool) GetNextNonEmptyBin(swapForY bool, id uint32) (uint32, bool) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	if swapForY {
		return pl.tree.FindFirstRight(id)
	}
	return pl.tree.FindFirstLeft(id)
}

// SetStaticFeeParameters swaps in new operator settings, leaving the
// volatility state untouched.
func (pl *Pool) SetStaticFeeParameters(s book.StaticFeeParameters) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	params, err := pl.params.SetStaticFeeParameters(s)
	if err != nil {
		return err
	}
	pl.params = params
	return nil
}

// IncreaseOracleLength grows the oracle ring. Growing from zero activates
// the oracle.
func (pl *Pool) IncreaseOracleLength(newLength uint16) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	params, err := pl.oracle.IncreaseLength(pl.params, newLength)
	if err != nil {
		return err
	}
	pl.params = params
	return nil
}

// ForceDecay applies the reduction factor to the volatility accumulator
// immediately instead of waiting out the filter period.
func (pl *Pool) ForceDecay() {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.params = pl.params.ForceDecay()
}

// CollectProtocolFees moves the accrued protocol fees out of the pool and
// returns them. The reserves shrink by the same amounts.
func (pl *Pool) CollectProtocolFees() (book.Amounts, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	collected := pl.protocolFees
	if collected.IsZero() {
		return book.Amounts{}, nil
	}
	reserves, err := pl.reserves.Sub(collected)
	if err != nil {
		return book.Amounts{}, err
	}
	pl.reserves = reserves
	pl.protocolFees = book.Amounts{}
	return collected, nil
}

// GetOracleSampleAt reads the oracle cumulatives secondsAgo before now.
func (pl *Pool) GetOracleSampleAt(secondsAgo, now uint64) (book.OracleSample, error) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	if secondsAgo > now {
		return book.OracleSample{}, book.ErrLookupTimestampTooOld
	}
	return pl.oracle.GetSampleAt(pl.params, now-secondsAgo)
}

// binAt reads a bin through the staged overlay of an in-flight operation.
func (pl *Pool) binAt(staged map[uint32]book.Amounts, id uint32) book.Amounts {
	if r, ok := staged[id]; ok {
		return r
	}
	return pl.bins[id]
}

// supplyAt reads a supply through the staged overlay. The returned value is
// shared; callers must not mutate it.
func (pl *Pool) supplyAt(staged map[uint32]*uint256.Int, id uint32) *uint256.Int {
	if s, ok := staged[id]; ok {
		return s
	}
	if s, ok := pl.supplies[id]; ok {
		return s
	}
	return new(uint256.Int)
}
