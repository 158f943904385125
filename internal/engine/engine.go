// Package engine hosts the shadowed pools and routes journal operations
// into pool state transitions, producing the derived swap and liquidity
// records as it goes.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"binbook/internal/book"
	"binbook/internal/model"
	"binbook/internal/pool"
)

// ApplyResult carries what one operation produced. Swap and Liquidity are
// nil for the kinds that only mutate parameters, and Skipped marks the
// journal kinds the engine deliberately ignores.
type ApplyResult struct {
	Swap      *model.SwapRecord
	Liquidity *model.LiquidityRecord
	Skipped   bool
}

type poolEntry struct {
	pool      *pool.Pool
	chainID   uint64
	lastBlock uint64
	lastTs    uint64
}

// Engine owns the set of replayed pools, keyed by lowercase pair address.
type Engine struct {
	mu      sync.RWMutex
	entries map[string]*poolEntry
	logger  *zap.Logger
}

var _ pool.Registry = (*Engine)(nil)

// New builds an empty engine.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		entries: make(map[string]*poolEntry),
		logger:  logger,
	}
}

// AddPool creates a fresh pool from its configuration and registers it.
func (e *Engine) AddPool(chainID uint64, cfg pool.Config) (*pool.Pool, error) {
	pl, err := pool.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", cfg.Pair, err)
	}
	e.register(chainID, pl, 0, 0)
	return pl, nil
}

// AddPoolFromSnapshot restores a pool from a persisted snapshot and
// registers it. The snapshot's block and timestamp seed the progress marks.
func (e *Engine) AddPoolFromSnapshot(snap model.PoolSnapshot) (*pool.Pool, error) {
	pl, err := pool.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", snap.Pair, err)
	}
	e.register(snap.ChainID, pl, snap.BlockNumber, snap.Timestamp)
	return pl, nil
}

func (e *Engine) register(chainID uint64, pl *pool.Pool, block, ts uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries[strings.ToLower(pl.Pair())] = &poolEntry{
		pool:      pl,
		chainID:   chainID,
		lastBlock: block,
		lastTs:    ts,
	}
}

// Lookup returns the pool registered for a pair address.
func (e *Engine) Lookup(pair string) (*pool.Pool, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ent, ok := e.entries[strings.ToLower(pair)]
	if !ok {
		return nil, false
	}
	return ent.pool, true
}

// Pairs lists the registered pair addresses in stable order.
func (e *Engine) Pairs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pairs := make([]string, 0, len(e.entries))
	for pair := range e.entries {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)
	return pairs
}

// Snapshots captures every registered pool, stamped with the chain id and
// the block and timestamp of the last operation applied to it.
func (e *Engine) Snapshots() []model.PoolSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snaps := make([]model.PoolSnapshot, 0, len(e.entries))
	for _, ent := range e.entries {
		snap := ent.pool.Snapshot()
		snap.ChainID = ent.chainID
		snap.BlockNumber = ent.lastBlock
		snap.Timestamp = ent.lastTs
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Pair < snaps[j].Pair })
	return snaps
}

// Apply routes one journal operation to its pool. Unknown pairs are an
// error; transfer and composition-fee operations that survived the merge
// are acknowledged but change nothing, since their effects ride on the
// deposits and withdrawals they belong to.
func (e *Engine) Apply(op model.Operation) (ApplyResult, error) {
	e.mu.RLock()
	ent, ok := e.entries[strings.ToLower(op.Pair)]
	e.mu.RUnlock()
	if !ok {
		return ApplyResult{}, fmt.Errorf("%s: %w", op.Pair, ErrUnknownPair)
	}

	var (
		res ApplyResult
		err error
	)
	switch op.Kind {
	case model.OpSwap:
		res, err = e.applySwap(ent, op)
	case model.OpDeposit:
		res, err = e.applyDeposit(ent, op)
	case model.OpWithdraw:
		res, err = e.applyWithdraw(ent, op)
	case model.OpSetStaticFee:
		res, err = applyStaticFee(ent, op)
	case model.OpIncreaseOracleLength:
		err = ent.pool.IncreaseOracleLength(op.OracleLength)
	case model.OpForceDecay:
		ent.pool.ForceDecay()
	case model.OpCollectProtocolFees:
		res, err = e.applyCollect(ent, op)
	case model.OpCompositionFees, model.OpTransferBatch:
		e.logger.Debug("operation carries no state of its own",
			zap.String("kind", op.Kind),
			zap.String("pair", op.Pair),
			zap.Uint64("block", op.BlockNumber))
		res.Skipped = true
	default:
		return ApplyResult{}, fmt.Errorf("kind %q: %w", op.Kind, ErrUnknownKind)
	}
	if err != nil {
		return ApplyResult{}, fmt.Errorf("%s block %d log %d: %w", op.Kind, op.BlockNumber, op.LogIndex, err)
	}

	e.mu.Lock()
	if op.BlockNumber >= ent.lastBlock {
		ent.lastBlock = op.BlockNumber
		ent.lastTs = op.Timestamp
	}
	e.mu.Unlock()
	return res, nil
}

func (e *Engine) applySwap(ent *poolEntry, op model.Operation) (ApplyResult, error) {
	amountIn, err := parseAmount(op.AmountIn)
	if err != nil {
		return ApplyResult{}, err
	}
	res, err := ent.pool.Swap(amountIn, op.SwapForY, op.Timestamp)
	if err != nil {
		return ApplyResult{}, err
	}

	in, out := res.AmountIn.Y, res.AmountOut.X
	fee, pfee := res.TotalFee.Y, res.ProtocolFee.Y
	if op.SwapForY {
		in, out = res.AmountIn.X, res.AmountOut.Y
		fee, pfee = res.TotalFee.X, res.ProtocolFee.X
	}

	bins := make([]model.BinAmounts, 0, len(res.Bins))
	for _, b := range res.Bins {
		movedX := new(uint256.Int).Add(&b.AmountIn.X, &b.AmountOut.X)
		movedY := new(uint256.Int).Add(&b.AmountIn.Y, &b.AmountOut.Y)
		bins = append(bins, model.BinAmounts{
			ID:           b.ID,
			AmountX:      decOrEmpty(movedX),
			AmountY:      decOrEmpty(movedY),
			FeeX:         decOrEmpty(&b.Fee.X),
			FeeY:         decOrEmpty(&b.Fee.Y),
			ProtocolFeeX: decOrEmpty(&b.ProtocolFee.X),
			ProtocolFeeY: decOrEmpty(&b.ProtocolFee.Y),
		})
	}

	rec := &model.SwapRecord{
		ChainID:               ent.chainID,
		Pair:                  ent.pool.Pair(),
		BlockNumber:           op.BlockNumber,
		TxHash:                op.TxHash,
		LogIndex:              op.LogIndex,
		Timestamp:             op.Timestamp,
		SwapForY:              op.SwapForY,
		AmountIn:              in.Dec(),
		AmountOut:             out.Dec(),
		TotalFee:              fee.Dec(),
		ProtocolFee:           pfee.Dec(),
		IDBefore:              res.IDBefore,
		IDAfter:               res.IDAfter,
		VolatilityAccumulator: res.VolatilityAccumulator,
		Bins:                  bins,
	}
	return ApplyResult{Swap: rec}, nil
}

func (e *Engine) applyDeposit(ent *poolEntry, op model.Operation) (ApplyResult, error) {
	deposits := make([]pool.BinDeposit, 0, len(op.Bins))
	for _, b := range op.Bins {
		amts, err := parseAmounts(b.AmountX, b.AmountY)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("bin %d: %w", b.ID, err)
		}
		deposits = append(deposits, pool.BinDeposit{ID: b.ID, Amounts: amts})
	}
	res, err := ent.pool.DepositExact(deposits, op.Timestamp)
	if err != nil {
		return ApplyResult{}, err
	}

	bins := make([]model.BinAmounts, 0, len(res.Bins))
	for _, b := range res.Bins {
		bins = append(bins, model.BinAmounts{
			ID:      b.ID,
			AmountX: decOrEmpty(&b.Amounts.X),
			AmountY: decOrEmpty(&b.Amounts.Y),
			Shares:  b.Shares.Dec(),
			FeeX:    decOrEmpty(&b.Fees.X),
			FeeY:    decOrEmpty(&b.Fees.Y),
		})
	}

	rec := &model.LiquidityRecord{
		Kind:        model.OpDeposit,
		ChainID:     ent.chainID,
		Pair:        ent.pool.Pair(),
		BlockNumber: op.BlockNumber,
		TxHash:      op.TxHash,
		LogIndex:    op.LogIndex,
		Timestamp:   op.Timestamp,
		AmountX:     res.AmountsIn.X.Dec(),
		AmountY:     res.AmountsIn.Y.Dec(),
		FeeX:        decOrEmpty(&res.Fees.X),
		FeeY:        decOrEmpty(&res.Fees.Y),
		Bins:        bins,
	}
	return ApplyResult{Liquidity: rec}, nil
}

func (e *Engine) applyWithdraw(ent *poolEntry, op model.Operation) (ApplyResult, error) {
	burns := make([]pool.BurnLiquidity, 0, len(op.Bins))
	for _, b := range op.Bins {
		shares, err := e.withdrawShares(ent, op, b)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("bin %d: %w", b.ID, err)
		}
		burns = append(burns, pool.BurnLiquidity{ID: b.ID, Shares: shares})
	}
	res, err := ent.pool.Burn(burns)
	if err != nil {
		return ApplyResult{}, err
	}

	bins := make([]model.BinAmounts, 0, len(res.Bins))
	for _, b := range res.Bins {
		bins = append(bins, model.BinAmounts{
			ID:      b.ID,
			AmountX: decOrEmpty(&b.Amounts.X),
			AmountY: decOrEmpty(&b.Amounts.Y),
			Shares:  b.Shares.Dec(),
		})
	}

	rec := &model.LiquidityRecord{
		Kind:        model.OpWithdraw,
		ChainID:     ent.chainID,
		Pair:        ent.pool.Pair(),
		BlockNumber: op.BlockNumber,
		TxHash:      op.TxHash,
		LogIndex:    op.LogIndex,
		Timestamp:   op.Timestamp,
		AmountX:     res.Amounts.X.Dec(),
		AmountY:     res.Amounts.Y.Dec(),
		Bins:        bins,
	}
	return ApplyResult{Liquidity: rec}, nil
}

// withdrawShares prefers the exact share count folded in from the transfer
// log. Journals recorded without one fall back to deriving shares from the
// payout amounts through the bin's liquidity ratio.
func (e *Engine) withdrawShares(ent *poolEntry, op model.Operation, b model.BinAmounts) (*uint256.Int, error) {
	if b.Shares != "" {
		return parseAmount(b.Shares)
	}
	amts, err := parseAmounts(b.AmountX, b.AmountY)
	if err != nil {
		return nil, err
	}
	shares, err := ent.pool.SharesForAmounts(b.ID, amts)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("derived burn shares from amounts",
		zap.String("pair", op.Pair),
		zap.Uint64("block", op.BlockNumber),
		zap.Uint32("bin", b.ID),
		zap.String("shares", shares.Dec()))
	return shares, nil
}

func applyStaticFee(ent *poolEntry, op model.Operation) (ApplyResult, error) {
	if op.Static == nil {
		return ApplyResult{}, fmt.Errorf("%w: missing static fee config", ErrMalformedOperation)
	}
	err := ent.pool.SetStaticFeeParameters(book.StaticFeeParameters{
		BaseFactor:               op.Static.BaseFactor,
		FilterPeriod:             op.Static.FilterPeriod,
		DecayPeriod:              op.Static.DecayPeriod,
		ReductionFactor:          op.Static.ReductionFactor,
		VariableFeeControl:       op.Static.VariableFeeControl,
		ProtocolShare:            op.Static.ProtocolShare,
		MaxVolatilityAccumulator: op.Static.MaxVolatilityAccumulator,
	})
	return ApplyResult{}, err
}

func (e *Engine) applyCollect(ent *poolEntry, op model.Operation) (ApplyResult, error) {
	collected, err := ent.pool.CollectProtocolFees()
	if err != nil {
		return ApplyResult{}, err
	}
	e.logger.Debug("protocol fees collected",
		zap.String("pair", op.Pair),
		zap.Uint64("block", op.BlockNumber),
		zap.String("amount_x", collected.X.Dec()),
		zap.String("amount_y", collected.Y.Dec()))
	return ApplyResult{}, nil
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	v := new(uint256.Int)
	if err := v.SetFromDecimal(s); err != nil {
		return nil, fmt.Errorf("amount %q: %w", s, err)
	}
	return v, nil
}

func parseAmounts(x, y string) (book.Amounts, error) {
	ax, err := parseAmount(x)
	if err != nil {
		return book.Amounts{}, err
	}
	ay, err := parseAmount(y)
	if err != nil {
		return book.Amounts{}, err
	}
	return book.NewAmounts(ax, ay)
}

func decOrEmpty(v *uint256.Int) string {
	if v.IsZero() {
		return ""
	}
	return v.Dec()
}
