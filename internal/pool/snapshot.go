package pool

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"binbook/internal/book"
	"binbook/internal/model"
)

// Snapshot exports the pool's full state in packed wire form. Bins come out
// sorted by id; block number and timestamp are the caller's to stamp.
func (pl *Pool) Snapshot() model.PoolSnapshot {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	ids := make([]uint32, 0, len(pl.bins))
	for id := range pl.bins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	bins := make([]model.BinSnapshot, 0, len(ids))
	for _, id := range ids {
		packed := pl.bins[id].Pack()
		supply := "0"
		if s, ok := pl.supplies[id]; ok {
			supply = s.Dec()
		}
		bins = append(bins, model.BinSnapshot{
			ID:       id,
			Reserves: hexutil.Encode(packed[:]),
			Supply:   supply,
		})
	}

	samples := pl.oracle.Samples()
	oracle := make([]string, len(samples))
	for i, s := range samples {
		packed := s.Pack()
		oracle[i] = hexutil.Encode(packed[:])
	}

	params := pl.params.Pack()
	return model.PoolSnapshot{
		Pair:          pl.pair,
		TokenX:        pl.tokenX,
		TokenY:        pl.tokenY,
		BinStep:       pl.binStep,
		Parameters:    hexutil.Encode(params[:]),
		Bins:          bins,
		OracleSamples: oracle,
		ReserveX:      pl.reserves.X.Dec(),
		ReserveY:      pl.reserves.Y.Dec(),
		ProtocolFeeX:  pl.protocolFees.X.Dec(),
		ProtocolFeeY:  pl.protocolFees.Y.Dec(),
	}
}

// FromSnapshot rebuilds a pool from an exported snapshot. Bins with
// outstanding shares re-enter the index; the oracle cursor must point inside
// the restored ring.
func FromSnapshot(snap model.PoolSnapshot) (*Pool, error) {
	if snap.BinStep == 0 || snap.BinStep > 10_000 {
		return nil, fmt.Errorf("bin step %d: %w", snap.BinStep, ErrBadSnapshot)
	}
	rawParams, err := hexutil.Decode(snap.Parameters)
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}
	if len(rawParams) != book.ParametersSize {
		return nil, fmt.Errorf("parameters are %d bytes: %w", len(rawParams), ErrBadSnapshot)
	}
	var paramsWord [book.ParametersSize]byte
	copy(paramsWord[:], rawParams)
	params, err := book.UnpackParameters(paramsWord)
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}

	prices, err := book.NewPriceCache(defaultPriceCacheSize)
	if err != nil {
		return nil, err
	}

	pl := &Pool{
		pair:     snap.Pair,
		tokenX:   snap.TokenX,
		tokenY:   snap.TokenY,
		binStep:  snap.BinStep,
		params:   params,
		bins:     make(map[uint32]book.Amounts, len(snap.Bins)),
		supplies: make(map[uint32]*uint256.Int, len(snap.Bins)),
		tree:     book.NewTree(),
		oracle:   book.NewOracle(),
		prices:   prices,
	}

	for _, b := range snap.Bins {
		raw, err := hexutil.Decode(b.Reserves)
		if err != nil {
			return nil, fmt.Errorf("bin %d reserves: %w", b.ID, err)
		}
		if len(raw) != book.AmountsSize {
			return nil, fmt.Errorf("bin %d reserves are %d bytes: %w", b.ID, len(raw), ErrBadSnapshot)
		}
		var word [book.AmountsSize]byte
		copy(word[:], raw)
		pl.bins[b.ID] = book.UnpackAmounts(word)

		supply := new(uint256.Int)
		if err := supply.SetFromDecimal(b.Supply); err != nil {
			return nil, fmt.Errorf("bin %d supply: %w", b.ID, err)
		}
		if !supply.IsZero() {
			pl.supplies[b.ID] = supply
			pl.tree.Add(b.ID)
		}
	}

	samples := make([]book.Sample, len(snap.OracleSamples))
	for i, s := range snap.OracleSamples {
		raw, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("oracle sample %d: %w", i, err)
		}
		if len(raw) != book.SampleSize {
			return nil, fmt.Errorf("oracle sample %d is %d bytes: %w", i, len(raw), ErrBadSnapshot)
		}
		var word [book.SampleSize]byte
		copy(word[:], raw)
		samples[i] = book.UnpackSample(word)
	}
	pl.oracle = book.NewOracleFromSamples(samples)
	if params.OracleID > pl.oracle.Length() {
		return nil, fmt.Errorf("oracle cursor %d past length %d: %w", params.OracleID, pl.oracle.Length(), ErrBadSnapshot)
	}

	var reserves, protocolFees book.Amounts
	for _, f := range []struct {
		dst  *uint256.Int
		src  string
		name string
	}{
		{&reserves.X, snap.ReserveX, "reserve_x"},
		{&reserves.Y, snap.ReserveY, "reserve_y"},
		{&protocolFees.X, snap.ProtocolFeeX, "protocol_fee_x"},
		{&protocolFees.Y, snap.ProtocolFeeY, "protocol_fee_y"},
	} {
		if err := f.dst.SetFromDecimal(f.src); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	if reserves, err = book.NewAmounts(&reserves.X, &reserves.Y); err != nil {
		return nil, fmt.Errorf("reserves: %w", err)
	}
	if protocolFees, err = book.NewAmounts(&protocolFees.X, &protocolFees.Y); err != nil {
		return nil, fmt.Errorf("protocol fees: %w", err)
	}
	pl.reserves = reserves
	pl.protocolFees = protocolFees

	return pl, nil
}
