// Package stats rolls the replayed swap records into per-pair window
// metrics: volumes, exact fees, reserve TVL and an annualized fee rate.
package stats

import (
	"fmt"
	"math/big"

	"binbook/internal/model"
)

// Accumulator collects one pair's swap flow inside one time window. Fees
// accrue on the input side of each swap, so the X totals grow on X-to-Y
// trades and the Y totals on the way back.
type Accumulator struct {
	ChainID      uint64
	Pair         string
	WindowStart  uint64
	WindowEnd    uint64
	SwapCount    uint64
	VolumeX      *big.Int
	VolumeY      *big.Int
	FeeX         *big.Int
	FeeY         *big.Int
	ProtocolFeeX *big.Int
	ProtocolFeeY *big.Int
	FirstBlock   uint64
	LastBlock    uint64
	LastTS       uint64
}

// NewAccumulator opens a window at the first record's position.
func NewAccumulator(rec model.SwapRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		ChainID:      rec.ChainID,
		Pair:         rec.Pair,
		WindowStart:  windowStart,
		WindowEnd:    windowEnd,
		VolumeX:      big.NewInt(0),
		VolumeY:      big.NewInt(0),
		FeeX:         big.NewInt(0),
		FeeY:         big.NewInt(0),
		ProtocolFeeX: big.NewInt(0),
		ProtocolFeeY: big.NewInt(0),
		FirstBlock:   rec.BlockNumber,
		LastBlock:    rec.BlockNumber,
		LastTS:       rec.Timestamp,
	}
}

// Add folds one swap into the window.
func (a *Accumulator) Add(rec model.SwapRecord) error {
	if rec.Timestamp >= a.LastTS {
		a.LastTS = rec.Timestamp
		a.LastBlock = rec.BlockNumber
	}
	if a.FirstBlock == 0 || rec.BlockNumber < a.FirstBlock {
		a.FirstBlock = rec.BlockNumber
	}

	amountIn, err := parseBigInt(rec.AmountIn)
	if err != nil {
		return fmt.Errorf("amount in: %w", err)
	}
	amountOut, err := parseBigInt(rec.AmountOut)
	if err != nil {
		return fmt.Errorf("amount out: %w", err)
	}
	fee, err := parseBigInt(rec.TotalFee)
	if err != nil {
		return fmt.Errorf("total fee: %w", err)
	}
	protocolFee, err := parseBigInt(rec.ProtocolFee)
	if err != nil {
		return fmt.Errorf("protocol fee: %w", err)
	}

	if rec.SwapForY {
		a.VolumeX.Add(a.VolumeX, amountIn)
		a.VolumeY.Add(a.VolumeY, amountOut)
		a.FeeX.Add(a.FeeX, fee)
		a.ProtocolFeeX.Add(a.ProtocolFeeX, protocolFee)
	} else {
		a.VolumeY.Add(a.VolumeY, amountIn)
		a.VolumeX.Add(a.VolumeX, amountOut)
		a.FeeY.Add(a.FeeY, fee)
		a.ProtocolFeeY.Add(a.ProtocolFeeY, protocolFee)
	}

	a.SwapCount++
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}
