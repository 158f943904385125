package book

import "github.com/holiman/uint256"

const (
	offsetDistributionX = 0   // 64 bits
	offsetDistributionY = 64  // 64 bits
	offsetConfigBinID   = 128 // 24 bits

	liquidityConfigBits = 152
)

// LiquidityConfig routes a slice of a deposit into one bin. Distributions
// are 1e18-scaled shares of the total deposit per side; across a batch each
// side must sum to at most 1e18.
type LiquidityConfig struct {
	DistributionX uint64
	DistributionY uint64
	BinID         uint32
}

func (c LiquidityConfig) Validate() error {
	if c.DistributionX > precision || c.DistributionY > precision || c.BinID > maxID {
		return ErrInvalidConfig
	}
	return nil
}

// AmountsToBin slices the configured share out of the total deposit,
// rounding down.
func (c LiquidityConfig) AmountsToBin(total Amounts) Amounts {
	var out Amounts
	out.X.Mul(&total.X, uint256.NewInt(c.DistributionX))
	out.X.Div(&out.X, uPrecision)
	out.Y.Mul(&total.Y, uint256.NewInt(c.DistributionY))
	out.Y.Div(&out.Y, uPrecision)
	return out
}

// Pack lays the config into its 19-byte big-endian wire word.
func (c LiquidityConfig) Pack() [LiquidityConfigSize]byte {
	w := newPackedWord(liquidityConfigBits)
	w.set(offsetDistributionX, 64, c.DistributionX)
	w.set(offsetDistributionY, 64, c.DistributionY)
	w.set(offsetConfigBinID, 24, uint64(c.BinID))

	var out [LiquidityConfigSize]byte
	copy(out[:], w.bytesBE(LiquidityConfigSize))
	return out
}

func UnpackLiquidityConfig(b [LiquidityConfigSize]byte) (LiquidityConfig, error) {
	w, err := packedWordFromBytesBE(b[:], liquidityConfigBits)
	if err != nil {
		return LiquidityConfig{}, ErrInvalidConfig
	}
	c := LiquidityConfig{
		DistributionX: w.get(offsetDistributionX, 64),
		DistributionY: w.get(offsetDistributionY, 64),
		BinID:         uint32(w.get(offsetConfigBinID, 24)),
	}
	if err := c.Validate(); err != nil {
		return LiquidityConfig{}, err
	}
	return c, nil
}
