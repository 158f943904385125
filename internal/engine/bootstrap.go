package engine

import (
	"fmt"

	"binbook/internal/book"
	"binbook/internal/model"
	"binbook/internal/pool"
)

// PoolConfigFromMeta turns pair metadata into a fresh pool config. The
// active id anchors the price ladder, so metadata without one cannot seed
// a pool.
func PoolConfigFromMeta(meta model.PairMeta) (pool.Config, error) {
	if meta.Static == nil {
		return pool.Config{}, fmt.Errorf("pair %s: missing static fee config", meta.Address)
	}
	if meta.ActiveID == 0 {
		return pool.Config{}, fmt.Errorf("pair %s: missing active id", meta.Address)
	}
	return pool.Config{
		Pair:     meta.Address,
		TokenX:   meta.TokenX.Address,
		TokenY:   meta.TokenY.Address,
		BinStep:  meta.BinStep,
		ActiveID: meta.ActiveID,
		Static: book.StaticFeeParameters{
			BaseFactor:               meta.Static.BaseFactor,
			FilterPeriod:             meta.Static.FilterPeriod,
			DecayPeriod:              meta.Static.DecayPeriod,
			ReductionFactor:          meta.Static.ReductionFactor,
			VariableFeeControl:       meta.Static.VariableFeeControl,
			ProtocolShare:            meta.Static.ProtocolShare,
			MaxVolatilityAccumulator: meta.Static.MaxVolatilityAccumulator,
		},
	}, nil
}
