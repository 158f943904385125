package model

import "time"

// PairWindowMetrics stores aggregated metrics for a pair window.
type PairWindowMetrics struct {
	ChainID        uint64
	Pair           string
	WindowSizeSecs int64
	WindowStart    time.Time
	WindowEnd      time.Time
	SwapCount      uint64
	VolumeX        string
	VolumeY        string
	FeeX           string
	FeeY           string
	ProtocolFeeX   string
	ProtocolFeeY   string
	FeeRateX       *string
	FeeRateY       *string
	TVLX           *string
	TVLY           *string
	APR            *string
	FeeMethod      string
	TVLMethod      string
}
