package stats

import (
	"math/big"
	"testing"
)

func TestFormatTokenAmount(t *testing.T) {
	if got := formatTokenAmount(nil, 6); got != "0" {
		t.Fatalf("nil = %q", got)
	}
	if got := formatTokenAmount(big.NewInt(1500000), 0); got != "1500000" {
		t.Fatalf("zero decimals = %q", got)
	}
	if got := formatTokenAmount(big.NewInt(1500000), 6); got != "1.500000" {
		t.Fatalf("six decimals = %q", got)
	}
	if got := formatTokenAmount(big.NewInt(-1500000), 6); got != "-1.500000" {
		t.Fatalf("negative = %q", got)
	}
	if got := formatTokenAmount(big.NewInt(5), 8); got != "0.00000005" {
		t.Fatalf("small = %q", got)
	}
}

func TestComputeFeeRates(t *testing.T) {
	rateX, rateY := computeFeeRates(big.NewInt(5), big.NewInt(3), big.NewInt(1000), nil)
	if rateX == nil || *rateX != "0.005000000000000000" {
		t.Fatalf("rate x = %v", rateX)
	}
	if rateY != nil {
		t.Fatalf("rate y without tvl = %v", *rateY)
	}

	rateX, rateY = computeFeeRates(big.NewInt(0), big.NewInt(3), big.NewInt(1000), big.NewInt(0))
	if rateX != nil || rateY != nil {
		t.Fatal("zero fee or zero tvl should not produce a rate")
	}
}

func TestComputeAPRSumsSides(t *testing.T) {
	x := "0.001000000000000000"
	y := "0.002000000000000000"

	apr := computeAPR(&x, &y, 3600)
	if apr == nil || *apr != "26.280000000000000000" {
		t.Fatalf("both sides apr = %v", apr)
	}

	apr = computeAPR(&x, nil, 3600)
	if apr == nil || *apr != "8.760000000000000000" {
		t.Fatalf("single side apr = %v", apr)
	}

	if got := computeAPR(nil, nil, 3600); got != nil {
		t.Fatalf("no rates apr = %v", *got)
	}
	if got := computeAPR(&x, nil, 0); got != nil {
		t.Fatalf("zero window apr = %v", *got)
	}
}
