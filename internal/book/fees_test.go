package book

import (
	"errors"
	"testing"
)

func TestBaseFee(t *testing.T) {
	p := Parameters{BaseFactor: 5000}
	got := p.BaseFee(10)
	// 5000 * 10 * 1e10 = 5e14, five basis points of 1e18.
	if got.Uint64() != 500_000_000_000_000 {
		t.Fatalf("base fee = %s, want 5e14", got.ToBig())
	}
}

func TestVariableFee(t *testing.T) {
	p := Parameters{VariableFeeControl: 40_000, VolatilityAccumulator: 40_000}
	got := p.VariableFee(10)
	// (40000*10)^2 * 40000 / 100 = 6.4e13, exactly divisible.
	if got.Uint64() != 64_000_000_000_000 {
		t.Fatalf("variable fee = %s, want 6.4e13", got.ToBig())
	}

	odd := Parameters{VariableFeeControl: 7, VolatilityAccumulator: 3}
	got = odd.VariableFee(3)
	// 81 * 7 = 567, ceil(5.67) = 6.
	if got.Uint64() != 6 {
		t.Fatalf("variable fee = %s, want ceil to 6", got.ToBig())
	}

	off := Parameters{VariableFeeControl: 0, VolatilityAccumulator: 40_000}
	if !off.VariableFee(10).IsZero() {
		t.Fatalf("variable fee must be zero when control is zero")
	}
}

func TestTotalFeeCap(t *testing.T) {
	p := Parameters{BaseFactor: 5000, VariableFeeControl: 40_000, VolatilityAccumulator: 40_000}
	got, err := p.TotalFee(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Uint64() != 564_000_000_000_000 {
		t.Fatalf("total fee = %s, want 5.64e14", got.ToBig())
	}

	hot := Parameters{VariableFeeControl: 1<<24 - 1, VolatilityAccumulator: 350_000}
	if _, err := hot.TotalFee(100); !errors.Is(err, ErrFeeTooLarge) {
		t.Fatalf("expected fee too large, got %v", err)
	}
}

func TestFeeAmounts(t *testing.T) {
	fee, err := FeeAmountFrom(u64(1_000_000), u64(50_000_000_000_000_000)) // 5%
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee.Uint64() != 50_000 {
		t.Fatalf("fee from gross = %s, want 50000", fee.ToBig())
	}

	fee, err = FeeAmountFrom(u64(3), u64(100_000_000_000_000_000)) // 10% of 3
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee.Uint64() != 1 {
		t.Fatalf("fee must round up, got %s", fee.ToBig())
	}

	// Fee on top of a net amount recovers the gross rate: 5% of gross 1e6.
	fee, err = FeeAmount(u64(950_000), u64(50_000_000_000_000_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee.Uint64() != 50_000 {
		t.Fatalf("fee on net = %s, want 50000", fee.ToBig())
	}
}

func TestCompositionFee(t *testing.T) {
	got := CompositionFee(u64(precision), u64(10_000_000_000_000_000)) // 1%
	// 1e18 * 1e16 * (1e16 + 1e18) / 1e36 = 1.01e16.
	if got.Uint64() != 10_100_000_000_000_000 {
		t.Fatalf("composition fee = %s, want 1.01e16", got.ToBig())
	}

	got = CompositionFee(u64(3), u64(100_000_000_000_000_000))
	if got.Uint64() != 1 {
		t.Fatalf("composition fee must round up, got %s", got.ToBig())
	}

	if !CompositionFee(u64(0), u64(precision/10)).IsZero() {
		t.Fatalf("composition fee of zero amount must be zero")
	}
}

func TestProtocolFeeAmount(t *testing.T) {
	got, err := ProtocolFeeAmount(u64(1000), 2500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Uint64() != 250 {
		t.Fatalf("protocol fee = %s, want 250", got.ToBig())
	}

	got, err = ProtocolFeeAmount(u64(999), 2500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Uint64() != 249 {
		t.Fatalf("protocol fee must round down, got %s", got.ToBig())
	}

	if _, err := ProtocolFeeAmount(u64(1000), 2501); !errors.Is(err, ErrProtocolShareTooLarge) {
		t.Fatalf("expected protocol share too large, got %v", err)
	}
}
