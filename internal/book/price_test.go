package book

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestPriceFromIDAnchor(t *testing.T) {
	for _, binStep := range []uint16{1, 10, 25, 100, 10_000} {
		price, err := PriceFromID(realIDShift, binStep)
		if err != nil {
			t.Fatalf("bin step %d: unexpected error: %v", binStep, err)
		}
		if !price.Eq(uScale) {
			t.Fatalf("bin step %d: price at anchor id is %s, want 1.0", binStep, price.ToBig())
		}
	}
}

func TestPriceFromIDMonotonic(t *testing.T) {
	ids := []uint32{
		realIDShift - 100_000, realIDShift - 1000, realIDShift - 1,
		realIDShift, realIDShift + 1, realIDShift + 1000, realIDShift + 100_000,
	}
	for _, binStep := range []uint16{1, 10, 25} {
		var last *uint256.Int
		for _, id := range ids {
			price, err := PriceFromID(id, binStep)
			if err != nil {
				t.Fatalf("bin step %d id %d: unexpected error: %v", binStep, id, err)
			}
			if last != nil && !price.Gt(last) {
				t.Fatalf("bin step %d: price not increasing at id %d", binStep, id)
			}
			last = price
		}
	}
}

func TestPriceSymmetry(t *testing.T) {
	// price(anchor+k) * price(anchor-k) must stay within a hair of 1.0.
	tolerance := lsh(u64(1), scaleOffset-30)
	for _, binStep := range []uint16{1, 25, 500} {
		for _, k := range []uint32{1, 77, 5_000, 80_000} {
			up, err := PriceFromID(realIDShift+k, binStep)
			if err != nil {
				t.Fatalf("bin step %d k %d: %v", binStep, k, err)
			}
			down, err := PriceFromID(realIDShift-k, binStep)
			if err != nil {
				t.Fatalf("bin step %d k %d: %v", binStep, k, err)
			}
			product, err := mulShiftRoundDown(up, down, scaleOffset)
			if err != nil {
				t.Fatalf("bin step %d k %d: %v", binStep, k, err)
			}
			var diff uint256.Int
			if product.Gt(uScale) {
				diff.Sub(product, uScale)
			} else {
				diff.Sub(uScale, product)
			}
			if diff.Gt(tolerance) {
				t.Fatalf("bin step %d k %d: product drifts from 1.0 by %s", binStep, k, diff.ToBig())
			}
		}
	}
}

func TestIDFromPriceRoundTrip(t *testing.T) {
	ids := []uint32{
		realIDShift - 90_000, realIDShift - 1234, realIDShift - 1,
		realIDShift, realIDShift + 1, realIDShift + 1234, realIDShift + 90_000,
	}
	for _, binStep := range []uint16{1, 10, 25, 100} {
		for _, id := range ids {
			price, err := PriceFromID(id, binStep)
			if err != nil {
				t.Fatalf("bin step %d id %d: %v", binStep, id, err)
			}
			got, err := IDFromPrice(price, binStep)
			if err != nil {
				t.Fatalf("bin step %d id %d: %v", binStep, id, err)
			}
			if got != id {
				t.Fatalf("bin step %d: round trip %d -> %d", binStep, id, got)
			}
		}
	}
}

func TestIDFromPriceFloors(t *testing.T) {
	const binStep = 25
	const id = realIDShift + 4242
	price, err := PriceFromID(id, binStep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	above := new(uint256.Int).AddUint64(price, 1)
	got, err := IDFromPrice(above, binStep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Fatalf("price just above bin maps to %d, want %d", got, id)
	}

	below := new(uint256.Int).Sub(price, uOne)
	got, err = IDFromPrice(below, binStep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id-1 {
		t.Fatalf("price just below bin maps to %d, want %d", got, id-1)
	}
}

func TestPriceErrors(t *testing.T) {
	if _, err := PriceFromID(maxID+1, 25); !errors.Is(err, ErrOutOfID) {
		t.Fatalf("expected out of id, got %v", err)
	}
	// Exponent magnitude at or past 2^20 is outside the representable ladder.
	if _, err := PriceFromID(0, 25); !errors.Is(err, ErrPowUnderflow) {
		t.Fatalf("expected pow underflow, got %v", err)
	}
	// A base of 2.0 decays to zero long before the exponent limit.
	if _, err := PriceFromID(realIDShift-600, 10_000); !errors.Is(err, ErrPowUnderflow) {
		t.Fatalf("expected pow underflow, got %v", err)
	}
	if _, err := IDFromPrice(uScale, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
	if _, err := IDFromPrice(new(uint256.Int), 25); !errors.Is(err, ErrLogUnderflow) {
		t.Fatalf("expected log underflow for zero price, got %v", err)
	}
}

func TestLog2(t *testing.T) {
	got, err := log2(uScale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Sign() != 0 {
		t.Fatalf("log2(1.0) = %s, want 0", got)
	}

	one128 := new(big.Int).Lsh(big.NewInt(1), 128)
	got, err = log2(lsh(u64(1), 129))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(one128) != 0 {
		t.Fatalf("log2(2.0) = %s, want 2^128", got)
	}

	got, err = log2(lsh(u64(1), 127))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(new(big.Int).Neg(one128)) != 0 {
		t.Fatalf("log2(0.5) = %s, want -2^128", got)
	}

	if _, err := log2(new(uint256.Int)); !errors.Is(err, ErrLogUnderflow) {
		t.Fatalf("expected log underflow, got %v", err)
	}
}

func TestDecimalPriceConversions(t *testing.T) {
	price, err := ConvertDecimalPriceTo128x128(u64(precision))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Eq(uScale) {
		t.Fatalf("1e18 decimal is %s, want 1.0 in 128.128", price.ToBig())
	}

	back, err := Convert128x128PriceToDecimal(price)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Uint64() != precision {
		t.Fatalf("round trip gives %s, want 1e18", back.ToBig())
	}
}

func TestPriceCache(t *testing.T) {
	cache, err := NewPriceCache(8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := cache.PriceFromID(realIDShift+50, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	direct, err := PriceFromID(realIDShift+50, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Eq(direct) {
		t.Fatalf("cached price differs from direct computation")
	}

	// Callers own the returned value; clobbering it must not poison the cache.
	first.Clear()
	second, err := cache.PriceFromID(realIDShift+50, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Eq(direct) {
		t.Fatalf("cache entry was mutated through a returned pointer")
	}
}
