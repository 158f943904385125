package book

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestMulDivRoundDown(t *testing.T) {
	cases := [][3]*uint256.Int{
		{u64(0), u64(100), u64(3)},
		{u64(7), u64(5), u64(3)},
		{u64(10), u64(10), u64(100)},
		{lsh(u64(1), 200), lsh(u64(3), 40), lsh(u64(1), 100)},
		{uMaxUint128, uMaxUint128, uScale},
		{uMaxUint256, u64(1234567), u64(1234567)},
		{lsh(u64(987654321), 128), lsh(u64(123456789), 120), lsh(u64(1), 250)},
	}
	for i, c := range cases {
		got, err := mulDivRoundDown(c[0], c[1], c[2])
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		want := new(big.Int).Mul(c[0].ToBig(), c[1].ToBig())
		want.Quo(want, c[2].ToBig())
		if got.ToBig().Cmp(want) != 0 {
			t.Fatalf("case %d: got %s want %s", i, got.ToBig(), want)
		}
	}
}

func TestMulDivRoundUp(t *testing.T) {
	got, err := mulDivRoundUp(u64(7), u64(5), u64(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Uint64() != 12 {
		t.Fatalf("got %d want 12", got.Uint64())
	}

	// Exact division must not round.
	got, err = mulDivRoundUp(u64(6), u64(5), u64(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Uint64() != 10 {
		t.Fatalf("got %d want 10", got.Uint64())
	}

	big1, big2 := lsh(u64(7), 180), lsh(u64(11), 90)
	down, err := mulDivRoundDown(big1, big2, u64(13))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	up, err := mulDivRoundUp(big1, big2, u64(13))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := new(uint256.Int).Sub(up, down)
	if diff.Uint64() != 1 {
		t.Fatalf("round up should exceed round down by one, diff %s", diff.ToBig())
	}
}

func TestMulDivOverflow(t *testing.T) {
	if _, err := mulDivRoundDown(uMaxUint256, uMaxUint256, u64(1)); !errors.Is(err, ErrMulDivOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := mulDivRoundDown(u64(1), u64(1), u64(0)); !errors.Is(err, ErrMulDivOverflow) {
		t.Fatalf("expected error on zero denominator, got %v", err)
	}
	if _, err := mulDivRoundUp(uMaxUint256, u64(2), u64(1)); !errors.Is(err, ErrMulDivOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestMulShift(t *testing.T) {
	cases := [][2]*uint256.Int{
		{u64(0), uScale},
		{u64(1), uScale},
		{lsh(u64(1), 200), lsh(u64(1), 57)},
		{uMaxUint128, uMaxUint128},
		{lsh(u64(77777), 128), lsh(u64(33333), 100)},
	}
	shift := new(big.Int).Lsh(big.NewInt(1), scaleOffset)
	for i, c := range cases {
		got, err := mulShiftRoundDown(c[0], c[1], scaleOffset)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		want := new(big.Int).Mul(c[0].ToBig(), c[1].ToBig())
		want.Quo(want, shift)
		if got.ToBig().Cmp(want) != 0 {
			t.Fatalf("case %d: got %s want %s", i, got.ToBig(), want)
		}

		up, err := mulShiftRoundUp(c[0], c[1], scaleOffset)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		rem := new(big.Int).Mul(c[0].ToBig(), c[1].ToBig())
		if rem.Rem(rem, shift).Sign() != 0 {
			want.Add(want, big.NewInt(1))
		}
		if up.ToBig().Cmp(want) != 0 {
			t.Fatalf("case %d: round up got %s want %s", i, up.ToBig(), want)
		}
	}

	if _, err := mulShiftRoundDown(uMaxUint256, uMaxUint256, scaleOffset); !errors.Is(err, ErrMulDivOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestShiftDiv(t *testing.T) {
	cases := [][2]*uint256.Int{
		{u64(0), u64(3)},
		{u64(1), u64(3)},
		{uMaxUint128, uScale},
		{lsh(u64(555), 120), u64(7)},
		{lsh(u64(1), 255), uMaxUint128},
	}
	for i, c := range cases {
		x, d := c[0], c[1]
		want := new(big.Int).Lsh(x.ToBig(), scaleOffset)
		want.Quo(want, d.ToBig())
		if want.BitLen() > 256 {
			t.Fatalf("case %d: reference overflows", i)
		}
		got, err := shiftDivRoundDown(x, scaleOffset, d)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if got.ToBig().Cmp(want) != 0 {
			t.Fatalf("case %d: got %s want %s", i, got.ToBig(), want)
		}

		up, err := shiftDivRoundUp(x, scaleOffset, d)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		rem := new(big.Int).Lsh(x.ToBig(), scaleOffset)
		if rem.Rem(rem, d.ToBig()).Sign() != 0 {
			want.Add(want, big.NewInt(1))
		}
		if up.ToBig().Cmp(want) != 0 {
			t.Fatalf("case %d: round up got %s want %s", i, up.ToBig(), want)
		}
	}

	if _, err := shiftDivRoundDown(uMaxUint256, scaleOffset, u64(1)); !errors.Is(err, ErrMulDivOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestSqrtRoundDown(t *testing.T) {
	cases := []*uint256.Int{
		u64(0), u64(1), u64(2), u64(3), u64(4), u64(15), u64(16), u64(17),
		u64(1 << 62), uMaxUint128, uScale, lsh(u64(99999), 133), uMaxUint256,
	}
	for i, c := range cases {
		got := sqrtRoundDown(c)
		want := new(big.Int).Sqrt(c.ToBig())
		if got.ToBig().Cmp(want) != 0 {
			t.Fatalf("case %d: got %s want %s", i, got.ToBig(), want)
		}
	}
}

func u64(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func lsh(x *uint256.Int, n uint) *uint256.Int {
	return new(uint256.Int).Lsh(x, n)
}
