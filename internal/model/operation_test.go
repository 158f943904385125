package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestOperationJSONRoundTrip(t *testing.T) {
	original := Operation{
		Kind:        OpSwap,
		ChainID:     43114,
		Pair:        "0x1111111111111111111111111111111111111111",
		BlockNumber: 30000000,
		TxHash:      "0xdef456",
		LogIndex:    12,
		Timestamp:   1700000000,
		Sender:      "0x2222222222222222222222222222222222222222",
		To:          "0x3333333333333333333333333333333333333333",
		SwapForY:    true,
		AmountIn:    "12345678901234567890",
		Bins: []BinAmounts{
			{ID: 8388608, AmountX: "1000", AmountY: "997", FeeX: "3", ProtocolFeeX: "1"},
			{ID: 8388607, AmountX: "500", AmountY: "498", FeeX: "2"},
		},
		Raw: &RawLogRef{Topic0: "0xaaa", Data: "0xdeadbeef"},
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Operation
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestOperationOmitsEmptyFields(t *testing.T) {
	op := Operation{
		Kind:        OpForceDecay,
		Pair:        "0x1111111111111111111111111111111111111111",
		BlockNumber: 30000001,
		TxHash:      "0xabc",
		LogIndex:    3,
		Timestamp:   1700000100,
	}

	b, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(b, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"swap_for_y", "amount_in", "bins", "static", "oracle_length", "raw"} {
		if _, ok := fields[key]; ok {
			t.Fatalf("%s should be omitted for a %s operation", key, op.Kind)
		}
	}
}

func TestBinAmountsJSONStringFields(t *testing.T) {
	payload := BinAmounts{
		ID:      8388610,
		AmountX: "340282366920938463463374607431768211455",
		AmountY: "42",
		Shares:  "18446744073709551616",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := decoded["amount_x"].(string); !ok {
		t.Fatalf("amount_x should be string")
	}
	if _, ok := decoded["amount_y"].(string); !ok {
		t.Fatalf("amount_y should be string")
	}
	if _, ok := decoded["shares"].(string); !ok {
		t.Fatalf("shares should be string")
	}
}
