package carrier

import (
	"bytes"
	"testing"

	"github.com/opencura/anchor/ledger"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 74, 75, 76, 100, 254, 255} {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i)
		}
		script, err := Encode(payload)
		if err != nil {
			t.Fatalf("Encode(%d bytes): %v", n, err)
		}
		if !IsCarrier(script) {
			t.Fatalf("Encode(%d bytes): not recognized as carrier", n)
		}
		got, err := Decode(script)
		if err != nil {
			t.Fatalf("Decode(%d bytes): %v", n, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("round trip mismatch at %d bytes", n)
		}
	}
}

func TestEncode_FramingShape(t *testing.T) {
	short, err := Encode(make([]byte, 75))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if short[0] != OpFalse || short[1] != OpReturn || short[2] != 75 {
		t.Fatalf("direct push framing wrong: % x", short[:3])
	}
	long, err := Encode(make([]byte, 76))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if long[2] != Pushdata1 || long[3] != 76 {
		t.Fatalf("PUSHDATA1 framing wrong: % x", long[:4])
	}
}

func TestEncode_RejectsOversized(t *testing.T) {
	_, err := Encode(make([]byte, MaxPayload+1))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !ledger.IsKind(err, ledger.KindEncoding) {
		t.Fatalf("expected Encoding kind, got %v", err)
	}
}

func TestDecode_RejectsMalformed(t *testing.T) {
	cases := map[string][]byte{
		"too short":              {OpFalse, OpReturn},
		"wrong first marker":     {0x51, OpReturn, 0x01, 0xaa},
		"wrong second marker":    {OpFalse, 0x6b, 0x01, 0xaa},
		"unsupported opcode":     {OpFalse, OpReturn, 0x4d, 0x01, 0x00, 0xaa},
		"pushdata1 short length": {OpFalse, OpReturn, Pushdata1, 10, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		"truncated payload":      {OpFalse, OpReturn, 0x05, 0xaa, 0xbb},
		"trailing bytes":         {OpFalse, OpReturn, 0x01, 0xaa, 0xbb},
		"pushdata1 no length":    {OpFalse, OpReturn, Pushdata1},
	}
	for name, script := range cases {
		if _, err := Decode(script); err == nil {
			t.Fatalf("%s: expected error", name)
		} else if !ledger.IsKind(err, ledger.KindEncoding) {
			t.Fatalf("%s: expected Encoding kind, got %v", name, err)
		}
	}
}

func TestIsCarrier(t *testing.T) {
	if IsCarrier([]byte{OpFalse}) {
		t.Fatalf("one byte is not a carrier")
	}
	if IsCarrier([]byte{0x20, 0x00}) {
		t.Fatalf("locking script is not a carrier")
	}
	if !IsCarrier([]byte{OpFalse, OpReturn}) {
		t.Fatalf("marker prefix should report carrier")
	}
}
