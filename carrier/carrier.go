// Package carrier implements the data-only output codec: arbitrary document
// bytes framed into a minimal-value transaction output script, and back.
//
// Script layout: byte 0 is the no-value marker (OP_FALSE), byte 1 the data
// marker (OP_RETURN), followed by a single length-prefixed push of the
// payload. Payloads up to 75 bytes use a direct push [len, bytes...];
// payloads of 76..255 bytes use [PUSHDATA1, len, bytes...]. 255 bytes is a
// hard ceiling for a single anchor.
package carrier

import (
	"bytes"
	"fmt"

	"github.com/opencura/anchor/ledger"
)

const (
	OpFalse   = 0x00
	OpReturn  = 0x6a
	Pushdata1 = 0x4c

	// MaxDirectPush is the largest payload encodable as a direct push.
	MaxDirectPush = 75

	// MaxPayload is the hard size ceiling for a single carrier output.
	MaxPayload = 255
)

// Value is the protocol-minimum value attached to a carrier output: a
// single indivisible unit.
const Value uint64 = 1

// Encode frames payload bytes into a carrier script. Oversized payloads
// fail before any network interaction.
func Encode(payload []byte) ([]byte, error) {
	n := len(payload)
	if n > MaxPayload {
		return nil, ledger.E(ledger.KindEncoding,
			fmt.Sprintf("payload is %d bytes, carrier ceiling is %d", n, MaxPayload))
	}
	var script []byte
	if n <= MaxDirectPush {
		script = make([]byte, 0, 3+n)
		script = append(script, OpFalse, OpReturn, byte(n))
	} else {
		script = make([]byte, 0, 4+n)
		script = append(script, OpFalse, OpReturn, Pushdata1, byte(n))
	}
	return append(script, payload...), nil
}

// Decode is the exact left inverse of Encode: Decode(Encode(b)) == b for
// every valid payload. Anything that Encode could not have produced is
// rejected.
func Decode(script []byte) ([]byte, error) {
	if len(script) < 3 {
		return nil, ledger.E(ledger.KindEncoding, "carrier script shorter than marker and push")
	}
	if script[0] != OpFalse || script[1] != OpReturn {
		return nil, ledger.E(ledger.KindEncoding, "carrier marker bytes missing")
	}
	rest := script[2:]
	var declared int
	var body []byte
	switch {
	case rest[0] <= MaxDirectPush:
		declared = int(rest[0])
		body = rest[1:]
	case rest[0] == Pushdata1:
		if len(rest) < 2 {
			return nil, ledger.E(ledger.KindEncoding, "carrier PUSHDATA1 missing length byte")
		}
		declared = int(rest[1])
		if declared <= MaxDirectPush {
			return nil, ledger.E(ledger.KindEncoding, "carrier PUSHDATA1 used for direct-push length")
		}
		body = rest[2:]
	default:
		return nil, ledger.E(ledger.KindEncoding,
			fmt.Sprintf("unsupported carrier push opcode 0x%02x", rest[0]))
	}
	if declared > len(body) {
		return nil, ledger.E(ledger.KindEncoding,
			fmt.Sprintf("carrier declares %d payload bytes, %d remain", declared, len(body)))
	}
	if declared < len(body) {
		return nil, ledger.E(ledger.KindEncoding,
			fmt.Sprintf("%d trailing bytes after carrier payload", len(body)-declared))
	}
	out := make([]byte, declared)
	copy(out, body)
	return out, nil
}

// IsCarrier reports whether script begins with the carrier marker bytes.
// It does not validate the push framing.
func IsCarrier(script []byte) bool {
	return len(script) >= 2 && script[0] == OpFalse && script[1] == OpReturn
}

// Equal reports whether two scripts are byte-identical. Small helper for
// index consistency checks.
func Equal(a, b []byte) bool { return bytes.Equal(a, b) }
