package ledger

import (
	"crypto/ed25519"
	"fmt"
)

// Script opcodes. The overlay's script language is deliberately tiny: a
// single-signature locking shape plus the carrier markers defined in the
// carrier package.
const (
	OpCheckSig = 0xac
)

const (
	pubKeyPush    = ed25519.PublicKeySize   // 0x20
	signaturePush = ed25519.SignatureSize   // 0x40
	payToPubKeyLen = 1 + pubKeyPush + 1
)

// PayToPubKey returns the single-signature locking script for key:
// a 32-byte key push followed by OP_CHECKSIG.
func PayToPubKey(key ed25519.PublicKey) []byte {
	s := make([]byte, 0, payToPubKeyLen)
	s = append(s, byte(pubKeyPush))
	s = append(s, key...)
	s = append(s, OpCheckSig)
	return s
}

// IsPayToPubKey reports whether script has the single-signature shape the
// funding gateway accepts.
func IsPayToPubKey(script []byte) bool {
	return len(script) == payToPubKeyLen &&
		script[0] == byte(pubKeyPush) &&
		script[len(script)-1] == OpCheckSig
}

// ExtractPubKey returns the controlling key of a single-signature script.
func ExtractPubKey(script []byte) (ed25519.PublicKey, error) {
	if !IsPayToPubKey(script) {
		return nil, E(KindEncoding, "script is not a single-signature locking script")
	}
	key := make(ed25519.PublicKey, pubKeyPush)
	copy(key, script[1:1+pubKeyPush])
	return key, nil
}

// UnlockScript wraps a 64-byte signature as an unlocking script.
func UnlockScript(sig []byte) ([]byte, error) {
	if len(sig) != signaturePush {
		return nil, E(KindSigning, fmt.Sprintf("signature must be %d bytes, got %d", signaturePush, len(sig)))
	}
	s := make([]byte, 0, 1+signaturePush)
	s = append(s, byte(signaturePush))
	s = append(s, sig...)
	return s, nil
}

// ExtractSignature returns the signature carried by an unlocking script.
func ExtractSignature(unlock []byte) ([]byte, error) {
	if len(unlock) != 1+signaturePush || unlock[0] != byte(signaturePush) {
		return nil, E(KindEncoding, "unlocking script is not a single signature push")
	}
	return unlock[1:], nil
}
