package custody

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"
	"golang.org/x/crypto/sha3"

	"github.com/opencura/anchor/ledger"
)

// HPKE suite for sealed messages: X25519-HKDF-SHA256 KEM, HKDF-SHA256 KDF,
// ChaCha20-Poly1305 AEAD, base mode. Sealed bytes are the encapsulated key
// followed by the ciphertext.
const (
	sealKEM  = hpke.KEM_X25519_HKDF_SHA256
	sealKDF  = hpke.KDF_HKDF_SHA256
	sealAEAD = hpke.AEAD_ChaCha20Poly1305
)

var sealInfo = []byte("opencura-anchor-seal-v1")

// deriveEncSeed derives the X25519 keypair seed bound to an Ed25519 signing
// seed. SHA3-256 keeps the encryption subkey domain-separated from every
// Ed25519 use of the seed.
func deriveEncSeed(signingSeed []byte) ([]byte, error) {
	if len(signingSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing seed must be %d bytes", ed25519.SeedSize)
	}
	h := sha3.New256()
	_, _ = h.Write(signingSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("opencura-anchor-enc-v1"))
	return h.Sum(nil), nil
}

func encKeyPair(signingSeed []byte) (kem.PublicKey, kem.PrivateKey, error) {
	seed, err := deriveEncSeed(signingSeed)
	if err != nil {
		return nil, nil, err
	}
	scheme := sealKEM.Scheme()
	if len(seed) < scheme.SeedSize() {
		return nil, nil, fmt.Errorf("kdf output shorter than kem seed size %d", scheme.SeedSize())
	}
	pub, priv := scheme.DeriveKeyPair(seed[:scheme.SeedSize()])
	return pub, priv, nil
}

// EncryptionPublicKey returns the marshaled X25519 public key derived from
// an Ed25519 signing seed.
func EncryptionPublicKey(signingSeed []byte) ([]byte, error) {
	pub, _, err := encKeyPair(signingSeed)
	if err != nil {
		return nil, err
	}
	return pub.MarshalBinary()
}

// Seal encrypts plaintext to a recipient's marshaled X25519 public key.
// Sealing needs no private material and may be done outside the custody
// boundary; only opening is gated.
func Seal(recipientEncKey, plaintext []byte) ([]byte, error) {
	scheme := sealKEM.Scheme()
	pub, err := scheme.UnmarshalBinaryPublicKey(recipientEncKey)
	if err != nil {
		return nil, ledger.Wrap(ledger.KindEncoding, "recipient encryption key invalid", err)
	}
	suite := hpke.NewSuite(sealKEM, sealKDF, sealAEAD)
	sender, err := suite.NewSender(pub, sealInfo)
	if err != nil {
		return nil, ledger.Wrap(ledger.KindInternal, "hpke sender setup failed", err)
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, ledger.Wrap(ledger.KindInternal, "hpke encapsulation failed", err)
	}
	ct, err := sealer.Seal(plaintext, nil)
	if err != nil {
		return nil, ledger.Wrap(ledger.KindInternal, "hpke seal failed", err)
	}
	return append(enc, ct...), nil
}

// open decrypts sealed bytes with the private half derived from signingSeed.
func open(signingSeed, sealed []byte) ([]byte, error) {
	_, priv, err := encKeyPair(signingSeed)
	if err != nil {
		return nil, err
	}
	scheme := sealKEM.Scheme()
	encSize := scheme.CiphertextSize()
	if len(sealed) < encSize {
		return nil, ledger.E(ledger.KindEncoding, "sealed message shorter than encapsulated key")
	}
	suite := hpke.NewSuite(sealKEM, sealKDF, sealAEAD)
	receiver, err := suite.NewReceiver(priv, sealInfo)
	if err != nil {
		return nil, ledger.Wrap(ledger.KindInternal, "hpke receiver setup failed", err)
	}
	opener, err := receiver.Setup(sealed[:encSize])
	if err != nil {
		return nil, ledger.Wrap(ledger.KindEncoding, "hpke decapsulation failed", err)
	}
	pt, err := opener.Open(sealed[encSize:], nil)
	if err != nil {
		return nil, ledger.Wrap(ledger.KindEncoding, "sealed message did not authenticate", err)
	}
	return pt, nil
}
