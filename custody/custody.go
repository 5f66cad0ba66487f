// Package custody defines the custody boundary: the only subsystem that
// holds private key material. Components that need funding or signatures
// receive a Custody capability explicitly at construction time; nothing in
// the protocol reaches signing state through ambient lookup.
package custody

import (
	"context"
	"crypto/ed25519"

	"github.com/opencura/anchor/ledger"
)

// Custody is the capability surface of the custody boundary. Private keys
// never cross it: SignInput returns only an unlocking script, SealOpen only
// plaintext.
type Custody interface {
	// ListSpendable returns candidate unspent outputs controlled by the
	// boundary. minTotal is a hint for how much value the caller needs;
	// implementations may return more. When key is non-nil only outputs
	// controlled by that key are returned. Controlling keys are NOT
	// resolved here; use ResolveKey per output.
	ListSpendable(ctx context.Context, minTotal uint64, key ed25519.PublicKey) ([]ledger.SpendableOutput, error)

	// ResolveKey returns the public key controlling out, or a NotFound
	// error when the boundary does not hold it.
	ResolveKey(ctx context.Context, out ledger.SpendableOutput) (ed25519.PublicKey, error)

	// ReceivingScript returns a locking script for returning value to the
	// boundary. When key is non-nil the script pays to that key, otherwise
	// the boundary's default is used.
	ReceivingScript(ctx context.Context, key ed25519.PublicKey) ([]byte, error)

	// SignInput produces the unlocking script for one input, or a Signing
	// error.
	SignInput(ctx context.Context, req ledger.SignRequest) ([]byte, error)

	// EncryptionKey returns the X25519 public key bound to a signing key,
	// used to seal messages to the key's holder.
	EncryptionKey(ctx context.Context, signing ed25519.PublicKey) ([]byte, error)

	// SealOpen decrypts a sealed message addressed to the holder of the
	// given signing key.
	SealOpen(ctx context.Context, recipient ed25519.PublicKey, sealed []byte) ([]byte, error)
}

// UnspentSource is what a wallet watches for outputs payable to its keys.
// The overlay chain satisfies it; so can any external ledger client.
type UnspentSource interface {
	Unspent(ctx context.Context, scripts [][]byte) ([]ledger.SpendableOutput, error)
}
