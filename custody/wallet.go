package custody

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/opencura/anchor/ledger"
)

// Wallet is the local custody boundary: Ed25519 seeds from a KeyStore,
// spendable outputs observed through an UnspentSource. It implements
// Custody.
//
// The wallet never hands seeds out. Signing happens in SignInput, message
// decryption in SealOpen, and both return derived artifacts only.
type Wallet struct {
	source UnspentSource

	mu    sync.RWMutex
	seeds map[string][]byte // keyed by string(public key)
	order []ed25519.PublicKey
}

// NewWallet loads every identity in ks and watches source for outputs.
func NewWallet(ks *KeyStore, source UnspentSource) (*Wallet, error) {
	names, err := ks.List()
	if err != nil {
		return nil, err
	}
	w := &Wallet{source: source, seeds: make(map[string][]byte)}
	for _, name := range names {
		seed, err := ks.Seed(name)
		if err != nil {
			return nil, fmt.Errorf("identity %q: %w", name, err)
		}
		w.addSeed(seed)
	}
	return w, nil
}

// NewWalletFromSeeds builds a wallet directly from seeds. Test and daemon
// bootstrap path.
func NewWalletFromSeeds(source UnspentSource, seeds ...[]byte) (*Wallet, error) {
	w := &Wallet{source: source, seeds: make(map[string][]byte)}
	for _, seed := range seeds {
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
		}
		w.addSeed(seed)
	}
	return w, nil
}

func (w *Wallet) addSeed(seed []byte) ed25519.PublicKey {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seeds[string(pub)]; !ok {
		cp := make([]byte, len(seed))
		copy(cp, seed)
		w.seeds[string(pub)] = cp
		w.order = append(w.order, pub)
	}
	return pub
}

// AddSeed registers one more identity and returns its public key.
func (w *Wallet) AddSeed(seed []byte) (ed25519.PublicKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	return w.addSeed(seed), nil
}

// Keys returns the wallet's public keys in registration order.
func (w *Wallet) Keys() []ed25519.PublicKey {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]ed25519.PublicKey, len(w.order))
	copy(out, w.order)
	return out
}

func (w *Wallet) seedFor(pub ed25519.PublicKey) ([]byte, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	seed, ok := w.seeds[string(pub)]
	return seed, ok
}

func (w *Wallet) ListSpendable(ctx context.Context, minTotal uint64, key ed25519.PublicKey) ([]ledger.SpendableOutput, error) {
	var scripts [][]byte
	if key != nil {
		if _, ok := w.seedFor(key); !ok {
			return nil, ledger.E(ledger.KindNotFound, "requested key is not held by this wallet")
		}
		scripts = [][]byte{ledger.PayToPubKey(key)}
	} else {
		for _, pub := range w.Keys() {
			scripts = append(scripts, ledger.PayToPubKey(pub))
		}
	}
	if len(scripts) == 0 {
		return nil, nil
	}
	outs, err := w.source.Unspent(ctx, scripts)
	if err != nil {
		return nil, ledger.Wrap(ledger.KindFunding, "unspent lookup failed", err)
	}
	// Controlling keys are deliberately not attached here; callers resolve
	// them through ResolveKey, mirroring a boundary that charges for the
	// mapping.
	for i := range outs {
		outs[i].PubKey = nil
	}
	_ = minTotal
	return outs, nil
}

func (w *Wallet) ResolveKey(ctx context.Context, out ledger.SpendableOutput) (ed25519.PublicKey, error) {
	_ = ctx
	pub, err := ledger.ExtractPubKey(out.Script)
	if err != nil {
		return nil, err
	}
	if _, ok := w.seedFor(pub); !ok {
		return nil, ledger.E(ledger.KindNotFound, fmt.Sprintf("no key held for output %s", out.Outpoint))
	}
	return pub, nil
}

func (w *Wallet) ReceivingScript(ctx context.Context, key ed25519.PublicKey) ([]byte, error) {
	_ = ctx
	if key == nil {
		keys := w.Keys()
		if len(keys) == 0 {
			return nil, ledger.E(ledger.KindFunding, "wallet holds no identities")
		}
		key = keys[0]
	} else if _, ok := w.seedFor(key); !ok {
		return nil, ledger.E(ledger.KindNotFound, "requested change key is not held by this wallet")
	}
	return ledger.PayToPubKey(key), nil
}

func (w *Wallet) SignInput(ctx context.Context, req ledger.SignRequest) ([]byte, error) {
	_ = ctx
	if req.Tx == nil {
		return nil, ledger.E(ledger.KindSigning, "sign request carries no transaction")
	}
	seed, ok := w.seedFor(req.PubKey)
	if !ok {
		return nil, ledger.E(ledger.KindSigning, "no key held for sign request")
	}
	digest, err := ledger.SighashInput(req.Tx, req.Input, req.Script, req.Value)
	if err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	sig := ed25519.Sign(priv, digest[:])
	return ledger.UnlockScript(sig)
}

func (w *Wallet) EncryptionKey(ctx context.Context, signing ed25519.PublicKey) ([]byte, error) {
	_ = ctx
	seed, ok := w.seedFor(signing)
	if !ok {
		return nil, ledger.E(ledger.KindNotFound, "no key held for encryption key request")
	}
	return EncryptionPublicKey(seed)
}

func (w *Wallet) SealOpen(ctx context.Context, recipient ed25519.PublicKey, sealed []byte) ([]byte, error) {
	_ = ctx
	seed, ok := w.seedFor(recipient)
	if !ok {
		return nil, ledger.E(ledger.KindNotFound, "no key held for sealed message recipient")
	}
	return open(seed, sealed)
}

var _ Custody = (*Wallet)(nil)
