package credential

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/opencura/anchor/anchor"
	"github.com/opencura/anchor/custody"
	"github.com/opencura/anchor/gateway"
	"github.com/opencura/anchor/index"
	"github.com/opencura/anchor/ledger"
	"github.com/opencura/anchor/overlay"
)

func newRig(t *testing.T) (*Store, *index.Index, <-chan overlay.AdmittedOutput, ed25519.PublicKey) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 51
	chain := overlay.NewChain()
	wallet, err := custody.NewWalletFromSeeds(chain, seed)
	if err != nil {
		t.Fatalf("NewWalletFromSeeds: %v", err)
	}
	pub := wallet.Keys()[0]
	chain.Mint(500000, ledger.PayToPubKey(pub))

	ix, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })

	builder := anchor.NewBuilder(gateway.New(wallet, 500), chain, "cura-vc")
	return NewStore(builder, ix), ix, chain.Subscribe("cura-vc", 64), pub
}

func drain(t *testing.T, ix *index.Index, ch <-chan overlay.AdmittedOutput) {
	t.Helper()
	for {
		select {
		case out := <-ch:
			if err := ix.Apply(out); err != nil {
				t.Fatalf("Apply: %v", err)
			}
		default:
			return
		}
	}
}

func TestAnchorGetVerify(t *testing.T) {
	store, ix, ch, pub := newRig(t)
	ctx := context.Background()

	credential := []byte(`{"degree":"BSc","year":2026}`)
	rec, err := store.Anchor(ctx, credential, "did-subject", "did-issuer", pub)
	if err != nil {
		t.Fatalf("Anchor: %v", err)
	}
	if rec.CredentialID == "" || rec.Commitment == "" {
		t.Fatalf("incomplete record %+v", rec)
	}
	drain(t, ix, ch)

	got, err := store.Get(ctx, rec.CredentialID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Commitment != rec.Commitment || got.Subject != rec.Subject || got.Issuer != rec.Issuer {
		t.Fatalf("stored record differs: %+v vs %+v", got, rec)
	}

	ok, err := store.Verify(ctx, rec.CredentialID, credential)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("genuine credential did not verify")
	}

	ok, err = store.Verify(ctx, rec.CredentialID, []byte(`{"degree":"PhD"}`))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("altered credential verified")
	}
}

func TestGet_UnknownCredential(t *testing.T) {
	store, _, _, _ := newRig(t)
	if _, err := store.Get(context.Background(), "no-such-id"); !ledger.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAnchor_CredentialBytesStayOffLedger(t *testing.T) {
	store, ix, ch, pub := newRig(t)
	ctx := context.Background()

	credential := []byte("very-private-credential-payload")
	rec, err := store.Anchor(ctx, credential, "s", "i", pub)
	if err != nil {
		t.Fatalf("Anchor: %v", err)
	}
	drain(t, ix, ch)

	idxRec, err := ix.Latest("cura-vc", rec.CredentialID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if string(idxRec.RawTx) == "" {
		t.Fatalf("raw transaction missing")
	}
	if bytes.Contains(idxRec.RawTx, credential) {
		t.Fatalf("credential bytes anchored on the ledger")
	}
}
