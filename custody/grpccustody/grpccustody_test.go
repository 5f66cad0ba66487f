package grpccustody

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/opencura/anchor/custody"
	"github.com/opencura/anchor/ledger"
	"github.com/opencura/anchor/overlay"
)

func testBoundary(t *testing.T) (*Client, *custody.Wallet, *overlay.Chain, []byte) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 61
	chain := overlay.NewChain()
	wallet, err := custody.NewWalletFromSeeds(chain, seed)
	if err != nil {
		t.Fatalf("NewWalletFromSeeds: %v", err)
	}

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterCustodyServer(srv, &Server{Custody: wallet})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	client := NewClient(cc)
	client.Timeout = 2 * time.Second
	return client, wallet, chain, seed
}

func TestCustodyService_FundingRoundTrip(t *testing.T) {
	client, wallet, chain, _ := testBoundary(t)
	ctx := context.Background()
	pub := wallet.Keys()[0]
	minted := chain.Mint(1000, ledger.PayToPubKey(pub))

	outs, err := client.ListSpendable(ctx, 1, nil)
	if err != nil {
		t.Fatalf("ListSpendable: %v", err)
	}
	if len(outs) != 1 || outs[0].Outpoint != minted || outs[0].Value != 1000 {
		t.Fatalf("unexpected outputs %+v", outs)
	}
	if outs[0].PubKey != nil {
		t.Fatalf("listing leaked a controlling key across the wire")
	}

	key, err := client.ResolveKey(ctx, outs[0])
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	if !key.Equal(pub) {
		t.Fatalf("resolved wrong key")
	}

	script, err := client.ReceivingScript(ctx, nil)
	if err != nil {
		t.Fatalf("ReceivingScript: %v", err)
	}
	if !bytes.Equal(script, ledger.PayToPubKey(pub)) {
		t.Fatalf("unexpected receiving script")
	}
}

func TestCustodyService_SignInput(t *testing.T) {
	client, wallet, chain, _ := testBoundary(t)
	ctx := context.Background()
	pub := wallet.Keys()[0]
	minted := chain.Mint(1000, ledger.PayToPubKey(pub))
	prevScript := ledger.PayToPubKey(pub)

	tx := &ledger.Tx{
		Version: ledger.TxVersion,
		Inputs:  []ledger.TxIn{{PrevOut: minted}},
		Outputs: []ledger.TxOut{{Value: 900, Script: prevScript}},
	}
	unlock, err := client.SignInput(ctx, ledger.SignRequest{
		Tx:     tx,
		Input:  0,
		Script: prevScript,
		Value:  1000,
		PubKey: pub,
	})
	if err != nil {
		t.Fatalf("SignInput: %v", err)
	}
	tx.Inputs[0].Unlock = unlock
	if err := ledger.VerifyInput(tx, 0, prevScript, 1000); err != nil {
		t.Fatalf("VerifyInput: %v", err)
	}
}

func TestCustodyService_SealedMessages(t *testing.T) {
	client, wallet, _, seed := testBoundary(t)
	ctx := context.Background()
	pub := wallet.Keys()[0]

	encKey, err := client.EncryptionKey(ctx, pub)
	if err != nil {
		t.Fatalf("EncryptionKey: %v", err)
	}
	local, err := custody.EncryptionPublicKey(seed)
	if err != nil {
		t.Fatalf("EncryptionPublicKey: %v", err)
	}
	if !bytes.Equal(encKey, local) {
		t.Fatalf("remote derivation differs from local")
	}

	sealed, err := custody.Seal(encKey, []byte("over the wire"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	plain, err := client.SealOpen(ctx, pub, sealed)
	if err != nil {
		t.Fatalf("SealOpen: %v", err)
	}
	if string(plain) != "over the wire" {
		t.Fatalf("round trip mismatch: %q", plain)
	}
}

func TestCustodyService_ErrorKindsSurviveTheWire(t *testing.T) {
	client, _, _, _ := testBoundary(t)
	ctx := context.Background()

	strangerSeed := make([]byte, ed25519.SeedSize)
	strangerSeed[0] = 99
	stranger := ed25519.NewKeyFromSeed(strangerSeed).Public().(ed25519.PublicKey)

	_, err := client.ResolveKey(ctx, ledger.SpendableOutput{Script: ledger.PayToPubKey(stranger)})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !ledger.IsNotFound(err) {
		t.Fatalf("expected NotFound across the wire, got %v", err)
	}

	tx := &ledger.Tx{
		Version: ledger.TxVersion,
		Inputs:  []ledger.TxIn{{}},
		Outputs: []ledger.TxOut{{Value: 1, Script: ledger.PayToPubKey(stranger)}},
	}
	_, err = client.SignInput(ctx, ledger.SignRequest{
		Tx:     tx,
		Input:  0,
		Script: ledger.PayToPubKey(stranger),
		Value:  1,
		PubKey: stranger,
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !ledger.IsKind(err, ledger.KindSigning) {
		t.Fatalf("expected Signing across the wire, got %v", err)
	}
}
