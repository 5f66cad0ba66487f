package overlay

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/opencura/anchor/carrier"
	"github.com/opencura/anchor/ledger"
)

func testIdentity(tb testing.TB, fill byte) (ed25519.PrivateKey, ed25519.PublicKey) {
	tb.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = fill
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return priv, priv.Public().(ed25519.PublicKey)
}

func envelopeScript(tb testing.TB, serial string) []byte {
	tb.Helper()
	script, err := carrier.EncodeEnvelope(carrier.Envelope{Serial: serial, Kind: carrier.KindMessage})
	if err != nil {
		tb.Fatalf("EncodeEnvelope: %v", err)
	}
	return script
}

// spendToCarrier builds and signs a transaction spending prev into one
// carrier output plus change back to the key.
func spendToCarrier(tb testing.TB, priv ed25519.PrivateKey, pub ed25519.PublicKey, prev ledger.Outpoint, prevValue uint64, serial string, change uint64) *ledger.Tx {
	tb.Helper()
	prevScript := ledger.PayToPubKey(pub)
	tx := &ledger.Tx{
		Version: ledger.TxVersion,
		Inputs:  []ledger.TxIn{{PrevOut: prev}},
		Outputs: []ledger.TxOut{{Value: carrier.Value, Script: envelopeScript(tb, serial)}},
	}
	if change > 0 {
		tx.Outputs = append(tx.Outputs, ledger.TxOut{Value: change, Script: prevScript})
	}
	digest, err := ledger.SighashInput(tx, 0, prevScript, prevValue)
	if err != nil {
		tb.Fatalf("SighashInput: %v", err)
	}
	unlock, err := ledger.UnlockScript(ed25519.Sign(priv, digest[:]))
	if err != nil {
		tb.Fatalf("UnlockScript: %v", err)
	}
	tx.Inputs[0].Unlock = unlock
	return tx
}

func TestChain_BroadcastAndReplay(t *testing.T) {
	priv, pub := testIdentity(t, 1)
	c := NewChain()
	prev := c.Mint(1000, ledger.PayToPubKey(pub))

	early := c.Subscribe("topic-a", 8)

	tx := spendToCarrier(t, priv, pub, prev, 1000, "serial-1", 900)
	txid, err := c.Broadcast(context.Background(), "topic-a", tx)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	out := <-early
	if out.Outpoint.TxID != txid || out.Outpoint.Vout != 0 {
		t.Fatalf("published wrong coordinate %s", out.Outpoint)
	}
	if out.Seq != 1 || out.Topic != "topic-a" {
		t.Fatalf("published wrong metadata: %+v", out)
	}

	// A subscriber arriving after admission gets the same history.
	late := c.Subscribe("topic-a", 8)
	replay := <-late
	if replay.Outpoint != out.Outpoint || replay.Seq != out.Seq {
		t.Fatalf("replay differs: %+v vs %+v", replay, out)
	}

	raw, err := c.Tx(txid)
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if string(raw) != string(tx.Serialize()) {
		t.Fatalf("stored raw transaction differs")
	}
}

func TestChain_UnspentTracksSpends(t *testing.T) {
	priv, pub := testIdentity(t, 2)
	c := NewChain()
	script := ledger.PayToPubKey(pub)
	prev := c.Mint(1000, script)

	outs, err := c.Unspent(context.Background(), [][]byte{script})
	if err != nil {
		t.Fatalf("Unspent: %v", err)
	}
	if len(outs) != 1 || outs[0].Outpoint != prev || outs[0].Value != 1000 {
		t.Fatalf("unexpected unspent set: %+v", outs)
	}

	tx := spendToCarrier(t, priv, pub, prev, 1000, "serial-1", 900)
	if _, err := c.Broadcast(context.Background(), "t", tx); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	outs, err = c.Unspent(context.Background(), [][]byte{script})
	if err != nil {
		t.Fatalf("Unspent: %v", err)
	}
	if len(outs) != 1 || outs[0].Value != 900 {
		t.Fatalf("change output not tracked: %+v", outs)
	}
}

func TestChain_RejectsDoubleSpend(t *testing.T) {
	priv, pub := testIdentity(t, 3)
	c := NewChain()
	prev := c.Mint(1000, ledger.PayToPubKey(pub))

	first := spendToCarrier(t, priv, pub, prev, 1000, "serial-1", 900)
	second := spendToCarrier(t, priv, pub, prev, 1000, "serial-2", 800)

	if _, err := c.Broadcast(context.Background(), "t", first); err != nil {
		t.Fatalf("first Broadcast: %v", err)
	}
	_, err := c.Broadcast(context.Background(), "t", second)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !ledger.IsKind(err, ledger.KindBroadcast) {
		t.Fatalf("expected Broadcast kind, got %v", err)
	}
}

func TestChain_RejectsReplayedTransaction(t *testing.T) {
	priv, pub := testIdentity(t, 4)
	c := NewChain()
	prev := c.Mint(1000, ledger.PayToPubKey(pub))
	tx := spendToCarrier(t, priv, pub, prev, 1000, "serial-1", 900)
	if _, err := c.Broadcast(context.Background(), "t", tx); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if _, err := c.Broadcast(context.Background(), "t", tx); err == nil {
		t.Fatalf("expected error")
	}
}

func TestChain_RejectsBadSignature(t *testing.T) {
	priv, pub := testIdentity(t, 5)
	c := NewChain()
	prev := c.Mint(1000, ledger.PayToPubKey(pub))
	tx := spendToCarrier(t, priv, pub, prev, 1000, "serial-1", 900)
	tx.Inputs[0].Unlock[10] ^= 0xff
	if _, err := c.Broadcast(context.Background(), "t", tx); err == nil {
		t.Fatalf("expected error")
	}
}

func TestChain_RejectsValueInflation(t *testing.T) {
	priv, pub := testIdentity(t, 6)
	c := NewChain()
	prev := c.Mint(1000, ledger.PayToPubKey(pub))
	tx := spendToCarrier(t, priv, pub, prev, 1000, "serial-1", 2000)
	_, err := c.Broadcast(context.Background(), "t", tx)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !ledger.IsKind(err, ledger.KindBroadcast) {
		t.Fatalf("expected Broadcast kind, got %v", err)
	}
}

func TestChain_OnlyCarrierOutputsPublished(t *testing.T) {
	priv, pub := testIdentity(t, 7)
	c := NewChain()
	prev := c.Mint(1000, ledger.PayToPubKey(pub))
	ch := c.Subscribe("t", 8)

	// Carrier at vout 0, plain change at vout 1: one published output.
	tx := spendToCarrier(t, priv, pub, prev, 1000, "serial-1", 900)
	if _, err := c.Broadcast(context.Background(), "t", tx); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	out := <-ch
	if out.Outpoint.Vout != 0 {
		t.Fatalf("published non-carrier output %d", out.Outpoint.Vout)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected second publication: %+v", extra)
	default:
	}
}
