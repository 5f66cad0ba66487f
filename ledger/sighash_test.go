package ledger

import (
	"crypto/ed25519"
	"testing"
)

func signedSample(t *testing.T) (*Tx, []byte, uint64, ed25519.PrivateKey) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 7
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	prevScript := PayToPubKey(pub)
	prevValue := uint64(1000)

	tx := &Tx{
		Version: TxVersion,
		Inputs:  []TxIn{{PrevOut: Outpoint{Vout: 0}}},
		Outputs: []TxOut{{Value: 900, Script: prevScript}},
	}
	digest, err := SighashInput(tx, 0, prevScript, prevValue)
	if err != nil {
		t.Fatalf("SighashInput: %v", err)
	}
	unlock, err := UnlockScript(ed25519.Sign(priv, digest[:]))
	if err != nil {
		t.Fatalf("UnlockScript: %v", err)
	}
	tx.Inputs[0].Unlock = unlock
	return tx, prevScript, prevValue, priv
}

func TestVerifyInput_OK(t *testing.T) {
	tx, prevScript, prevValue, _ := signedSample(t)
	if err := VerifyInput(tx, 0, prevScript, prevValue); err != nil {
		t.Fatalf("VerifyInput: %v", err)
	}
}

func TestVerifyInput_RejectsWrongValue(t *testing.T) {
	tx, prevScript, prevValue, _ := signedSample(t)
	if err := VerifyInput(tx, 0, prevScript, prevValue+1); err == nil {
		t.Fatalf("expected error: signature must commit to the spent value")
	}
}

func TestVerifyInput_RejectsWrongScript(t *testing.T) {
	tx, _, prevValue, _ := signedSample(t)
	otherSeed := make([]byte, ed25519.SeedSize)
	otherSeed[0] = 8
	other := ed25519.NewKeyFromSeed(otherSeed).Public().(ed25519.PublicKey)
	if err := VerifyInput(tx, 0, PayToPubKey(other), prevValue); err == nil {
		t.Fatalf("expected error: signature must commit to the spent script")
	}
}

func TestVerifyInput_RejectsMutatedOutputs(t *testing.T) {
	tx, prevScript, prevValue, _ := signedSample(t)
	tx.Outputs[0].Value++
	if err := VerifyInput(tx, 0, prevScript, prevValue); err == nil {
		t.Fatalf("expected error: signature must commit to the outputs")
	}
}

func TestSighashInput_RejectsOutOfRange(t *testing.T) {
	tx, prevScript, prevValue, _ := signedSample(t)
	if _, err := SighashInput(tx, 1, prevScript, prevValue); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := SighashInput(tx, -1, prevScript, prevValue); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSighash_IgnoresOtherUnlocks(t *testing.T) {
	// The digest blanks every unlocking script, so signing input 0 before or
	// after input 1 is signed gives the same digest.
	tx, prevScript, prevValue, _ := signedSample(t)
	tx.Inputs = append(tx.Inputs, TxIn{PrevOut: Outpoint{Vout: 1}})
	before, err := SighashInput(tx, 0, prevScript, prevValue)
	if err != nil {
		t.Fatalf("SighashInput: %v", err)
	}
	tx.Inputs[1].Unlock = make([]byte, 65)
	after, err := SighashInput(tx, 0, prevScript, prevValue)
	if err != nil {
		t.Fatalf("SighashInput: %v", err)
	}
	if before != after {
		t.Fatalf("digest changed when a sibling unlock was filled in")
	}
}
