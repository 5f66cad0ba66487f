package ledger

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
)

// SighashInput returns the digest an input's signature must cover.
//
// The digest commits to the whole transaction with every unlocking script
// blanked, plus the index of the signed input, the locking script being
// spent and the value being spent. Binding the spent script and value keeps
// a signature from being replayed against a different output.
func SighashInput(tx *Tx, input int, prevScript []byte, prevValue uint64) ([32]byte, error) {
	if input < 0 || input >= len(tx.Inputs) {
		return [32]byte{}, E(KindInternal, fmt.Sprintf("sighash input %d out of range [0,%d)", input, len(tx.Inputs)))
	}
	blank := &Tx{Version: tx.Version, Outputs: tx.Outputs}
	for _, in := range tx.Inputs {
		blank.Inputs = append(blank.Inputs, TxIn{PrevOut: in.PrevOut})
	}

	var buf bytes.Buffer
	buf.Write(blank.Serialize())
	writeU32(&buf, uint32(input))
	writeCompactSize(&buf, uint64(len(prevScript)))
	buf.Write(prevScript)
	writeU64(&buf, prevValue)
	return sha256.Sum256(buf.Bytes()), nil
}

// VerifyInput checks an input's unlocking script against the output it
// spends. Used by the overlay at admission time.
func VerifyInput(tx *Tx, input int, prevScript []byte, prevValue uint64) error {
	key, err := ExtractPubKey(prevScript)
	if err != nil {
		return err
	}
	sig, err := ExtractSignature(tx.Inputs[input].Unlock)
	if err != nil {
		return err
	}
	digest, err := SighashInput(tx, input, prevScript, prevValue)
	if err != nil {
		return err
	}
	if !ed25519.Verify(key, digest[:], sig) {
		return E(KindBroadcast, fmt.Sprintf("input %d signature invalid", input))
	}
	return nil
}
