package ledger

import "crypto/ed25519"

// SpendableOutput is an unspent output as observed through the custody
// boundary. PubKey is nil until the boundary has resolved the controlling
// key; the protocol never mutates a spendable output, only references it.
type SpendableOutput struct {
	Outpoint Outpoint
	Value    uint64
	Script   []byte
	PubKey   ed25519.PublicKey
}

// SignRequest is the only channel through which private key material is
// exercised: the custody boundary turns one request into one unlocking
// script, or refuses.
type SignRequest struct {
	Tx     *Tx
	Input  int
	Script []byte // locking script of the spent output
	Value  uint64 // value of the spent output
	PubKey ed25519.PublicKey
}
