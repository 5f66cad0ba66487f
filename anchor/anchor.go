// Package anchor composes full transactions around a carrier output: one
// document payload in, one admitted ledger coordinate out.
package anchor

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/opencura/anchor/carrier"
	"github.com/opencura/anchor/gateway"
	"github.com/opencura/anchor/ledger"
	"github.com/opencura/anchor/overlay"
)

// Anchor is the record of one ledger-committed instance of a document.
// Immutable once admitted.
type Anchor struct {
	TxID      ledger.TxID
	Vout      uint32
	Serial    string
	RawTx     []byte
	CreatedAt time.Time
}

// Outpoint returns the anchor's ledger coordinate.
func (a *Anchor) Outpoint() ledger.Outpoint {
	return ledger.Outpoint{TxID: a.TxID, Vout: a.Vout}
}

// maxFundingAttempts bounds the reselect loop when the fee computed at
// final size pushes change negative.
const maxFundingAttempts = 5

type Builder struct {
	gateway     *gateway.Gateway
	broadcaster overlay.Broadcaster
	topic       string
}

func NewBuilder(gw *gateway.Gateway, b overlay.Broadcaster, topic string) *Builder {
	return &Builder{gateway: gw, broadcaster: b, topic: topic}
}

func (b *Builder) Topic() string { return b.topic }

// Build anchors an envelope: encodes the carrier script, funds and signs a
// transaction around it, broadcasts, and returns the Anchor.
//
// Encoding and funding failures happen before broadcast; a doomed
// transaction is never sent. Signing and broadcast failures surface
// unchanged with no retry.
func (b *Builder) Build(ctx context.Context, env carrier.Envelope, controller ed25519.PublicKey) (*Anchor, error) {
	script, err := carrier.EncodeEnvelope(env)
	if err != nil {
		return nil, err
	}

	tx, funded, err := b.fund(ctx, script, controller)
	if err != nil {
		return nil, err
	}

	for i, out := range funded {
		unlock, err := b.gateway.Custody().SignInput(ctx, ledger.SignRequest{
			Tx:     tx,
			Input:  i,
			Script: out.Script,
			Value:  out.Value,
			PubKey: out.PubKey,
		})
		if err != nil {
			return nil, ledger.Wrap(ledger.KindSigning, "input signing refused", err)
		}
		if len(unlock) == 0 {
			return nil, ledger.E(ledger.KindSigning, "custody boundary produced no unlocking script")
		}
		tx.Inputs[i].Unlock = unlock
	}

	txid, err := b.broadcaster.Broadcast(ctx, b.topic, tx)
	if err != nil {
		if ledger.IsKind(err, ledger.KindBroadcast) {
			return nil, err
		}
		return nil, ledger.Wrap(ledger.KindBroadcast, "ledger rejected transaction", err)
	}

	return &Anchor{
		TxID:      txid,
		Vout:      0,
		Serial:    env.Serial,
		RawTx:     tx.Serialize(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// fund selects inputs and lays out the transaction: carrier output at vout
// 0, change (when positive) at vout 1. The fee is recomputed at final size;
// if change would go negative the target is raised and selection retried.
func (b *Builder) fund(ctx context.Context, carrierScript []byte, controller ed25519.PublicKey) (*ledger.Tx, []ledger.SpendableOutput, error) {
	changeScript, err := b.gateway.ChangeScript(ctx, controller)
	if err != nil {
		return nil, nil, err
	}

	target := carrier.Value + 1
	for attempt := 0; attempt < maxFundingAttempts; attempt++ {
		selected, err := b.gateway.SelectUtxos(ctx, target, controller)
		if err != nil {
			return nil, nil, err
		}
		var total uint64
		for _, out := range selected {
			total += out.Value
		}

		// Fee at final size, change output included.
		withChange := composeTx(selected, carrierScript, changeScript, 0)
		fee := b.gateway.Fee(signedSize(withChange))
		if total >= carrier.Value+fee {
			change := total - carrier.Value - fee
			if change > 0 {
				return composeTx(selected, carrierScript, changeScript, change), selected, nil
			}
			return composeTx(selected, carrierScript, nil, 0), selected, nil
		}

		// Fee at final size without change, remainder overpays the fee.
		noChange := composeTx(selected, carrierScript, nil, 0)
		if total >= carrier.Value+b.gateway.Fee(signedSize(noChange)) {
			return noChange, selected, nil
		}

		target = carrier.Value + fee
	}
	return nil, nil, ledger.E(ledger.KindFunding, "funding target not met after reselection")
}

func composeTx(inputs []ledger.SpendableOutput, carrierScript, changeScript []byte, change uint64) *ledger.Tx {
	tx := &ledger.Tx{Version: ledger.TxVersion}
	for _, in := range inputs {
		tx.Inputs = append(tx.Inputs, ledger.TxIn{PrevOut: in.Outpoint})
	}
	tx.Outputs = append(tx.Outputs, ledger.TxOut{Value: carrier.Value, Script: carrierScript})
	if changeScript != nil {
		tx.Outputs = append(tx.Outputs, ledger.TxOut{Value: change, Script: changeScript})
	}
	return tx
}

// signedSize is the serialized size with every input carrying a
// single-signature unlocking script.
func signedSize(tx *ledger.Tx) int {
	dummy := make([]byte, ed25519.SignatureSize)
	unlock, _ := ledger.UnlockScript(dummy)
	clone := &ledger.Tx{Version: tx.Version, Outputs: tx.Outputs}
	for _, in := range tx.Inputs {
		clone.Inputs = append(clone.Inputs, ledger.TxIn{PrevOut: in.PrevOut, Unlock: unlock})
	}
	return clone.Size()
}
