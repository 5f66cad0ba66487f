// Package gateway turns a funding target into signed-ready inputs: it
// selects spendable outputs through the custody boundary, resolves the key
// controlling each, and prices fees. It never sees private key material.
package gateway

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/opencura/anchor/custody"
	"github.com/opencura/anchor/ledger"
)

// DefaultFeePerKB is the fee rate applied when a Gateway is built without
// an explicit rate.
const DefaultFeePerKB uint64 = 500

type Gateway struct {
	custody  custody.Custody
	feePerKB uint64
}

func New(c custody.Custody, feePerKB uint64) *Gateway {
	if feePerKB == 0 {
		feePerKB = DefaultFeePerKB
	}
	return &Gateway{custody: c, feePerKB: feePerKB}
}

// Fee prices a transaction of the given serialized size: feePerKB per 1000
// bytes, rounded up, never below one unit.
func (g *Gateway) Fee(sizeBytes int) uint64 {
	if sizeBytes <= 0 {
		return 1
	}
	fee := (uint64(sizeBytes)*g.feePerKB + 999) / 1000
	if fee == 0 {
		fee = 1
	}
	return fee
}

// SelectUtxos accumulates spendable outputs until their total meets
// required. Only single-signature outputs whose controlling key the
// boundary can resolve are eligible; when desired is non-nil, only outputs
// controlled by that key count.
//
// Fails with a Funding error when the candidates are exhausted before the
// amount is met, or when required is positive and no output resolves to a
// known key.
func (g *Gateway) SelectUtxos(ctx context.Context, required uint64, desired ed25519.PublicKey) ([]ledger.SpendableOutput, error) {
	candidates, err := g.custody.ListSpendable(ctx, required, desired)
	if err != nil {
		return nil, err
	}

	var selected []ledger.SpendableOutput
	var total uint64
	resolved := 0
	for _, out := range candidates {
		if !ledger.IsPayToPubKey(out.Script) {
			continue
		}
		key, err := g.custody.ResolveKey(ctx, out)
		if err != nil {
			// Output not controlled by the boundary; not a candidate.
			continue
		}
		resolved++
		if desired != nil && !key.Equal(desired) {
			continue
		}
		out.PubKey = key
		selected = append(selected, out)
		total += out.Value
		if total >= required {
			return selected, nil
		}
	}

	if required == 0 {
		return selected, nil
	}
	if resolved == 0 {
		return nil, ledger.E(ledger.KindFunding, "no spendable output resolves to a known key")
	}
	return nil, ledger.E(ledger.KindFunding,
		fmt.Sprintf("spendable outputs total %d, %d required", total, required))
}

// ChangeScript requests a locking script for returning leftover value. When
// key is non-nil the change is payable to it, otherwise the boundary's
// default applies.
func (g *Gateway) ChangeScript(ctx context.Context, key ed25519.PublicKey) ([]byte, error) {
	script, err := g.custody.ReceivingScript(ctx, key)
	if err != nil {
		return nil, ledger.Wrap(ledger.KindFunding, "change script request failed", err)
	}
	return script, nil
}

// Custody exposes the boundary for components composed on top of the
// gateway (the anchor builder routes sign requests through it directly).
func (g *Gateway) Custody() custody.Custody { return g.custody }
