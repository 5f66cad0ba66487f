package overlay

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opencura/anchor/carrier"
	"github.com/opencura/anchor/ledger"
)

type utxoEntry struct {
	value  uint64
	script []byte
}

// Chain is a single-process validating ledger partitioned by topic.
//
// Admission validates input existence, signatures and value balance under
// one lock, so exactly one of two conflicting transactions can ever be
// admitted; the loser gets a Broadcast error. That property is what the
// lifecycle engine's concurrent-update semantics lean on.
type Chain struct {
	mu      sync.Mutex
	utxos   map[ledger.Outpoint]utxoEntry
	txs     map[ledger.TxID][]byte
	nextSeq uint64
	subs    map[string][]chan AdmittedOutput
	// admitted carrier outputs per topic, kept for replay to late subscribers
	history map[string][]AdmittedOutput
}

func NewChain() *Chain {
	return &Chain{
		utxos:   make(map[ledger.Outpoint]utxoEntry),
		txs:     make(map[ledger.TxID][]byte),
		subs:    make(map[string][]chan AdmittedOutput),
		history: make(map[string][]AdmittedOutput),
	}
}

// Mint seeds a genesis output of the given value locked by script and
// returns its outpoint. Demo and test bootstrap only; minted outputs do not
// belong to any topic.
func (c *Chain) Mint(value uint64, script []byte) ledger.Outpoint {
	tx := &ledger.Tx{
		Version: ledger.TxVersion,
		Outputs: []ledger.TxOut{{Value: value, Script: script}},
	}
	id := tx.ID()
	op := ledger.Outpoint{TxID: id, Vout: 0}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs[id] = tx.Serialize()
	c.utxos[op] = utxoEntry{value: value, script: append([]byte(nil), script...)}
	return op
}

// Broadcast validates and admits tx under topic. On success every carrier
// output of the transaction is published to the topic's subscribers in
// admission order.
func (c *Chain) Broadcast(ctx context.Context, topic string, tx *ledger.Tx) (ledger.TxID, error) {
	if err := ctx.Err(); err != nil {
		return ledger.TxID{}, ledger.Wrap(ledger.KindBroadcast, "broadcast canceled", err)
	}
	if tx == nil || len(tx.Inputs) == 0 || len(tx.Outputs) == 0 {
		return ledger.TxID{}, ledger.E(ledger.KindBroadcast, "transaction must have inputs and outputs")
	}
	id := tx.ID()
	admitted, subs, err := c.admit(topic, tx, id)
	if err != nil {
		return ledger.TxID{}, err
	}
	// Deliver outside the lock. Subscribers tolerate interleaved delivery
	// across concurrent broadcasts by tie-breaking on Seq.
	for _, out := range admitted {
		for _, ch := range subs {
			ch <- out
		}
	}
	return id, nil
}

func (c *Chain) admit(topic string, tx *ledger.Tx, id ledger.TxID) ([]AdmittedOutput, []chan AdmittedOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.txs[id]; ok {
		return nil, nil, ledger.E(ledger.KindBroadcast, fmt.Sprintf("transaction %s already admitted", id))
	}

	var totalIn uint64
	seen := make(map[ledger.Outpoint]bool, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if seen[in.PrevOut] {
			return nil, nil, ledger.E(ledger.KindBroadcast, fmt.Sprintf("input %d duplicates outpoint %s", i, in.PrevOut))
		}
		seen[in.PrevOut] = true
		entry, ok := c.utxos[in.PrevOut]
		if !ok {
			return nil, nil, ledger.E(ledger.KindBroadcast, fmt.Sprintf("input %d spends unknown or spent output %s", i, in.PrevOut))
		}
		if err := ledger.VerifyInput(tx, i, entry.script, entry.value); err != nil {
			return nil, nil, err
		}
		totalIn += entry.value
	}
	var totalOut uint64
	for _, out := range tx.Outputs {
		totalOut += out.Value
	}
	if totalOut > totalIn {
		return nil, nil, ledger.E(ledger.KindBroadcast, fmt.Sprintf("outputs %d exceed inputs %d", totalOut, totalIn))
	}

	raw := tx.Serialize()
	c.txs[id] = raw
	for _, in := range tx.Inputs {
		delete(c.utxos, in.PrevOut)
	}
	now := time.Now().UTC()
	var admitted []AdmittedOutput
	for vout, out := range tx.Outputs {
		op := ledger.Outpoint{TxID: id, Vout: uint32(vout)}
		c.utxos[op] = utxoEntry{value: out.Value, script: append([]byte(nil), out.Script...)}
		if !carrier.IsCarrier(out.Script) {
			continue
		}
		c.nextSeq++
		rec := AdmittedOutput{
			Topic:    topic,
			Seq:      c.nextSeq,
			Outpoint: op,
			Value:    out.Value,
			Script:   append([]byte(nil), out.Script...),
			RawTx:    raw,
			Time:     now,
		}
		c.history[topic] = append(c.history[topic], rec)
		admitted = append(admitted, rec)
	}
	subs := append([]chan AdmittedOutput(nil), c.subs[topic]...)
	return admitted, subs, nil
}

// Subscribe returns a channel delivering the topic's admitted carrier
// outputs, starting with the full history so a late index can catch up.
// The channel is buffered; the caller owns draining it.
func (c *Chain) Subscribe(topic string, buffer int) <-chan AdmittedOutput {
	if buffer < 64 {
		buffer = 64
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan AdmittedOutput, buffer+len(c.history[topic]))
	for _, admitted := range c.history[topic] {
		ch <- admitted
	}
	c.subs[topic] = append(c.subs[topic], ch)
	return ch
}

// Unspent returns the unspent outputs locked by any of the given scripts.
// Satisfies custody.UnspentSource.
func (c *Chain) Unspent(ctx context.Context, scripts [][]byte) ([]ledger.SpendableOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var outs []ledger.SpendableOutput
	for op, entry := range c.utxos {
		for _, s := range scripts {
			if bytes.Equal(entry.script, s) {
				outs = append(outs, ledger.SpendableOutput{
					Outpoint: op,
					Value:    entry.value,
					Script:   append([]byte(nil), entry.script...),
				})
				break
			}
		}
	}
	return outs, nil
}

// Tx returns the raw bytes of an admitted transaction.
func (c *Chain) Tx(id ledger.TxID) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.txs[id]
	if !ok {
		return nil, ledger.E(ledger.KindNotFound, fmt.Sprintf("transaction %s not admitted", id))
	}
	return append([]byte(nil), raw...), nil
}
