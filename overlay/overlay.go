// Package overlay provides the ledger side of the protocol: the Broadcaster
// capability the anchor builder hands finished transactions to, and Chain, a
// validating in-process ledger used by the demo node and the test suite.
//
// Contract for any Broadcaster implementation:
// - Broadcast MUST reject transactions spending unknown or spent outputs.
// - Admission order MUST be total per topic; subscribers see admitted
//   carrier outputs in that order.
// - A transaction, once admitted, is immutable.
package overlay

import (
	"context"
	"time"

	"github.com/opencura/anchor/ledger"
)

// Broadcaster accepts a fully signed transaction tagged with a topic and
// reports acceptance or rejection. Black box from the protocol's point of
// view: success plus the final transaction id, or a Broadcast error.
type Broadcaster interface {
	Broadcast(ctx context.Context, topic string, tx *ledger.Tx) (ledger.TxID, error)
}

// AdmittedOutput is one ledger output admitted under a topic, as delivered
// to index consumers. Seq is the chain-assigned admission sequence; replays
// of the same output carry the same Seq.
type AdmittedOutput struct {
	Topic    string
	Seq      uint64
	Outpoint ledger.Outpoint
	Value    uint64
	Script   []byte
	RawTx    []byte
	Time     time.Time
}
