// Package did implements the identifier lifecycle: create, update and
// resolve over the anchor builder and the index.
//
// A serial number has two states: Unregistered and Active. There is no
// deleted state; an Active serial simply advances through successive
// anchors. Resolution always targets the most recently admitted anchor.
//
// Caller-visible consistency window: an anchor exists on the ledger from
// the moment Broadcast returns, but resolution reflects it only once the
// index has observed the admission. Between the two, ResolveDID returns the
// prior state.
package did

import (
	"fmt"
	"strings"

	"github.com/opencura/anchor/ledger"
)

// DefaultMethod is the DID method name used by the demo deployment.
const DefaultMethod = "cura"

// FormatDID renders did:<method>:<topic>:<txid>:<vout>. The tuple after the
// topic is an opaque coordinate, not a versioning scheme: it names the
// creation anchor and never changes across updates.
func FormatDID(method, topic string, op ledger.Outpoint) string {
	return fmt.Sprintf("did:%s:%s:%s:%d", method, topic, op.TxID, op.Vout)
}

// ParseDID splits a DID into method, topic and creation coordinate.
func ParseDID(s string) (method, topic string, op ledger.Outpoint, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 || parts[0] != "did" || parts[1] == "" || parts[2] == "" {
		return "", "", ledger.Outpoint{}, ledger.E(ledger.KindEncoding, fmt.Sprintf("malformed DID %q", s))
	}
	op, err = ledger.ParseOutpoint(parts[3] + ":" + parts[4])
	if err != nil {
		return "", "", ledger.Outpoint{}, ledger.Wrap(ledger.KindEncoding, fmt.Sprintf("malformed DID coordinate in %q", s), err)
	}
	return parts[1], parts[2], op, nil
}
