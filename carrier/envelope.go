package carrier

import (
	"encoding/json"

	"github.com/opencura/anchor/ledger"
)

// Envelope kinds.
const (
	KindDID        = "did"
	KindMessage    = "msg"
	KindCredential = "vc"
)

// Envelope is the JSON structure carried inside every anchor.
//
// Serial is the stable identifier of the logical document across updates;
// the index keys its latest-pointer table on it. Tags are plaintext and
// queryable without touching Body; Body is opaque to the codec (for
// messages it is HPKE ciphertext).
type Envelope struct {
	Serial string            `json:"s"`
	Kind   string            `json:"k"`
	Tags   map[string]string `json:"t,omitempty"`
	Body   json.RawMessage   `json:"b,omitempty"`
}

// EncodeEnvelope marshals env compactly and frames it as a carrier script.
// The carrier ceiling applies to the marshaled envelope as a whole.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	if env.Serial == "" {
		return nil, ledger.E(ledger.KindEncoding, "envelope serial is required")
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, ledger.Wrap(ledger.KindEncoding, "envelope marshal failed", err)
	}
	return Encode(b)
}

// DecodeEnvelope decodes a carrier script and unmarshals its envelope.
func DecodeEnvelope(script []byte) (Envelope, error) {
	payload, err := Decode(script)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, ledger.Wrap(ledger.KindEncoding, "carrier payload is not an envelope", err)
	}
	if env.Serial == "" {
		return Envelope{}, ledger.E(ledger.KindEncoding, "envelope missing serial")
	}
	return env, nil
}
