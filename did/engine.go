package did

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/opencura/anchor/anchor"
	"github.com/opencura/anchor/carrier"
	"github.com/opencura/anchor/index"
	"github.com/opencura/anchor/ledger"
)

// Registry is the closed capability interface over the lifecycle. Engine is
// the ledger-backed variant; tests construct engines against the in-memory
// overlay explicitly rather than probing implementations at runtime.
type Registry interface {
	CreateDID(ctx context.Context, doc Document, controller ed25519.PublicKey) (string, error)
	UpdateDID(ctx context.Context, did string, changes Changes) (Document, error)
	ResolveDID(ctx context.Context, did string) (Document, error)
}

// Engine implements Registry over an anchor builder and an index.
type Engine struct {
	builder *anchor.Builder
	index   *index.Index
	method  string
}

func NewEngine(b *anchor.Builder, ix *index.Index, method string) *Engine {
	if method == "" {
		method = DefaultMethod
	}
	return &Engine{builder: b, index: ix, method: method}
}

var _ Registry = (*Engine)(nil)

// CreateDID mints a fresh serial number, anchors the document, and returns
// the DID composed from the anchoring coordinates.
//
// Deliberately not idempotent: calling it twice for the same document mints
// two independent identifiers.
func (e *Engine) CreateDID(ctx context.Context, doc Document, controller ed25519.PublicKey) (string, error) {
	serial, err := anchor.NewSerial()
	if err != nil {
		return "", ledger.Wrap(ledger.KindInternal, "serial minting failed", err)
	}
	a, err := e.anchorDocument(ctx, serial, doc, controller)
	if err != nil {
		return "", err
	}
	return FormatDID(e.method, e.builder.Topic(), a.Outpoint()), nil
}

// UpdateDID resolves the current document, merges changes and anchors the
// result under the same serial number. The DID string is unchanged; the
// latest pointer advances once the index observes the new anchor.
//
// When two updates race on one serial, the ledger admits at most one; the
// loser's Broadcast error surfaces unchanged and is never retried here.
func (e *Engine) UpdateDID(ctx context.Context, did string, changes Changes) (Document, error) {
	serial, current, err := e.currentDocument(did)
	if err != nil {
		return Document{}, err
	}
	merged := changes.apply(current)
	if _, err := e.anchorDocument(ctx, serial, merged, nil); err != nil {
		return Document{}, err
	}
	merged.ID = did
	return merged, nil
}

// ResolveDID returns the document at the serial's latest anchor.
func (e *Engine) ResolveDID(ctx context.Context, did string) (Document, error) {
	_ = ctx
	_, doc, err := e.currentDocument(did)
	if err != nil {
		return Document{}, err
	}
	doc.ID = did
	return doc, nil
}

// ResolveAt returns the document anchored at an explicit historical
// coordinate of the same logical identifier.
func (e *Engine) ResolveAt(ctx context.Context, did string, op ledger.Outpoint) (Document, error) {
	_ = ctx
	topic, serial, err := e.locate(did)
	if err != nil {
		return Document{}, err
	}
	rec, err := e.index.ByCoordinate(topic, op)
	if err != nil {
		return Document{}, err
	}
	if rec.Serial != serial {
		return Document{}, ledger.E(ledger.KindNotFound,
			fmt.Sprintf("coordinate %s does not belong to %s", op, did))
	}
	doc, err := documentFromRecord(rec)
	if err != nil {
		return Document{}, err
	}
	doc.ID = did
	return doc, nil
}

func (e *Engine) anchorDocument(ctx context.Context, serial string, doc Document, controller ed25519.PublicKey) (*anchor.Anchor, error) {
	body, err := doc.marshalAnchored()
	if err != nil {
		return nil, err
	}
	env := carrier.Envelope{Serial: serial, Kind: carrier.KindDID, Body: json.RawMessage(body)}
	return e.builder.Build(ctx, env, controller)
}

// locate maps a DID to its topic and serial number via the creation anchor.
func (e *Engine) locate(did string) (topic, serial string, err error) {
	method, topic, op, err := ParseDID(did)
	if err != nil {
		return "", "", err
	}
	if method != e.method {
		return "", "", ledger.E(ledger.KindNotFound, fmt.Sprintf("DID method %q not served here", method))
	}
	genesis, err := e.index.ByCoordinate(topic, op)
	if err != nil {
		return "", "", err
	}
	return topic, genesis.Serial, nil
}

func (e *Engine) currentDocument(did string) (serial string, doc Document, err error) {
	topic, serial, err := e.locate(did)
	if err != nil {
		return "", Document{}, err
	}
	rec, err := e.index.Latest(topic, serial)
	if err != nil {
		return "", Document{}, err
	}
	doc, err = documentFromRecord(rec)
	if err != nil {
		return "", Document{}, err
	}
	return serial, doc, nil
}

func documentFromRecord(rec index.Record) (Document, error) {
	env, err := rec.Envelope()
	if err != nil {
		return Document{}, err
	}
	if env.Kind != carrier.KindDID {
		return Document{}, ledger.E(ledger.KindNotFound, "anchor does not carry an identity document")
	}
	return unmarshalDocument(env.Body)
}
