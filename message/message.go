// Package message persists application messages as carrier outputs: the
// same codec, builder and index as identity documents, with plaintext
// routing tags and an HPKE-sealed body.
//
// Identity of a message is its id (the envelope serial), not any anchor
// coordinate: marking a message read anchors a superseding copy, and
// consumers always take the most recently anchored copy with that id.
//
// The carrier ceiling applies to the whole envelope, so bodies are short by
// construction; oversized messages fail with an Encoding error before any
// funding or network interaction.
package message

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pborman/uuid"

	"github.com/opencura/anchor/anchor"
	"github.com/opencura/anchor/carrier"
	"github.com/opencura/anchor/custody"
	"github.com/opencura/anchor/did"
	"github.com/opencura/anchor/index"
	"github.com/opencura/anchor/ledger"
)

// Tag keys. Participant tags carry the short id form (see ShortID) so two
// DIDs fit the carrier budget; full DIDs stay with the caller.
const (
	tagFrom   = "f"
	tagTo     = "o"
	tagType   = "y"
	tagThread = "h"
	tagRead   = "r"
)

// Message is the queryable view of one anchored message. Sealed holds the
// HPKE ciphertext; Open decrypts it through the custody boundary.
type Message struct {
	ID     string
	Thread string
	From   string // short id
	To     string // short id
	Type   string
	SentAt time.Time
	Read   bool
	Sealed []byte
}

// Filter selects messages by plaintext tags only; no decryption happens
// during listing. DID-valued fields are normalized with ShortID.
type Filter struct {
	From       string
	To         string
	Thread     string
	Type       string
	UnreadOnly bool
}

// ShortID maps a DID to the 16-hex-character tag form derived from its
// creation transaction id. Non-DID inputs pass through unchanged.
func ShortID(s string) string {
	_, _, op, err := did.ParseDID(s)
	if err != nil {
		return s
	}
	return op.TxID.String()[:16]
}

// NewThread returns a fresh thread identifier, short enough for a tag.
func NewThread() string {
	return uuid.New()[:18]
}

type Store struct {
	builder  *anchor.Builder
	index    *index.Index
	registry did.Registry
	custody  custody.Custody
}

func NewStore(b *anchor.Builder, ix *index.Index, reg did.Registry, c custody.Custody) *Store {
	return &Store{builder: b, index: ix, registry: reg, custody: c}
}

// Send seals body to the recipient's key agreement key (resolved from its
// DID document) and anchors the message. Returns the stored view.
func (s *Store) Send(ctx context.Context, from, to, typ, thread string, body []byte) (Message, error) {
	doc, err := s.registry.ResolveDID(ctx, to)
	if err != nil {
		return Message{}, err
	}
	if len(doc.KeyAgreement) == 0 {
		return Message{}, ledger.E(ledger.KindNotFound,
			fmt.Sprintf("document for %s carries no key agreement key", to))
	}
	encKey, err := base64.StdEncoding.DecodeString(doc.KeyAgreement[0])
	if err != nil {
		return Message{}, ledger.Wrap(ledger.KindEncoding, "recipient key agreement key unreadable", err)
	}
	sealed, err := custody.Seal(encKey, body)
	if err != nil {
		return Message{}, err
	}

	id := uuid.New()
	env := carrier.Envelope{
		Serial: id,
		Kind:   carrier.KindMessage,
		Tags: map[string]string{
			tagFrom:   ShortID(from),
			tagTo:     ShortID(to),
			tagType:   typ,
			tagThread: thread,
		},
	}
	if err := setBody(&env, sealed); err != nil {
		return Message{}, err
	}
	a, err := s.builder.Build(ctx, env, nil)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:     id,
		Thread: thread,
		From:   ShortID(from),
		To:     ShortID(to),
		Type:   typ,
		SentAt: a.CreatedAt,
		Sealed: sealed,
	}, nil
}

// Get returns the most recently anchored copy of a message.
func (s *Store) Get(ctx context.Context, id string) (Message, error) {
	_ = ctx
	rec, err := s.index.Latest(s.builder.Topic(), id)
	if err != nil {
		return Message{}, err
	}
	return fromRecord(rec)
}

// List returns the latest copy of every message matching the filter,
// inspecting plaintext tags only.
func (s *Store) List(ctx context.Context, f Filter) ([]Message, error) {
	_ = ctx
	recs, err := s.index.ListLatest(s.builder.Topic())
	if err != nil {
		return nil, err
	}
	var out []Message
	for _, rec := range recs {
		if rec.Kind != carrier.KindMessage {
			continue
		}
		m, err := fromRecord(rec)
		if err != nil {
			continue
		}
		if f.From != "" && m.From != ShortID(f.From) {
			continue
		}
		if f.To != "" && m.To != ShortID(f.To) {
			continue
		}
		if f.Thread != "" && m.Thread != f.Thread {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if f.UnreadOnly && m.Read {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Open decrypts a message's sealed body for its recipient through the
// custody boundary.
func (s *Store) Open(ctx context.Context, m Message, recipient ed25519.PublicKey) ([]byte, error) {
	return s.custody.SealOpen(ctx, recipient, m.Sealed)
}

// MarkRead anchors a superseding copy of the message with the read flag
// set. No in-place mutation exists on an immutable ledger; the latest
// pointer advancing is what "marks" it.
func (s *Store) MarkRead(ctx context.Context, id string) (Message, error) {
	rec, err := s.index.Latest(s.builder.Topic(), id)
	if err != nil {
		return Message{}, err
	}
	env, err := rec.Envelope()
	if err != nil {
		return Message{}, err
	}
	if env.Kind != carrier.KindMessage {
		return Message{}, ledger.E(ledger.KindNotFound, fmt.Sprintf("%s is not a message", id))
	}
	if env.Tags == nil {
		env.Tags = make(map[string]string)
	}
	if env.Tags[tagRead] == "1" {
		return fromRecord(rec)
	}
	env.Tags[tagRead] = "1"
	if _, err := s.builder.Build(ctx, env, nil); err != nil {
		return Message{}, err
	}
	m, err := fromRecord(rec)
	if err != nil {
		return Message{}, err
	}
	m.Read = true
	return m, nil
}

func setBody(env *carrier.Envelope, sealed []byte) error {
	b, err := json.Marshal(base64.StdEncoding.EncodeToString(sealed))
	if err != nil {
		return ledger.Wrap(ledger.KindEncoding, "sealed body marshal failed", err)
	}
	env.Body = json.RawMessage(b)
	return nil
}

func fromRecord(rec index.Record) (Message, error) {
	env, err := rec.Envelope()
	if err != nil {
		return Message{}, err
	}
	if env.Kind != carrier.KindMessage {
		return Message{}, ledger.E(ledger.KindNotFound, fmt.Sprintf("%s is not a message", rec.Serial))
	}
	var bodyB64 string
	if len(env.Body) > 0 {
		if err := json.Unmarshal(env.Body, &bodyB64); err != nil {
			return Message{}, ledger.Wrap(ledger.KindEncoding, "message body unreadable", err)
		}
	}
	sealed, err := base64.StdEncoding.DecodeString(bodyB64)
	if err != nil {
		return Message{}, ledger.Wrap(ledger.KindEncoding, "message body unreadable", err)
	}
	return Message{
		ID:     rec.Serial,
		Thread: env.Tags[tagThread],
		From:   env.Tags[tagFrom],
		To:     env.Tags[tagTo],
		Type:   env.Tags[tagType],
		SentAt: rec.CreatedAt,
		Read:   env.Tags[tagRead] == "1",
		Sealed: sealed,
	}, nil
}
