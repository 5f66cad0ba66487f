// Package credential anchors verifiable-credential commitments: the same
// codec and index machinery as identity documents, on a separate topic, so
// credential records never mingle with DID latest pointers.
//
// The credential bytes themselves stay off-ledger with their holder; only
// the content commitment (CIDv1, raw + sha2-256) is anchored.
package credential

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"time"

	"github.com/pborman/uuid"

	"github.com/opencura/anchor/anchor"
	"github.com/opencura/anchor/carrier"
	"github.com/opencura/anchor/index"
	"github.com/opencura/anchor/ledger"
	"github.com/opencura/anchor/message"
)

// Record is one anchored credential commitment.
type Record struct {
	CredentialID string    `json:"-"`
	Subject      string    `json:"sb"` // short id of the subject DID
	Issuer       string    `json:"is"` // short id of the issuer DID
	Commitment   string    `json:"cm"`
	IssuedAt     time.Time `json:"-"`
}

type Store struct {
	builder *anchor.Builder
	index   *index.Index
}

func NewStore(b *anchor.Builder, ix *index.Index) *Store {
	return &Store{builder: b, index: ix}
}

// Anchor commits credential bytes on behalf of issuer about subject and
// returns the stored record. The credential id doubles as the envelope
// serial, so a re-issued credential supersedes its previous anchor.
func (s *Store) Anchor(ctx context.Context, credential []byte, subject, issuer string, controller ed25519.PublicKey) (Record, error) {
	commitment, err := anchor.Commitment(credential)
	if err != nil {
		return Record{}, ledger.Wrap(ledger.KindInternal, "credential commitment failed", err)
	}
	rec := Record{
		CredentialID: uuid.New(),
		Subject:      message.ShortID(subject),
		Issuer:       message.ShortID(issuer),
		Commitment:   commitment,
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return Record{}, ledger.Wrap(ledger.KindEncoding, "credential record marshal failed", err)
	}
	env := carrier.Envelope{
		Serial: rec.CredentialID,
		Kind:   carrier.KindCredential,
		Body:   json.RawMessage(body),
	}
	a, err := s.builder.Build(ctx, env, controller)
	if err != nil {
		return Record{}, err
	}
	rec.IssuedAt = a.CreatedAt
	return rec, nil
}

// Get returns the latest anchored record for a credential id.
func (s *Store) Get(ctx context.Context, credentialID string) (Record, error) {
	_ = ctx
	idxRec, err := s.index.Latest(s.builder.Topic(), credentialID)
	if err != nil {
		return Record{}, err
	}
	env, err := idxRec.Envelope()
	if err != nil {
		return Record{}, err
	}
	if env.Kind != carrier.KindCredential {
		return Record{}, ledger.E(ledger.KindNotFound, "anchor does not carry a credential record")
	}
	var rec Record
	if err := json.Unmarshal(env.Body, &rec); err != nil {
		return Record{}, ledger.Wrap(ledger.KindEncoding, "credential record unreadable", err)
	}
	rec.CredentialID = idxRec.Serial
	rec.IssuedAt = idxRec.CreatedAt
	return rec, nil
}

// Verify reports whether credential bytes match the anchored commitment.
func (s *Store) Verify(ctx context.Context, credentialID string, credential []byte) (bool, error) {
	rec, err := s.Get(ctx, credentialID)
	if err != nil {
		return false, err
	}
	commitment, err := anchor.Commitment(credential)
	if err != nil {
		return false, err
	}
	return commitment == rec.Commitment, nil
}
