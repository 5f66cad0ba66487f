// Package index maintains the serial-number -> latest-anchor mapping from a
// topic's admitted output stream, and answers point queries by serial or by
// explicit transaction coordinate.
//
// Consistency contract:
// - Exactly one latest-pointer entry exists per serial number.
// - Replaying an admitted output (same txid:vout, same bytes) is a no-op.
// - The same coordinate with different bytes is a Consistency error.
// - A stale anchor (lower admission sequence) never overwrites a newer one.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/opencura/anchor/carrier"
	"github.com/opencura/anchor/ledger"
	"github.com/opencura/anchor/overlay"
)

var (
	bucketLatest  = []byte("latest")
	bucketAnchors = []byte("anchors")
)

// Record is the persisted form of one observed anchor.
type Record struct {
	TxID      string            `json:"txid"`
	Vout      uint32            `json:"vout"`
	Serial    string            `json:"serial"`
	Kind      string            `json:"kind"`
	Tags      map[string]string `json:"tags,omitempty"`
	RawTx     []byte            `json:"rawTx"`
	Seq       uint64            `json:"seq"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Outpoint returns the record's ledger coordinate.
func (r Record) Outpoint() (ledger.Outpoint, error) {
	id, err := ledger.ParseTxID(r.TxID)
	if err != nil {
		return ledger.Outpoint{}, err
	}
	return ledger.Outpoint{TxID: id, Vout: r.Vout}, nil
}

// Envelope re-decodes the record's carrier envelope from its raw
// transaction bytes.
func (r Record) Envelope() (carrier.Envelope, error) {
	tx, err := ledger.DecodeTx(r.RawTx)
	if err != nil {
		return carrier.Envelope{}, err
	}
	if int(r.Vout) >= len(tx.Outputs) {
		return carrier.Envelope{}, ledger.E(ledger.KindConsistency,
			fmt.Sprintf("record vout %d outside transaction with %d outputs", r.Vout, len(tx.Outputs)))
	}
	return carrier.DecodeEnvelope(tx.Outputs[r.Vout].Script)
}

// Index is a bbolt-backed lookup service. One Index can serve several
// topics; each topic gets its own nested latest and anchor buckets.
type Index struct {
	db *bbolt.DB
}

// Open opens (or creates) the index database at path.
func Open(path string) (*Index, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketLatest); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketAnchors)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func (ix *Index) Close() error { return ix.db.Close() }

func topicBucket(tx *bbolt.Tx, root []byte, topic string, create bool) (*bbolt.Bucket, error) {
	b := tx.Bucket(root)
	if b == nil {
		return nil, ledger.E(ledger.KindInternal, "index root bucket missing")
	}
	if create {
		return b.CreateBucketIfNotExists([]byte(topic))
	}
	tb := b.Bucket([]byte(topic))
	if tb == nil {
		return nil, ledger.E(ledger.KindNotFound, fmt.Sprintf("topic %q not indexed", topic))
	}
	return tb, nil
}

// Apply folds one admitted output into the index. Non-carrier scripts and
// undecodable payloads under the topic are skipped, not fatal: the ledger
// admits what it admits, the index keeps only what it can read.
func (ix *Index) Apply(out overlay.AdmittedOutput) error {
	if !carrier.IsCarrier(out.Script) {
		return nil
	}
	env, err := carrier.DecodeEnvelope(out.Script)
	if err != nil {
		return nil
	}

	rec := Record{
		TxID:      out.Outpoint.TxID.String(),
		Vout:      out.Outpoint.Vout,
		Serial:    env.Serial,
		Kind:      env.Kind,
		Tags:      env.Tags,
		RawTx:     out.RawTx,
		Seq:       out.Seq,
		CreatedAt: out.Time,
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return ledger.Wrap(ledger.KindInternal, "record marshal failed", err)
	}
	coord := []byte(out.Outpoint.String())

	return ix.db.Update(func(tx *bbolt.Tx) error {
		anchors, err := topicBucket(tx, bucketAnchors, out.Topic, true)
		if err != nil {
			return err
		}
		if existing := anchors.Get(coord); existing != nil {
			var prev Record
			if err := json.Unmarshal(existing, &prev); err != nil {
				return ledger.Wrap(ledger.KindInternal, "stored record unreadable", err)
			}
			if !carrier.Equal(prev.RawTx, out.RawTx) {
				return ledger.E(ledger.KindConsistency,
					fmt.Sprintf("coordinate %s observed with conflicting transaction bytes", out.Outpoint))
			}
			// Replay of a known output: idempotent no-op.
			return nil
		}
		if err := anchors.Put(coord, encoded); err != nil {
			return err
		}

		latest, err := topicBucket(tx, bucketLatest, out.Topic, true)
		if err != nil {
			return err
		}
		if cur := latest.Get([]byte(env.Serial)); cur != nil {
			var prev Record
			if err := json.Unmarshal(cur, &prev); err != nil {
				return ledger.Wrap(ledger.KindInternal, "stored record unreadable", err)
			}
			// Admission order is the tie-break: stale anchors never win.
			if out.Seq < prev.Seq {
				return nil
			}
		}
		return latest.Put([]byte(env.Serial), encoded)
	})
}

// Run consumes admitted outputs until ctx ends or the channel closes.
// Consistency errors stop consumption and surface to the caller.
func (ix *Index) Run(ctx context.Context, ch <-chan overlay.AdmittedOutput) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out, ok := <-ch:
			if !ok {
				return nil
			}
			if err := ix.Apply(out); err != nil {
				return err
			}
		}
	}
}

// Latest returns the current latest-pointer record for a serial number.
func (ix *Index) Latest(topic, serial string) (Record, error) {
	var rec Record
	err := ix.db.View(func(tx *bbolt.Tx) error {
		latest, err := topicBucket(tx, bucketLatest, topic, false)
		if err != nil {
			return err
		}
		v := latest.Get([]byte(serial))
		if v == nil {
			return ledger.E(ledger.KindNotFound, fmt.Sprintf("serial %s not indexed under topic %q", serial, topic))
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

// ByCoordinate returns the record anchored at an explicit transaction
// coordinate, whether or not it is the latest for its serial.
func (ix *Index) ByCoordinate(topic string, op ledger.Outpoint) (Record, error) {
	var rec Record
	err := ix.db.View(func(tx *bbolt.Tx) error {
		anchors, err := topicBucket(tx, bucketAnchors, topic, false)
		if err != nil {
			return err
		}
		v := anchors.Get([]byte(op.String()))
		if v == nil {
			return ledger.E(ledger.KindNotFound, fmt.Sprintf("coordinate %s not indexed under topic %q", op, topic))
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

// ListLatest returns every latest-pointer record under a topic, in key
// order. The message store filters this on plaintext tags.
func (ix *Index) ListLatest(topic string) ([]Record, error) {
	var recs []Record
	err := ix.db.View(func(tx *bbolt.Tx) error {
		latest, err := topicBucket(tx, bucketLatest, topic, false)
		if err != nil {
			if ledger.IsNotFound(err) {
				return nil
			}
			return err
		}
		return latest.ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	return recs, err
}
