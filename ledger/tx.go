// Package ledger defines the transaction model shared by every component:
// outpoints, spendable outputs, the exact binary transaction framing, the
// single-signature script shape, and the protocol's error taxonomy.
package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TxVersion is the only transaction version this protocol emits.
const TxVersion uint32 = 1

// TxID is the double-SHA256 of a transaction's serialized bytes.
type TxID [32]byte

func (id TxID) String() string { return hex.EncodeToString(id[:]) }

// ParseTxID parses a 64-character hex transaction id.
func ParseTxID(s string) (TxID, error) {
	var id TxID
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(id) {
		return TxID{}, E(KindEncoding, fmt.Sprintf("invalid transaction id %q", s))
	}
	copy(id[:], b)
	return id, nil
}

// Outpoint identifies one output of one transaction.
type Outpoint struct {
	TxID TxID
	Vout uint32
}

func (o Outpoint) String() string { return fmt.Sprintf("%s:%d", o.TxID, o.Vout) }

// ParseOutpoint parses the "txid:vout" form produced by String.
func ParseOutpoint(s string) (Outpoint, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return Outpoint{}, E(KindEncoding, fmt.Sprintf("invalid outpoint %q", s))
	}
	id, err := ParseTxID(s[:i])
	if err != nil {
		return Outpoint{}, err
	}
	vout, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil {
		return Outpoint{}, E(KindEncoding, fmt.Sprintf("invalid outpoint %q", s))
	}
	return Outpoint{TxID: id, Vout: uint32(vout)}, nil
}

// TxIn spends a previous output. Unlock is empty until signed.
type TxIn struct {
	PrevOut Outpoint
	Unlock  []byte
}

// TxOut carries a value locked by a script.
type TxOut struct {
	Value  uint64
	Script []byte
}

type Tx struct {
	Version uint32
	Inputs  []TxIn
	Outputs []TxOut
}

// Serialize renders the exact wire framing: u32-LE version, compact-size
// input count, inputs (raw 32-byte txid, u32-LE vout, compact-size script),
// compact-size output count, outputs (u64-LE value, compact-size script).
func (tx *Tx) Serialize() []byte {
	var buf bytes.Buffer
	writeU32(&buf, tx.Version)
	writeCompactSize(&buf, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf.Write(in.PrevOut.TxID[:])
		writeU32(&buf, in.PrevOut.Vout)
		writeCompactSize(&buf, uint64(len(in.Unlock)))
		buf.Write(in.Unlock)
	}
	writeCompactSize(&buf, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		writeU64(&buf, out.Value)
		writeCompactSize(&buf, uint64(len(out.Script)))
		buf.Write(out.Script)
	}
	return buf.Bytes()
}

// ID returns the double-SHA256 of the serialized transaction.
func (tx *Tx) ID() TxID {
	first := sha256.Sum256(tx.Serialize())
	return TxID(sha256.Sum256(first[:]))
}

// Size returns the serialized length in bytes.
func (tx *Tx) Size() int { return len(tx.Serialize()) }

// DecodeTx parses a serialized transaction. Truncated input and trailing
// bytes are both rejected.
func DecodeTx(b []byte) (*Tx, error) {
	r := bytes.NewReader(b)
	tx := &Tx{}
	var err error
	if tx.Version, err = readU32(r); err != nil {
		return nil, Wrap(KindEncoding, "transaction truncated in version", err)
	}
	nin, err := readCompactSize(r)
	if err != nil {
		return nil, Wrap(KindEncoding, "transaction truncated in input count", err)
	}
	for i := uint64(0); i < nin; i++ {
		var in TxIn
		if _, err := io.ReadFull(r, in.PrevOut.TxID[:]); err != nil {
			return nil, Wrap(KindEncoding, "transaction truncated in input outpoint", err)
		}
		if in.PrevOut.Vout, err = readU32(r); err != nil {
			return nil, Wrap(KindEncoding, "transaction truncated in input vout", err)
		}
		if in.Unlock, err = readScript(r); err != nil {
			return nil, Wrap(KindEncoding, "transaction truncated in unlocking script", err)
		}
		tx.Inputs = append(tx.Inputs, in)
	}
	nout, err := readCompactSize(r)
	if err != nil {
		return nil, Wrap(KindEncoding, "transaction truncated in output count", err)
	}
	for i := uint64(0); i < nout; i++ {
		var out TxOut
		if out.Value, err = readU64(r); err != nil {
			return nil, Wrap(KindEncoding, "transaction truncated in output value", err)
		}
		if out.Script, err = readScript(r); err != nil {
			return nil, Wrap(KindEncoding, "transaction truncated in locking script", err)
		}
		tx.Outputs = append(tx.Outputs, out)
	}
	if r.Len() != 0 {
		return nil, E(KindEncoding, fmt.Sprintf("%d trailing bytes after transaction", r.Len()))
	}
	return tx, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// writeCompactSize writes the Bitcoin-style variable-length integer:
// one byte below 0xfd, 0xfd + u16-LE, 0xfe + u32-LE, 0xff + u64-LE.
func writeCompactSize(buf *bytes.Buffer, v uint64) {
	switch {
	case v < 0xfd:
		buf.WriteByte(byte(v))
	case v <= 0xffff:
		buf.WriteByte(0xfd)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		buf.Write(b[:])
	case v <= 0xffffffff:
		buf.WriteByte(0xfe)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		buf.Write(b[:])
	default:
		buf.WriteByte(0xff)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])
	}
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readCompactSize(r *bytes.Reader) (uint64, error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch first {
	case 0xfd:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(b[:])), nil
	case 0xfe:
		v, err := readU32(r)
		return uint64(v), err
	case 0xff:
		return readU64(r)
	default:
		return uint64(first), nil
	}
}

func readScript(r *bytes.Reader) ([]byte, error) {
	n, err := readCompactSize(r)
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Len()) {
		return nil, fmt.Errorf("declared length %d exceeds remaining %d bytes", n, r.Len())
	}
	s := make([]byte, n)
	if _, err := io.ReadFull(r, s); err != nil {
		return nil, err
	}
	return s, nil
}
