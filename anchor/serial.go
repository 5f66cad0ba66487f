package anchor

import (
	"crypto/rand"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// NewSerial mints a fresh serial number: a CIDv1 (raw multicodec, sha2-256
// multihash) over 32 random bytes. Opaque, collision-resistant, stable for
// the lifetime of the logical document.
func NewSerial() (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return Commitment(nonce)
}

// Commitment returns the CIDv1 (raw + sha2-256) of data. Used for serial
// minting and for credential content commitments.
func Commitment(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}
