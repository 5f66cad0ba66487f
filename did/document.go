package did

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"

	"github.com/opencura/anchor/ledger"
)

// Document is the identity document anchored on the ledger. JSON field
// names are kept short deliberately: the anchored form must fit the
// carrier's 255-byte ceiling together with its envelope.
//
// ID is never anchored; it is stamped onto the document at resolution time
// from the DID the caller asked for.
type Document struct {
	ID                 string               `json:"id,omitempty"`
	Controller         string               `json:"c,omitempty"`
	VerificationMethod []VerificationMethod `json:"vm,omitempty"`
	Authentication     []string             `json:"au,omitempty"`
	KeyAgreement       []string             `json:"ka,omitempty"`
	Service            []Service            `json:"sv,omitempty"`
}

type VerificationMethod struct {
	ID              string `json:"i"`
	Type            string `json:"t,omitempty"`
	PublicKeyBase64 string `json:"k"`
}

type Service struct {
	ID       string `json:"i"`
	Type     string `json:"t,omitempty"`
	Endpoint string `json:"e"`
}

// NewDocument builds the default document for a controller key: one
// Ed25519 verification method referenced for authentication, plus the
// controller's X25519 key agreement key when given.
func NewDocument(controller ed25519.PublicKey, encryptionKey []byte) Document {
	doc := Document{
		VerificationMethod: []VerificationMethod{{
			ID:              "#k1",
			PublicKeyBase64: base64.StdEncoding.EncodeToString(controller),
		}},
		Authentication: []string{"#k1"},
	}
	if len(encryptionKey) > 0 {
		doc.KeyAgreement = []string{base64.StdEncoding.EncodeToString(encryptionKey)}
	}
	return doc
}

// marshalAnchored renders the document without its ID for anchoring.
func (d Document) marshalAnchored() ([]byte, error) {
	d.ID = ""
	b, err := json.Marshal(d)
	if err != nil {
		return nil, ledger.Wrap(ledger.KindEncoding, "document marshal failed", err)
	}
	return b, nil
}

func unmarshalDocument(b []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return Document{}, ledger.Wrap(ledger.KindEncoding, "anchored document unreadable", err)
	}
	return d, nil
}

// Changes describes an update: scalar fields are last-write-wins, list
// fields are additive (duplicates by ID are dropped).
type Changes struct {
	Controller             *string
	AddVerificationMethods []VerificationMethod
	AddAuthentication      []string
	AddKeyAgreement        []string
	AddServices            []Service
}

// apply merges ch into doc and returns the merged document.
func (ch Changes) apply(doc Document) Document {
	if ch.Controller != nil {
		doc.Controller = *ch.Controller
	}
	for _, vm := range ch.AddVerificationMethods {
		if !hasVerificationMethod(doc.VerificationMethod, vm.ID) {
			doc.VerificationMethod = append(doc.VerificationMethod, vm)
		}
	}
	for _, ref := range ch.AddAuthentication {
		if !hasString(doc.Authentication, ref) {
			doc.Authentication = append(doc.Authentication, ref)
		}
	}
	for _, key := range ch.AddKeyAgreement {
		if !hasString(doc.KeyAgreement, key) {
			doc.KeyAgreement = append(doc.KeyAgreement, key)
		}
	}
	for _, svc := range ch.AddServices {
		if !hasService(doc.Service, svc.ID) {
			doc.Service = append(doc.Service, svc)
		}
	}
	return doc
}

func hasVerificationMethod(vms []VerificationMethod, id string) bool {
	for _, vm := range vms {
		if vm.ID == id {
			return true
		}
	}
	return false
}

func hasService(svcs []Service, id string) bool {
	for _, svc := range svcs {
		if svc.ID == id {
			return true
		}
	}
	return false
}

func hasString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
