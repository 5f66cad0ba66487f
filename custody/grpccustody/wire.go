package grpccustody

import (
	"encoding/json"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/opencura/anchor/ledger"
)

// Wire structs carried as JSON inside wrapperspb.BytesValue. Byte fields
// ride on encoding/json's base64 handling.

type wireOutput struct {
	Outpoint string `json:"outpoint"`
	Value    uint64 `json:"value"`
	Script   []byte `json:"script"`
}

func toWireOutput(out ledger.SpendableOutput) wireOutput {
	return wireOutput{Outpoint: out.Outpoint.String(), Value: out.Value, Script: out.Script}
}

func fromWireOutput(w wireOutput) (ledger.SpendableOutput, error) {
	op, err := ledger.ParseOutpoint(w.Outpoint)
	if err != nil {
		return ledger.SpendableOutput{}, err
	}
	return ledger.SpendableOutput{Outpoint: op, Value: w.Value, Script: w.Script}, nil
}

type listSpendableRequest struct {
	MinTotal uint64 `json:"minTotal"`
	Key      []byte `json:"key,omitempty"`
}

type listSpendableResponse struct {
	Outputs []wireOutput `json:"outputs"`
}

type resolveKeyResponse struct {
	Key []byte `json:"key"`
}

type receivingScriptRequest struct {
	Key []byte `json:"key,omitempty"`
}

type receivingScriptResponse struct {
	Script []byte `json:"script"`
}

type signInputRequest struct {
	RawTx  []byte `json:"rawTx"`
	Input  int    `json:"input"`
	Script []byte `json:"script"`
	Value  uint64 `json:"value"`
	PubKey []byte `json:"pubKey"`
}

type signInputResponse struct {
	Unlock []byte `json:"unlock"`
}

type encryptionKeyRequest struct {
	Signing []byte `json:"signing"`
}

type encryptionKeyResponse struct {
	Key []byte `json:"key"`
}

type sealOpenRequest struct {
	Recipient []byte `json:"recipient"`
	Sealed    []byte `json:"sealed"`
}

type sealOpenResponse struct {
	Plain []byte `json:"plain"`
}

func marshalWire(v interface{}) (*wrapperspb.BytesValue, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(b), nil
}

func unmarshalWire(in *wrapperspb.BytesValue, v interface{}) error {
	return json.Unmarshal(in.GetValue(), v)
}
