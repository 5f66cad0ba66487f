// Package grpccustody exposes a custody boundary over gRPC and consumes one
// as a client, so the protocol components and the key-holding process can
// live on different machines.
package grpccustody

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/opencura/anchor/custody"
	"github.com/opencura/anchor/ledger"
)

// Server exposes a custody.Custody over the Custody gRPC service.
type Server struct {
	UnimplementedCustodyServer
	Custody custody.Custody
}

func (s *Server) ready() error {
	if s == nil || s.Custody == nil {
		return status.Error(codes.FailedPrecondition, "missing custody boundary")
	}
	return nil
}

func (s *Server) ListSpendable(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req listSpendableRequest
	if err := unmarshalWire(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed request")
	}
	outs, err := s.Custody.ListSpendable(ctx, req.MinTotal, pubKeyOrNil(req.Key))
	if err != nil {
		return nil, mapErr(err)
	}
	resp := listSpendableResponse{}
	for _, out := range outs {
		resp.Outputs = append(resp.Outputs, toWireOutput(out))
	}
	reply, err := marshalWire(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, "response marshal failed")
	}
	return reply, nil
}

func (s *Server) ResolveKey(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req wireOutput
	if err := unmarshalWire(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed request")
	}
	out, err := fromWireOutput(req)
	if err != nil {
		return nil, mapErr(err)
	}
	key, err := s.Custody.ResolveKey(ctx, out)
	if err != nil {
		return nil, mapErr(err)
	}
	reply, err := marshalWire(resolveKeyResponse{Key: key})
	if err != nil {
		return nil, status.Error(codes.Internal, "response marshal failed")
	}
	return reply, nil
}

func (s *Server) ReceivingScript(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req receivingScriptRequest
	if err := unmarshalWire(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed request")
	}
	script, err := s.Custody.ReceivingScript(ctx, pubKeyOrNil(req.Key))
	if err != nil {
		return nil, mapErr(err)
	}
	reply, err := marshalWire(receivingScriptResponse{Script: script})
	if err != nil {
		return nil, status.Error(codes.Internal, "response marshal failed")
	}
	return reply, nil
}

func (s *Server) SignInput(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req signInputRequest
	if err := unmarshalWire(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed request")
	}
	tx, err := ledger.DecodeTx(req.RawTx)
	if err != nil {
		return nil, mapErr(err)
	}
	unlock, err := s.Custody.SignInput(ctx, ledger.SignRequest{
		Tx:     tx,
		Input:  req.Input,
		Script: req.Script,
		Value:  req.Value,
		PubKey: pubKeyOrNil(req.PubKey),
	})
	if err != nil {
		return nil, mapErr(err)
	}
	reply, err := marshalWire(signInputResponse{Unlock: unlock})
	if err != nil {
		return nil, status.Error(codes.Internal, "response marshal failed")
	}
	return reply, nil
}

func (s *Server) EncryptionKey(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req encryptionKeyRequest
	if err := unmarshalWire(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed request")
	}
	key, err := s.Custody.EncryptionKey(ctx, pubKeyOrNil(req.Signing))
	if err != nil {
		return nil, mapErr(err)
	}
	reply, err := marshalWire(encryptionKeyResponse{Key: key})
	if err != nil {
		return nil, status.Error(codes.Internal, "response marshal failed")
	}
	return reply, nil
}

func (s *Server) SealOpen(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var req sealOpenRequest
	if err := unmarshalWire(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed request")
	}
	plain, err := s.Custody.SealOpen(ctx, pubKeyOrNil(req.Recipient), req.Sealed)
	if err != nil {
		return nil, mapErr(err)
	}
	reply, err := marshalWire(sealOpenResponse{Plain: plain})
	if err != nil {
		return nil, status.Error(codes.Internal, "response marshal failed")
	}
	return reply, nil
}
