package grpccustody

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/opencura/anchor/ledger"
)

// mapErr converts a protocol error into a gRPC status for the wire.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case ledger.IsKind(err, ledger.KindNotFound):
		return status.Error(codes.NotFound, err.Error())
	case ledger.IsKind(err, ledger.KindEncoding):
		return status.Error(codes.InvalidArgument, err.Error())
	case ledger.IsKind(err, ledger.KindFunding):
		return status.Error(codes.FailedPrecondition, err.Error())
	case ledger.IsKind(err, ledger.KindSigning):
		return status.Error(codes.PermissionDenied, err.Error())
	case ledger.IsKind(err, ledger.KindBroadcast):
		return status.Error(codes.Aborted, err.Error())
	case ledger.IsKind(err, ledger.KindConsistency):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// mapRPC restores the protocol taxonomy from a gRPC status, so callers can
// keep branching on kinds across the network boundary. NotFound in
// particular must stay distinguishable from transport failures.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return ledger.E(ledger.KindNotFound, st.Message())
	case codes.InvalidArgument:
		return ledger.E(ledger.KindEncoding, st.Message())
	case codes.FailedPrecondition:
		return ledger.E(ledger.KindFunding, st.Message())
	case codes.PermissionDenied:
		return ledger.E(ledger.KindSigning, st.Message())
	case codes.Aborted:
		return ledger.E(ledger.KindBroadcast, st.Message())
	case codes.DataLoss:
		return ledger.E(ledger.KindConsistency, st.Message())
	default:
		return err
	}
}
