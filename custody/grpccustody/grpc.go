package grpccustody

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// CustodyServer is the server API for the Custody gRPC service.
//
// We intentionally use protobuf well-known wrapper types carrying JSON
// request structs so this package does not require a protoc/codegen
// toolchain.
type CustodyServer interface {
	ListSpendable(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	ResolveKey(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	ReceivingScript(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	SignInput(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	EncryptionKey(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	SealOpen(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedCustodyServer can be embedded to have forward compatible implementations.
type UnimplementedCustodyServer struct{}

func (UnimplementedCustodyServer) ListSpendable(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSpendable not implemented")
}
func (UnimplementedCustodyServer) ResolveKey(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ResolveKey not implemented")
}
func (UnimplementedCustodyServer) ReceivingScript(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ReceivingScript not implemented")
}
func (UnimplementedCustodyServer) SignInput(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method SignInput not implemented")
}
func (UnimplementedCustodyServer) EncryptionKey(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method EncryptionKey not implemented")
}
func (UnimplementedCustodyServer) SealOpen(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method SealOpen not implemented")
}

// RegisterCustodyServer registers the Custody service on a gRPC server.
func RegisterCustodyServer(s grpc.ServiceRegistrar, srv CustodyServer) {
	s.RegisterService(&Custody_ServiceDesc, srv)
}

// CustodyClient is the client API for the Custody gRPC service.
type CustodyClient interface {
	ListSpendable(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	ResolveKey(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	ReceivingScript(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	SignInput(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	EncryptionKey(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	SealOpen(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

const serviceName = "opencura.anchor.custody.v1.Custody"

type custodyClient struct{ cc grpc.ClientConnInterface }

func NewCustodyClient(cc grpc.ClientConnInterface) CustodyClient { return &custodyClient{cc: cc} }

func (c *custodyClient) invoke(ctx context.Context, method string, in *wrapperspb.BytesValue, opts []grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *custodyClient) ListSpendable(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "ListSpendable", in, opts)
}
func (c *custodyClient) ResolveKey(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "ResolveKey", in, opts)
}
func (c *custodyClient) ReceivingScript(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "ReceivingScript", in, opts)
}
func (c *custodyClient) SignInput(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "SignInput", in, opts)
}
func (c *custodyClient) EncryptionKey(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "EncryptionKey", in, opts)
}
func (c *custodyClient) SealOpen(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return c.invoke(ctx, "SealOpen", in, opts)
}

type handlerFn func(srv CustodyServer, ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)

func makeHandler(method string, fn handlerFn) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	full := "/" + serviceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(wrapperspb.BytesValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(CustodyServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return fn(srv.(CustodyServer), ctx, req.(*wrapperspb.BytesValue))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Custody_ServiceDesc is the grpc.ServiceDesc for the Custody service.
var Custody_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CustodyServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSpendable", Handler: makeHandler("ListSpendable", CustodyServer.ListSpendable)},
		{MethodName: "ResolveKey", Handler: makeHandler("ResolveKey", CustodyServer.ResolveKey)},
		{MethodName: "ReceivingScript", Handler: makeHandler("ReceivingScript", CustodyServer.ReceivingScript)},
		{MethodName: "SignInput", Handler: makeHandler("SignInput", CustodyServer.SignInput)},
		{MethodName: "EncryptionKey", Handler: makeHandler("EncryptionKey", CustodyServer.EncryptionKey)},
		{MethodName: "SealOpen", Handler: makeHandler("SealOpen", CustodyServer.SealOpen)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "custody.proto",
}
