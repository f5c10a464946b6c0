package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "issuance.v1.IssuanceService"

// Full method names.
const (
	MethodBeginIssuance   = "/" + ServiceName + "/BeginIssuance"
	MethodRequestOtp      = "/" + ServiceName + "/RequestOtp"
	MethodSubmitOtp       = "/" + ServiceName + "/SubmitOtp"
	MethodSubmitTwoFactor = "/" + ServiceName + "/SubmitTwoFactor"
	MethodRetryFinalize   = "/" + ServiceName + "/RetryFinalize"
	MethodAbandon         = "/" + ServiceName + "/AbandonIssuance"
	MethodGetIssuance     = "/" + ServiceName + "/GetIssuance"
	MethodRefreshCatalog  = "/" + ServiceName + "/RefreshCatalog"
)

// IssuanceServiceServer is the server API for IssuanceService. Requests and responses are
// google.protobuf.Struct messages.
type IssuanceServiceServer interface {
	BeginIssuance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestOtp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitOtp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitTwoFactor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RetryFinalize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AbandonIssuance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetIssuance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshCatalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterIssuanceServiceServer registers srv on s.
func RegisterIssuanceServiceServer(s grpc.ServiceRegistrar, srv IssuanceServiceServer) {
	s.RegisterService(&IssuanceServiceDesc, srv)
}

type unaryMethod func(IssuanceServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(IssuanceServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(IssuanceServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// IssuanceServiceDesc is the grpc.ServiceDesc for IssuanceService.
var IssuanceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IssuanceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "BeginIssuance", Handler: unaryHandler(MethodBeginIssuance, IssuanceServiceServer.BeginIssuance)},
		{MethodName: "RequestOtp", Handler: unaryHandler(MethodRequestOtp, IssuanceServiceServer.RequestOtp)},
		{MethodName: "SubmitOtp", Handler: unaryHandler(MethodSubmitOtp, IssuanceServiceServer.SubmitOtp)},
		{MethodName: "SubmitTwoFactor", Handler: unaryHandler(MethodSubmitTwoFactor, IssuanceServiceServer.SubmitTwoFactor)},
		{MethodName: "RetryFinalize", Handler: unaryHandler(MethodRetryFinalize, IssuanceServiceServer.RetryFinalize)},
		{MethodName: "AbandonIssuance", Handler: unaryHandler(MethodAbandon, IssuanceServiceServer.AbandonIssuance)},
		{MethodName: "GetIssuance", Handler: unaryHandler(MethodGetIssuance, IssuanceServiceServer.GetIssuance)},
		{MethodName: "RefreshCatalog", Handler: unaryHandler(MethodRefreshCatalog, IssuanceServiceServer.RefreshCatalog)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "issuance/v1/issuance.proto",
}

// Client calls IssuanceService over a connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a Client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes fullMethod with fields as the request struct.
func (c *Client) Call(ctx context.Context, fullMethod string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
