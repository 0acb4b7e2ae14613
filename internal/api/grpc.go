package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// HistoryServiceName is the full gRPC service name.
const HistoryServiceName = "flowtagger.v1.HistoryService"

const (
	tagTotalsMethod          = "/" + HistoryServiceName + "/TagTotals"
	portProtocolTotalsMethod = "/" + HistoryServiceName + "/PortProtocolTotals"
)

// HistoryServer is the server API for the history service. Requests and
// responses are google.protobuf.Struct messages, so the service needs no
// generated message types.
type HistoryServer interface {
	TagTotals(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PortProtocolTotals(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var historyServiceDesc = grpc.ServiceDesc{
	ServiceName: HistoryServiceName,
	HandlerType: (*HistoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "TagTotals",
			Handler:    unaryHandler(tagTotalsMethod, HistoryServer.TagTotals),
		},
		{
			MethodName: "PortProtocolTotals",
			Handler:    unaryHandler(portProtocolTotalsMethod, HistoryServer.PortProtocolTotals),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flowtagger/v1/history",
}

// RegisterHistoryServer registers srv with a gRPC server.
func RegisterHistoryServer(s grpc.ServiceRegistrar, srv HistoryServer) {
	s.RegisterService(&historyServiceDesc, srv)
}

func unaryHandler(fullMethod string, call func(HistoryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(HistoryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(HistoryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// HistoryClient calls the history service.
type HistoryClient struct {
	cc grpc.ClientConnInterface
}

// NewHistoryClient creates a client on an established connection.
func NewHistoryClient(cc grpc.ClientConnInterface) *HistoryClient {
	return &HistoryClient{cc: cc}
}

// TagTotals calls HistoryService.TagTotals.
func (c *HistoryClient) TagTotals(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, tagTotalsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// PortProtocolTotals calls HistoryService.PortProtocolTotals.
func (c *HistoryClient) PortProtocolTotals(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, portProtocolTotalsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
