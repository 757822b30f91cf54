package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "predex.v1.OrderService"

const (
	placeOrderMethod    = "/" + ServiceName + "/PlaceOrder"
	cancelOrderMethod   = "/" + ServiceName + "/CancelOrder"
	getOrderMethod      = "/" + ServiceName + "/GetOrder"
	getSnapshotMethod   = "/" + ServiceName + "/GetSnapshot"
	getMarketViewMethod = "/" + ServiceName + "/GetMarketView"
)

// OrderServiceServer is the RPC surface. Messages are google.protobuf.Struct
// documents; field names are listed on each Server method.
type OrderServiceServer interface {
	PlaceOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMarketView(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func Register(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceOrder", Handler: unary(placeOrderMethod, OrderServiceServer.PlaceOrder)},
		{MethodName: "CancelOrder", Handler: unary(cancelOrderMethod, OrderServiceServer.CancelOrder)},
		{MethodName: "GetOrder", Handler: unary(getOrderMethod, OrderServiceServer.GetOrder)},
		{MethodName: "GetSnapshot", Handler: unary(getSnapshotMethod, OrderServiceServer.GetSnapshot)},
		{MethodName: "GetMarketView", Handler: unary(getMarketViewMethod, OrderServiceServer.GetMarketView)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "predex/order_service",
}

type method func(OrderServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(fullMethod string, call method) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrderServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls OrderService over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PlaceOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, placeOrderMethod, in, opts...)
}

func (c *Client) CancelOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, cancelOrderMethod, in, opts...)
}

func (c *Client) GetOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, getOrderMethod, in, opts...)
}

func (c *Client) GetSnapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, getSnapshotMethod, in, opts...)
}

func (c *Client) GetMarketView(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, getMarketViewMethod, in, opts...)
}
