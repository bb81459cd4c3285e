package orderv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/storefront-checkout/internal/rpc"
)

const (
	Order_CreateOrder_FullMethodName         = "/storefront.order.v1.Order/CreateOrder"
	Order_UpdatePayment_FullMethodName       = "/storefront.order.v1.Order/UpdatePayment"
	Order_GetOrder_FullMethodName            = "/storefront.order.v1.Order/GetOrder"
	Order_GetOrderByNumber_FullMethodName    = "/storefront.order.v1.Order/GetOrderByNumber"
	Order_ListAwaitingPayment_FullMethodName = "/storefront.order.v1.Order/ListAwaitingPayment"
)

// OrderClient is the client API for the Order service.
type OrderClient interface {
	CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*CreateOrderResponse, error)
	UpdatePayment(ctx context.Context, in *UpdatePaymentRequest, opts ...grpc.CallOption) (*UpdatePaymentResponse, error)
	GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*GetOrderResponse, error)
	GetOrderByNumber(ctx context.Context, in *GetOrderByNumberRequest, opts ...grpc.CallOption) (*GetOrderResponse, error)
	ListAwaitingPayment(ctx context.Context, in *ListAwaitingPaymentRequest, opts ...grpc.CallOption) (*ListAwaitingPaymentResponse, error)
}

type orderClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderClient(cc grpc.ClientConnInterface) OrderClient {
	return &orderClient{cc}
}

func (c *orderClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	return c.cc.Invoke(ctx, method, in, out, append([]grpc.CallOption{rpc.CallOption()}, opts...)...)
}

func (c *orderClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*CreateOrderResponse, error) {
	out := new(CreateOrderResponse)
	if err := c.invoke(ctx, Order_CreateOrder_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderClient) UpdatePayment(ctx context.Context, in *UpdatePaymentRequest, opts ...grpc.CallOption) (*UpdatePaymentResponse, error) {
	out := new(UpdatePaymentResponse)
	if err := c.invoke(ctx, Order_UpdatePayment_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*GetOrderResponse, error) {
	out := new(GetOrderResponse)
	if err := c.invoke(ctx, Order_GetOrder_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderClient) GetOrderByNumber(ctx context.Context, in *GetOrderByNumberRequest, opts ...grpc.CallOption) (*GetOrderResponse, error) {
	out := new(GetOrderResponse)
	if err := c.invoke(ctx, Order_GetOrderByNumber_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderClient) ListAwaitingPayment(ctx context.Context, in *ListAwaitingPaymentRequest, opts ...grpc.CallOption) (*ListAwaitingPaymentResponse, error) {
	out := new(ListAwaitingPaymentResponse)
	if err := c.invoke(ctx, Order_ListAwaitingPayment_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderServer is the server API for the Order service. Implementations
// must embed UnimplementedOrderServer.
type OrderServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*CreateOrderResponse, error)
	UpdatePayment(context.Context, *UpdatePaymentRequest) (*UpdatePaymentResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*GetOrderResponse, error)
	GetOrderByNumber(context.Context, *GetOrderByNumberRequest) (*GetOrderResponse, error)
	ListAwaitingPayment(context.Context, *ListAwaitingPaymentRequest) (*ListAwaitingPaymentResponse, error)
	mustEmbedUnimplementedOrderServer()
}

type UnimplementedOrderServer struct{}

func (UnimplementedOrderServer) CreateOrder(context.Context, *CreateOrderRequest) (*CreateOrderResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateOrder not implemented")
}
func (UnimplementedOrderServer) UpdatePayment(context.Context, *UpdatePaymentRequest) (*UpdatePaymentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdatePayment not implemented")
}
func (UnimplementedOrderServer) GetOrder(context.Context, *GetOrderRequest) (*GetOrderResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOrder not implemented")
}
func (UnimplementedOrderServer) GetOrderByNumber(context.Context, *GetOrderByNumberRequest) (*GetOrderResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOrderByNumber not implemented")
}
func (UnimplementedOrderServer) ListAwaitingPayment(context.Context, *ListAwaitingPaymentRequest) (*ListAwaitingPaymentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAwaitingPayment not implemented")
}
func (UnimplementedOrderServer) mustEmbedUnimplementedOrderServer() {}

func RegisterOrderServer(s grpc.ServiceRegistrar, srv OrderServer) {
	s.RegisterService(&Order_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req any, Resp any](fullMethod string, call func(OrderServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrderServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var Order_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "storefront.order.v1.Order",
	HandlerType: (*OrderServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateOrder",
			Handler:    unaryHandler(Order_CreateOrder_FullMethodName, OrderServer.CreateOrder),
		},
		{
			MethodName: "UpdatePayment",
			Handler:    unaryHandler(Order_UpdatePayment_FullMethodName, OrderServer.UpdatePayment),
		},
		{
			MethodName: "GetOrder",
			Handler:    unaryHandler(Order_GetOrder_FullMethodName, OrderServer.GetOrder),
		},
		{
			MethodName: "GetOrderByNumber",
			Handler:    unaryHandler(Order_GetOrderByNumber_FullMethodName, OrderServer.GetOrderByNumber),
		},
		{
			MethodName: "ListAwaitingPayment",
			Handler:    unaryHandler(Order_ListAwaitingPayment_FullMethodName, OrderServer.ListAwaitingPayment),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/order/v1/order.proto",
}
