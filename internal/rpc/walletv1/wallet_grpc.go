package walletv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/storefront-checkout/internal/rpc"
)

const (
	Wallet_Capture_FullMethodName       = "/storefront.wallet.v1.Wallet/Capture"
	Wallet_LookupCapture_FullMethodName = "/storefront.wallet.v1.Wallet/LookupCapture"
)

// WalletClient is the client API for the Wallet service.
type WalletClient interface {
	Capture(ctx context.Context, in *CaptureRequest, opts ...grpc.CallOption) (*CaptureResponse, error)
	LookupCapture(ctx context.Context, in *LookupCaptureRequest, opts ...grpc.CallOption) (*LookupCaptureResponse, error)
}

type walletClient struct {
	cc grpc.ClientConnInterface
}

func NewWalletClient(cc grpc.ClientConnInterface) WalletClient {
	return &walletClient{cc}
}

func (c *walletClient) Capture(ctx context.Context, in *CaptureRequest, opts ...grpc.CallOption) (*CaptureResponse, error) {
	out := new(CaptureResponse)
	opts = append([]grpc.CallOption{rpc.CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, Wallet_Capture_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *walletClient) LookupCapture(ctx context.Context, in *LookupCaptureRequest, opts ...grpc.CallOption) (*LookupCaptureResponse, error) {
	out := new(LookupCaptureResponse)
	opts = append([]grpc.CallOption{rpc.CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, Wallet_LookupCapture_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WalletServer is the server API for the Wallet service. Implementations
// must embed UnimplementedWalletServer.
type WalletServer interface {
	Capture(context.Context, *CaptureRequest) (*CaptureResponse, error)
	LookupCapture(context.Context, *LookupCaptureRequest) (*LookupCaptureResponse, error)
	mustEmbedUnimplementedWalletServer()
}

type UnimplementedWalletServer struct{}

func (UnimplementedWalletServer) Capture(context.Context, *CaptureRequest) (*CaptureResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Capture not implemented")
}
func (UnimplementedWalletServer) LookupCapture(context.Context, *LookupCaptureRequest) (*LookupCaptureResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LookupCapture not implemented")
}
func (UnimplementedWalletServer) mustEmbedUnimplementedWalletServer() {}

func RegisterWalletServer(s grpc.ServiceRegistrar, srv WalletServer) {
	s.RegisterService(&Wallet_ServiceDesc, srv)
}

func _Wallet_Capture_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CaptureRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServer).Capture(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Wallet_Capture_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WalletServer).Capture(ctx, req.(*CaptureRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Wallet_LookupCapture_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(LookupCaptureRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServer).LookupCapture(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Wallet_LookupCapture_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WalletServer).LookupCapture(ctx, req.(*LookupCaptureRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var Wallet_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "storefront.wallet.v1.Wallet",
	HandlerType: (*WalletServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Capture",
			Handler:    _Wallet_Capture_Handler,
		},
		{
			MethodName: "LookupCapture",
			Handler:    _Wallet_LookupCapture_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/wallet/v1/wallet.proto",
}
