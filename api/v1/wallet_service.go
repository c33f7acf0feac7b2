package settlementv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const WalletServiceName = "astro.settlement.v1.WalletService"

const (
	WalletService_GetBalance_FullMethodName       = "/astro.settlement.v1.WalletService/GetBalance"
	WalletService_ListTransactions_FullMethodName = "/astro.settlement.v1.WalletService/ListTransactions"
	WalletService_InitiateRecharge_FullMethodName = "/astro.settlement.v1.WalletService/InitiateRecharge"
	WalletService_RechargeWallet_FullMethodName   = "/astro.settlement.v1.WalletService/RechargeWallet"
)

type WalletServiceServer interface {
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	ListTransactions(context.Context, *ListTransactionsRequest) (*ListTransactionsResponse, error)
	InitiateRecharge(context.Context, *InitiateRechargeRequest) (*InitiateRechargeResponse, error)
	RechargeWallet(context.Context, *RechargeWalletRequest) (*RechargeWalletResponse, error)
}

// UnimplementedWalletServiceServer answers every method with codes.Unimplemented.
type UnimplementedWalletServiceServer struct{}

func (UnimplementedWalletServiceServer) GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBalance not implemented")
}

func (UnimplementedWalletServiceServer) ListTransactions(context.Context, *ListTransactionsRequest) (*ListTransactionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListTransactions not implemented")
}

func (UnimplementedWalletServiceServer) InitiateRecharge(context.Context, *InitiateRechargeRequest) (*InitiateRechargeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method InitiateRecharge not implemented")
}

func (UnimplementedWalletServiceServer) RechargeWallet(context.Context, *RechargeWalletRequest) (*RechargeWalletResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RechargeWallet not implemented")
}

func RegisterWalletServiceServer(s grpc.ServiceRegistrar, srv WalletServiceServer) {
	s.RegisterService(&WalletService_ServiceDesc, srv)
}

func _WalletService_GetBalance_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetBalanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServiceServer).GetBalance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WalletService_GetBalance_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WalletServiceServer).GetBalance(ctx, req.(*GetBalanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WalletService_ListTransactions_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListTransactionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServiceServer).ListTransactions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WalletService_ListTransactions_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WalletServiceServer).ListTransactions(ctx, req.(*ListTransactionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WalletService_InitiateRecharge_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InitiateRechargeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServiceServer).InitiateRecharge(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WalletService_InitiateRecharge_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WalletServiceServer).InitiateRecharge(ctx, req.(*InitiateRechargeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _WalletService_RechargeWallet_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RechargeWalletRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServiceServer).RechargeWallet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WalletService_RechargeWallet_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WalletServiceServer).RechargeWallet(ctx, req.(*RechargeWalletRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var WalletService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: WalletServiceName,
	HandlerType: (*WalletServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBalance", Handler: _WalletService_GetBalance_Handler},
		{MethodName: "ListTransactions", Handler: _WalletService_ListTransactions_Handler},
		{MethodName: "InitiateRecharge", Handler: _WalletService_InitiateRecharge_Handler},
		{MethodName: "RechargeWallet", Handler: _WalletService_RechargeWallet_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "astro/settlement/v1/settlement.proto",
}

type WalletServiceClient interface {
	GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error)
	ListTransactions(ctx context.Context, in *ListTransactionsRequest, opts ...grpc.CallOption) (*ListTransactionsResponse, error)
	InitiateRecharge(ctx context.Context, in *InitiateRechargeRequest, opts ...grpc.CallOption) (*InitiateRechargeResponse, error)
	RechargeWallet(ctx context.Context, in *RechargeWalletRequest, opts ...grpc.CallOption) (*RechargeWalletResponse, error)
}

type walletServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewWalletServiceClient returns a client that always speaks the JSON codec.
func NewWalletServiceClient(cc grpc.ClientConnInterface) WalletServiceClient {
	return &walletServiceClient{cc}
}

func (c *walletServiceClient) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error) {
	out := new(GetBalanceResponse)
	err := c.cc.Invoke(ctx, WalletService_GetBalance_FullMethodName, in, out, append([]grpc.CallOption{CallOption()}, opts...)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *walletServiceClient) ListTransactions(ctx context.Context, in *ListTransactionsRequest, opts ...grpc.CallOption) (*ListTransactionsResponse, error) {
	out := new(ListTransactionsResponse)
	err := c.cc.Invoke(ctx, WalletService_ListTransactions_FullMethodName, in, out, append([]grpc.CallOption{CallOption()}, opts...)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *walletServiceClient) InitiateRecharge(ctx context.Context, in *InitiateRechargeRequest, opts ...grpc.CallOption) (*InitiateRechargeResponse, error) {
	out := new(InitiateRechargeResponse)
	err := c.cc.Invoke(ctx, WalletService_InitiateRecharge_FullMethodName, in, out, append([]grpc.CallOption{CallOption()}, opts...)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *walletServiceClient) RechargeWallet(ctx context.Context, in *RechargeWalletRequest, opts ...grpc.CallOption) (*RechargeWalletResponse, error) {
	out := new(RechargeWalletResponse)
	err := c.cc.Invoke(ctx, WalletService_RechargeWallet_FullMethodName, in, out, append([]grpc.CallOption{CallOption()}, opts...)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
