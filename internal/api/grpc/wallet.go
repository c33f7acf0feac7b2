package grpc

import (
	"context"

	"github.com/shopspring/decimal"

	pb "astroconsult-backend/api/v1"
	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/service"
)

type WalletHandler struct {
	pb.UnimplementedWalletServiceServer
	walletSvc   service.WalletService
	rechargeSvc service.RechargeService
}

func NewWalletHandler(walletSvc service.WalletService, rechargeSvc service.RechargeService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, rechargeSvc: rechargeSvc}
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.NewValidationError("amount", "must be a decimal number")
	}
	return d, nil
}

func (h *WalletHandler) GetBalance(ctx context.Context, req *pb.GetBalanceRequest) (*pb.GetBalanceResponse, error) {
	userID, _, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := h.walletSvc.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &pb.GetBalanceResponse{Balance: formatMoney(balance)}, nil
}

func (h *WalletHandler) ListTransactions(ctx context.Context, req *pb.ListTransactionsRequest) (*pb.ListTransactionsResponse, error) {
	userID, _, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	txs, count, err := h.walletSvc.ListTransactions(ctx, userID, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}
	out := make([]*pb.Transaction, len(txs))
	for i := range txs {
		out[i] = MapDomainTransactionToProto(&txs[i])
	}
	return &pb.ListTransactionsResponse{Transactions: out, TotalCount: count}, nil
}

func (h *WalletHandler) InitiateRecharge(ctx context.Context, req *pb.InitiateRechargeRequest) (*pb.InitiateRechargeResponse, error) {
	userID, _, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	tx, err := h.rechargeSvc.InitiateRecharge(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	return &pb.InitiateRechargeResponse{
		PaymentReference: stringValue(tx.PaymentReference),
		Transaction:      MapDomainTransactionToProto(tx),
	}, nil
}

func (h *WalletHandler) RechargeWallet(ctx context.Context, req *pb.RechargeWalletRequest) (*pb.RechargeWalletResponse, error) {
	userID, _, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	result, err := h.rechargeSvc.RechargeWallet(ctx, userID, amount, req.PaymentReference)
	if err != nil {
		return nil, err
	}
	return &pb.RechargeWalletResponse{
		NewBalance:    formatMoney(result.NewBalance),
		PaymentMethod: result.PaymentMethod,
		Transaction:   MapDomainTransactionToProto(result.Transaction),
	}, nil
}
