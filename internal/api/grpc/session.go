package grpc

import (
	"context"

	"github.com/shopspring/decimal"

	pb "astroconsult-backend/api/v1"
	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/service"
)

type SessionHandler struct {
	pb.UnimplementedSessionServiceServer
	sessionSvc    service.SessionService
	settlementSvc service.SettlementService
}

func NewSessionHandler(sessionSvc service.SessionService, settlementSvc service.SettlementService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc, settlementSvc: settlementSvc}
}

func (h *SessionHandler) CreateSession(ctx context.Context, req *pb.CreateSessionRequest) (*pb.CreateSessionResponse, error) {
	callerID, role, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	s, err := h.sessionSvc.CreateSession(ctx, callerID, role, req.AstrologerId, domain.ServiceType(req.ServiceType))
	if err != nil {
		return nil, err
	}
	return &pb.CreateSessionResponse{Session: MapDomainSessionToProto(s)}, nil
}

func (h *SessionHandler) GetSession(ctx context.Context, req *pb.GetSessionRequest) (*pb.GetSessionResponse, error) {
	callerID, role, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	s, err := h.sessionSvc.GetSession(ctx, callerID, role, req.SessionId)
	if err != nil {
		return nil, err
	}
	return &pb.GetSessionResponse{Session: MapDomainSessionToProto(s)}, nil
}

func (h *SessionHandler) TransitionSession(ctx context.Context, req *pb.TransitionSessionRequest) (*pb.TransitionSessionResponse, error) {
	callerID, role, err := GetCallerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	payload := domain.TransitionPayload{ConnectionID: req.ConnectionId, Rating: req.Rating}
	s, err := h.sessionSvc.TransitionSession(ctx, req.SessionId, domain.SessionAction(req.Action), callerID, role, payload)
	if err != nil {
		return nil, err
	}
	return &pb.TransitionSessionResponse{Session: MapDomainSessionToProto(s)}, nil
}

// EndSession is called by the call/chat infrastructure with its own view of the session.
func (h *SessionHandler) EndSession(ctx context.Context, req *pb.EndSessionRequest) (*pb.EndSessionResponse, error) {
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		return nil, domain.NewValidationError("total_amount", "must be a decimal number")
	}
	result, err := h.settlementSvc.EndSession(ctx, req.SessionId, req.DurationMinutes, total)
	if err != nil {
		return nil, err
	}
	return MapSettlementToProto(result), nil
}
