package interceptor

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/metrics"
)

// ToStatus maps domain errors onto gRPC status codes.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codes.Internal
	switch {
	case errors.Is(err, domain.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrAccessDenied):
		code = codes.PermissionDenied
	case errors.Is(err, domain.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPaymentVerificationFailed),
		errors.Is(err, domain.ErrAmountMismatch):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrDuplicatePayment):
		code = codes.AlreadyExists
	case errors.Is(err, domain.ErrConcurrentUpdate):
		code = codes.Aborted
	case errors.Is(err, domain.ErrVerificationUnavailable), errors.Is(err, domain.ErrStorageUnavailable):
		code = codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	if code == codes.Internal {
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

// Observability records metrics, logs the outcome and converts handler errors to statuses.
// It goes first in the chain so it also sees auth and rate-limit rejections.
func Observability() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in gRPC handler", "method", info.FullMethod, "panic", r)
				err = status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			metrics.GRPCRequestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
			metrics.GRPCRequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		}()

		resp, err = handler(ctx, req)
		if err != nil {
			mapped := ToStatus(err)
			if status.Code(mapped) == codes.Internal {
				logger.Error("gRPC request failed", "method", info.FullMethod, "error", err)
			} else {
				logger.Debug("gRPC request rejected", "method", info.FullMethod, "error", err)
			}
			return nil, mapped
		}
		return resp, nil
	}
}
