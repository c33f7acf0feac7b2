package interceptor

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ValidationInterceptor checks `validate` struct tags on request messages.
type ValidationInterceptor struct {
	validate *validator.Validate
}

func NewValidationInterceptor() *ValidationInterceptor {
	return &ValidationInterceptor{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *ValidationInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := v.validate.Struct(req); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				return nil, status.Error(codes.InvalidArgument, formatValidationErrors(verrs))
			}
			// Non-struct requests (health checks) are not ours to validate.
			var invalid *validator.InvalidValidationError
			if !errors.As(err, &invalid) {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
		}
		return handler(ctx, req)
	}
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, fieldMessage(err))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func fieldMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "gte":
		return err.Field() + " must be greater than or equal to " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "numeric":
		return err.Field() + " must be a decimal number"
	default:
		return err.Field() + " is invalid"
	}
}
