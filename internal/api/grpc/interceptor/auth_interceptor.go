package interceptor

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"astroconsult-backend/internal/config"
	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/security"
)

const (
	// MetadataUserID and MetadataUserRole carry the authenticated caller to handlers.
	MetadataUserID   = "user-id"
	MetadataUserRole = "user-role"
	metadataAPIKey   = "x-api-key"

	// ServiceCallerID identifies trusted backends that present the service key.
	ServiceCallerID = "service"
)

type AuthInterceptor struct {
	tokenManager security.TokenManager
	serviceKeys  *security.ServiceKeyVerifier
}

func NewAuthInterceptor(tm security.TokenManager, keys *security.ServiceKeyVerifier) *AuthInterceptor {
	return &AuthInterceptor{tokenManager: tm, serviceKeys: keys}
}

// Unary returns a server interceptor function to authenticate and authorize unary RPCs
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		level := config.GetSecurityLevel(info.FullMethod)

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "metadata is not provided")
		}

		var userID string
		var role domain.Role
		switch level {
		case config.SecurityServiceKey:
			keys := md.Get(metadataAPIKey)
			if len(keys) == 0 || i.serviceKeys == nil || i.serviceKeys.Verify(keys[0]) != nil {
				logger.Warn("Rejected service call", "method", info.FullMethod)
				return nil, status.Error(codes.Unauthenticated, "valid x-api-key required")
			}
			userID, role = ServiceCallerID, domain.RoleSystem
		default:
			token, err := extractToken(md)
			if err != nil {
				return nil, err
			}
			claims, err := i.tokenManager.ValidateToken(token)
			if err != nil {
				return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
			}
			if claims.Type != security.TokenTypeAccess {
				return nil, status.Error(codes.PermissionDenied, "access token required")
			}
			userID, role = claims.UserID, claims.Role
		}

		// Copy and Set so client-supplied identity headers are overwritten.
		md = md.Copy()
		md.Set(MetadataUserID, userID)
		md.Set(MetadataUserRole, string(role))
		return handler(metadata.NewIncomingContext(ctx, md), req)
	}
}

func extractToken(md metadata.MD) (string, error) {
	authHeader := md.Get("authorization")
	if len(authHeader) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	token := authHeader[0]
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	return token, nil
}
