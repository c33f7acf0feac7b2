package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"astroconsult-backend/internal/api/grpc/interceptor"
	"astroconsult-backend/internal/domain"
)

// GetCallerFromContext extracts the caller the auth interceptor placed in the
// "user-id" and "user-role" metadata.
func GetCallerFromContext(ctx context.Context) (string, domain.Role, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", "", status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	userIDs := md.Get(interceptor.MetadataUserID)
	if len(userIDs) == 0 || userIDs[0] == "" {
		return "", "", status.Errorf(codes.Unauthenticated, "user_id is not provided in metadata")
	}
	roles := md.Get(interceptor.MetadataUserRole)
	if len(roles) == 0 || roles[0] == "" {
		return "", "", status.Errorf(codes.Unauthenticated, "role is not provided in metadata")
	}
	return userIDs[0], domain.Role(roles[0]), nil
}
