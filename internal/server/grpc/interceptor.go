package grpc

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/rpc"
	"github.com/dmitrijs2005/recipelab/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

// OwnerIDKey carries the authenticated owner id of a call.
const OwnerIDKey ctxKey = "ownerID"

// OwnerIDFromContext returns the owner id set by the access token interceptor.
func OwnerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(OwnerIDKey).(string)
	return id, ok && id != ""
}

func accessTokenFrom(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// accessTokenInterceptor authenticates the caller. Public methods accept
// anonymous callers but still pick up a valid token when one is sent.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	public := rpc.IsPublic(info.FullMethod)

	accessToken := accessTokenFrom(ctx)
	if accessToken == "" {
		if public {
			return handler(ctx, req)
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrUnauthorized.Error())
	}

	ownerID, err := auth.GetOwnerIDFromToken(accessToken, s.jwtSecret)
	switch {
	case err == nil:
		ctx = context.WithValue(ctx, OwnerIDKey, ownerID)
	case public:
	case errors.Is(err, common.ErrTokenExpired):
		return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	default:
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	return handler(ctx, req)
}

// metricsInterceptor counts and times every call by method and status code.
func (s *GRPCServer) metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	took := time.Since(start)

	code := status.Code(err)
	method := path.Base(info.FullMethod)
	if s.metrics != nil {
		s.metrics.ObserveRPC(method, code.String(), took)
	}
	if code == codes.Internal || code == codes.Unknown {
		s.logger.Error(ctx, "rpc failed", "method", method, "code", code.String(), "took", took)
	} else {
		s.logger.Debug(ctx, "rpc", "method", method, "code", code.String(), "took", took)
	}
	return resp, err
}
