package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/rpc"
	"github.com/dmitrijs2005/recipelab/internal/server/auth"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func ctxWithToken(token string) context.Context {
	md := metadata.New(map[string]string{common.AccessTokenHeaderName: token})
	return metadata.NewIncomingContext(context.Background(), md)
}

func tokenFor(t *testing.T, ownerID string, kind auth.Kind, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.GenerateToken(ownerID, kind, []byte(testSecret), ttl)
	require.NoError(t, err)
	return tok
}

// capture returns a handler that stores the owner id it sees.
func capture(got *string, called *bool) grpc.UnaryHandler {
	return func(ctx context.Context, req any) (any, error) {
		*called = true
		*got, _ = OwnerIDFromContext(ctx)
		return "ok", nil
	}
}

func info(method string) *grpc.UnaryServerInfo {
	return &grpc.UnaryServerInfo{FullMethod: rpc.FullMethod(method)}
}

func TestInterceptor_PublicWithoutToken(t *testing.T) {
	s := newFixture().srv
	var owner string
	var called bool

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info(rpc.MethodGetRecipe), capture(&owner, &called))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
	assert.Empty(t, owner)
}

func TestInterceptor_PrivateWithoutToken(t *testing.T) {
	s := newFixture().srv
	var owner string
	var called bool

	_, err := s.accessTokenInterceptor(context.Background(), nil, info(rpc.MethodPutRecipe), capture(&owner, &called))
	assert.False(t, called)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, common.ErrUnauthorized.Error(), status.Convert(err).Message())
}

func TestInterceptor_InvalidToken(t *testing.T) {
	s := newFixture().srv
	var owner string
	var called bool

	for _, tok := range []string{"not-a-jwt", tokenFor(t, "o-1", auth.KindProof, time.Hour)} {
		_, err := s.accessTokenInterceptor(ctxWithToken(tok), nil, info(rpc.MethodPutRecipe), capture(&owner, &called))
		assert.False(t, called)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
		assert.Equal(t, common.ErrInvalidToken.Error(), status.Convert(err).Message())
	}
}

func TestInterceptor_ExpiredTokenSaysSo(t *testing.T) {
	s := newFixture().srv
	var owner string
	var called bool
	expired := tokenFor(t, "o-1", auth.KindAccess, -time.Minute)

	_, err := s.accessTokenInterceptor(ctxWithToken(expired), nil, info(rpc.MethodWhoAmI), capture(&owner, &called))
	assert.False(t, called)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "token expired", status.Convert(err).Message())

	// A public method ignores the stale token instead.
	_, err = s.accessTokenInterceptor(ctxWithToken(expired), nil, info(rpc.MethodGetProfile), capture(&owner, &called))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, owner)
}

func TestInterceptor_ValidTokenSetsOwner(t *testing.T) {
	s := newFixture().srv
	for _, method := range []string{rpc.MethodMoveOwnership, rpc.MethodGetRecipe} {
		var owner string
		var called bool
		_, err := s.accessTokenInterceptor(ctxWithToken(tokenFor(t, "o-42", auth.KindAccess, time.Hour)), nil, info(method), capture(&owner, &called))
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, "o-42", owner)
	}
}

func TestMetricsInterceptor(t *testing.T) {
	f := newFixture()
	ok := func(context.Context, any) (any, error) { return "ok", nil }
	boom := func(context.Context, any) (any, error) { return nil, status.Error(codes.NotFound, "not found") }
	plain := func(context.Context, any) (any, error) { return nil, errors.New("raw") }

	_, _ = f.srv.metricsInterceptor(context.Background(), nil, info(rpc.MethodPing), ok)
	_, _ = f.srv.metricsInterceptor(context.Background(), nil, info(rpc.MethodPing), ok)
	_, _ = f.srv.metricsInterceptor(context.Background(), nil, info(rpc.MethodGetRecipe), boom)
	_, _ = f.srv.metricsInterceptor(context.Background(), nil, info(rpc.MethodGetRecipe), plain)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.RPCs.WithLabelValues(rpc.MethodPing, "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RPCs.WithLabelValues(rpc.MethodGetRecipe, "NotFound")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RPCs.WithLabelValues(rpc.MethodGetRecipe, "Unknown")))
}
