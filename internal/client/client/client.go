package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/rpc"
	"github.com/sony/gobreaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// BreakerConfig tunes the circuit breaker in front of remote calls.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

type options struct {
	timeout  time.Duration
	breaker  BreakerConfig
	logger   logging.Logger
	dialOpts []grpc.DialOption
}

type Option func(*options)

// WithTimeout bounds every remote call.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

func WithBreaker(b BreakerConfig) Option { return func(o *options) { o.breaker = b } }

func WithLogger(l logging.Logger) Option { return func(o *options) { o.logger = l } }

// WithDialOptions adds gRPC dial options, e.g. a bufconn dialer in tests.
func WithDialOptions(d ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, d...) }
}

type GRPCClient struct {
	conn    *grpc.ClientConn
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  logging.Logger

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	tokenSink    func(access, refresh string)
}

func New(target string, opts ...Option) (*GRPCClient, error) {
	o := options{timeout: 10 * time.Second, breaker: DefaultBreakerConfig(), logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &GRPCClient{
		timeout: o.timeout,
		logger:  o.logger.With("module", "grpc_client"),
	}
	c.breaker = newBreaker(target, o.breaker, c.logger)

	dial := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpc.CodecName)),
	}, o.dialOpts...)

	conn, err := grpc.NewClient(target, dial...)
	if err != nil {
		return nil, fmt.Errorf("grpc client: %w", err)
	}
	c.conn = conn
	return c, nil
}

func newBreaker(name string, cfg BreakerConfig, l logging.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return !isTransportFailure(err)
		},
	})
}

// isTransportFailure reports whether err says the remote is unreachable or
// broken, as opposed to a well-formed refusal.
func isTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return true
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Unknown, codes.ResourceExhausted:
		return true
	}
	return false
}

// SetTokens installs a token pair, e.g. restored from local settings.
func (c *GRPCClient) SetTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken, c.refreshToken = access, refresh
	c.mu.Unlock()
}

func (c *GRPCClient) tokens() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

// OnTokens registers a func called whenever the token pair changes.
func (c *GRPCClient) OnTokens(fn func(access, refresh string)) {
	c.mu.Lock()
	c.tokenSink = fn
	c.mu.Unlock()
}

func (c *GRPCClient) storeTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken, c.refreshToken = access, refresh
	sink := c.tokenSink
	c.mu.Unlock()
	if sink != nil {
		sink(access, refresh)
	}
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := c.tokens()
	if access != "" {
		ctx = withAccessToken(ctx, access)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil || method == rpc.FullMethod(rpc.MethodRefreshToken) || refresh == "" {
		return err
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	resp := &rpc.SessionResponse{}
	if rerr := invoker(ctx, rpc.FullMethod(rpc.MethodRefreshToken), &rpc.RefreshTokenRequest{RefreshToken: refresh}, resp, cc, opts...); rerr != nil {
		return rerr
	}
	c.storeTokens(resp.AccessToken, resp.RefreshToken)

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

// invoke performs one unary call through the breaker.
func (c *GRPCClient) invoke(ctx context.Context, method string, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.conn.Invoke(ctx, rpc.FullMethod(method), req, resp)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", common.ErrUnavailable, err)
	}
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	resp := &rpc.PingResponse{}
	if err := c.invoke(ctx, rpc.MethodPing, &rpc.PingRequest{}, resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return common.ErrUnavailable
	}
	return nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}
