// Package client is the device-side transport to the Recipe Lab server.
//
// GRPCClient implements the narrow remote contracts (remote.Recipes,
// remote.Favorites, remote.Ownership, remote.Social) and the identity
// provider transport (remote.IdentityProvider) over gRPC with a JSON codec.
//
// # Tokens
//
// An interceptor attaches the access token to every outgoing call. When the
// server answers Unauthenticated with a token-expired message, the client
// refreshes the token pair once and retries the call. New tokens are handed
// to an optional sink so the caller can persist them.
//
// # Failures
//
// Calls go through a circuit breaker: after repeated transport failures the
// client fails fast with common.ErrUnavailable instead of waiting on each
// call's timeout. gRPC status codes are mapped back to the sentinel errors of
// package common, so callers match them with errors.Is.
package client
