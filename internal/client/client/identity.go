package client

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/remote"
	"github.com/dmitrijs2005/recipelab/internal/rpc"
)

func toSession(r *rpc.SessionResponse) *remote.Session {
	return &remote.Session{
		Identity: remote.Identity{
			OwnerID:     r.OwnerID,
			IsAnonymous: r.IsAnonymous,
			DisplayName: r.DisplayName,
			Email:       r.Email,
		},
		AccessToken:    r.AccessToken,
		RefreshToken:   r.RefreshToken,
		OwnershipProof: r.OwnershipProof,
	}
}

func (c *GRPCClient) signIn(ctx context.Context, method string, req any) (*remote.Session, error) {
	resp := &rpc.SessionResponse{}
	if err := c.invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	c.storeTokens(resp.AccessToken, resp.RefreshToken)
	return toSession(resp), nil
}

func (c *GRPCClient) SignInAnonymously(ctx context.Context) (*remote.Session, error) {
	return c.signIn(ctx, rpc.MethodSignInAnonymously, &rpc.SignInAnonymouslyRequest{})
}

// LinkEmail upgrades the signed-in anonymous account in place.
func (c *GRPCClient) LinkEmail(ctx context.Context, email string) (*remote.Session, error) {
	return c.signIn(ctx, rpc.MethodLinkEmail, &rpc.LinkEmailRequest{Email: email})
}

func (c *GRPCClient) SignInWithEmail(ctx context.Context, email string) (*remote.Session, error) {
	return c.signIn(ctx, rpc.MethodSignInWithEmail, &rpc.SignInWithEmailRequest{Email: email})
}

// SignOut revokes the refresh token and forgets both tokens.
func (c *GRPCClient) SignOut(ctx context.Context) error {
	_, refresh := c.tokens()
	err := c.invoke(ctx, rpc.MethodSignOut, &rpc.SignOutRequest{RefreshToken: refresh}, &rpc.Empty{})
	c.storeTokens("", "")
	return err
}

// Resume installs persisted tokens and asks the server who they belong to.
// An expired access token is refreshed on the way.
func (c *GRPCClient) Resume(ctx context.Context, accessToken, refreshToken string) (*remote.Session, error) {
	c.SetTokens(accessToken, refreshToken)
	resp := &rpc.SessionResponse{}
	if err := c.invoke(ctx, rpc.MethodWhoAmI, &rpc.WhoAmIRequest{}, resp); err != nil {
		return nil, err
	}
	s := toSession(resp)
	s.AccessToken, s.RefreshToken = c.tokens()
	return s, nil
}
