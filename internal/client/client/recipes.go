package client

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/remote"
	"github.com/dmitrijs2005/recipelab/internal/rpc"
)

func (c *GRPCClient) PutRecipe(ctx context.Context, r *models.Recipe) error {
	return c.invoke(ctx, rpc.MethodPutRecipe, &rpc.PutRecipeRequest{Recipe: r.Shareable()}, &rpc.Empty{})
}

func (c *GRPCClient) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	resp := &rpc.RecipeResponse{}
	if err := c.invoke(ctx, rpc.MethodGetRecipe, &rpc.GetRecipeRequest{ID: id}, resp); err != nil {
		return nil, err
	}
	return resp.Recipe, nil
}

func (c *GRPCClient) DeleteRecipes(ctx context.Context, ids []string) (int, error) {
	resp := &rpc.CountResponse{}
	if err := c.invoke(ctx, rpc.MethodDeleteRecipes, &rpc.DeleteRecipesRequest{IDs: ids}, resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *GRPCClient) SetFavorite(ctx context.Context, recipeID string, on bool) error {
	return c.invoke(ctx, rpc.MethodSetFavorite, &rpc.SetFavoriteRequest{RecipeID: recipeID, On: on}, &rpc.Empty{})
}

func (c *GRPCClient) MoveOwnership(ctx context.Context, col remote.Collection, req remote.MoveRequest) (int, error) {
	resp := &rpc.CountResponse{}
	err := c.invoke(ctx, rpc.MethodMoveOwnership, &rpc.MoveOwnershipRequest{
		Collection:     string(col),
		OldOwnerID:     req.OldOwnerID,
		NewOwnerID:     req.NewOwnerID,
		NewDisplayName: req.NewDisplayName,
		Proof:          req.Proof,
	}, resp)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}
