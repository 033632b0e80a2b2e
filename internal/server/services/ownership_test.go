package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/remote"
	"github.com/dmitrijs2005/recipelab/internal/server/auth"
	"github.com/dmitrijs2005/recipelab/internal/server/config"
	"github.com/dmitrijs2005/recipelab/internal/server/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOwnership(t *testing.T, policy config.ProfilePolicy) (*OwnershipService, *memStore, *metrics.Collector) {
	t.Helper()
	cfg := testConfig()
	cfg.ProfilePolicy = policy
	st := newMemStore()
	mc := metrics.New()
	return NewOwnershipService(txDB(t), &fakeManager{s: st}, cfg, mc, logging.Nop()), st, mc
}

func proofFor(t *testing.T, ownerID string) string {
	t.Helper()
	p, err := auth.GenerateToken(ownerID, auth.KindProof, []byte(testConfig().SecretKey), time.Hour)
	require.NoError(t, err)
	return p
}

func moveReq(t *testing.T) remote.MoveRequest {
	return remote.MoveRequest{OldOwnerID: "anon", NewOwnerID: "perm", NewDisplayName: "Perm", Proof: proofFor(t, "anon")}
}

func TestMoveOwnership_Authorization(t *testing.T) {
	svc, st, _ := newOwnership(t, config.ProfileDiscard)
	ctx := context.Background()
	st.recipes["r"] = sampleRecipe("r", "anon")

	_, err := svc.MoveOwnership(ctx, "intruder", remote.CollectionRecipes, moveReq(t))
	assert.ErrorIs(t, err, common.ErrForbidden)

	req := moveReq(t)
	req.Proof = proofFor(t, "someone-else")
	_, err = svc.MoveOwnership(ctx, "perm", remote.CollectionRecipes, req)
	assert.ErrorIs(t, err, common.ErrForbidden)

	req.Proof = "garbage"
	_, err = svc.MoveOwnership(ctx, "perm", remote.CollectionRecipes, req)
	assert.ErrorIs(t, err, common.ErrForbidden)

	req = moveReq(t)
	req.OldOwnerID = ""
	_, err = svc.MoveOwnership(ctx, "perm", remote.CollectionRecipes, req)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.MoveOwnership(ctx, "perm", remote.Collection("secrets"), moveReq(t))
	assert.ErrorIs(t, err, common.ErrValidation)

	assert.Equal(t, "anon", st.recipes["r"].CreatedBy.ID)
}

func TestMoveOwnership_SameOwnerIsNoop(t *testing.T) {
	svc, st, _ := newOwnership(t, config.ProfileDiscard)
	req := remote.MoveRequest{OldOwnerID: "perm", NewOwnerID: "perm"}

	n, err := svc.MoveOwnership(context.Background(), "perm", remote.CollectionRecipes, req)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, st.calls["recipes.MoveOwnerBatch"])
}

func TestMoveOwnership_RecipesInBatches(t *testing.T) {
	svc, st, mc := newOwnership(t, config.ProfileDiscard)
	for i := range 5 {
		id := fmt.Sprintf("r-%d", i)
		st.recipes[id] = sampleRecipe(id, "anon")
	}
	st.recipes["theirs"] = sampleRecipe("theirs", "other")

	n, err := svc.MoveOwnership(context.Background(), "perm", remote.CollectionRecipes, moveReq(t))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	for i := range 5 {
		assert.Equal(t, models.Owner{ID: "perm", DisplayName: "Perm"}, st.recipes[fmt.Sprintf("r-%d", i)].CreatedBy)
	}
	assert.Equal(t, "other", st.recipes["theirs"].CreatedBy.ID)
	assert.Equal(t, 3, st.calls["recipes.MoveOwnerBatch"])
	assert.Equal(t, 3.0, testutil.ToFloat64(mc.BatchesCommitted.WithLabelValues("recipes")))
	assert.Equal(t, 5.0, testutil.ToFloat64(mc.RecordsMoved.WithLabelValues("recipes")))

	n, err = svc.MoveOwnership(context.Background(), "perm", remote.CollectionRecipes, moveReq(t))
	require.NoError(t, err)
	assert.Zero(t, n, "a repeated move finds nothing left")
}

func TestMoveOwnership_InterruptedMoveResumes(t *testing.T) {
	svc, st, mc := newOwnership(t, config.ProfileDiscard)
	for i := range 5 {
		id := fmt.Sprintf("r-%d", i)
		st.recipes[id] = sampleRecipe(id, "anon")
	}
	st.fail = failOnCall("recipes.MoveOwnerBatch", 2, errors.New("connection reset"))

	n, err := svc.MoveOwnership(context.Background(), "perm", remote.CollectionRecipes, moveReq(t))
	require.Error(t, err)
	assert.Equal(t, 2, n, "the first batch stays committed")
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.MoveFailures.WithLabelValues("recipes")))

	st.fail = nil
	n, err = svc.MoveOwnership(context.Background(), "perm", remote.CollectionRecipes, moveReq(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMoveOwnership_FavoritesAndNotifications(t *testing.T) {
	svc, st, _ := newOwnership(t, config.ProfileDiscard)
	ctx := context.Background()
	st.favorites[[2]string{"anon", "r-1"}] = &models.Favorite{OwnerID: "anon", RecipeID: "r-1"}
	st.favorites[[2]string{"anon", "r-2"}] = &models.Favorite{OwnerID: "anon", RecipeID: "r-2"}
	st.favorites[[2]string{"perm", "r-2"}] = &models.Favorite{OwnerID: "perm", RecipeID: "r-2"}
	st.notifications = []*models.Notification{{ID: "n-1", RecipientID: "anon"}, {ID: "n-2", RecipientID: "x"}}

	n, err := svc.MoveOwnership(ctx, "perm", remote.CollectionFavorites, moveReq(t))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, st.favorites, 2)
	assert.Contains(t, st.favorites, [2]string{"perm", "r-1"})

	n, err = svc.MoveOwnership(ctx, "perm", remote.CollectionNotifications, moveReq(t))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "perm", st.notifications[0].RecipientID)
	assert.Equal(t, "x", st.notifications[1].RecipientID)
}

func TestMoveOwnership_FollowsDropSelfEdges(t *testing.T) {
	svc, st, _ := newOwnership(t, config.ProfileDiscard)
	st.follows = []*models.Follow{
		{FollowerID: "anon", FollowingID: "chef"},
		{FollowerID: "anon", FollowingID: "perm"},
		{FollowerID: "fan", FollowingID: "anon"},
	}

	n, err := svc.MoveOwnership(context.Background(), "perm", remote.CollectionFollows, moveReq(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var edges [][2]string
	for _, f := range st.follows {
		edges = append(edges, [2]string{f.FollowerID, f.FollowingID})
	}
	assert.ElementsMatch(t, [][2]string{{"perm", "chef"}, {"fan", "perm"}}, edges)
}

func TestMoveOwnership_ProfileCopiedWhenNewHasNone(t *testing.T) {
	svc, st, _ := newOwnership(t, config.ProfileDiscard)
	st.profiles["anon"] = &models.Profile{OwnerID: "anon", DisplayName: "Guest", RecipeCount: 3}

	n, err := svc.MoveOwnership(context.Background(), "perm", remote.CollectionProfile, moveReq(t))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotContains(t, st.profiles, "anon")
	require.Contains(t, st.profiles, "perm")
	assert.Equal(t, "Perm", st.profiles["perm"].DisplayName)
	assert.EqualValues(t, 3, st.profiles["perm"].RecipeCount)

	n, err = svc.MoveOwnership(context.Background(), "perm", remote.CollectionProfile, moveReq(t))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMoveOwnership_ProfileConflictPolicies(t *testing.T) {
	for _, tc := range []struct {
		policy  config.ProfilePolicy
		recipes int64
		merges  float64
	}{
		{config.ProfileDiscard, 2, 0},
		{config.ProfileMerge, 5, 1},
	} {
		t.Run(string(tc.policy), func(t *testing.T) {
			svc, st, mc := newOwnership(t, tc.policy)
			st.profiles["anon"] = &models.Profile{OwnerID: "anon", RecipeCount: 3, FollowerCount: 1}
			st.profiles["perm"] = &models.Profile{OwnerID: "perm", DisplayName: "Perm", RecipeCount: 2}

			n, err := svc.MoveOwnership(context.Background(), "perm", remote.CollectionProfile, moveReq(t))
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			assert.NotContains(t, st.profiles, "anon")
			assert.Equal(t, tc.recipes, st.profiles["perm"].RecipeCount)
			assert.Equal(t, tc.merges, testutil.ToFloat64(mc.ProfileMerges))
		})
	}
}

func TestMoveOwnership_PendingSuggestionResolvableByNewOwner(t *testing.T) {
	svc, st, _ := newOwnership(t, config.ProfileDiscard)
	social := NewSocialService(txDB(t), &fakeManager{s: st}, metrics.New(), logging.Nop())
	ctx := context.Background()

	st.recipes["r-1"] = sampleRecipe("r-1", "anon")
	theirs := sampleRecipe("r-2", "chef")
	theirs.Collaborators = []models.Owner{{ID: "anon", DisplayName: "Guest"}}
	st.recipes["r-2"] = theirs
	st.favorites[[2]string{"bob", "r-1"}] = &models.Favorite{OwnerID: "bob", RecipeID: "r-1", RecipeOwnerID: "anon"}

	toMe, err := social.CreateSuggestion(ctx, "bob", "r-1", "more garlic")
	require.NoError(t, err)
	fromMe, err := social.CreateSuggestion(ctx, "anon", "r-2", "less salt")
	require.NoError(t, err)

	for _, c := range remote.Collections {
		_, err := svc.MoveOwnership(ctx, "perm", c, moveReq(t))
		require.NoError(t, err, c)
	}

	assert.Equal(t, "perm", st.suggestions[toMe.ID].RecipeOwnerID)
	assert.Equal(t, models.Owner{ID: "perm", DisplayName: "Perm"}, st.suggestions[fromMe.ID].SuggestedBy)
	assert.Equal(t, "perm", st.favorites[[2]string{"bob", "r-1"}].RecipeOwnerID)
	assert.Equal(t, []models.Owner{{ID: "perm", DisplayName: "Perm"}}, st.recipes["r-2"].Collaborators)

	out, err := social.ResolveSuggestion(ctx, "perm", toMe.ID, models.SuggestionApproved)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionApproved, out.Status)

	_, err = social.ResolveSuggestion(ctx, "anon", toMe.ID, models.SuggestionRejected)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestMoveOwnership_SuggestionFollowsRecipeOwnerBeforeItsOwnLeg(t *testing.T) {
	svc, st, _ := newOwnership(t, config.ProfileDiscard)
	social := NewSocialService(txDB(t), &fakeManager{s: st}, metrics.New(), logging.Nop())
	ctx := context.Background()

	st.recipes["r-1"] = sampleRecipe("r-1", "anon")
	sg, err := social.CreateSuggestion(ctx, "bob", "r-1", "more garlic")
	require.NoError(t, err)

	_, err = svc.MoveOwnership(ctx, "perm", remote.CollectionRecipes, moveReq(t))
	require.NoError(t, err)
	require.Equal(t, "anon", st.suggestions[sg.ID].RecipeOwnerID)

	_, err = social.ResolveSuggestion(ctx, "perm", sg.ID, models.SuggestionApproved)
	require.NoError(t, err)
}

func TestMoveOwnership_CollaboratorAlreadyCredited(t *testing.T) {
	svc, st, _ := newOwnership(t, config.ProfileDiscard)
	r := sampleRecipe("r-1", "chef")
	r.Collaborators = []models.Owner{{ID: "anon"}, {ID: "perm", DisplayName: "Perm"}}
	st.recipes["r-1"] = r

	n, err := svc.MoveOwnership(context.Background(), "perm", remote.CollectionRecipes, moveReq(t))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []models.Owner{{ID: "perm", DisplayName: "Perm"}}, st.recipes["r-1"].Collaborators)
}

// Counters are maintained by increments only, so moving edges without the
// profile leave them stale. Nothing recounts them afterwards.
func TestMoveOwnership_CountersDriftWhenProfileLegFails(t *testing.T) {
	svc, st, _ := newOwnership(t, config.ProfileDiscard)
	ctx := context.Background()
	st.follows = []*models.Follow{{FollowerID: "fan", FollowingID: "anon"}}
	st.profiles["anon"] = &models.Profile{OwnerID: "anon", FollowerCount: 1}
	st.profiles["perm"] = &models.Profile{OwnerID: "perm", DisplayName: "Perm"}
	st.fail = failOnCall("profiles.Get", 1, errors.New("connection reset"))

	n, err := svc.MoveOwnership(ctx, "perm", remote.CollectionFollows, moveReq(t))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.MoveOwnership(ctx, "perm", remote.CollectionProfile, moveReq(t))
	require.Error(t, err)

	require.Len(t, st.follows, 1)
	assert.Equal(t, "perm", st.follows[0].FollowingID)
	assert.EqualValues(t, 0, st.profiles["perm"].FollowerCount, "the moved edge is not counted")
	assert.EqualValues(t, 1, st.profiles["anon"].FollowerCount)

	st.fail = nil
	n, err = svc.MoveOwnership(ctx, "perm", remote.CollectionProfile, moveReq(t))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotContains(t, st.profiles, "anon")
	assert.EqualValues(t, 0, st.profiles["perm"].FollowerCount, "discard drops the old count")
}
