package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/client/live"
	"github.com/dmitrijs2005/recipelab/internal/client/store"
	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/lineage"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/remote"
	"github.com/dmitrijs2005/recipelab/internal/timex"
	"github.com/google/uuid"
)

// NewRecipe is the input of RecipeService.Create. ParentID empty creates an
// original; otherwise ParentRootID and ParentDepth describe the parent.
type NewRecipe struct {
	Content      models.Content
	Prompt       string
	ChatHistory  []models.ChatMessage
	ParentID     string
	ParentRootID string
	ParentDepth  int
	Owner        models.Owner
}

// Core is a root recipe with the number of variations in its tree.
type Core struct {
	*models.Recipe
	ChildCount int `json:"childCount"`
}

// DeleteResult reports a cascading delete. Remote is the outcome of the
// best-effort removal of the published copies.
type DeleteResult struct {
	Deleted []string
	Remote  remote.Outcome
}

type RecipeService interface {
	Create(ctx context.Context, in NewRecipe) (*models.Recipe, error)
	Vary(ctx context.Context, parentID string, content models.Content, prompt string, history []models.ChatMessage, owner models.Owner) (*models.Recipe, error)
	Generate(ctx context.Context, gen Generator, prompt, parentID string, owner models.Owner) (*models.Recipe, error)
	Get(ctx context.Context, id string) (*models.Recipe, error)
	Update(ctx context.Context, id string, mutate func(r *models.Recipe)) (*models.Recipe, error)
	GetTree(ctx context.Context, rootID string) (*lineage.Node, error)
	GetAncestors(ctx context.Context, r *models.Recipe) ([]*models.Recipe, error)
	ListCores(ctx context.Context) ([]Core, error)
	DeleteTree(ctx context.Context, id string) (*DeleteResult, error)
	Publish(ctx context.Context, id string) (remote.Outcome, error)
	ExportAll(ctx context.Context) ([]*models.Recipe, error)
	ImportAll(ctx context.Context, recipes []*models.Recipe) (int, error)
	WatchCores(ctx context.Context, onChange func([]Core)) ([]Core, func(), error)
}

type recipeService struct {
	store  *store.Store
	remote remote.Recipes
	hub    *live.Hub
	logger logging.Logger
	now    func() time.Time
}

// NewRecipeService builds the service. rem may be nil when no remote store
// is configured; remote steps are then skipped.
func NewRecipeService(st *store.Store, rem remote.Recipes, hub *live.Hub, l logging.Logger) RecipeService {
	return &recipeService{store: st, remote: rem, hub: hub, logger: l.With("service", "recipes"), now: time.Now}
}

func (s *recipeService) Create(ctx context.Context, in NewRecipe) (*models.Recipe, error) {
	if err := models.ValidateContent(&in.Content); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	lin := models.RootLineage(id)
	if in.ParentID != "" {
		lin = models.Lineage{ParentID: in.ParentID, RootID: in.ParentRootID, Depth: in.ParentDepth + 1}
		if lin.RootID == "" {
			lin.RootID = in.ParentID
		}
	}

	now := timex.FromMillis(timex.Millis(s.now()))
	r := &models.Recipe{
		ID:          id,
		Lineage:     lin,
		CreatedBy:   in.Owner,
		Content:     in.Content,
		Prompt:      in.Prompt,
		ChatHistory: in.ChatHistory,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Recipes.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}
	s.hub.Publish(ctx, live.TopicRecipes)
	return r, nil
}

func (s *recipeService) Vary(ctx context.Context, parentID string, content models.Content, prompt string, history []models.ChatMessage, owner models.Owner) (*models.Recipe, error) {
	parent, err := s.store.Recipes.Get(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("load parent %s: %w", parentID, err)
	}
	return s.Create(ctx, NewRecipe{
		Content:      content,
		Prompt:       prompt,
		ChatHistory:  history,
		ParentID:     parent.ID,
		ParentRootID: parent.RootID,
		ParentDepth:  parent.Depth,
		Owner:        owner,
	})
}

func (s *recipeService) Generate(ctx context.Context, gen Generator, prompt, parentID string, owner models.Owner) (*models.Recipe, error) {
	var parent *models.Recipe
	if parentID != "" {
		p, err := s.store.Recipes.Get(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("load parent %s: %w", parentID, err)
		}
		parent = p
	}

	var parentContent *models.Content
	if parent != nil {
		parentContent = &parent.Content
	}
	content, err := gen.Generate(ctx, prompt, parentContent)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	now := s.now()
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: prompt, Timestamp: now},
		{Role: models.RoleAssistant, Content: content.Title, Timestamp: now},
	}
	in := NewRecipe{Content: *content, Prompt: prompt, ChatHistory: history, Owner: owner}
	if parent != nil {
		in.ParentID, in.ParentRootID, in.ParentDepth = parent.ID, parent.RootID, parent.Depth
	}
	return s.Create(ctx, in)
}

// Get reads the local copy and falls back to the published one.
func (s *recipeService) Get(ctx context.Context, id string) (*models.Recipe, error) {
	r, err := s.store.Recipes.Get(ctx, id)
	if err == nil || !errors.Is(err, common.ErrNotFound) || s.remote == nil {
		return r, err
	}

	r, rerr := s.remote.GetRecipe(ctx, id)
	if rerr != nil {
		if !errors.Is(rerr, common.ErrNotFound) {
			s.logger.Warn(ctx, "remote read failed", "recipe_id", id, "error", rerr)
		}
		return nil, common.ErrNotFound
	}
	return r, nil
}

// Update applies mutate to the stored recipe. An unknown id is a no-op that
// returns nil. updatedAt never moves backwards.
func (s *recipeService) Update(ctx context.Context, id string, mutate func(r *models.Recipe)) (*models.Recipe, error) {
	r, err := s.store.Recipes.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prev := r.UpdatedAt
	mutate(r)
	if err := models.ValidateContent(&r.Content); err != nil {
		return nil, err
	}
	r.UpdatedAt = timex.Later(prev, s.now())

	if err := s.store.Recipes.Put(ctx, r); err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}
	s.hub.Publish(ctx, live.TopicRecipes)
	return r, nil
}

func (s *recipeService) GetTree(ctx context.Context, rootID string) (*lineage.Node, error) {
	list, err := s.store.Recipes.ListByRoot(ctx, rootID)
	if err != nil {
		return nil, err
	}
	return lineage.BuildTree(list), nil
}

// GetAncestors returns r's ancestors root-first. A broken chain stops early.
func (s *recipeService) GetAncestors(ctx context.Context, r *models.Recipe) ([]*models.Recipe, error) {
	if r == nil || r.IsRoot() {
		return nil, nil
	}
	list, err := s.store.Recipes.ListByRoot(ctx, r.RootID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, x := range list {
		if x.ID == r.ID {
			found = true
			break
		}
	}
	if !found {
		list = append(list, r)
	}
	return lineage.AncestorChain(list, r.ID), nil
}

func (s *recipeService) ListCores(ctx context.Context) ([]Core, error) {
	roots, err := s.store.Recipes.ListRoots(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.Recipes.CountByRoot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Core, 0, len(roots))
	for _, r := range roots {
		out = append(out, Core{Recipe: r, ChildCount: max(counts[r.ID]-1, 0)})
	}
	return out, nil
}

func (s *recipeService) WatchCores(ctx context.Context, onChange func([]Core)) ([]Core, func(), error) {
	return live.Watch(ctx, s.hub, []live.Topic{live.TopicRecipes}, s.ListCores, onChange)
}

// DeleteTree removes id and all its descendants locally in one transaction,
// then asks the remote store to drop the published copies. An unknown id is
// a no-op.
func (s *recipeService) DeleteTree(ctx context.Context, id string) (*DeleteResult, error) {
	target, err := s.store.Recipes.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return &DeleteResult{Remote: remote.Outcome{Status: remote.Skipped}}, nil
	}
	if err != nil {
		return nil, err
	}

	tree, err := s.store.Recipes.ListByRoot(ctx, target.RootID)
	if err != nil {
		return nil, err
	}
	set := lineage.DescendantSet(tree, id)
	ids := make([]string, 0, len(set))
	for _, r := range tree {
		if _, ok := set[r.ID]; ok {
			ids = append(ids, r.ID)
		}
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, r *store.Repositories) error {
		if _, err := r.Recipes.DeleteMany(ctx, ids); err != nil {
			return err
		}
		_, err := r.Favorites.DeleteByRecipes(ctx, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("delete tree %s: %w", id, err)
	}
	s.hub.Publish(ctx, live.TopicRecipes, live.TopicFavorites)

	res := &DeleteResult{Deleted: ids, Remote: remote.Outcome{Status: remote.Skipped}}
	if s.remote != nil {
		n, err := s.remote.DeleteRecipes(ctx, ids)
		if err != nil {
			s.logger.Warn(ctx, "remote delete failed", "recipe_id", id, "error", err)
			res.Remote = remote.Failed(err)
		} else {
			res.Remote = remote.Done(n)
		}
	}
	return res, nil
}

// Publish mirrors a local recipe to the remote store without its chat history.
func (s *recipeService) Publish(ctx context.Context, id string) (remote.Outcome, error) {
	r, err := s.store.Recipes.Get(ctx, id)
	if err != nil {
		return remote.Outcome{}, err
	}
	if s.remote == nil {
		return remote.Outcome{Status: remote.Skipped}, nil
	}
	if err := s.remote.PutRecipe(ctx, r.Shareable()); err != nil {
		s.logger.Warn(ctx, "publish failed", "recipe_id", id, "error", err)
		return remote.Failed(err), nil
	}
	return remote.Done(1), nil
}

func (s *recipeService) ExportAll(ctx context.Context) ([]*models.Recipe, error) {
	return s.store.Recipes.ListAll(ctx)
}

// ImportAll upserts recipes by id in one transaction. Any structurally
// invalid recipe rejects the whole import.
func (s *recipeService) ImportAll(ctx context.Context, recipes []*models.Recipe) (int, error) {
	for _, r := range recipes {
		if err := models.ValidateImported(r); err != nil {
			return 0, fmt.Errorf("import %s: %w", r.ID, err)
		}
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, repos *store.Repositories) error {
		for _, r := range recipes {
			if err := repos.Recipes.Put(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	s.hub.Publish(ctx, live.TopicRecipes)
	return len(recipes), nil
}
