package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/dmitrijs2005/recipelab/internal/models"
	smodels "github.com/dmitrijs2005/recipelab/internal/server/models"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/favorites"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/follows"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/recipes"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/suggestions"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// txDB returns a database that only serves BEGIN and COMMIT; the fake
// repositories ignore the handle they are bound to.
func txDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// memStore backs every fake repository. fail, when set, is consulted before
// each operation and may abort it.
type memStore struct {
	mu sync.Mutex

	accounts      map[string]*smodels.Account
	tokens        map[string]*smodels.RefreshToken
	recipes       map[string]*models.Recipe
	favorites     map[[2]string]*models.Favorite
	notifications []*models.Notification
	profiles      map[string]*models.Profile
	follows       []*models.Follow
	suggestions   map[string]*models.Suggestion

	calls map[string]int
	fail  func(op string, call int) error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:    map[string]*smodels.Account{},
		tokens:      map[string]*smodels.RefreshToken{},
		recipes:     map[string]*models.Recipe{},
		favorites:   map[[2]string]*models.Favorite{},
		profiles:    map[string]*models.Profile{},
		suggestions: map[string]*models.Suggestion{},
		calls:       map[string]int{},
	}
}

func (s *memStore) enter(op string) error {
	s.mu.Lock()
	s.calls[op]++
	if s.fail != nil {
		if err := s.fail(op, s.calls[op]); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	return nil
}

type fakeManager struct {
	s             *memStore
	migrationsErr error
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return m.migrationsErr }

func (m *fakeManager) Accounts(dbx.DBTX) accounts.Repository           { return memAccounts{m.s} }
func (m *fakeManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return memTokens{m.s} }
func (m *fakeManager) Recipes(dbx.DBTX) recipes.Repository             { return memRecipes{m.s} }
func (m *fakeManager) Favorites(dbx.DBTX) favorites.Repository         { return memFavorites{m.s} }
func (m *fakeManager) Notifications(dbx.DBTX) notifications.Repository { return memNotifications{m.s} }
func (m *fakeManager) Profiles(dbx.DBTX) profiles.Repository           { return memProfiles{m.s} }
func (m *fakeManager) Follows(dbx.DBTX) follows.Repository             { return memFollows{m.s} }
func (m *fakeManager) Suggestions(dbx.DBTX) suggestions.Repository     { return memSuggestions{m.s} }

type memAccounts struct{ s *memStore }

func (r memAccounts) Create(_ context.Context, a *smodels.Account) error {
	if err := r.s.enter("accounts.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[a.ID]; ok {
		return common.ErrCredentialInUse
	}
	for _, x := range r.s.accounts {
		if a.Email != "" && x.Email == a.Email {
			return common.ErrCredentialInUse
		}
	}
	cp := *a
	r.s.accounts[a.ID] = &cp
	return nil
}

func (r memAccounts) GetByID(_ context.Context, id string) (*smodels.Account, error) {
	if err := r.s.enter("accounts.GetByID"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r memAccounts) GetByEmail(_ context.Context, email string) (*smodels.Account, error) {
	if err := r.s.enter("accounts.GetByEmail"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memAccounts) LinkEmail(_ context.Context, id, email string) error {
	if err := r.s.enter("accounts.LinkEmail"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.Email == email && a.ID != id {
			return common.ErrCredentialInUse
		}
	}
	a, ok := r.s.accounts[id]
	if !ok {
		return common.ErrNotFound
	}
	a.Email, a.IsAnonymous = email, false
	return nil
}

func (r memAccounts) UpdateDisplayName(_ context.Context, id, name string) error {
	if err := r.s.enter("accounts.UpdateDisplayName"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return common.ErrNotFound
	}
	a.DisplayName = name
	return nil
}

type memTokens struct{ s *memStore }

func (r memTokens) Create(_ context.Context, accountID, token string, validity time.Duration) error {
	if err := r.s.enter("tokens.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	r.s.tokens[token] = &smodels.RefreshToken{Token: token, AccountID: accountID, Expires: time.Now().Add(validity)}
	return nil
}

func (r memTokens) Find(_ context.Context, token string) (*smodels.RefreshToken, error) {
	if err := r.s.enter("tokens.Find"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r memTokens) Delete(_ context.Context, token string) error {
	if err := r.s.enter("tokens.Delete"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	delete(r.s.tokens, token)
	return nil
}

type memRecipes struct{ s *memStore }

func (r memRecipes) Put(_ context.Context, rc *models.Recipe) (bool, error) {
	if err := r.s.enter("recipes.Put"); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	_, existed := r.s.recipes[rc.ID]
	cp := *rc
	r.s.recipes[rc.ID] = &cp
	return !existed, nil
}

func (r memRecipes) Get(_ context.Context, id string) (*models.Recipe, error) {
	if err := r.s.enter("recipes.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	rc, ok := r.s.recipes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *rc
	cp.Collaborators = append([]models.Owner(nil), rc.Collaborators...)
	return &cp, nil
}

func (r memRecipes) DeleteOwned(_ context.Context, ownerID string, ids []string) (int, error) {
	if err := r.s.enter("recipes.DeleteOwned"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if rc, ok := r.s.recipes[id]; ok && rc.CreatedBy.ID == ownerID {
			delete(r.s.recipes, id)
			n++
		}
	}
	return n, nil
}

func (r memRecipes) AddCollaborator(_ context.Context, id string, o models.Owner) (bool, error) {
	if err := r.s.enter("recipes.AddCollaborator"); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	rc, ok := r.s.recipes[id]
	if !ok {
		return false, common.ErrNotFound
	}
	return rc.AddCollaborator(o), nil
}

func (r memRecipes) AdjustFavoriteCount(_ context.Context, id string, delta int) error {
	if err := r.s.enter("recipes.AdjustFavoriteCount"); err != nil {
		return err
	}
	r.s.mu.Unlock()
	return nil
}

func (r memRecipes) MoveOwnerBatch(_ context.Context, oldOwnerID string, newOwner models.Owner, limit int) (int, error) {
	if err := r.s.enter("recipes.MoveOwnerBatch"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var ids []string
	for id, rc := range r.s.recipes {
		if rc.CreatedBy.ID == oldOwnerID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	for _, id := range ids {
		r.s.recipes[id].CreatedBy = newOwner
	}
	return len(ids), nil
}

func (r memRecipes) MoveCollaboratorBatch(_ context.Context, oldOwnerID string, newOwner models.Owner, limit int) (int, error) {
	if err := r.s.enter("recipes.MoveCollaboratorBatch"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	n := 0
	for _, rc := range r.s.recipes {
		if n == limit {
			break
		}
		i := slices.IndexFunc(rc.Collaborators, func(o models.Owner) bool { return o.ID == oldOwnerID })
		if i < 0 {
			continue
		}
		if slices.ContainsFunc(rc.Collaborators, func(o models.Owner) bool { return o.ID == newOwner.ID }) {
			rc.Collaborators = slices.Delete(rc.Collaborators, i, i+1)
		} else {
			rc.Collaborators[i] = newOwner
		}
		n++
	}
	return n, nil
}

type memFavorites struct{ s *memStore }

func (r memFavorites) Put(_ context.Context, f *models.Favorite) (bool, error) {
	if err := r.s.enter("favorites.Put"); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	k := [2]string{f.OwnerID, f.RecipeID}
	if _, ok := r.s.favorites[k]; ok {
		return false, nil
	}
	cp := *f
	r.s.favorites[k] = &cp
	return true, nil
}

func (r memFavorites) Delete(_ context.Context, ownerID, recipeID string) (bool, error) {
	if err := r.s.enter("favorites.Delete"); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	k := [2]string{ownerID, recipeID}
	_, ok := r.s.favorites[k]
	delete(r.s.favorites, k)
	return ok, nil
}

func (r memFavorites) RekeyBatch(_ context.Context, oldOwnerID, newOwnerID string, limit int) (int, error) {
	if err := r.s.enter("favorites.RekeyBatch"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	n := 0
	for k, f := range r.s.favorites {
		if n == limit {
			break
		}
		if k[0] != oldOwnerID {
			continue
		}
		delete(r.s.favorites, k)
		nk := [2]string{newOwnerID, k[1]}
		if _, ok := r.s.favorites[nk]; !ok {
			f.OwnerID = newOwnerID
			r.s.favorites[nk] = f
		}
		n++
	}
	return n, nil
}

func (r memFavorites) ReassignRecipeOwnerBatch(_ context.Context, oldOwnerID, newOwnerID string, limit int) (int, error) {
	if err := r.s.enter("favorites.ReassignRecipeOwnerBatch"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	n := 0
	for _, f := range r.s.favorites {
		if n == limit {
			break
		}
		if f.RecipeOwnerID == oldOwnerID {
			f.RecipeOwnerID = newOwnerID
			n++
		}
	}
	return n, nil
}

type memNotifications struct{ s *memStore }

func (r memNotifications) Create(_ context.Context, n *models.Notification) error {
	if err := r.s.enter("notifications.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	cp := *n
	r.s.notifications = append(r.s.notifications, &cp)
	return nil
}

func (r memNotifications) List(_ context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	if err := r.s.enter("notifications.List"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*models.Notification
	for i := len(r.s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if n := r.s.notifications[i]; n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r memNotifications) MarkRead(_ context.Context, recipientID, id string) error {
	if err := r.s.enter("notifications.MarkRead"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			n.Read = true
			return nil
		}
	}
	return common.ErrNotFound
}

func (r memNotifications) MarkAllRead(_ context.Context, recipientID string) (int, error) {
	if err := r.s.enter("notifications.MarkAllRead"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	c := 0
	for _, n := range r.s.notifications {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			c++
		}
	}
	return c, nil
}

func (r memNotifications) ReassignBatch(_ context.Context, oldRecipientID, newRecipientID string, limit int) (int, error) {
	if err := r.s.enter("notifications.ReassignBatch"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	c := 0
	for _, n := range r.s.notifications {
		if c < limit && n.RecipientID == oldRecipientID {
			n.RecipientID = newRecipientID
			c++
		}
	}
	return c, nil
}

type memProfiles struct{ s *memStore }

func (r memProfiles) Get(_ context.Context, ownerID string) (*models.Profile, error) {
	if err := r.s.enter("profiles.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[ownerID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memProfiles) Create(_ context.Context, p *models.Profile) (bool, error) {
	if err := r.s.enter("profiles.Create"); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[p.OwnerID]; ok {
		return false, nil
	}
	cp := *p
	r.s.profiles[p.OwnerID] = &cp
	return true, nil
}

func (r memProfiles) UpdateDisplayName(_ context.Context, ownerID, name string) error {
	if err := r.s.enter("profiles.UpdateDisplayName"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[ownerID]
	if !ok {
		return common.ErrNotFound
	}
	p.DisplayName = name
	return nil
}

func (r memProfiles) UpdateAvatar(_ context.Context, ownerID string, a models.Avatar) error {
	if err := r.s.enter("profiles.UpdateAvatar"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[ownerID]
	if !ok {
		return common.ErrNotFound
	}
	p.Avatar = a
	return nil
}

func (r memProfiles) AddCounters(_ context.Context, ownerID string, c profiles.Counters) error {
	if err := r.s.enter("profiles.AddCounters"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[ownerID]
	if !ok {
		return nil
	}
	p.RecipeCount = max(p.RecipeCount+c.Recipes, 0)
	p.FollowerCount = max(p.FollowerCount+c.Followers, 0)
	p.FollowingCount = max(p.FollowingCount+c.Following, 0)
	return nil
}

func (r memProfiles) Delete(_ context.Context, ownerID string) error {
	if err := r.s.enter("profiles.Delete"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	delete(r.s.profiles, ownerID)
	return nil
}

type memFollows struct{ s *memStore }

func (r memFollows) find(followerID, followingID string) int {
	for i, f := range r.s.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID {
			return i
		}
	}
	return -1
}

func (r memFollows) Create(_ context.Context, f *models.Follow) (bool, error) {
	if err := r.s.enter("follows.Create"); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	if r.find(f.FollowerID, f.FollowingID) >= 0 {
		return false, nil
	}
	cp := *f
	r.s.follows = append(r.s.follows, &cp)
	return true, nil
}

func (r memFollows) Delete(_ context.Context, followerID, followingID string) (bool, error) {
	if err := r.s.enter("follows.Delete"); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	i := r.find(followerID, followingID)
	if i < 0 {
		return false, nil
	}
	r.s.follows = append(r.s.follows[:i], r.s.follows[i+1:]...)
	return true, nil
}

func (r memFollows) Exists(_ context.Context, followerID, followingID string) (bool, error) {
	if err := r.s.enter("follows.Exists"); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	return r.find(followerID, followingID) >= 0, nil
}

func (r memFollows) ListFollowing(_ context.Context, followerID string) ([]string, error) {
	if err := r.s.enter("follows.ListFollowing"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []string
	for i := len(r.s.follows) - 1; i >= 0; i-- {
		if f := r.s.follows[i]; f.FollowerID == followerID {
			out = append(out, f.FollowingID)
		}
	}
	return out, nil
}

// rekey rewrites up to limit edges picked by match, dropping those that
// would turn into self-follows or duplicates.
func (r memFollows) rekey(limit int, match func(*models.Follow) bool, rewrite func(models.Follow) models.Follow) int {
	n := 0
	kept := r.s.follows[:0:0]
	for _, f := range r.s.follows {
		if n == limit || !match(f) {
			kept = append(kept, f)
			continue
		}
		n++
		nf := rewrite(*f)
		if nf.FollowerID == nf.FollowingID {
			continue
		}
		dup := false
		for _, k := range kept {
			if k.FollowerID == nf.FollowerID && k.FollowingID == nf.FollowingID {
				dup = true
			}
		}
		if !dup {
			kept = append(kept, &nf)
		}
	}
	r.s.follows = kept
	return n
}

func (r memFollows) RekeyFollowerBatch(_ context.Context, oldID, newID string, limit int) (int, error) {
	if err := r.s.enter("follows.RekeyFollowerBatch"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	return r.rekey(limit,
		func(f *models.Follow) bool { return f.FollowerID == oldID },
		func(f models.Follow) models.Follow { f.FollowerID = newID; return f }), nil
}

func (r memFollows) RekeyFollowingBatch(_ context.Context, oldID, newID string, limit int) (int, error) {
	if err := r.s.enter("follows.RekeyFollowingBatch"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	return r.rekey(limit,
		func(f *models.Follow) bool { return f.FollowingID == oldID },
		func(f models.Follow) models.Follow { f.FollowingID = newID; return f }), nil
}

type memSuggestions struct{ s *memStore }

func (r memSuggestions) Create(_ context.Context, sg *models.Suggestion) error {
	if err := r.s.enter("suggestions.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	cp := *sg
	r.s.suggestions[sg.ID] = &cp
	return nil
}

func (r memSuggestions) Get(_ context.Context, id string) (*models.Suggestion, error) {
	if err := r.s.enter("suggestions.Get"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	sg, ok := r.s.suggestions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *sg
	return &cp, nil
}

func (r memSuggestions) ListByRecipe(_ context.Context, recipeID string) ([]*models.Suggestion, error) {
	if err := r.s.enter("suggestions.ListByRecipe"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*models.Suggestion
	for _, sg := range r.s.suggestions {
		if sg.RecipeID == recipeID {
			out = append(out, sg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memSuggestions) UpdateStatus(_ context.Context, id string, status models.SuggestionStatus) error {
	if err := r.s.enter("suggestions.UpdateStatus"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	sg, ok := r.s.suggestions[id]
	if !ok {
		return common.ErrNotFound
	}
	sg.Status = status
	return nil
}

func (r memSuggestions) ReassignRecipeOwnerBatch(_ context.Context, oldOwnerID, newOwnerID string, limit int) (int, error) {
	if err := r.s.enter("suggestions.ReassignRecipeOwnerBatch"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	n := 0
	for _, sg := range r.s.suggestions {
		if n == limit {
			break
		}
		if sg.RecipeOwnerID == oldOwnerID {
			sg.RecipeOwnerID = newOwnerID
			n++
		}
	}
	return n, nil
}

func (r memSuggestions) ReassignSuggesterBatch(_ context.Context, oldOwnerID string, newOwner models.Owner, limit int) (int, error) {
	if err := r.s.enter("suggestions.ReassignSuggesterBatch"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	n := 0
	for _, sg := range r.s.suggestions {
		if n == limit {
			break
		}
		if sg.SuggestedBy.ID == oldOwnerID {
			sg.SuggestedBy = newOwner
			n++
		}
	}
	return n, nil
}

// failOnCall makes the n-th call of op fail with err.
func failOnCall(op string, n int, err error) func(string, int) error {
	return func(o string, call int) error {
		if o == op && call == n {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}
