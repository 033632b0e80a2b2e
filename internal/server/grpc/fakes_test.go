package grpc

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/remote"
	"github.com/dmitrijs2005/recipelab/internal/server/auth"
	"github.com/dmitrijs2005/recipelab/internal/server/metrics"
	smodels "github.com/dmitrijs2005/recipelab/internal/server/models"
	"github.com/dmitrijs2005/recipelab/internal/server/services"
)

const testSecret = "grpc-test-secret"

// fakeAccounts issues real JWTs so that the interceptor can verify them.
type fakeAccounts struct {
	mu          sync.Mutex
	accessTTL   time.Duration
	refreshes   map[string]string
	signOuts    []string
	linkErr     error
	lastLinkFor string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accessTTL: time.Hour, refreshes: map[string]string{}}
}

func (f *fakeAccounts) issue(id string, anon bool) (*services.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	access, err := auth.GenerateToken(id, auth.KindAccess, []byte(testSecret), f.accessTTL)
	if err != nil {
		return nil, err
	}
	proof, err := auth.GenerateToken(id, auth.KindProof, []byte(testSecret), time.Hour)
	if err != nil {
		return nil, err
	}
	refresh := "refresh-" + id + "-" + time.Now().Format(time.RFC3339Nano)
	f.refreshes[refresh] = id
	return &services.Session{
		Account:        &smodels.Account{ID: id, IsAnonymous: anon, DisplayName: models.DisplayNameFor(id)},
		AccessToken:    access,
		RefreshToken:   refresh,
		OwnershipProof: proof,
	}, nil
}

func (f *fakeAccounts) SignInAnonymously(ctx context.Context) (*services.Session, error) {
	return f.issue("anon-1", true)
}

func (f *fakeAccounts) LinkEmail(ctx context.Context, ownerID, email string) (*services.Session, error) {
	f.lastLinkFor = ownerID
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	return f.issue(ownerID, false)
}

func (f *fakeAccounts) SignInWithEmail(ctx context.Context, email string) (*services.Session, error) {
	return f.issue("perm-1", false)
}

func (f *fakeAccounts) RefreshToken(ctx context.Context, refreshToken string) (*services.Session, error) {
	f.mu.Lock()
	id, ok := f.refreshes[refreshToken]
	delete(f.refreshes, refreshToken)
	f.accessTTL = time.Hour
	f.mu.Unlock()
	if !ok {
		return nil, common.ErrInvalidToken
	}
	return f.issue(id, false)
}

func (f *fakeAccounts) SignOut(ctx context.Context, refreshToken string) error {
	f.signOuts = append(f.signOuts, refreshToken)
	return nil
}

func (f *fakeAccounts) WhoAmI(ctx context.Context, ownerID string) (*services.Session, error) {
	return &services.Session{Account: &smodels.Account{ID: ownerID, DisplayName: "Who " + ownerID}}, nil
}

type fakeRecipes struct {
	mu    sync.Mutex
	store map[string]*models.Recipe
	owner map[string]string
}

func newFakeRecipes() *fakeRecipes {
	return &fakeRecipes{store: map[string]*models.Recipe{}, owner: map[string]string{}}
}

func (f *fakeRecipes) Put(ctx context.Context, ownerID string, r *models.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.CreatedBy.ID != ownerID {
		return common.ErrForbidden
	}
	f.store[r.ID] = r
	f.owner[r.ID] = ownerID
	return nil
}

func (f *fakeRecipes) Get(ctx context.Context, id string) (*models.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.store[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r, nil
}

func (f *fakeRecipes) Delete(ctx context.Context, ownerID string, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		if f.owner[id] == ownerID {
			delete(f.store, id)
			n++
		}
	}
	return n, nil
}

// fakeSocial records the actor of the last call and returns canned values.
type fakeSocial struct {
	lastActor string
	profile   *models.Profile
	err       error
	following []string
}

func (f *fakeSocial) SetFavorite(ctx context.Context, actorID, recipeID string, on bool) error {
	f.lastActor = actorID
	return f.err
}

func (f *fakeSocial) CreateSuggestion(ctx context.Context, actorID, recipeID, message string) (*models.Suggestion, error) {
	f.lastActor = actorID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Suggestion{ID: "s-1", RecipeID: recipeID, Message: message, Status: models.SuggestionPending}, nil
}

func (f *fakeSocial) ListSuggestions(ctx context.Context, recipeID string) ([]*models.Suggestion, error) {
	return []*models.Suggestion{{ID: "s-1", RecipeID: recipeID}}, f.err
}

func (f *fakeSocial) ResolveSuggestion(ctx context.Context, actorID, id string, to models.SuggestionStatus) (*models.Suggestion, error) {
	f.lastActor = actorID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Suggestion{ID: id, Status: to}, nil
}

func (f *fakeSocial) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	f.lastActor = recipientID
	return []*models.Notification{{ID: "n-1", RecipientID: recipientID}}, f.err
}

func (f *fakeSocial) MarkNotificationRead(ctx context.Context, recipientID, id string) error {
	f.lastActor = recipientID
	return f.err
}

func (f *fakeSocial) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int, error) {
	f.lastActor = recipientID
	return 3, f.err
}

func (f *fakeSocial) GetProfile(ctx context.Context, ownerID string) (*models.Profile, error) {
	f.lastActor = ownerID
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	p.OwnerID = ownerID
	return &p, nil
}

func (f *fakeSocial) EnsureProfile(ctx context.Context, ownerID, displayName string) (*models.Profile, error) {
	f.lastActor = ownerID
	return &models.Profile{OwnerID: ownerID, DisplayName: displayName}, f.err
}

func (f *fakeSocial) UpdateDisplayName(ctx context.Context, ownerID, name string) error {
	f.lastActor = ownerID
	return f.err
}

func (f *fakeSocial) UpdateAvatar(ctx context.Context, ownerID string, a models.Avatar) error {
	f.lastActor = ownerID
	return f.err
}

func (f *fakeSocial) Follow(ctx context.Context, actorID, targetID string) error {
	f.lastActor = actorID
	if actorID == targetID {
		return common.ErrSelfAction
	}
	return f.err
}

func (f *fakeSocial) Unfollow(ctx context.Context, actorID, targetID string) error {
	f.lastActor = actorID
	return f.err
}

func (f *fakeSocial) IsFollowing(ctx context.Context, actorID, targetID string) (bool, error) {
	f.lastActor = actorID
	return true, f.err
}

func (f *fakeSocial) ListFollowing(ctx context.Context, actorID string) ([]string, error) {
	f.lastActor = actorID
	return f.following, f.err
}

type fakeOwnership struct {
	caller string
	col    remote.Collection
	req    remote.MoveRequest
	n      int
	err    error
}

func (f *fakeOwnership) MoveOwnership(ctx context.Context, callerID string, c remote.Collection, req remote.MoveRequest) (int, error) {
	f.caller, f.col, f.req = callerID, c, req
	return f.n, f.err
}

type fakeAvatars struct{}

func (fakeAvatars) UploadURL(ctx context.Context, ownerID, contentType string) (string, string, error) {
	if contentType != "image/png" {
		return "", "", common.ErrValidation
	}
	key := "avatars/" + ownerID + "/k"
	return key, "https://s3.local/" + key, nil
}

func (fakeAvatars) OwnsKey(ownerID, key string) bool {
	return key == "avatars/"+ownerID+"/k"
}

func (fakeAvatars) Resolve(ctx context.Context, p *models.Profile) {
	if p.Avatar.Type == models.AvatarUploaded {
		p.Avatar.URL = "https://s3.local/" + p.Avatar.URL
	}
}

type fixture struct {
	srv       *GRPCServer
	accounts  *fakeAccounts
	recipes   *fakeRecipes
	social    *fakeSocial
	ownership *fakeOwnership
	metrics   *metrics.Collector
}

func newFixture() *fixture {
	f := &fixture{
		accounts:  newFakeAccounts(),
		recipes:   newFakeRecipes(),
		social:    &fakeSocial{profile: &models.Profile{DisplayName: "Chef"}},
		ownership: &fakeOwnership{},
		metrics:   metrics.New(),
	}
	f.srv = &GRPCServer{
		address:   "127.0.0.1:0",
		accounts:  f.accounts,
		recipes:   f.recipes,
		social:    f.social,
		ownership: f.ownership,
		avatars:   fakeAvatars{},
		metrics:   f.metrics,
		logger:    logging.Nop(),
		jwtSecret: []byte(testSecret),
	}
	return f
}

func withOwner(id string) context.Context {
	return context.WithValue(context.Background(), OwnerIDKey, id)
}
