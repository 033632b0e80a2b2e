package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/client/live"
	"github.com/dmitrijs2005/recipelab/internal/client/store"
	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/remote"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func content(title string) models.Content {
	return models.Content{
		Title:        title,
		Ingredients:  []models.Ingredient{{Name: "flour"}},
		Instructions: []models.Instruction{{Step: 1, Text: "mix"}},
		Difficulty:   models.DifficultyEasy,
	}
}

// clock returns a time source advancing one second per call.
func clock() func() time.Time {
	var mu sync.Mutex
	now := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fakeRecipes struct {
	mu        sync.Mutex
	put       map[string]*models.Recipe
	deleted   []string
	putErr    error
	deleteErr error
}

func newFakeRecipes() *fakeRecipes {
	return &fakeRecipes{put: map[string]*models.Recipe{}}
}

func (f *fakeRecipes) PutRecipe(_ context.Context, r *models.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.put[r.ID] = r
	return nil
}

func (f *fakeRecipes) GetRecipe(_ context.Context, id string) (*models.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.put[id]; ok {
		return r, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeRecipes) DeleteRecipes(_ context.Context, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deleted = append(f.deleted, ids...)
	return len(ids), nil
}

type fakeFavorites struct {
	mu    sync.Mutex
	marks map[string]bool
	err   error
}

func (f *fakeFavorites) SetFavorite(_ context.Context, recipeID string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.marks == nil {
		f.marks = map[string]bool{}
	}
	f.marks[recipeID] = on
	return nil
}

// fakeOwnership keeps per-collection owner ids and moves them like the
// remote store does: whatever still sits under the old id.
type fakeOwnership struct {
	mu     sync.Mutex
	owners map[remote.Collection][]string
	fail   map[remote.Collection]error
	calls  int
}

func newFakeOwnership(old string, perCollection int) *fakeOwnership {
	f := &fakeOwnership{owners: map[remote.Collection][]string{}, fail: map[remote.Collection]error{}}
	for _, c := range remote.Collections {
		for range perCollection {
			f.owners[c] = append(f.owners[c], old)
		}
	}
	return f
}

func (f *fakeOwnership) MoveOwnership(_ context.Context, c remote.Collection, req remote.MoveRequest) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[c]; err != nil {
		return 0, err
	}
	if req.Proof == "" {
		return 0, common.ErrForbidden
	}
	n := 0
	for i, o := range f.owners[c] {
		if o == req.OldOwnerID {
			f.owners[c][i] = req.NewOwnerID
			n++
		}
	}
	return n, nil
}

func (f *fakeOwnership) count(c remote.Collection, owner string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.owners[c] {
		if o == owner {
			n++
		}
	}
	return n
}

type fakeIdentity struct {
	mu       sync.Mutex
	current  *remote.Session
	accounts map[string]string // email -> owner id
	linkErr  error
	next     int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{accounts: map[string]string{}}
}

func (f *fakeIdentity) session(id remote.Identity) *remote.Session {
	f.next++
	return &remote.Session{
		Identity:       id,
		AccessToken:    "access-" + id.OwnerID,
		RefreshToken:   "refresh-" + id.OwnerID,
		OwnershipProof: "proof-" + id.OwnerID,
	}
}

func (f *fakeIdentity) SignInAnonymously(context.Context) (*remote.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.session(remote.Identity{OwnerID: "anon-uid", IsAnonymous: true})
	f.current = s
	return s, nil
}

func (f *fakeIdentity) LinkEmail(_ context.Context, email string) (*remote.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	if _, taken := f.accounts[email]; taken {
		return nil, common.ErrCredentialInUse
	}
	if f.current == nil || !f.current.Identity.IsAnonymous {
		return nil, common.ErrNoSession
	}
	id := f.current.Identity
	id.IsAnonymous, id.Email = false, email
	f.accounts[email] = id.OwnerID
	s := f.session(id)
	f.current = s
	return s, nil
}

func (f *fakeIdentity) SignInWithEmail(_ context.Context, email string) (*remote.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.accounts[email]
	if !ok {
		uid = "uid-" + email
		f.accounts[email] = uid
	}
	s := f.session(remote.Identity{OwnerID: uid, Email: email, DisplayName: "Returning"})
	f.current = s
	return s, nil
}

func (f *fakeIdentity) SignOut(context.Context) error {
	f.mu.Lock()
	f.current = nil
	f.mu.Unlock()
	return nil
}

func (f *fakeIdentity) Resume(_ context.Context, access, _ string) (*remote.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil || f.current.AccessToken != access {
		return nil, common.ErrInvalidToken
	}
	return f.current, nil
}

type fakeProfiles struct {
	mu      sync.Mutex
	names   []string
	ensured int
}

func (f *fakeProfiles) EnsureProfile(_ context.Context, name string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured++
	return &models.Profile{DisplayName: name}, nil
}

func (f *fakeProfiles) UpdateDisplayName(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	return nil
}

var errRemoteDown = errors.New("remote down")

func newHub() *live.Hub { return live.NewHub(logging.Nop()) }
