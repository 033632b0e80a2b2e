package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/recipelab/internal/client/repositories/settings"
	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/remote"
	"github.com/google/uuid"
)

// State is the sign-in state of the device.
type State int

const (
	Unauthenticated State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Snapshot is the current session as seen by callers.
type Snapshot struct {
	State    State
	Identity remote.Identity
}

// Profiles is the part of the remote store the session keeps in step.
type Profiles interface {
	EnsureProfile(ctx context.Context, displayName string) (*models.Profile, error)
	UpdateDisplayName(ctx context.Context, displayName string) error
}

// SessionController drives sign-in transitions and decides when ownership
// must migrate from one owner id to another.
type SessionController struct {
	idp      remote.IdentityProvider
	profiles Profiles
	settings settings.Repository
	migrator Migrator
	logger   logging.Logger

	mu        sync.RWMutex
	current   Snapshot
	lastRun   *MigrationReport
	listeners []func(Snapshot)

	latchMu sync.Mutex
	latched map[string]bool
}

func NewSessionController(idp remote.IdentityProvider, p Profiles, st settings.Repository, m Migrator, l logging.Logger) *SessionController {
	return &SessionController{
		idp:      idp,
		profiles: p,
		settings: st,
		migrator: m,
		logger:   l.With("service", "session"),
		latched:  make(map[string]bool),
	}
}

func (c *SessionController) Current() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// LastMigration returns the report of the most recent migration run, if any.
func (c *SessionController) LastMigration() *MigrationReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRun
}

// OnChange registers fn to be called after every identity change.
func (c *SessionController) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *SessionController) setCurrent(s Snapshot) {
	c.mu.Lock()
	c.current = s
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

func (c *SessionController) get(ctx context.Context, key string) (string, error) {
	v, _, err := c.settings.Get(ctx, key)
	return v, err
}

// DeviceID returns the persisted device id, creating it on first use.
func (c *SessionController) DeviceID(ctx context.Context) (string, error) {
	id, ok, err := c.settings.Get(ctx, common.SettingDeviceID)
	if err != nil || ok {
		return id, err
	}
	id = uuid.NewString()
	return id, c.settings.Set(ctx, common.SettingDeviceID, id)
}

// Restore resumes the persisted session, if any. Stale tokens leave the
// device unauthenticated.
func (c *SessionController) Restore(ctx context.Context) (Snapshot, error) {
	if _, err := c.DeviceID(ctx); err != nil {
		return Snapshot{}, err
	}
	access, err := c.get(ctx, common.SettingAccessToken)
	if err != nil {
		return Snapshot{}, err
	}
	refresh, err := c.get(ctx, common.SettingRefreshToken)
	if err != nil {
		return Snapshot{}, err
	}
	if access == "" && refresh == "" {
		return c.Current(), nil
	}

	sess, err := c.idp.Resume(ctx, access, refresh)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) || errors.Is(err, common.ErrRefreshTokenExpired) ||
			errors.Is(err, common.ErrTokenExpired) || errors.Is(err, common.ErrInvalidToken) {
			c.logger.Warn(ctx, "stored session rejected", "error", err)
			return c.Current(), c.clearTokens(ctx)
		}
		return c.Current(), err
	}
	return c.IdentityChanged(ctx, sess)
}

// ContinueAnonymously signs in with a fresh anonymous identity and gives it a
// generated display name. An existing session is returned as is.
func (c *SessionController) ContinueAnonymously(ctx context.Context) (Snapshot, error) {
	if cur := c.Current(); cur.State != Unauthenticated {
		return cur, nil
	}

	sess, err := c.idp.SignInAnonymously(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("anonymous sign-in: %w", err)
	}
	if sess.Identity.DisplayName == "" {
		sess.Identity.DisplayName = models.DisplayNameFor(sess.Identity.OwnerID)
		if c.profiles != nil {
			if err := c.profiles.UpdateDisplayName(ctx, sess.Identity.DisplayName); err != nil {
				c.logger.Warn(ctx, "display name not saved remotely", "error", err)
			}
		}
	}
	return c.IdentityChanged(ctx, sess)
}

// RequestEmailLink records the email a link was sent to. From an anonymous
// session the link upgrades the account; otherwise it signs in.
func (c *SessionController) RequestEmailLink(ctx context.Context, email string) error {
	key := common.SettingEmailForSignIn
	if c.Current().State == Anonymous {
		key = common.SettingEmailForLinking
	}
	return c.settings.Set(ctx, key, email)
}

func (c *SessionController) clearPendingEmails(ctx context.Context) error {
	if err := c.settings.Delete(ctx, common.SettingEmailForLinking); err != nil {
		return err
	}
	return c.settings.Delete(ctx, common.SettingEmailForSignIn)
}

// CompleteEmailLink finishes a pending email link. An anonymous session is
// first upgraded in place; if the email already belongs to another account
// the device signs in to that account and ownership migrates to it.
func (c *SessionController) CompleteEmailLink(ctx context.Context) (Snapshot, error) {
	linking, err := c.get(ctx, common.SettingEmailForLinking)
	if err != nil {
		return Snapshot{}, err
	}
	signIn, err := c.get(ctx, common.SettingEmailForSignIn)
	if err != nil {
		return Snapshot{}, err
	}

	if linking != "" && c.Current().State == Anonymous {
		sess, err := c.idp.LinkEmail(ctx, linking)
		switch {
		case err == nil:
			if err := c.clearPendingEmails(ctx); err != nil {
				return Snapshot{}, err
			}
			return c.IdentityChanged(ctx, sess)
		case errors.Is(err, common.ErrCredentialInUse):
			c.logger.Info(ctx, "email already has an account, signing in", "owner", c.Current().Identity.OwnerID)
			sess, err := c.idp.SignInWithEmail(ctx, linking)
			if err != nil {
				return Snapshot{}, fmt.Errorf("email sign-in: %w", err)
			}
			if err := c.clearPendingEmails(ctx); err != nil {
				return Snapshot{}, err
			}
			return c.IdentityChanged(ctx, sess)
		default:
			c.logger.Warn(ctx, "email link failed, falling back to sign-in", "error", err)
			if err := c.settings.Delete(ctx, common.SettingEmailForLinking); err != nil {
				return Snapshot{}, err
			}
		}
	}

	email := linking
	if email == "" {
		email = signIn
	}
	if email == "" {
		return c.Current(), fmt.Errorf("%w: no pending email link", common.ErrNoSession)
	}

	sess, err := c.idp.SignInWithEmail(ctx, email)
	if err != nil {
		return Snapshot{}, fmt.Errorf("email sign-in: %w", err)
	}
	if err := c.clearPendingEmails(ctx); err != nil {
		return Snapshot{}, err
	}
	return c.IdentityChanged(ctx, sess)
}

// IdentityChanged is the identity-changed callback. It persists the session,
// and when an authenticated owner differs from the anonymous owner last seen
// on this device it migrates ownership, at most once per drift per process.
func (c *SessionController) IdentityChanged(ctx context.Context, sess *remote.Session) (Snapshot, error) {
	if err := c.saveTokens(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
		return Snapshot{}, err
	}
	id := sess.Identity

	if id.IsAnonymous {
		if err := c.settings.Set(ctx, common.SettingAnonymousUID, id.OwnerID); err != nil {
			return Snapshot{}, err
		}
		if sess.OwnershipProof != "" {
			if err := c.settings.Set(ctx, common.SettingAnonymousToken, sess.OwnershipProof); err != nil {
				return Snapshot{}, err
			}
		}
		snap := Snapshot{State: Anonymous, Identity: id}
		c.ensureProfile(ctx, id)
		c.setCurrent(snap)
		return snap, nil
	}

	snap := Snapshot{State: Authenticated, Identity: id}
	if err := c.migrateIfDrifted(ctx, id); err != nil {
		c.setCurrent(snap)
		return snap, err
	}
	c.ensureProfile(ctx, id)
	c.setCurrent(snap)
	return snap, nil
}

func (c *SessionController) ensureProfile(ctx context.Context, id remote.Identity) {
	if c.profiles == nil {
		return
	}
	if _, err := c.profiles.EnsureProfile(ctx, id.DisplayName); err != nil {
		c.logger.Warn(ctx, "profile not ensured", "owner", id.OwnerID, "error", err)
	}
}

func (c *SessionController) tryLatch(key string) bool {
	c.latchMu.Lock()
	defer c.latchMu.Unlock()
	if c.latched[key] {
		return false
	}
	c.latched[key] = true
	return true
}

func (c *SessionController) migrateIfDrifted(ctx context.Context, id remote.Identity) error {
	old, err := c.get(ctx, common.SettingAnonymousUID)
	if err != nil {
		return err
	}
	if old == "" {
		return nil
	}
	if old == id.OwnerID {
		// linked in place: the owner is no longer anonymous
		return c.forgetAnonymous(ctx)
	}
	if !c.tryLatch(old + "->" + id.OwnerID) {
		return nil
	}

	proof, err := c.get(ctx, common.SettingAnonymousToken)
	if err != nil {
		return err
	}

	report, err := c.migrator.Migrate(ctx, MigrationRequest{
		OldOwnerID:     old,
		NewOwnerID:     id.OwnerID,
		NewDisplayName: id.DisplayName,
		Proof:          proof,
	})
	c.mu.Lock()
	c.lastRun = report
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if err := c.rememberPrevious(ctx, old); err != nil {
		return err
	}
	// keep the drift on record until every remote leg has landed so the
	// next start retries the rest
	if report.Complete() {
		return c.forgetAnonymous(ctx)
	}
	return nil
}

func (c *SessionController) forgetAnonymous(ctx context.Context) error {
	if err := c.settings.Delete(ctx, common.SettingAnonymousUID); err != nil {
		return err
	}
	return c.settings.Delete(ctx, common.SettingAnonymousToken)
}

// PreviousOwnerIDs lists owner ids this device has migrated away from.
func (c *SessionController) PreviousOwnerIDs(ctx context.Context) ([]string, error) {
	raw, err := c.get(ctx, common.SettingPreviousUIDs)
	if err != nil || raw == "" {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode %s: %w", common.SettingPreviousUIDs, err)
	}
	return ids, nil
}

func (c *SessionController) rememberPrevious(ctx context.Context, ownerID string) error {
	ids, err := c.PreviousOwnerIDs(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(ids, ownerID) {
		return nil
	}
	b, err := json.Marshal(append(ids, ownerID))
	if err != nil {
		return err
	}
	return c.settings.Set(ctx, common.SettingPreviousUIDs, string(b))
}

// SignOut ends an authenticated session. Anonymous sessions are refused with
// common.ErrSignOutDenied, because their data would become unreachable.
func (c *SessionController) SignOut(ctx context.Context) error {
	switch c.Current().State {
	case Anonymous:
		return common.ErrSignOutDenied
	case Unauthenticated:
		return common.ErrNoSession
	}

	if err := c.idp.SignOut(ctx); err != nil {
		c.logger.Warn(ctx, "remote sign-out failed", "error", err)
	}
	if err := c.clearTokens(ctx); err != nil {
		return err
	}
	if err := c.forgetAnonymous(ctx); err != nil {
		return err
	}
	c.setCurrent(Snapshot{State: Unauthenticated})
	return nil
}

// UpdateDisplayName renames the signed-in owner.
func (c *SessionController) UpdateDisplayName(ctx context.Context, name string) error {
	cur := c.Current()
	if cur.State == Unauthenticated {
		return common.ErrNoSession
	}
	if c.profiles != nil {
		if err := c.profiles.UpdateDisplayName(ctx, name); err != nil {
			return err
		}
	}
	cur.Identity.DisplayName = name
	c.setCurrent(cur)
	return nil
}

// Owner returns the signed-in owner as recorded on new recipes.
func (c *SessionController) Owner() (models.Owner, error) {
	cur := c.Current()
	if cur.State == Unauthenticated {
		return models.Owner{}, common.ErrNoSession
	}
	return models.Owner{ID: cur.Identity.OwnerID, DisplayName: cur.Identity.DisplayName}, nil
}

func (c *SessionController) saveTokens(ctx context.Context, access, refresh string) error {
	if access == "" && refresh == "" {
		return nil
	}
	if err := c.settings.Set(ctx, common.SettingAccessToken, access); err != nil {
		return err
	}
	return c.settings.Set(ctx, common.SettingRefreshToken, refresh)
}

// SaveTokens persists a refreshed token pair.
func (c *SessionController) SaveTokens(ctx context.Context, access, refresh string) {
	if err := c.saveTokens(ctx, access, refresh); err != nil {
		c.logger.Warn(ctx, "tokens not persisted", "error", err)
	}
}

func (c *SessionController) clearTokens(ctx context.Context) error {
	if err := c.settings.Delete(ctx, common.SettingAccessToken); err != nil {
		return err
	}
	return c.settings.Delete(ctx, common.SettingRefreshToken)
}
