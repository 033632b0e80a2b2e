package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/client/client"
	"github.com/dmitrijs2005/recipelab/internal/client/config"
	"github.com/dmitrijs2005/recipelab/internal/client/live"
	"github.com/dmitrijs2005/recipelab/internal/client/services"
	"github.com/dmitrijs2005/recipelab/internal/client/store"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/remote"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
	// ModeLocal means no remote store is configured at all.
	ModeLocal Mode = "local"
)

// pinger is the part of the remote client the status watcher needs.
type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config    *config.Config
	logger    logging.Logger
	store     *store.Store
	recipes   services.RecipeService
	favorites services.FavoriteService
	session   *services.SessionController
	social    remote.Social
	remote    pinger
	closers   []io.Closer

	mu   sync.RWMutex
	mode Mode

	reader *bufio.Reader
	out    io.Writer
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewApp opens the local store and, unless the configuration is offline,
// connects the remote store.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewTextLogger(os.Stderr, parseLevel(c.LogLevel))

	st, err := store.Open(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	a := &App{
		config:  c,
		logger:  logger,
		store:   st,
		mode:    ModeLocal,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		closers: []io.Closer{st},
	}
	hub := live.NewHub(logger)

	if c.Offline() {
		a.wire(hub, nil, nil, nil, nil, offlineIdentity{settings: st.Settings})
		return a, nil
	}

	rc, err := client.New(c.ServerAddr,
		client.WithTimeout(c.RequestTimeout),
		client.WithLogger(logger),
		client.WithBreaker(client.BreakerConfig{
			MaxRequests:      1,
			Interval:         2 * c.Breaker.OpenTimeout,
			Timeout:          c.Breaker.OpenTimeout,
			FailureThreshold: c.Breaker.FailureThreshold,
			MinRequests:      c.Breaker.MinRequests,
		}),
	)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("connect %s: %w", c.ServerAddr, err)
	}
	a.closers = append(a.closers, rc)
	a.mode = ModeOffline
	a.remote = rc
	a.social = rc
	a.wire(hub, rc, rc, rc, rc, rc)
	rc.OnTokens(func(access, refresh string) {
		a.session.SaveTokens(context.Background(), access, refresh)
	})
	return a, nil
}

// wire builds the services. Remote interfaces are passed untyped-nil when
// absent so the services see a nil interface.
func (a *App) wire(hub *live.Hub, rr remote.Recipes, rf remote.Favorites, ro remote.Ownership, rp services.Profiles, idp remote.IdentityProvider) {
	a.recipes = services.NewRecipeService(a.store, rr, hub, a.logger)
	a.favorites = services.NewFavoriteService(a.store, rf, hub, a.logger)
	migrator := services.NewMigrator(a.store, ro, hub, a.logger)
	a.session = services.NewSessionController(idp, rp, a.store.Settings, migrator, a.logger)
	a.session.OnChange(func(s services.Snapshot) {
		a.logger.Debug(context.Background(), "session changed", "state", s.State.String(), "owner", s.Identity.OwnerID)
	})
}

func (a *App) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		a.logger.Info(context.Background(), "switched mode", "mode", string(mode))
	}
}

// Run restores the session, starts the connectivity watcher and blocks in
// the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if a.remote != nil {
		a.probe(ctx)
	}
	if _, err := a.session.Restore(ctx); err != nil {
		a.logger.Warn(ctx, "session not restored", "error", err)
	}

	if a.remote != nil {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.StartOnlineStatusWatcher(watchCtx, 5*time.Second)
	}

	fmt.Fprintln(a.out, "Welcome to Recipe Lab (type 'help' for commands)")
	runREPL(ctx, a.commands(), a.getStatus, a.reader, a.out)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := a.remote.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// StartOnlineStatusWatcher probes the remote store every interval until ctx
// is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	s := a.session.Current()
	parts := []string{string(a.Mode())}
	if s.State != services.Unauthenticated {
		name := s.Identity.DisplayName
		if name == "" {
			name = s.Identity.OwnerID
		}
		parts = append([]string{name}, parts...)
	}
	return "(" + strings.Join(parts, " ") + ")"
}
