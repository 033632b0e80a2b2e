// Package server wires the Recipe Lab backend together: it opens the
// PostgreSQL pool, applies migrations, builds the services and runs the
// gRPC endpoint next to the Prometheus metrics endpoint until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/server/config"
	gs "github.com/dmitrijs2005/recipelab/internal/server/grpc"
	"github.com/dmitrijs2005/recipelab/internal/server/metrics"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recipelab/internal/server/services"
	"golang.org/x/sync/errgroup"
)

var (
	openDB         = sql.Open
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	metrics  *metrics.Collector
	services gs.Services
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	mc := metrics.New()
	svc := gs.Services{
		Accounts:  services.NewAccountService(db, rm, c, logger),
		Recipes:   services.NewRecipeService(db, rm, mc, logger),
		Social:    services.NewSocialService(db, rm, mc, logger),
		Ownership: services.NewOwnershipService(db, rm, c, mc, logger),
		Avatars:   services.NewAvatarService(c, logger),
	}

	return &App{config: c, logger: logger, db: db, metrics: mc, services: svc}, nil
}

func (app *App) startMetricsServer(ctx context.Context) error {
	if app.config.MetricsAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled or one of the servers fails, then
// closes the database pool.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.services, app.metrics, app.config.SecretKey)
		return s.Run(ctx)
	})
	g.Go(func() error {
		return app.startMetricsServer(ctx)
	})

	err := g.Wait()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close error", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
