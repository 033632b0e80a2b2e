package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/recipelab/internal/client/services"
	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/remote"
)

func (a *App) whoami(ctx context.Context, _ []string) error {
	s := a.session.Current()
	if s.State == services.Unauthenticated {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s) %s\n", s.Identity.DisplayName, s.State, s.Identity.OwnerID)
	if s.Identity.Email != "" {
		fmt.Fprintln(a.out, "email:", s.Identity.Email)
	}
	if prev, err := a.session.PreviousOwnerIDs(ctx); err == nil && len(prev) > 0 {
		fmt.Fprintln(a.out, "previous ids:", strings.Join(prev, ", "))
	}
	return nil
}

func (a *App) anon(ctx context.Context, _ []string) error {
	s, err := a.session.ContinueAnonymously(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Hello %s, you are browsing anonymously\n", s.Identity.DisplayName)
	return nil
}

func (a *App) link(ctx context.Context, args []string) error {
	if err := a.session.RequestEmailLink(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sign-in link requested for %s; run 'verify' once confirmed\n", args[0])
	return nil
}

func (a *App) verify(ctx context.Context, _ []string) error {
	before := a.session.LastMigration()
	s, err := a.session.CompleteEmailLink(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", s.Identity.DisplayName, s.Identity.OwnerID)
	if r := a.session.LastMigration(); r != nil && r != before {
		printMigration(a, r)
	}
	return nil
}

func (a *App) signOut(ctx context.Context, _ []string) error {
	err := a.session.SignOut(ctx)
	if errors.Is(err, common.ErrSignOutDenied) {
		fmt.Fprintln(a.out, "Anonymous sessions cannot sign out: your recipes would be lost. Link an email first.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *App) renameSelf(ctx context.Context, args []string) error {
	name := strings.Join(args, " ")
	if err := a.session.UpdateDisplayName(ctx, name); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Display name set to", name)
	return nil
}

func (a *App) migration(_ context.Context, _ []string) error {
	r := a.session.LastMigration()
	if r == nil {
		fmt.Fprintln(a.out, "No migration has run")
		return nil
	}
	printMigration(a, r)
	return nil
}

func printMigration(a *App, r *services.MigrationReport) {
	if r.Noop {
		fmt.Fprintln(a.out, "Migration: nothing to move")
		return
	}
	fmt.Fprintf(a.out, "Migration: %d recipes, %d favorites moved locally\n", r.LocalRecipes, r.LocalFavorites)
	names := make([]string, 0, len(r.Remote))
	for c := range r.Remote {
		names = append(names, string(c))
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(a.out, "  %-14s %s\n", n, r.Remote[remote.Collection(n)])
	}
	if !r.Complete() {
		fmt.Fprintln(a.out, "Some remote collections were not confirmed; they are retried on next start")
	}
}
