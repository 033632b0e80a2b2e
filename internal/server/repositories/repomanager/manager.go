package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/favorites"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/follows"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/recipes"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/suggestions"
)

// RepositoryManager vends repositories bound to a DB handle or a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Recipes(db dbx.DBTX) recipes.Repository
	Favorites(db dbx.DBTX) favorites.Repository
	Notifications(db dbx.DBTX) notifications.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Follows(db dbx.DBTX) follows.Repository
	Suggestions(db dbx.DBTX) suggestions.Repository
}
