// Package services contains server-side business logic. This file implements
// AccountService, the development identity provider: anonymous accounts,
// email linking and sign-in, and issuing/refreshing JWTs plus server-stored
// refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/dbx"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	dm "github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/server/auth"
	"github.com/dmitrijs2005/recipelab/internal/server/config"
	"github.com/dmitrijs2005/recipelab/internal/server/models"
	"github.com/dmitrijs2005/recipelab/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Session is an account together with freshly issued credentials. Token
// fields are empty when the session only describes the account.
type Session struct {
	Account        *models.Account
	AccessToken    string
	RefreshToken   string
	OwnershipProof string
}

type AccountService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *AccountService {
	return &AccountService{
		db:                           db,
		repomanager:                  m,
		logger:                       l.With("module", "accounts"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if at := strings.IndexByte(email, '@'); at <= 0 || at == len(email)-1 {
		return "", fmt.Errorf("%w: malformed email", common.ErrValidation)
	}
	return email, nil
}

// SignInAnonymously creates a fresh anonymous account with a derived name.
func (s *AccountService) SignInAnonymously(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	acc := &models.Account{ID: id, IsAnonymous: true, DisplayName: dm.DisplayNameFor(id)}

	var sess *Session
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Accounts(tx).Create(ctx, acc); err != nil {
			return fmt.Errorf("error creating account: %w", err)
		}
		var err error
		sess, err = s.issue(ctx, tx, acc)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "anonymous account created", "owner_id", id)
	return sess, nil
}

// LinkEmail upgrades the caller's account in place. An email owned by a
// different account yields common.ErrCredentialInUse.
func (s *AccountService) LinkEmail(ctx context.Context, ownerID, email string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var sess *Session
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		acc, err := repo.GetByID(ctx, ownerID)
		if err != nil {
			return err
		}
		if acc.Email != email {
			if err := repo.LinkEmail(ctx, ownerID, email); err != nil {
				return err
			}
			acc.Email, acc.IsAnonymous = email, false
		}
		sess, err = s.issue(ctx, tx, acc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SignInWithEmail signs in the account holding email, creating a permanent
// account on first use.
func (s *AccountService) SignInWithEmail(ctx context.Context, email string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var sess *Session
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		acc, err := repo.GetByEmail(ctx, email)
		if errors.Is(err, common.ErrNotFound) {
			id := uuid.NewString()
			acc = &models.Account{ID: id, Email: email, DisplayName: dm.DisplayNameFor(id)}
			err = repo.Create(ctx, acc)
		}
		if err != nil {
			return err
		}
		sess, err = s.issue(ctx, tx, acc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh session. Expired tokens yield ErrRefreshTokenExpired.
func (s *AccountService) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var sess *Session
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		acc, err := s.repomanager.Accounts(tx).GetByID(ctx, token.AccountID)
		if err != nil {
			return err
		}
		sess, err = s.issue(ctx, tx, acc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SignOut revokes refreshToken. Unknown or empty tokens are ignored.
func (s *AccountService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
}

func (s *AccountService) WhoAmI(ctx context.Context, ownerID string) (*Session, error) {
	acc, err := s.repomanager.Accounts(s.db).GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, err
	}
	return &Session{Account: acc}, nil
}

// --- helpers below ---

func (s *AccountService) issue(ctx context.Context, tx dbx.DBTX, acc *models.Account) (*Session, error) {
	access, err := auth.GenerateToken(acc.ID, auth.KindAccess, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}
	proof, err := auth.GenerateToken(acc.ID, auth.KindProof, s.jwtSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, acc.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrInternal
	}
	return &Session{Account: acc, AccessToken: access, RefreshToken: refresh, OwnershipProof: proof}, nil
}
