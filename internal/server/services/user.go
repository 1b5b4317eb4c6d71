// Package services contains server-side business logic. This file implements
// UserService, which owns the account lifecycle: registration, login, token
// refresh, profile management, password change and soft deletion.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/koulio-auth/internal/common"
	"github.com/dmitrijs2005/koulio-auth/internal/dbx"
	"github.com/dmitrijs2005/koulio-auth/internal/logging"
	"github.com/dmitrijs2005/koulio-auth/internal/server/auth"
	"github.com/dmitrijs2005/koulio-auth/internal/server/config"
	"github.com/dmitrijs2005/koulio-auth/internal/server/models"
	"github.com/dmitrijs2005/koulio-auth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// AuthResult is what a successful register or login hands back.
type AuthResult struct {
	User   models.UserView
	Tokens *auth.TokenPair
}

// UserService provides account operations on top of the credential store,
// the password hasher and the token service. It keeps no per-user state.
type UserService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	hasher       *auth.PasswordHasher
	tokens       *auth.TokenService
	logger       logging.Logger
	queryTimeout time.Duration
	newID        func() string
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.PasswordHasher,
	tokens *auth.TokenService, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:           db,
		repomanager:  m,
		hasher:       hasher,
		tokens:       tokens,
		logger:       logger.With("module", "user_service"),
		queryTimeout: cfg.DBQueryTimeout,
		newID:        uuid.NewString,
	}
}

// Register creates an active account and signs the caller in.
// Emails are compared case-insensitively; a deactivated account keeps its
// email reserved.
func (s *UserService) Register(ctx context.Context, email, password, fullName string) (*AuthResult, error) {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateLength(email, fullName); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	repo := s.repomanager.Users(s.db)

	inUse, err := repo.EmailInUse(ctx, email, "")
	if err != nil {
		return nil, s.internal(ctx, "register", err)
	}
	if inUse {
		return nil, common.ErrorAlreadyExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return nil, err
		}
		return nil, s.internal(ctx, "register", err)
	}

	user := &models.User{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		IsActive:     true,
	}

	user, err = repo.Create(ctx, user)
	if err != nil {
		// lost a race against a concurrent registration
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, s.internal(ctx, "register", err)
	}

	pair, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, s.internal(ctx, "register", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)

	return &AuthResult{User: user.View(), Tokens: pair}, nil
}

// Login checks the credentials and issues a fresh token pair. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.SimulateVerify(password)
			return nil, common.ErrorInvalidCredentials
		}
		return nil, s.internal(ctx, "login", err)
	}

	if !user.IsActive {
		return nil, common.ErrorAccountDeactivated
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		return nil, common.ErrorInvalidCredentials
	}

	at, err := repo.TouchLastLogin(ctx, user.ID)
	if err != nil {
		return nil, s.internal(ctx, "login", err)
	}
	user.LastLogin = &at

	pair, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, s.internal(ctx, "login", err)
	}

	return &AuthResult{User: user.View(), Tokens: pair}, nil
}

// RefreshTokens exchanges a valid refresh token for a new pair. The presented
// token is not revoked and stays usable until it expires.
func (s *UserService) RefreshTokens(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, s.internal(ctx, "refresh", err)
	}

	if !user.IsActive {
		return nil, common.ErrorAccountDeactivated
	}

	pair, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, s.internal(ctx, "refresh", err)
	}
	return pair, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.UserView, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, s.internal(ctx, "get profile", err)
	}

	view := user.View()
	return &view, nil
}

// UpdateProfile applies a partial update. An empty fullName or email is
// ignored; a blank but non-empty email is an invalid address. If nothing is
// left the call fails with common.ErrorNoFieldsToUpdate.
func (s *UserService) UpdateProfile(ctx context.Context, userID, fullName, email string) error {
	var namePtr, emailPtr *string

	if name := strings.TrimSpace(fullName); name != "" {
		if err := validateLength("", name); err != nil {
			return err
		}
		namePtr = &name
	}
	if email != "" {
		e := normalizeEmail(email)
		if err := validateEmail(e); err != nil {
			return err
		}
		if err := validateLength(e, ""); err != nil {
			return err
		}
		emailPtr = &e
	}
	if namePtr == nil && emailPtr == nil {
		return common.ErrorNoFieldsToUpdate
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if _, err := repo.GetByID(ctx, userID); err != nil {
			return err
		}

		if emailPtr != nil {
			inUse, err := repo.EmailInUse(ctx, *emailPtr, userID)
			if err != nil {
				return err
			}
			if inUse {
				return common.ErrorAlreadyExists
			}
		}

		return repo.UpdateProfile(ctx, userID, namePtr, emailPtr)
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrorAlreadyExists):
		return err
	default:
		return s.internal(ctx, "update profile", err)
	}
}

// ChangePassword replaces the password after re-checking the current one.
// Tokens issued before the change stay valid.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return s.internal(ctx, "change password", err)
	}

	if !s.hasher.Verify(ctx, currentPassword, user.PasswordHash) {
		return common.ErrorUnauthorized
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return err
		}
		return s.internal(ctx, "change password", err)
	}

	if err := repo.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return s.internal(ctx, "change password", err)
	}

	s.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}

// DeleteAccount soft-deletes the account after confirming the password.
// The email stays reserved and outstanding tokens are not revoked.
func (s *UserService) DeleteAccount(ctx context.Context, userID, password string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return s.internal(ctx, "delete account", err)
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		return common.ErrorUnauthorized
	}

	if err := repo.Deactivate(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return s.internal(ctx, "delete account", err)
	}

	s.logger.Info(ctx, "account deactivated", "user_id", userID, "email", user.Email)
	return nil
}

// Logout only records the event; the client discards its tokens.
func (s *UserService) Logout(ctx context.Context, userID, email string) {
	s.logger.Info(ctx, "user logged out", "user_id", userID, "email", email)
}

// --- helpers below ---

func (s *UserService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *UserService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, "store operation failed", "op", op, "error", err)
	return common.ErrorInternal
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmail only asks for an "@" and a ".".
func validateEmail(email string) error {
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return common.ErrorInvalidEmailFormat
	}
	return nil
}

// validateLength keeps email and full name within the users table columns.
func validateLength(email, fullName string) error {
	if utf8.RuneCountInString(email) > common.MaxFieldLength ||
		utf8.RuneCountInString(fullName) > common.MaxFieldLength {
		return common.ErrorFieldTooLong
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < common.MinPasswordLength {
		return common.ErrorPasswordTooShort
	}
	return nil
}
