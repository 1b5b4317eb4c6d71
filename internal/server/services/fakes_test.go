package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/koulio-auth/internal/common"
	"github.com/dmitrijs2005/koulio-auth/internal/dbx"
	"github.com/dmitrijs2005/koulio-auth/internal/logging"
	"github.com/dmitrijs2005/koulio-auth/internal/server/auth"
	"github.com/dmitrijs2005/koulio-auth/internal/server/config"
	"github.com/dmitrijs2005/koulio-auth/internal/server/models"
	usersrepo "github.com/dmitrijs2005/koulio-auth/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memUsersRepo is an in-memory users.Repository. The *Err fields force the
// matching method to fail.
type memUsersRepo struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	clock time.Time

	createErr     error
	getErr        error
	emailInUseErr error
	updateErr     error
	touchErr      error
	deactivateErr error
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{
		byID:  map[string]*models.User{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memUsersRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, other := range r.byID {
		if other.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	now := r.tick()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	r.byID[u.ID] = &cp
	return u, nil
}

func (r *memUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsersRepo) EmailInUse(_ context.Context, email, exceptID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailInUseErr != nil {
		return false, r.emailInUseErr
	}
	for id, u := range r.byID {
		if u.Email == email && id != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUsersRepo) UpdateProfile(_ context.Context, id string, fullName, email *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if fullName != nil {
		u.FullName = *fullName
	}
	if email != nil {
		u.Email = *email
	}
	u.UpdatedAt = r.tick()
	return nil
}

func (r *memUsersRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = r.tick()
	return nil
}

func (r *memUsersRepo) TouchLastLogin(_ context.Context, id string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.touchErr != nil {
		return time.Time{}, r.touchErr
	}
	u, ok := r.byID[id]
	if !ok {
		return time.Time{}, common.ErrorNotFound
	}
	now := r.tick()
	u.LastLogin = &now
	u.UpdatedAt = now
	return now, nil
}

func (r *memUsersRepo) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deactivateErr != nil {
		return r.deactivateErr
	}
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsActive = false
	u.UpdatedAt = r.tick()
	return nil
}

type fakeRepoManager struct {
	u *memUsersRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newTestTokens() *auth.TokenService {
	return auth.NewTokenService([]byte("k"), time.Hour, 2*time.Hour)
}

func newUserService(t *testing.T, db *sql.DB, repo *memUsersRepo) *UserService {
	t.Helper()
	cfg := &config.Config{DBQueryTimeout: time.Second}
	s := NewUserService(db, &fakeRepoManager{u: repo},
		auth.NewPasswordHasher(bcrypt.MinCost, logging.NopLogger{}),
		newTestTokens(), cfg, logging.NopLogger{})

	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
	}
	return s
}
