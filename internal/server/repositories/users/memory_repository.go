package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/koulio-auth/internal/common"
	"github.com/dmitrijs2005/koulio-auth/internal/server/models"
)

// MemoryRepository keeps users in a map. It enforces the same unique email
// rule as the users table and never hands out its own pointers.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*models.User
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[string]*models.User),
		now:  time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if r.emailTaken(user.Email, "") {
		return nil, common.ErrorAlreadyExists
	}

	now := r.now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	cp := *user
	r.byID[user.ID] = &cp
	return user, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepository) EmailInUse(_ context.Context, email, exceptID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.emailTaken(email, exceptID), nil
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, id string, fullName, email *string) error {
	return r.update(id, func(u *models.User) error {
		if email != nil && r.emailTaken(*email, id) {
			return common.ErrorAlreadyExists
		}
		if fullName != nil {
			u.FullName = *fullName
		}
		if email != nil {
			u.Email = *email
		}
		return nil
	})
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(u *models.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
}

func (r *MemoryRepository) TouchLastLogin(_ context.Context, id string) (time.Time, error) {
	var at time.Time
	err := r.update(id, func(u *models.User) error {
		at = u.UpdatedAt
		u.LastLogin = &at
		return nil
	})
	return at, err
}

func (r *MemoryRepository) Deactivate(_ context.Context, id string) error {
	return r.update(id, func(u *models.User) error {
		u.IsActive = false
		return nil
	})
}

// update applies fn to the stored user under the write lock; updated_at is
// bumped before fn runs.
func (r *MemoryRepository) update(id string, fn func(u *models.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}

	next := clone(u)
	next.UpdatedAt = r.now().UTC()
	if err := fn(next); err != nil {
		return err
	}
	r.byID[id] = next
	return nil
}

func (r *MemoryRepository) emailTaken(email, exceptID string) bool {
	for id, u := range r.byID {
		if u.Email == email && id != exceptID {
			return true
		}
	}
	return false
}

func clone(u *models.User) *models.User {
	cp := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		cp.LastLogin = &t
	}
	return &cp
}
