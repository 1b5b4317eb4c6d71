package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/koulio-auth/internal/server/models"
)

// Repository is the credential store. Implementations hold no business
// rules; they return common.ErrorNotFound for missing rows and
// common.ErrorAlreadyExists when the unique email constraint fires.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// EmailInUse reports whether any row other than exceptID owns email.
	// Pass an empty exceptID to check every row.
	EmailInUse(ctx context.Context, email, exceptID string) (bool, error)
	UpdateProfile(ctx context.Context, id string, fullName, email *string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string) (time.Time, error)
	Deactivate(ctx context.Context, id string) error
}
