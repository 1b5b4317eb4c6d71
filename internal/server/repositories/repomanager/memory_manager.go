package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/koulio-auth/internal/dbx"
	"github.com/dmitrijs2005/koulio-auth/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves one shared in-memory users repository
// regardless of the DBTX it is given. Writes are not rolled back with the
// surrounding transaction.
type InMemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return m.users
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{users: users.NewMemoryRepository()}
}
