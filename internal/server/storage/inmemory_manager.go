package storage

import (
	"context"

	"github.com/dmitrijs2005/vutto/internal/server/revocations"
	"github.com/dmitrijs2005/vutto/internal/server/users"
)

type InMemoryRepositoryManager struct {
	users       *users.MemoryRepository
	revocations *revocations.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:       users.NewMemoryRepository(),
		revocations: revocations.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) Revocations() revocations.Repository {
	return m.revocations
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}
