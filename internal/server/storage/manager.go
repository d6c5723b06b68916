// Package storage picks the repositories the auth stub runs on: process
// memory by default, PostgreSQL when a DSN is configured.
package storage

import (
	"context"

	"github.com/dmitrijs2005/vutto/internal/server/revocations"
	"github.com/dmitrijs2005/vutto/internal/server/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Users() users.Repository
	Revocations() revocations.Repository
	Close() error
}

// NewRepositoryManager returns the in-memory manager for an empty dsn and
// the PostgreSQL one otherwise.
func NewRepositoryManager(dsn string) (RepositoryManager, error) {
	if dsn == "" {
		return NewInMemoryRepositoryManager(), nil
	}
	m, err := NewPostgresRepositoryManager(dsn)
	if err != nil {
		return nil, err
	}
	return m, nil
}
