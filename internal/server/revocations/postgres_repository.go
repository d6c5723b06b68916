package revocations

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vutto/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Revoke records jti until its expiry. Lapsed rows are ignored by IsRevoked.
func (r *PostgresRepository) Revoke(ctx context.Context, jti string, until time.Time) error {
	query :=
		`INSERT INTO revoked_tokens (jti, expires_at)
         VALUES ($1, $2)
		 ON CONFLICT (jti) DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, jti, until); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

func (r *PostgresRepository) IsRevoked(ctx context.Context, jti string, now time.Time) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1 AND expires_at > $2)`

	var revoked bool
	if err := r.db.QueryRowContext(ctx, query, jti, now).Scan(&revoked); err != nil {
		return false, fmt.Errorf("error performing sql request: %v", err)
	}
	return revoked, nil
}
