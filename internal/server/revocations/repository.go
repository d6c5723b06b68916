// Package revocations remembers logged-out tokens by jti until they would
// have expired anyway.
package revocations

import (
	"context"
	"time"
)

type Repository interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string, now time.Time) (bool, error)
}
