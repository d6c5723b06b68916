// Package credstore persists the issued credential, the cached user profile
// and the remember-me flag. It is pure storage: no expiry or session policy
// lives here.
//
// # Layout
//
// Three independent string keys share one medium:
//
//	token       raw token string
//	user        JSON-encoded models.UserProfile
//	rememberMe  "true" when set, absent otherwise
//
// # Guarantees
//
//   - Put encodes the profile before writing anything and writes token and
//     profile in one transaction, so a failed Put leaves prior state intact.
//   - Get tolerates a corrupt profile record: it returns the token with a nil
//     profile instead of failing the read.
//   - Clear removes all three keys and is idempotent.
//
// All failures are wrapped with ErrStorage so callers can treat them as a
// non-fatal storage warning.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vutto/internal/client/models"
)

const (
	KeyToken      = "token"
	KeyUser       = "user"
	KeyRememberMe = "rememberMe"
)

var (
	ErrStorage     = errors.New("credential storage failure")
	ErrEmptyToken  = errors.New("empty token")
	ErrNilProfile  = errors.New("nil profile")
	ErrUnknownKind = errors.New("unknown store backend")
)

// Store is the contract shared by every backend.
type Store interface {
	Put(ctx context.Context, token string, profile *models.UserProfile) error
	Get(ctx context.Context) (string, *models.UserProfile, error)
	Clear(ctx context.Context) error
	SetRememberMe(ctx context.Context, on bool) error
	RememberMe(ctx context.Context) (bool, error)
	Close() error
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// encodeProfile validates the Put arguments and serialises the profile.
// It runs before any backend write.
func encodeProfile(token string, profile *models.UserProfile) ([]byte, error) {
	if token == "" {
		return nil, storageErr("put", ErrEmptyToken)
	}
	if profile == nil {
		return nil, storageErr("put", ErrNilProfile)
	}
	b, err := json.Marshal(profile)
	if err != nil {
		return nil, storageErr("encode profile", err)
	}
	return b, nil
}

// decodeProfile returns nil for absent or unparsable records.
func decodeProfile(b []byte) *models.UserProfile {
	if len(b) == 0 {
		return nil
	}
	var p models.UserProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil
	}
	return &p
}

const rememberMeOn = "true"
