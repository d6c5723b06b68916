package credstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vutto/internal/filex"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and parameterises a backend.
type Options struct {
	Backend     string
	DBPath      string
	RedisAddr   string
	RedisPrefix string
}

// Open builds the Store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		if opts.DBPath != ":memory:" && !strings.HasPrefix(opts.DBPath, "file:") {
			if _, err := filex.EnsureParentDir(opts.DBPath); err != nil {
				return nil, storageErr("open", err)
			}
		}
		return OpenSQLite(ctx, opts.DBPath)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPrefix)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, opts.Backend)
	}
}
