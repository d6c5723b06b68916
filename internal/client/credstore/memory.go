package credstore

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/vutto/internal/client/models"
)

// ErrMediumUnavailable is what a MemoryStore with failures switched on returns.
var ErrMediumUnavailable = errors.New("storage medium unavailable")

// MemoryStore keeps everything in process memory. The session does not
// survive a restart. FailWrites/FailReads simulate a full or broken medium.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte

	FailWrites bool
	FailReads  bool
}

// NewMemoryStore returns an empty store that lives as long as the process.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Put stores token and profile together. With FailWrites set it returns
// ErrStorage and keeps the previous values.
func (m *MemoryStore) Put(_ context.Context, token string, profile *models.UserProfile) error {
	encoded, err := encodeProfile(token, profile)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return storageErr("put", ErrMediumUnavailable)
	}
	m.values[KeyToken] = []byte(token)
	m.values[KeyUser] = encoded
	return nil
}

// Get returns the stored token and profile. An unreadable profile yields
// the token alone.
func (m *MemoryStore) Get(_ context.Context) (string, *models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return "", nil, storageErr("get", ErrMediumUnavailable)
	}
	return string(m.values[KeyToken]), decodeProfile(m.values[KeyUser]), nil
}

// Clear drops the token, the profile and the remember-me flag.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return storageErr("clear", ErrMediumUnavailable)
	}
	delete(m.values, KeyToken)
	delete(m.values, KeyUser)
	delete(m.values, KeyRememberMe)
	return nil
}

// SetRememberMe sets or removes the remember-me flag.
func (m *MemoryStore) SetRememberMe(_ context.Context, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return storageErr("set remember-me", ErrMediumUnavailable)
	}
	if on {
		m.values[KeyRememberMe] = []byte(rememberMeOn)
	} else {
		delete(m.values, KeyRememberMe)
	}
	return nil
}

// RememberMe reports whether the flag is set.
func (m *MemoryStore) RememberMe(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return false, storageErr("get remember-me", ErrMediumUnavailable)
	}
	return string(m.values[KeyRememberMe]) == rememberMeOn, nil
}

// SetRaw writes a key verbatim, bypassing validation. Test helper for
// seeding corrupt or partial records.
func (m *MemoryStore) SetRaw(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Raw returns the stored bytes for key, nil when absent.
func (m *MemoryStore) Raw(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
