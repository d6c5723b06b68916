package credstore

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/vutto/internal/client/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the credential under prefixed keys in Redis, e.g.
// "vutto:default:token". Useful when several client processes on one box
// share a login.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore uses rdb with keys namespaced under prefix. The store owns
// rdb and closes it on Close.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "vutto"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// OpenRedis connects to addr and checks the server answers.
func OpenRedis(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, storageErr("open", err)
	}
	return NewRedisStore(rdb, prefix), nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

// Put sets both keys in a single MULTI/EXEC.
func (s *RedisStore) Put(ctx context.Context, token string, profile *models.UserProfile) error {
	encoded, err := encodeProfile(token, profile)
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(KeyToken), token, 0)
		pipe.Set(ctx, s.key(KeyUser), encoded, 0)
		return nil
	})
	if err != nil {
		return storageErr("put", err)
	}
	return nil
}

// Get reads both keys. Missing keys mean an empty store.
func (s *RedisStore) Get(ctx context.Context) (string, *models.UserProfile, error) {
	vals, err := s.rdb.MGet(ctx, s.key(KeyToken), s.key(KeyUser)).Result()
	if err != nil {
		return "", nil, storageErr("get", err)
	}

	token, _ := vals[0].(string)
	user, _ := vals[1].(string)
	return token, decodeProfile([]byte(user)), nil
}

// Clear deletes the token, profile and remember-me keys.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key(KeyToken), s.key(KeyUser), s.key(KeyRememberMe)).Err(); err != nil {
		return storageErr("clear", err)
	}
	return nil
}

// SetRememberMe sets or deletes the remember-me key.
func (s *RedisStore) SetRememberMe(ctx context.Context, on bool) error {
	var err error
	if on {
		err = s.rdb.Set(ctx, s.key(KeyRememberMe), rememberMeOn, 0).Err()
	} else {
		err = s.rdb.Del(ctx, s.key(KeyRememberMe)).Err()
	}
	if err != nil {
		return storageErr("set remember-me", err)
	}
	return nil
}

func (s *RedisStore) RememberMe(ctx context.Context) (bool, error) {
	v, err := s.rdb.Get(ctx, s.key(KeyRememberMe)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("get remember-me", err)
	}
	return v == rememberMeOn, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
