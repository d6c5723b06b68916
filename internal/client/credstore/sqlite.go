package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vutto/internal/client/migrations"
	"github.com/dmitrijs2005/vutto/internal/client/models"
	"github.com/dmitrijs2005/vutto/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// SQLiteStore keeps the credential in the metadata table of the client's
// local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and migrates it.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open", err)
	}
	// One writer keeps SQLite from reporting SQLITE_BUSY under concurrent
	// session operations, and makes ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, storageErr("migrate", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func getValue(ctx context.Context, q dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func setValue(ctx context.Context, q dbx.DBTX, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func deleteValue(ctx context.Context, q dbx.DBTX, key string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

// Put writes the token and the serialised profile in one transaction.
// Invalid arguments are rejected before the transaction starts.
func (s *SQLiteStore) Put(ctx context.Context, token string, profile *models.UserProfile) error {
	encoded, err := encodeProfile(token, profile)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := setValue(ctx, tx, KeyToken, []byte(token)); err != nil {
			return err
		}
		return setValue(ctx, tx, KeyUser, encoded)
	})
	if err != nil {
		return storageErr("put", err)
	}
	return nil
}

// Get reads the token and the profile. It returns ("", nil, nil) for an
// empty store and the token alone when the profile row does not decode.
func (s *SQLiteStore) Get(ctx context.Context) (string, *models.UserProfile, error) {
	token, err := getValue(ctx, s.db, KeyToken)
	if err != nil {
		return "", nil, storageErr("get", err)
	}
	user, err := getValue(ctx, s.db, KeyUser)
	if err != nil {
		return string(token), nil, storageErr("get", err)
	}
	return string(token), decodeProfile(user), nil
}

// Clear deletes all credential rows. Clearing an empty store succeeds.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, k := range []string{KeyToken, KeyUser, KeyRememberMe} {
			if err := deleteValue(ctx, tx, k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("clear", err)
	}
	return nil
}

// SetRememberMe stores the flag, or deletes its row when off.
func (s *SQLiteStore) SetRememberMe(ctx context.Context, on bool) error {
	var err error
	if on {
		err = setValue(ctx, s.db, KeyRememberMe, []byte(rememberMeOn))
	} else {
		err = deleteValue(ctx, s.db, KeyRememberMe)
	}
	if err != nil {
		return storageErr("set remember-me", err)
	}
	return nil
}

// RememberMe reports whether the flag row is present and set.
func (s *SQLiteStore) RememberMe(ctx context.Context) (bool, error) {
	v, err := getValue(ctx, s.db, KeyRememberMe)
	if err != nil {
		return false, storageErr("get remember-me", err)
	}
	return string(v) == rememberMeOn, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
