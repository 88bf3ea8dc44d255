// Package pgkv stores collections as JSONB rows of a Postgres table.
package pgkv

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core"
)

const (
	selectQuery = `SELECT data FROM collections WHERE key = $1`
	upsertQuery = `INSERT INTO collections (key, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
)

type Store struct {
	db *sqlx.DB
}

var _ core.Storage = (*Store)(nil)

// New wraps an open database. The collections table must already be migrated.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	if err := s.db.GetContext(ctx, &data, selectQuery, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNoData
		}
		return nil, errors.Wrapf(err, "loading %s", key)
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, upsertQuery, key, string(data))
	return errors.Wrapf(err, "saving %s", key)
}

// Keys lists the saved collection keys.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.SelectContext(ctx, &keys, `SELECT key FROM collections ORDER BY key`)
	return keys, errors.Wrap(err, "listing keys")
}

func (s *Store) Close() error {
	return s.db.Close()
}
