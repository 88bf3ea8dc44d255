// Package badgerkv stores collections in a Badger key-value database.
package badgerkv

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core"
)

const keyPrefix = "collection:"

type Store struct {
	db *badger.DB
}

var _ core.Storage = (*Store)(nil)

// Open opens (or creates) the database in dir.
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir).WithLogger(nil))
}

// OpenInMemory opens a database that lives in memory only.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening badger")
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, core.ErrNoData
		}
		return nil, errors.Wrapf(err, "loading %s", key)
	}
	return data, nil
}

func (s *Store) Save(_ context.Context, key string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), data)
	})
	return errors.Wrapf(err, "saving %s", key)
}

func (s *Store) Close() error {
	return s.db.Close()
}
