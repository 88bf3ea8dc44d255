// Package filekv stores each collection as a JSON file of a directory.
package filekv

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core"
)

var keyRegex = regexp.MustCompile(`^[a-z0-9_]+$`)

type Store struct {
	dir string
}

var _ core.Storage = (*Store)(nil)

// Open returns a Store writing in dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage directory")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) (string, error) {
	if !keyRegex.MatchString(key) {
		return "", errors.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrNoData
		}
		return nil, errors.Wrapf(err, "reading %s", p)
	}
	return data, nil
}

// Save replaces the file of key atomically: readers see either the old or the new content.
func (s *Store) Save(_ context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(p, bytes.NewReader(data)); err != nil {
		return errors.Wrapf(err, "writing %s", p)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
