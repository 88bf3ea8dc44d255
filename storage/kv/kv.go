// Package kv opens the core.Storage selected by the configuration.
package kv

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/storage/database"
	"github.com/trezcool/scolarite/storage/kv/badgerkv"
	"github.com/trezcool/scolarite/storage/kv/filekv"
	"github.com/trezcool/scolarite/storage/kv/pgkv"
)

// Drivers
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Open returns the storage configured by conf.Storage.
// Relative paths are resolved from the working directory of the project.
func Open(conf *core.Config) (core.Storage, error) {
	path := conf.Storage.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(conf.WorkDir, path)
	}

	switch conf.Storage.Driver {
	case DriverMemory:
		return badgerkv.OpenInMemory()
	case DriverFile:
		return filekv.Open(path)
	case DriverBadger:
		return badgerkv.Open(path)
	case DriverPostgres:
		db, err := database.Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return pgkv.New(db), nil
	}
	return nil, errors.Wrapf(ErrUnknownDriver, "%q", conf.Storage.Driver)
}
