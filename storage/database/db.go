package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/fs"
)

func open(dbName string, admin bool, conf *core.Config) (*sql.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sql.Open(conf.Database.Engine, u.String())
}

// Open connects to the application database and waits until it answers.
func Open(conf *core.Config) (*sql.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, err
	}
	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// exists runs a "SELECT true ..." query and reports whether it returned a row.
func exists(db *sql.DB, query string, args ...interface{}) (bool, error) {
	var found bool
	err := db.QueryRow(query, args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return found, err
}

// createAppUser creates the role the app connects with, unless it already exists.
func createAppUser(db *sql.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}
	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if found {
		return nil
	}
	q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
	_, err = db.Exec(q)
	return errors.Wrap(err, "creating app user")
}

// createDB creates the app database, owned by the connected role, unless it already exists.
func createDB(db *sql.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if found {
		return nil
	}
	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name))
	return errors.Wrap(err, "creating database")
}

// CreateIfNotExist prepares the server for the collections store: the app role is
// created as the admin user, then the database is created as the app role.
func CreateIfNotExist(conf *core.Config) error {
	if err := withServer(conf, true, createAppUser); err != nil {
		return err
	}
	return withServer(conf, false, createDB)
}

func withServer(conf *core.Config, admin bool, fn func(*sql.DB, *core.Config) error) error {
	db, err := open("postgres", admin, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err := ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	return fn(db, conf)
}

// ErrUnknownMigration is returned for a migration command Migrate does not know.
var ErrUnknownMigration = errors.New("unknown migration command")

// Migrate runs a migration command (up, up-by-one, down or redo; default up)
// with the embedded migrations.
func Migrate(db *sql.DB, command ...string) error {
	cmd := "up"
	if len(command) > 0 && command[0] != "" {
		cmd = command[0]
	}

	var err error
	switch cmd {
	case "up":
		err = goose.Up(db, appfs.FS, "migrations")
	case "up-by-one":
		err = goose.UpByOne(db, appfs.FS, "migrations")
	case "down":
		err = goose.Down(db, appfs.FS, "migrations")
	case "redo":
		err = goose.Redo(db, appfs.FS, "migrations")
	default:
		return errors.Wrapf(ErrUnknownMigration, "%q", cmd)
	}
	if err != nil {
		return errors.Wrapf(err, "migrating database (%s)", cmd)
	}
	return nil
}
