package testutil

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/user"
	logsvc "github.com/trezcool/scolarite/services/logger"
	inmemdb "github.com/trezcool/scolarite/storage/database/inmem"
)

// Config returns the configuration tests run with, whatever the environment.
func Config() *core.Config {
	return &core.Config{
		Env:       "TEST",
		AppName:   "Scolarite",
		TestMode:  true,
		WorkDir:   core.Getwd(),
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
		},
		Storage: core.StorageConfig{Driver: "memory"},
		Schedule: core.ScheduleConfig{
			Days:    5,
			Periods: []string{"1-2", "3-4", "5-6", "7-8", "9-10"},
		},
		Audit: core.AuditConfig{
			MaxExcellenceRate: 90,
			MinPassRate:       60,
			FluctuationDelta:  20,
		},
	}
}

// Logger returns a logger writing nowhere.
func Logger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), conf)
}

// OpenDB returns an in-memory database loaded with the given seed collections (none if no key is given).
func OpenDB(t *testing.T, seed ...string) *inmemdb.DB {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	if len(seed) > 0 {
		if err := db.Seed(seed...); err != nil {
			t.Fatalf("db.Seed() failed: %v", err)
		}
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        core.NewID(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.Add(usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
