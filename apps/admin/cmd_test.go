package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/scolarite/apps/shared"
	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/storage/database"
	"github.com/trezcool/scolarite/storage/kv/badgerkv"
	"github.com/trezcool/scolarite/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := testutil.Config()
	store, err := badgerkv.OpenInMemory()
	require.NoError(t, err)

	app, err := shared.NewWithStorage(context.Background(), conf, testutil.Logger(conf), store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	var out bytes.Buffer
	return &commandLine{app: app, out: &out}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"export", "-lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	var ran []string
	openDBFunc = func(*core.Config) (*sql.DB, error) {
		// lazily connects: nothing is dialed until a query runs
		return sql.Open("postgres", "postgres://test@localhost/test?sslmode=disable")
	}
	migrateFunc = func(_ *sql.DB, command ...string) error {
		switch command[0] {
		case "up", "up-by-one", "down", "redo":
			ran = append(ran, command[0])
			return nil
		}
		return errors.Wrapf(database.ErrUnknownMigration, "%q", command[0])
	}
	createDBFunc = func(*core.Config) error { return nil }
	t.Cleanup(func() {
		openDBFunc = database.Open
		migrateFunc = database.Migrate
		createDBFunc = database.CreateIfNotExist
	})

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErr: database.ErrUnknownMigration},
		{name: "default", args: []string{"migrate"}},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "createdb", args: []string{"createdb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
	assert.Equal(t, []string{"up", "up", "up-by-one", "down", "redo"}, ran)
	assert.Contains(t, out.String(), "database ready")
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"adduser", "-username", "jdoe"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-username", "jdoe", "-role", "dean"}, extra: extra{pwd: "S3cret-Pass!"}, wantErr: ErrUnknownRole},
		{
			name:  "create",
			args:  []string{"adduser", "-name", "John Doe", "-username", "jdoe", "-email", "jdoe@test.cd", "-role", "teacher", "-profile", "T002"},
			extra: extra{pwd: "S3cret-Pass!"},
		},
		{name: "update", args: []string{"adduser", "-username", "jdoe", "-role", "admin"}, extra: extra{pwd: "An0ther-Pass!"}},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	usr, err := cli.app.Users.GetByUsernameOrEmail("jdoe@test.cd")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", usr.Name)
	assert.Equal(t, "T002", usr.ProfileID)
	assert.True(t, usr.IsAdmin())
	assert.NoError(t, usr.CheckPassword("An0ther-Pass!"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr, err := cli.app.Users.GetByUsernameOrEmail("amartin")
	require.NoError(t, err)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: core.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if err == nil {
				refreshed, err := cli.app.Users.GetByID(usr.ID)
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash), "password updated")
			}
		})
	}
}

func Test_commandLine_schedule(t *testing.T) {
	cli, out := setup(t)

	require.NoError(t, cli.run([]string{"admin", "conflicts"}))
	assert.Contains(t, out.String(), "no conflicts")

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "schedule"}))
	assert.Contains(t, out.String(), "scheduled 4 of 4 plans")
	assert.Contains(t, out.String(), "P001 CS201/CS2023A: Mon 1-2 @R101")

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "schedule"}))
	assert.Contains(t, out.String(), "scheduled 0 of 0 plans")
}

func Test_commandLine_export(t *testing.T) {
	cli, _ := setup(t)
	dir := t.TempDir()

	tests := []cliTest{
		{name: "no args", args: []string{"export"}, wantErr: errHelp},
		{name: "unknown export", args: []string{"export", "-what", "lol"}, wantErr: ErrUnknownExport},
		{name: "unknown format", args: []string{"export", "-what", "plans", "-format", "doc", "-o", filepath.Join(dir, "plans.doc")}, wantErrStr: `"doc": unknown export format`},
		{name: "plans", args: []string{"export", "-what", "plans", "-o", filepath.Join(dir, "plans.csv")}, extra: filepath.Join(dir, "plans.csv")},
		{name: "grades xlsx", args: []string{"export", "-what", "grades", "-format", "xlsx", "-o", filepath.Join(dir, "grades.xlsx")}, extra: filepath.Join(dir, "grades.xlsx")},
		{name: "timetable pdf", args: []string{"export", "-what", "timetable", "-format", "pdf", "-o", filepath.Join(dir, "timetable.pdf")}, extra: filepath.Join(dir, "timetable.pdf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
			if path, ok := tt.extra.(string); ok {
				info, err := os.Stat(path)
				require.NoError(t, err)
				assert.NotZero(t, info.Size())
			}
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli, out := setup(t)
	require.NoError(t, cli.run([]string{"admin", "schedule"}))
	_, err := cli.app.Ledger.Drop("S2023001", "CS201")
	require.NoError(t, err)

	tests := []cliTest{
		{name: "unknown collection", args: []string{"seed", "lol"}, wantErr: ErrUnknownCollection},
		{name: "plans", args: []string{"seed", "Plans"}},
		{name: "all", args: []string{"seed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
		if tt.name == "plans" {
			assert.Equal(t, "  teachers: 4\n  plans: 4\n", out.String())
			p, err := cli.app.Registry.Get("P001")
			require.NoError(t, err)
			assert.Nil(t, p.Slot)
			tchr, err := cli.app.School.GetTeacher("T001")
			require.NoError(t, err)
			assert.Equal(t, 8, tchr.CurrentWorkload)
			n, _ := cli.app.Ledger.CountActive("CS201")
			assert.Equal(t, 3, n, "other collections are kept")
		}
	}
	n, err := cli.app.Ledger.CountActive("CS201")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Contains(t, out.String(), "  users: 3\n")
}
