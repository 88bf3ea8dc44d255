package main

import (
	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/storage/database"
)

// mockable
var (
	openDBFunc   = database.Open
	createDBFunc = database.CreateIfNotExist
	migrateFunc  = database.Migrate
)

func (cli *commandLine) createDB() error {
	if err := createDBFunc(cli.app.Conf); err != nil {
		return err
	}
	cli.println("database ready")
	return nil
}

func (cli *commandLine) migrate(args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	db, err := openDBFunc(cli.app.Conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err := migrateFunc(db, command); err != nil {
		return err
	}
	cli.printf("migrate %s: done\n", command)
	return nil
}
