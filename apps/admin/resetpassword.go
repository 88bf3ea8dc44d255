package main

import (
	"context"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	usr, err := cli.app.Users.GetByUsernameOrEmail(uname)
	if err != nil {
		return err
	}
	if _, err := cli.app.Users.SetPassword(usr.ID, pwd); err != nil {
		return err
	}
	return cli.app.Persist(context.Background())
}
