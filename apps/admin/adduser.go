package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/user"
)

var ErrUnknownRole = errors.New("unknown role")

func rolesOf(role string) ([]string, error) {
	switch core.CleanString(role, true /* lower */) {
	case "":
		return nil, nil
	case "admin":
		return []string{user.RoleAdminOwner}, nil
	case "teacher":
		return []string{user.RoleTeacher}, nil
	case "student":
		return []string{user.RoleStudent}, nil
	}
	return nil, errors.Wrapf(ErrUnknownRole, "%q", role)
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd, role, profileID string) error {
	roles, err := rolesOf(role)
	if err != nil {
		return err
	}

	usr, err := cli.app.Users.GetByUsernameOrEmail(uname)
	switch {
	case err == nil:
		active := true
		uu := user.UpdateUser{
			Name:            name,
			Email:           email,
			IsActive:        &active,
			Roles:           roles,
			Password:        pwd,
			PasswordConfirm: pwd,
		}
		if profileID != "" {
			uu.ProfileID = &profileID
		}
		if _, err = cli.app.Users.Update(usr.ID, uu); err != nil {
			return errors.Wrap(err, "updating user")
		}
		cli.printf("user %s updated\n", usr.Username)

	case core.IsNotFound(err):
		if name == "" {
			name = uname
		}
		usr, err = cli.app.Users.Create(user.NewUser{
			Name:            name,
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
			ProfileID:       profileID,
		})
		if err != nil {
			return errors.Wrap(err, "creating user")
		}
		cli.printf("user %s created\n", usr.Username)

	default:
		return err
	}
	return cli.app.Persist(context.Background())
}
