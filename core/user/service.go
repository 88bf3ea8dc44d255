package user

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type (
	Repository = core.Repository[User]

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(uname, email, excludedID string) error {
	users, err := svc.repo.Filter(func(u User) bool {
		return u.ID != excludedID &&
			((uname != "" && u.Username == uname) || (email != "" && u.Email == email))
	})
	if err != nil {
		return err
	}
	for _, u := range users {
		if uname != "" && u.Username == uname {
			return core.NewValidationError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
		}
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return nil
}

func (svc *Service) Create(nu NewUser) (User, error) {
	nu.clean()
	if err := core.Validate.Struct(nu); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(nu.Username, nu.Email, ""); err != nil {
		return User{}, err
	}

	now := NowFunc().UTC()
	usr := User{
		ID:        core.NewID(),
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		ProfileID: nu.ProfileID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.Add(usr)
}

func (svc *Service) QueryAll() ([]User, error) {
	return svc.repo.List()
}

func (svc *Service) GetByID(id string) (User, error) {
	return svc.repo.Get(id)
}

// GetByUsernameOrEmail looks a user up by its username or its email.
func (svc *Service) GetByUsernameOrEmail(uname string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	users, err := svc.repo.Filter(func(u User) bool {
		return uname != "" && (u.Username == uname || u.Email == uname)
	})
	if err != nil {
		return User{}, err
	}
	if len(users) == 0 {
		return User{}, errors.Wrapf(core.ErrNotFound, "user %q", uname)
	}
	return users[0], nil
}

func (svc *Service) Filter(filter QueryFilter) ([]User, error) {
	return svc.repo.Filter(filter.Match)
}

func (svc *Service) Update(id string, uu UpdateUser) (User, error) {
	orig, err := svc.repo.Get(id)
	if err != nil {
		return User{}, err
	}
	uu.fill(orig)
	if err := core.Validate.Struct(uu); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(uu.Username, uu.Email, orig.ID); err != nil {
		return User{}, err
	}

	return svc.repo.Update(id, func(u *User) error {
		u.Name = uu.Name
		u.Username = uu.Username
		u.Email = uu.Email
		if uu.Roles != nil {
			u.Roles = append([]string(nil), uu.Roles...)
		}
		if uu.IsActive != nil {
			u.IsActive = *uu.IsActive
		}
		if uu.ProfileID != nil {
			u.ProfileID = core.CleanString(*uu.ProfileID)
		}
		if uu.Password != "" {
			if err := u.SetPassword(uu.Password); err != nil {
				return err
			}
		}
		u.UpdatedAt = NowFunc().UTC()
		return nil
	})
}

// SetPassword resets a user's password, bypassing the password policy.
func (svc *Service) SetPassword(id, pwd string) (User, error) {
	return svc.repo.Update(id, func(u *User) error {
		u.UpdatedAt = NowFunc().UTC()
		return u.SetPassword(pwd)
	})
}

// Authenticate checks the credentials of an active user and records the login.
func (svc *Service) Authenticate(uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(uname)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !usr.IsActive || usr.CheckPassword(pwd) != nil {
		return User{}, ErrInvalidCredentials
	}
	return svc.repo.Update(usr.ID, func(u *User) error {
		u.LastLogin = NowFunc().UTC()
		return nil
	})
}

func (svc *Service) Delete(ids ...string) error {
	for _, id := range ids {
		if err := svc.repo.Remove(id); err != nil {
			return errors.Wrapf(err, "deleting user %s", id)
		}
	}
	return nil
}
