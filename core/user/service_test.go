package user_test

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/user"
	"github.com/trezcool/scolarite/tests"
)

const pwd = "Str0ng-Pass!"

// fieldErrors maps the invalid fields of a validation error to their message.
func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	require.True(t, core.IsValidationError(err), "not a validation error: %v", err)

	var flds []core.FieldError
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		flds = core.TranslateFieldErrors(e)
	case *core.ValidationError:
		flds = e.Fields
	}
	got := make(map[string]string, len(flds))
	for _, f := range flds {
		got[f.Field] = f.Error
	}
	return got
}

func setup(t *testing.T) (*user.Service, user.Repository) {
	db := testutil.OpenDB(t)
	return user.NewService(db.Users()), db.Users()
}

func TestService_Create(t *testing.T) {
	svc, repo := setup(t)
	testutil.CreateUser(t, repo, "Taken", "taken", "taken@scolarite.local", pwd, []string{user.RoleTeacher}, true)

	valid := user.NewUser{
		Name:            "John Doe",
		Username:        "jdoe",
		Email:           "jdoe@ex.com",
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           []string{user.RoleStudent},
	}
	with := func(fn func(nu *user.NewUser)) user.NewUser {
		nu := valid
		fn(&nu)
		return nu
	}

	tests := []struct {
		name      string
		nu        user.NewUser
		wantField string
		wantMsg   string
	}{
		{name: "username too short", nu: with(func(nu *user.NewUser) { nu.Username = "jd" }), wantField: "username"},
		{name: "invalid email", nu: with(func(nu *user.NewUser) { nu.Email = "jdoe" }), wantField: "email"},
		{
			name:      "no username nor email",
			nu:        with(func(nu *user.NewUser) { nu.Username, nu.Email = "", "" }),
			wantField: "email",
			wantMsg:   "one of username or email is required",
		},
		{name: "unknown role", nu: with(func(nu *user.NewUser) { nu.Roles = []string{"janitor:"} }), wantField: "roles", wantMsg: "invalid roles"},
		{name: "password mismatch", nu: with(func(nu *user.NewUser) { nu.PasswordConfirm = "Str0ng-Pass?" }), wantField: "password_confirm"},
		{
			name:      "short password",
			nu:        with(func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Sh0rt!", "Sh0rt!" }),
			wantField: "password",
			wantMsg:   "password must contain at least 8 characters",
		},
		{
			name:      "password with whitespace",
			nu:        with(func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Str0ng Pass!", "Str0ng Pass!" }),
			wantField: "password",
			wantMsg:   "password must not contain whitespace",
		},
		{
			name:      "numeric password",
			nu:        with(func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "20242025", "20242025" }),
			wantField: "password",
			wantMsg:   "password cannot be entirely numeric",
		},
		{
			name:      "simple password",
			nu:        with(func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "strongpass1", "strongpass1" }),
			wantField: "password",
			wantMsg:   "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
		},
		{
			name:      "password similar to name",
			nu:        with(func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "JohnDoe-1", "JohnDoe-1" }),
			wantField: "password",
			wantMsg:   "password cannot be similar to user attributes",
		},
		{
			name:      "common password",
			nu:        with(func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "P@ssw0rd", "P@ssw0rd" }),
			wantField: "password",
			wantMsg:   "password is too common",
		},
		{
			name:      "username taken",
			nu:        with(func(nu *user.NewUser) { nu.Username = " TAKEN " }),
			wantField: "username",
			wantMsg:   user.ErrUsernameExists.Error(),
		},
		{
			name:      "email taken",
			nu:        with(func(nu *user.NewUser) { nu.Email = "Taken@Scolarite.local" }),
			wantField: "email",
			wantMsg:   user.ErrEmailExists.Error(),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(tc.nu)
			flds := fieldErrors(t, err)
			if assert.Contains(t, flds, tc.wantField) && tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, flds[tc.wantField])
			}
		})
	}

	t.Run("valid", func(t *testing.T) {
		nu := with(func(nu *user.NewUser) { nu.Username, nu.Email, nu.ProfileID = " JDoe ", "JDoe@Ex.com", " S2023001 " })
		usr, err := svc.Create(nu)
		require.NoError(t, err)
		assert.Equal(t, "jdoe", usr.Username)
		assert.Equal(t, "jdoe@ex.com", usr.Email)
		assert.Equal(t, "S2023001", usr.ProfileID)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword(pwd))
		assert.False(t, usr.CreatedAt.IsZero())

		got, err := svc.GetByUsernameOrEmail("JDOE@ex.com")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)
	})
}

func TestService_Update(t *testing.T) {
	svc, repo := setup(t)
	usr := testutil.CreateUser(t, repo, "Jane Doe", "jane", "jane@scolarite.local", pwd, []string{user.RoleStudent}, true)
	testutil.CreateUser(t, repo, "Other", "other", "other@scolarite.local", pwd, nil, true)

	_, err := svc.Update(usr.ID, user.UpdateUser{Username: "other"})
	assert.Equal(t, user.ErrUsernameExists.Error(), fieldErrors(t, err)["username"])

	_, err = svc.Update(usr.ID, user.UpdateUser{Password: "N3w-Secret!"})
	assert.Contains(t, fieldErrors(t, err), "password_confirm")

	_, err = svc.Update("unknown", user.UpdateUser{Name: "X"})
	assert.True(t, core.IsNotFound(err))

	inactive := false
	profile := " T001 "
	updated, err := svc.Update(usr.ID, user.UpdateUser{
		Name:            "Jane Smith",
		Roles:           []string{user.RoleTeacher},
		IsActive:        &inactive,
		ProfileID:       &profile,
		Password:        "N3w-Secret!",
		PasswordConfirm: "N3w-Secret!",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", updated.Name)
	assert.Equal(t, "jane", updated.Username, "blank fields are kept")
	assert.Equal(t, []string{user.RoleTeacher}, updated.Roles)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "T001", updated.ProfileID)
	assert.NoError(t, updated.CheckPassword("N3w-Secret!"))

	reset, err := svc.SetPassword(usr.ID, "123")
	require.NoError(t, err)
	assert.NoError(t, reset.CheckPassword("123"), "resets bypass the password policy")
}

func TestService_Authenticate(t *testing.T) {
	origNow := user.NowFunc
	defer func() { user.NowFunc = origNow }()
	now := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	user.NowFunc = func() time.Time { return now }

	svc, repo := setup(t)
	active := testutil.CreateUser(t, repo, "Active", "active", "active@scolarite.local", pwd, nil, true)
	testutil.CreateUser(t, repo, "Inactive", "inactive", "inactive@scolarite.local", pwd, nil, false)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr bool
	}{
		{name: "unknown user", uname: "ghost", pwd: pwd, wantErr: true},
		{name: "wrong password", uname: "active", pwd: "Wr0ng-Pass!", wantErr: true},
		{name: "inactive user", uname: "inactive", pwd: pwd, wantErr: true},
		{name: "by username", uname: "Active", pwd: pwd},
		{name: "by email", uname: "active@scolarite.local", pwd: pwd},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			usr, err := svc.Authenticate(tc.uname, tc.pwd)
			if tc.wantErr {
				assert.Equal(t, user.ErrInvalidCredentials, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, active.ID, usr.ID)
			assert.Equal(t, now, usr.LastLogin)
		})
	}
}

func TestService_FilterAndDelete(t *testing.T) {
	svc, repo := setup(t)
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	admin := testutil.CreateUser(t, repo, "Admin", "admin", "admin@scolarite.local", "", []string{user.RoleAdminOwner}, true, jan)
	tchr := testutil.CreateUser(t, repo, "Alice Martin", "amartin", "alice@scolarite.local", "", []string{user.RoleTeacher}, true, jun)
	stud := testutil.CreateUser(t, repo, "Emma Bernard", "ebernard", "emma@scolarite.local", "", []string{user.RoleStudent}, false, jun)

	inactive := false
	tests := []struct {
		name   string
		filter user.QueryFilter
		want   []string
	}{
		{name: "all", want: []string{admin.ID, tchr.ID, stud.ID}},
		{name: "search name", filter: user.QueryFilter{Search: "MARTIN"}, want: []string{tchr.ID}},
		{name: "search email", filter: user.QueryFilter{Search: "emma@"}, want: []string{stud.ID}},
		{name: "admin roles", filter: user.QueryFilter{Roles: []string{user.RoleAdmin}}, want: []string{admin.ID}},
		{name: "several roles", filter: user.QueryFilter{Roles: []string{user.RoleTeacher, user.RoleStudent}}, want: []string{tchr.ID, stud.ID}},
		{name: "inactive", filter: user.QueryFilter{IsActive: &inactive}, want: []string{stud.ID}},
		{name: "created from", filter: user.QueryFilter{CreatedFrom: jun}, want: []string{tchr.ID, stud.ID}},
		{name: "created to", filter: user.QueryFilter{CreatedTo: jan}, want: []string{admin.ID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users, err := svc.Filter(tc.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(users))
			for _, u := range users {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}

	assert.Equal(t, core.Actor{UserID: admin.ID, Role: user.RoleAdminOwner, DisplayName: "Admin"}, admin.Actor())

	err := svc.Delete(tchr.ID, "unknown")
	assert.True(t, core.IsNotFound(err))
	require.NoError(t, svc.Delete(stud.ID))
	all, err := svc.QueryAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
