package user

import (
	"bufio"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/fs"
)

const (
	allRolesTag          = "allroles"
	usernameOrEmailTag   = "username_or_email"
	pwdMinLen            = 8
	pwdMaxAttrSimilarity = .7
)

// pwdRule is one check of the password policy. ok receives the password and
// the user attributes it must not resemble.
type pwdRule struct {
	tag  string
	text string
	ok   func(pwd string, attrs []string) bool
}

// passwordPolicy is checked in order; only the first broken rule is reported.
var passwordPolicy = []pwdRule{
	{
		tag:  "pwdminlen",
		text: fmt.Sprintf("password must contain at least %d characters", pwdMinLen),
		ok:   func(pwd string, _ []string) bool { return len(pwd) >= pwdMinLen },
	},
	{
		tag:  "pwdnospace",
		text: "password must not contain whitespace",
		ok:   func(pwd string, _ []string) bool { return strings.IndexFunc(pwd, unicode.IsSpace) < 0 },
	},
	{
		tag:  "pwdnotallnum",
		text: "password cannot be entirely numeric",
		ok: func(pwd string, _ []string) bool {
			return strings.IndexFunc(pwd, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0
		},
	},
	{
		tag:  "pwdcplx",
		text: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
		ok:   hasEveryCharClass,
	},
	{
		tag:  "pwdtoosim",
		text: "password cannot be similar to user attributes",
		ok: func(pwd string, attrs []string) bool {
			for _, attr := range attrs {
				if similarity(pwd, attr) >= pwdMaxAttrSimilarity {
					return false
				}
			}
			return true
		},
	},
	{
		tag:  "pwdnocommon",
		text: "password is too common",
		ok:   func(pwd string, _ []string) bool { return !commonPasswords[strings.ToLower(pwd)] },
	},
}

var commonPasswords = make(map[string]bool)

func init() {
	loadCommonPasswords()

	_ = core.Validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(allRolesTag, "invalid roles")

	core.Validate.RegisterStructValidation(userStructValidation, NewUser{})
	core.Validate.RegisterStructValidation(userStructValidation, UpdateUser{})
	core.RegisterCustomTranslation(usernameOrEmailTag, "one of username or email is required")
	for _, rule := range passwordPolicy {
		core.RegisterCustomTranslation(rule.tag, rule.text)
	}
}

func loadCommonPasswords() {
	file, err := appfs.FS.Open("passwords/common.txt")
	if err != nil {
		return
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			commonPasswords[strings.ToLower(pwd)] = true
		}
	}
}

func hasEveryCharClass(pwd string, _ []string) bool {
	var upper, lower, digit, special bool
	for _, r := range pwd {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			special = true
		}
	}
	return upper && lower && digit && special
}

// similarity is difflib's quick ratio between the characters of a and b.
func similarity(a, b string) float64 {
	if b == "" {
		return 0
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).QuickRatio()
}

// allRolesValidation checks that every role is a known one.
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if _, ok := rolePriorities[role]; !ok {
			return false
		}
	}
	return true
}

func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		if usr.Username == "" && usr.Email == "" {
			sl.ReportError(usr.Username, "username", "Username", usernameOrEmailTag, "")
			sl.ReportError(usr.Email, "email", "Email", usernameOrEmailTag, "")
		}
		validatePassword(usr.Password, sl, usr.Name, usr.Username, usr.Email)
	case UpdateUser:
		if usr.Password != "" {
			validatePassword(usr.Password, sl, usr.Name, usr.Username, usr.Email)
		}
	}
}

func validatePassword(pwd string, sl validator.StructLevel, attrs ...string) {
	for _, rule := range passwordPolicy {
		if !rule.ok(pwd, attrs) {
			sl.ReportError(pwd, "password", "Password", rule.tag, "")
			return
		}
	}
}
