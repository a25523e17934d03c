package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength   = 8
	passwordSpecials    = `!@#$%^&*(),.?":{}|<>`
	requiredCharClasses = 3
)

// PasswordCheck is the result of validating a new password and its
// confirmation.
type PasswordCheck struct {
	Length     bool
	Complexity bool
	Match      bool
	Classes    int
}

func (c PasswordCheck) OK() bool {
	return c.Length && c.Complexity && c.Match
}

// Problem describes the first failed rule, or "" when the password is fine.
func (c PasswordCheck) Problem() string {
	switch {
	case !c.Length:
		return "Password must be at least 8 characters"
	case !c.Complexity:
		return "Password needs 3 of: uppercase, lowercase, digits, symbols"
	case !c.Match:
		return "Passwords do not match"
	}
	return ""
}

func CheckPassword(password, confirm string) PasswordCheck {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r) && r < unicode.MaxASCII:
			upper = true
		case unicode.IsLower(r) && r < unicode.MaxASCII:
			lower = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	classes := 0
	for _, ok := range []bool{upper, lower, digit, special} {
		if ok {
			classes++
		}
	}

	return PasswordCheck{
		Length:     utf8.RuneCountInString(password) >= MinPasswordLength,
		Complexity: classes >= requiredCharClasses,
		Match:      confirm != "" && password == confirm,
		Classes:    classes,
	}
}
