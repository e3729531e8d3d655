package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail         = errors.New("invalid email")
	ErrInvalidUsername      = errors.New("invalid username")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrInvalidAccountNumber = errors.New("invalid account number")
	ErrInvalidIdentifier    = errors.New("invalid identifier")
)

var (
	emailRegex         = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex      = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)
	phoneRegex         = regexp.MustCompile(`^\+?\(?[0-9]{3}\)?[-\s.]?[0-9]{3}[-\s.]?[0-9]{4,6}$`)
	intlPhoneRegex     = regexp.MustCompile(`^\+[0-9]{11,14}$`)
	accountNumberRegex = regexp.MustCompile(`^[0-9]{10}$`)
	otpRegex           = regexp.MustCompile(`^[0-9]{6}$`)
)

type IdentifierKind int

const (
	IdentifierUsername IdentifierKind = iota
	IdentifierEmail
	IdentifierPhone
)

// ClassifyIdentifier decides which user column a free-form recipient
// identifier refers to and returns it normalized for lookup.
func ClassifyIdentifier(raw string) (IdentifierKind, string, error) {
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		return 0, "", ErrInvalidIdentifier
	case emailRegex.MatchString(value):
		return IdentifierEmail, strings.ToLower(value), nil
	case phoneRegex.MatchString(value), intlPhoneRegex.MatchString(value):
		return IdentifierPhone, NormalizePhone(value), nil
	case usernameRegex.MatchString(value):
		return IdentifierUsername, value, nil
	}
	return 0, "", ErrInvalidIdentifier
}

// NormalizePhone rewrites a local number with a leading 0 to +234 form.
func NormalizePhone(value string) string {
	value = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "").Replace(value)
	if strings.HasPrefix(value, "0") {
		return "+234" + value[1:]
	}
	return value
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 4 {
		return ErrInvalidPassword
	}
	return nil
}

func ValidateAccountNumber(number string) error {
	if !accountNumberRegex.MatchString(number) {
		return ErrInvalidAccountNumber
	}
	return nil
}

func IsOTP(code string) bool {
	return otpRegex.MatchString(code)
}
