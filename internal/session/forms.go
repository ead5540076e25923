package session

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"nxttask/internal/apperr"
)

const MinPasswordLength = 6

type LoginForm struct {
	Email    string
	Password string
}

func (f LoginForm) Validate() error {
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	if len(f.Password) < MinPasswordLength {
		return apperr.ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	return nil
}

type SignUpForm struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

func (f SignUpForm) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(f.FullName)) < 2 {
		return apperr.ValidationError{Field: "fullName", Message: "Full name must be at least 2 characters"}
	}
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	if len(f.Password) < MinPasswordLength {
		return apperr.ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	if len(f.ConfirmPassword) < MinPasswordLength {
		return apperr.ValidationError{Field: "confirmPassword", Message: "Please confirm your password"}
	}
	if f.Password != f.ConfirmPassword {
		return apperr.ValidationError{Field: "confirmPassword", Message: "Passwords don't match"}
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return apperr.ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	return nil
}
