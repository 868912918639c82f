package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"echochat-backend/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// ValidateRegistration checks a registration form before a user is created
func ValidateRegistration(req *models.RegisterRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if !usernamePattern.MatchString(req.Username) {
		return fmt.Errorf("%w: username must be 3-20 letters, digits or underscores", ErrValidation)
	}
	if req.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if err := validatePasswordStrength(req.Password); err != nil {
		return err
	}
	if req.Password != req.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	return nil
}

func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordBytes)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return fmt.Errorf("%w: password needs an uppercase letter, a lowercase letter, a digit and a symbol", ErrValidation)
	}
	return nil
}
