package identity

import (
	"errors"
	"fmt"
	"strings"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// ValidateUserName checks that a user name is 3-64 characters of letters,
// digits and the symbols - . _ @ +
func ValidateUserName(userName string) error {
	if len(userName) < 3 {
		return errors.New("user name must be at least 3 characters long")
	}
	if len(userName) > 64 {
		return errors.New("user name must not exceed 64 characters")
	}

	for _, char := range userName {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			strings.ContainsRune("-._@+", char)) {
			return errors.New("user name can only contain letters, numbers and - . _ @ +")
		}
	}

	return nil
}

// ValidatePassword checks the configured minimum length and requires at
// least one letter and one digit.
func ValidatePassword(password string, requiredLength int) error {
	if len(password) < requiredLength {
		return fmt.Errorf("password must be at least %d characters long", requiredLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", maxPasswordBytes)
	}

	hasLetter := false
	hasNumber := false

	for _, char := range password {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') {
			hasLetter = true
		}
		if char >= '0' && char <= '9' {
			hasNumber = true
		}
	}

	if !hasLetter {
		return errors.New("password must contain at least one letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}

	return nil
}

// ValidateEmail performs a basic shape check. Email is required for
// accounts because confirmation is sent there.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > 255 {
		return errors.New("email must not exceed 255 characters")
	}

	at := strings.IndexRune(email, '@')
	if at <= 0 || at != strings.LastIndex(email, "@") || at == len(email)-1 {
		return errors.New("email must contain exactly one @ symbol between a name and a domain")
	}

	return nil
}

// Normalize returns the lookup form of a user or role name.
func Normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
