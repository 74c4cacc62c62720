package validate

import (
	"strings"
)

const (
	passwordMinLen = 6
	passwordMaxLen = 20

	passwordSymbols = "@$!%*#?&"
	passwordLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits  = "0123456789"
)

// PasswordPolicy is the human-readable description of the password rules,
// suitable for error messages.
const PasswordPolicy = "Password must contain uppercase, lowercase, digit, special character, and be 6-20 characters long."

// Password checks a candidate password against the fixed policy: 6-20
// characters, at least one lowercase letter, one uppercase letter, one digit
// and one symbol from the allowed set, and no characters outside that
// alphabet.
func Password(password string) bool {
	if len(password) < passwordMinLen || len(password) > passwordMaxLen {
		return false
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		default:
			return false
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}
