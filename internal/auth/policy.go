package auth

import "strings"

// passwordSymbols is the fixed set of accepted special characters.
const passwordSymbols = "!@#$%^&*"

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// ValidPassword reports whether the candidate satisfies the password policy:
// at least 8 characters with at least one digit, one lowercase letter, one
// uppercase letter, and one symbol from !@#$%^&*.
//
// Implemented as character-class scans rather than a single regexp because
// Go's RE2 engine has no lookahead.
func ValidPassword(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}

	var hasDigit, hasLower, hasUpper, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	return hasDigit && hasLower && hasUpper && hasSymbol
}
