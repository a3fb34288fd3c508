package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Guest/couple names: letters, spaces, hyphens, apostrophes only.
var nameRe = regexp.MustCompile(`^[A-Za-z\s\-']+$`)

// Phone numbers are stored normalized: optional leading +, then digits.
var phoneRe = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

// Tag colors: #rgb or #rrggbb.
var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword requires at least 8 characters with at least one letter,
// one number and one special character.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

func IsValidName(name string) bool {
	return name != "" && nameRe.MatchString(name)
}

// NormalizePhone strips spaces, dots, dashes and parentheses so that the
// per-couple uniqueness check compares like with like.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidPhone checks the normalized form.
func IsValidPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}

func IsValidHexColor(color string) bool {
	return hexColorRe.MatchString(color)
}
