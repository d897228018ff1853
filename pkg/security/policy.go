package security

import (
	"strings"
	"unicode"

	"github.com/aspida-health/aspida-backend/pkg/config"
)

// A small deny-list covering the passwords we actually see attempted.
// Checked case-insensitively after trimming.
var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"passw0rd":   {},
	"12345678":   {},
	"123456789":  {},
	"1234567890": {},
	"qwerty123":  {},
	"qwertyuiop": {},
	"iloveyou":   {},
	"letmein1":   {},
	"welcome1":   {},
	"admin123":   {},
	"sunshine":   {},
	"football":   {},
	"baseball":   {},
	"superman":   {},
	"aspida123":  {},
}

// PolicyViolation describes why a candidate password was rejected.
type PolicyViolation string

const (
	ViolationTooShort       PolicyViolation = "too_short"
	ViolationEntirelyNumber PolicyViolation = "entirely_numeric"
	ViolationTooCommon      PolicyViolation = "too_common"
	ViolationTooSimilar     PolicyViolation = "too_similar"
)

// Message returns the client-facing text for a violation.
func (v PolicyViolation) Message(minLength int) string {
	switch v {
	case ViolationTooShort:
		return "password is too short"
	case ViolationEntirelyNumber:
		return "password cannot be entirely numeric"
	case ViolationTooCommon:
		return "password is too common"
	case ViolationTooSimilar:
		return "password is too similar to your personal information"
	}
	return "password is not acceptable"
}

// CheckPasswordPolicy validates a candidate password against the strength
// policy: minimum length, not fully numeric, not on the common-password list,
// and not containing (or contained in) any of the user's own identifiers.
func CheckPasswordPolicy(password string, cfg config.PasswordConfig, userAttributes ...string) []PolicyViolation {
	var violations []PolicyViolation

	minLength := cfg.MinLength
	if minLength <= 0 {
		minLength = 8
	}
	if len(password) < minLength {
		violations = append(violations, ViolationTooShort)
	}

	if password != "" && isEntirelyNumeric(password) {
		violations = append(violations, ViolationEntirelyNumber)
	}

	lowered := strings.ToLower(strings.TrimSpace(password))
	if _, ok := commonPasswords[lowered]; ok {
		violations = append(violations, ViolationTooCommon)
	}

	for _, attr := range userAttributes {
		if similarToAttribute(lowered, attr) {
			violations = append(violations, ViolationTooSimilar)
			break
		}
	}

	return violations
}

func isEntirelyNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func similarToAttribute(loweredPassword, attribute string) bool {
	attr := strings.ToLower(strings.TrimSpace(attribute))
	if len(attr) < 4 {
		return false
	}
	// Email addresses count as similar when the local part matches.
	if at := strings.IndexByte(attr, '@'); at > 0 {
		attr = attr[:at]
		if len(attr) < 4 {
			return false
		}
	}
	return strings.Contains(loweredPassword, attr) || strings.Contains(attr, loweredPassword)
}
