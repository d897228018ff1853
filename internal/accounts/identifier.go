package accounts

import (
	"regexp"
	"strings"

	"github.com/aspida-health/aspida-backend/pkg/enums"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// classifyIdentifier decides the OTP channel for a registration or reset
// input: anything containing @ is treated as email, everything else as phone.
func classifyIdentifier(input string) (enums.OTPChannel, string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", "", pkgerrors.NewField("login", "this field is required")
	}

	if strings.Contains(trimmed, "@") {
		if !emailRe.MatchString(trimmed) {
			return "", "", pkgerrors.NewField("login", "enter a valid email address")
		}
		return enums.OTPChannelEmail, strings.ToLower(trimmed), nil
	}

	if !phoneRe.MatchString(trimmed) {
		return "", "", pkgerrors.NewField("login", "enter a valid phone number")
	}
	return enums.OTPChannelPhone, trimmed, nil
}

// usernameBase derives the starting username candidate: the email local part,
// or the phone number itself.
func usernameBase(channel enums.OTPChannel, identifier string) string {
	if channel == enums.OTPChannelEmail {
		if at := strings.IndexByte(identifier, '@'); at > 0 {
			return identifier[:at]
		}
	}
	return identifier
}
