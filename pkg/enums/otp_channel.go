package enums

import "fmt"

// OTPChannel identifies how a one-time code is delivered.
type OTPChannel string

const (
	OTPChannelEmail OTPChannel = "email"
	OTPChannelPhone OTPChannel = "phone"
)

var validOTPChannels = []OTPChannel{
	OTPChannelEmail,
	OTPChannelPhone,
}

// String implements fmt.Stringer.
func (c OTPChannel) String() string {
	return string(c)
}

// IsValid reports whether the value is a known OTPChannel.
func (c OTPChannel) IsValid() bool {
	for _, candidate := range validOTPChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseOTPChannel converts raw input into an OTPChannel.
func ParseOTPChannel(value string) (OTPChannel, error) {
	for _, candidate := range validOTPChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid otp channel %q", value)
}
