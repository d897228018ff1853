package notify

import (
	"context"
	"fmt"
)

// EmailSender delivers transactional email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers transactional text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// RegistrationOTPSubject is the subject line for registration codes.
const RegistrationOTPSubject = "Your Aspida verification code"

// PasswordResetOTPSubject is the subject line for password-reset codes.
const PasswordResetOTPSubject = "Your Aspida password reset code"

// RegistrationOTPBody renders the registration code message, shared by both
// channels.
func RegistrationOTPBody(code string) string {
	return fmt.Sprintf("Your Aspida verification code is %s. It expires in 10 minutes.", code)
}

// PasswordResetOTPBody renders the password-reset code message.
func PasswordResetOTPBody(code string) string {
	return fmt.Sprintf("Your Aspida password reset code is %s. It expires in 10 minutes.", code)
}
