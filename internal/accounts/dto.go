package accounts

import (
	"time"

	"github.com/aspida-health/aspida-backend/pkg/db/models"
)

// RequestRegistrationOTPRequest starts a registration by email or phone.
type RequestRegistrationOTPRequest struct {
	Login string `json:"login" validate:"required"`
}

// RegisterRequest completes a registration with the delivered code.
type RegisterRequest struct {
	Login     string `json:"login" validate:"required"`
	OTP       string `json:"otp" validate:"required,len=6"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2" validate:"required"`
}

// LoginRequest authenticates by username, email, or phone.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	Access  string `json:"access" validate:"required"`
	Refresh string `json:"refresh" validate:"required"`
}

// VerifyRequest checks an access token against the live session store.
type VerifyRequest struct {
	Access string `json:"access" validate:"required"`
}

// ChangePasswordRequest rotates the password for a logged-in user.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// ForgotPasswordRequest starts a password reset by email or phone.
type ForgotPasswordRequest struct {
	Identifier string `json:"identifier" validate:"required"`
}

// ResetPasswordRequest completes a password reset with the delivered code.
type ResetPasswordRequest struct {
	Identifier      string `json:"identifier" validate:"required"`
	OTP             string `json:"otp" validate:"required,len=6"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// UpdateProfileRequest carries partial profile updates. Username, email, and
// phone are immutable once registered.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// UserProfile is the client-facing view of an account.
type UserProfile struct {
	AccountID   string     `json:"account_id"`
	Username    string     `json:"username"`
	Email       *string    `json:"email"`
	Phone       *string    `json:"phone"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	LastLoginAt *time.Time `json:"last_login_at"`
	JoinedAt    time.Time  `json:"joined_at"`
}

// AuthResult carries the token pair issued by registration, login, and refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         UserProfile
}

// ProfileFromModel maps the persistence model to the wire view.
func ProfileFromModel(user *models.User) UserProfile {
	return UserProfile{
		AccountID:   user.AccountID,
		Username:    user.Username,
		Email:       user.Email,
		Phone:       user.Phone,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		LastLoginAt: user.LastLoginAt,
		JoinedAt:    user.CreatedAt,
	}
}
