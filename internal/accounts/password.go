package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/aspida-health/aspida-backend/internal/identity"
	"github.com/aspida-health/aspida-backend/internal/notify"
	"github.com/aspida-health/aspida-backend/internal/otp"
	"github.com/aspida-health/aspida-backend/pkg/db/models"
	"github.com/aspida-health/aspida-backend/pkg/enums"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/aspida-health/aspida-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChangePassword rotates the password for an authenticated user after
// verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	valid, err := security.VerifyPassword(req.OldPassword, user.PasswordHash)
	if err != nil || !valid {
		return pkgerrors.NewField("old_password", "incorrect password")
	}

	if req.NewPassword != req.ConfirmPassword {
		return pkgerrors.NewField("confirm_password", "passwords do not match")
	}
	if err := s.checkPasswordPolicyForUser(req.NewPassword, user); err != nil {
		return err
	}

	hash, err := security.HashPassword(req.NewPassword, s.passCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}

// ForgotPassword resolves the identifier to an account, issues a reset code,
// and dispatches it over the matching channel.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	channel, identifier, user, err := s.resolveResetAccount(ctx, req.Identifier)
	if err != nil {
		return err
	}

	issued, err := s.otps.IssueReset(ctx, user.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue reset otp")
	}

	return s.dispatchCode(ctx, channel, identifier, notify.PasswordResetOTPSubject, notify.PasswordResetOTPBody(issued.Code))
}

// ResetPassword validates the reset code and sets the new password, consuming
// every pending reset code for the account in the same transaction.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	_, _, user, err := s.resolveResetAccount(ctx, req.Identifier)
	if err != nil {
		return err
	}

	if req.NewPassword != req.ConfirmPassword {
		return pkgerrors.NewField("confirm_password", "passwords do not match")
	}
	if err := s.checkPasswordPolicyForUser(req.NewPassword, user); err != nil {
		return err
	}

	if err := s.otps.ValidateReset(ctx, user.ID, req.OTP); err != nil {
		switch {
		case errors.Is(err, otp.ErrCodeInvalid):
			return pkgerrors.NewField("otp", "invalid otp")
		case errors.Is(err, otp.ErrCodeExpired):
			return pkgerrors.NewField("otp", "otp expired")
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate otp")
		}
	}

	hash, err := security.HashPassword(req.NewPassword, s.passCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := identity.NewRepository(tx).UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
		}
		if _, err := otp.NewRepository(tx).DeleteResetForUser(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume reset otps")
		}
		return nil
	})
}

func (s *Service) resolveResetAccount(ctx context.Context, rawIdentifier string) (enums.OTPChannel, string, *models.User, error) {
	trimmed := strings.TrimSpace(rawIdentifier)
	if trimmed == "" {
		return "", "", nil, pkgerrors.NewField("identifier", "this field is required")
	}

	var (
		channel enums.OTPChannel
		user    *models.User
		err     error
	)
	if strings.Contains(trimmed, "@") {
		channel = enums.OTPChannelEmail
		trimmed = strings.ToLower(trimmed)
		user, err = s.users.FindByEmail(ctx, trimmed)
	} else {
		channel = enums.OTPChannelPhone
		user, err = s.users.FindByPhone(ctx, trimmed)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", nil, pkgerrors.NewField("identifier", "no account found for this identifier")
		}
		return "", "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}
	return channel, trimmed, user, nil
}

func (s *Service) checkPasswordPolicy(password string, attributes ...string) error {
	violations := security.CheckPasswordPolicy(password, s.passCfg, attributes...)
	if len(violations) == 0 {
		return nil
	}
	err := pkgerrors.New(pkgerrors.CodeValidation, "password does not meet the policy")
	for _, v := range violations {
		err = err.WithField("password", v.Message(s.passCfg.MinLength))
	}
	return err
}

func (s *Service) checkPasswordPolicyForUser(password string, user *models.User) error {
	attrs := []string{user.Username}
	if user.Email != nil {
		attrs = append(attrs, *user.Email)
	}
	if user.Phone != nil {
		attrs = append(attrs, *user.Phone)
	}
	return s.checkPasswordPolicy(password, attrs...)
}
