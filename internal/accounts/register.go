package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/aspida-health/aspida-backend/internal/identity"
	"github.com/aspida-health/aspida-backend/internal/notify"
	"github.com/aspida-health/aspida-backend/internal/otp"
	"github.com/aspida-health/aspida-backend/pkg/db"
	"github.com/aspida-health/aspida-backend/pkg/db/models"
	"github.com/aspida-health/aspida-backend/pkg/enums"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/aspida-health/aspida-backend/pkg/security"
	"github.com/aspida-health/aspida-backend/pkg/uniqueid"
	"gorm.io/gorm"
)

const alreadyRegisteredMessage = "an account with this identifier already exists"

// maxRegisterAttempts bounds the regenerate-and-retry loop when a concurrent
// registration wins a generated username or account id.
const maxRegisterAttempts = 3

var errHandleCollision = errors.New("generated handle already taken")

// RequestRegistrationOTP issues and dispatches a registration code. The code
// is committed before dispatch; a delivery failure surfaces as a retryable
// gateway error and leaves the code in place.
func (s *Service) RequestRegistrationOTP(ctx context.Context, req RequestRegistrationOTPRequest) error {
	channel, identifier, err := classifyIdentifier(req.Login)
	if err != nil {
		return err
	}

	taken, err := s.identifierTaken(ctx, channel, identifier)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check identifier")
	}
	if taken {
		return pkgerrors.NewField("login", alreadyRegisteredMessage)
	}

	issued, err := s.otps.IssueRegistration(ctx, channel, identifier)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue registration otp")
	}

	return s.dispatchCode(ctx, channel, identifier, notify.RegistrationOTPSubject, notify.RegistrationOTPBody(issued.Code))
}

// Register validates the code and password, then creates the account and
// consumes every pending code for the channel in one transaction. The unique
// constraints stay authoritative: an identifier collision on insert maps back
// to the same duplicate-identifier validation error a pre-check would have
// produced, while a collision on a generated username or account id
// regenerates and retries in a fresh transaction.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	channel, identifier, err := classifyIdentifier(req.Login)
	if err != nil {
		return nil, err
	}

	if req.Password != req.Password2 {
		return nil, pkgerrors.NewField("password2", "passwords do not match")
	}
	if err := s.checkPasswordPolicy(req.Password, identifier); err != nil {
		return nil, err
	}

	taken, err := s.identifierTaken(ctx, channel, identifier)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check identifier")
	}
	if taken {
		return nil, pkgerrors.NewField("login", alreadyRegisteredMessage)
	}

	if err := s.otps.ValidateRegistration(ctx, channel, identifier, req.OTP); err != nil {
		switch {
		case errors.Is(err, otp.ErrCodeInvalid):
			return nil, pkgerrors.NewField("otp", "invalid otp")
		case errors.Is(err, otp.ErrCodeExpired):
			return nil, pkgerrors.NewField("otp", "otp expired")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate otp")
		}
	}

	hash, err := security.HashPassword(req.Password, s.passCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	for attempt := 0; ; attempt++ {
		created = nil
		txErr := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			userRepo := identity.NewRepository(tx)
			otpRepo := otp.NewRepository(tx)

			username, err := uniqueid.ReserveBare(ctx, usernameBase(channel, identifier), userRepo.UsernameExists)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve username")
			}
			accountID, err := uniqueid.AccountID(ctx, username, userRepo.AccountIDExists)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve account id")
			}

			user := &models.User{
				AccountID:    accountID,
				Username:     username,
				PasswordHash: hash,
				FirstName:    strings.TrimSpace(req.FirstName),
				LastName:     strings.TrimSpace(req.LastName),
				IsActive:     true,
			}
			if channel == enums.OTPChannelEmail {
				user.Email = &identifier
			} else {
				user.Phone = &identifier
			}

			if err := userRepo.Create(ctx, user); err != nil {
				switch {
				case db.UniqueViolationRefers(err, "idx_users_email", "users.email", "idx_users_phone", "users.phone"):
					return pkgerrors.NewField("login", alreadyRegisteredMessage)
				case db.UniqueViolationRefers(err, "idx_users_username", "users.username", "idx_users_account_id", "users.account_id"):
					// a concurrent registration won the generated handle
					return errHandleCollision
				case db.IsUniqueViolation(err, ""):
					return pkgerrors.NewField("login", alreadyRegisteredMessage)
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
			}

			if channel == enums.OTPChannelEmail {
				_, err = otpRepo.DeleteRegistrationForEmail(ctx, identifier)
			} else {
				_, err = otpRepo.DeleteRegistrationForPhone(ctx, identifier)
			}
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume otp")
			}

			created = user
			return nil
		})
		if txErr == nil {
			break
		}
		if errors.Is(txErr, errHandleCollision) {
			if attempt+1 < maxRegisterAttempts {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "create user")
		}
		return nil, txErr
	}

	return s.issueTokens(ctx, created, s.now())
}

func (s *Service) identifierTaken(ctx context.Context, channel enums.OTPChannel, identifier string) (bool, error) {
	if channel == enums.OTPChannelEmail {
		return s.users.EmailExists(ctx, identifier)
	}
	return s.users.PhoneExists(ctx, identifier)
}

func (s *Service) dispatchCode(ctx context.Context, channel enums.OTPChannel, identifier, subject, body string) error {
	var err error
	if channel == enums.OTPChannelEmail {
		err = s.email.SendEmail(ctx, identifier, subject, body)
	} else {
		err = s.sms.SendSMS(ctx, identifier, body)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDispatch, err, "dispatch otp")
	}
	return nil
}
