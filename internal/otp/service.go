package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/aspida-health/aspida-backend/pkg/config"
	"github.com/aspida-health/aspida-backend/pkg/db/models"
	"github.com/aspida-health/aspida-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrCodeInvalid means no pending code matches the scope and code pair.
	ErrCodeInvalid = errors.New("otp code invalid")
	// ErrCodeExpired means the code matched but its TTL has passed. The row is
	// left in place for the cleanup sweep.
	ErrCodeExpired = errors.New("otp code expired")
)

type repository interface {
	CreateRegistration(ctx context.Context, row *models.RegistrationOTP) error
	DeleteRegistrationForEmail(ctx context.Context, email string) (int64, error)
	DeleteRegistrationForPhone(ctx context.Context, phone string) (int64, error)
	LatestRegistrationForEmail(ctx context.Context, email, code string) (*models.RegistrationOTP, error)
	LatestRegistrationForPhone(ctx context.Context, phone, code string) (*models.RegistrationOTP, error)
	CreateReset(ctx context.Context, row *models.PasswordResetOTP) error
	DeleteResetForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	LatestResetForUser(ctx context.Context, userID uuid.UUID, code string) (*models.PasswordResetOTP, error)
}

// Service issues and validates one-time codes.
type Service struct {
	repo repository
	ttl  time.Duration
	now  func() time.Time
}

// NewService constructs the OTP service.
func NewService(repo repository, cfg config.OTPConfig) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("otp repository is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		repo: repo,
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Generate draws a uniformly random six-digit code in [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("draw otp code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// IssueRegistration supersedes any pending registration code for the channel
// and stores a fresh one.
func (s *Service) IssueRegistration(ctx context.Context, channel enums.OTPChannel, identifier string) (*models.RegistrationOTP, error) {
	code, err := Generate()
	if err != nil {
		return nil, err
	}

	switch channel {
	case enums.OTPChannelEmail:
		if _, err := s.repo.DeleteRegistrationForEmail(ctx, identifier); err != nil {
			return nil, err
		}
	case enums.OTPChannelPhone:
		if _, err := s.repo.DeleteRegistrationForPhone(ctx, identifier); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid otp channel %q", channel)
	}

	now := s.now()
	row := &models.RegistrationOTP{
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if channel == enums.OTPChannelEmail {
		row.Email = &identifier
	} else {
		row.Phone = &identifier
	}

	if err := s.repo.CreateRegistration(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// IssueReset supersedes any pending reset code for the account and stores a
// fresh one.
func (s *Service) IssueReset(ctx context.Context, userID uuid.UUID) (*models.PasswordResetOTP, error) {
	code, err := Generate()
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.DeleteResetForUser(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	row := &models.PasswordResetOTP{
		UserID:    userID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.CreateReset(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// ValidateRegistration checks the most recent pending code for the channel.
func (s *Service) ValidateRegistration(ctx context.Context, channel enums.OTPChannel, identifier, code string) error {
	var (
		row *models.RegistrationOTP
		err error
	)
	switch channel {
	case enums.OTPChannelEmail:
		row, err = s.repo.LatestRegistrationForEmail(ctx, identifier, code)
	case enums.OTPChannelPhone:
		row, err = s.repo.LatestRegistrationForPhone(ctx, identifier, code)
	default:
		return fmt.Errorf("invalid otp channel %q", channel)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeInvalid
		}
		return err
	}
	if s.now().After(row.ExpiresAt) {
		return ErrCodeExpired
	}
	return nil
}

// ValidateReset checks the most recent pending reset code for the account.
func (s *Service) ValidateReset(ctx context.Context, userID uuid.UUID, code string) error {
	row, err := s.repo.LatestResetForUser(ctx, userID, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeInvalid
		}
		return err
	}
	if s.now().After(row.ExpiresAt) {
		return ErrCodeExpired
	}
	return nil
}
