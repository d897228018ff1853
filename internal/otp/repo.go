package otp

import (
	"context"
	"strings"
	"time"

	"github.com/aspida-health/aspida-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists registration and password-reset codes.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an OTP repo bound to the provided GORM DB. Callers
// running inside a transaction pass the transactional handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateRegistration inserts a pending registration code.
func (r *Repository) CreateRegistration(ctx context.Context, row *models.RegistrationOTP) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// DeleteRegistrationForEmail removes every pending registration code for the email.
func (r *Repository) DeleteRegistrationForEmail(ctx context.Context, email string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(email)).
		Delete(&models.RegistrationOTP{})
	return res.RowsAffected, res.Error
}

// DeleteRegistrationForPhone removes every pending registration code for the phone.
func (r *Repository) DeleteRegistrationForPhone(ctx context.Context, phone string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		Delete(&models.RegistrationOTP{})
	return res.RowsAffected, res.Error
}

// LatestRegistrationForEmail returns the most recent code matching the email
// and code pair, or gorm.ErrRecordNotFound.
func (r *Repository) LatestRegistrationForEmail(ctx context.Context, email, code string) (*models.RegistrationOTP, error) {
	var row models.RegistrationOTP
	err := r.db.WithContext(ctx).
		Where("lower(email) = ? AND code = ?", strings.ToLower(email), code).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LatestRegistrationForPhone returns the most recent code matching the phone
// and code pair, or gorm.ErrRecordNotFound.
func (r *Repository) LatestRegistrationForPhone(ctx context.Context, phone, code string) (*models.RegistrationOTP, error) {
	var row models.RegistrationOTP
	err := r.db.WithContext(ctx).
		Where("phone = ? AND code = ?", phone, code).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateReset inserts a pending password-reset code.
func (r *Repository) CreateReset(ctx context.Context, row *models.PasswordResetOTP) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// DeleteResetForUser removes every pending reset code for the account.
func (r *Repository) DeleteResetForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.PasswordResetOTP{})
	return res.RowsAffected, res.Error
}

// LatestResetForUser returns the most recent code matching the account and
// code pair, or gorm.ErrRecordNotFound.
func (r *Repository) LatestResetForUser(ctx context.Context, userID uuid.UUID, code string) (*models.PasswordResetOTP, error) {
	var row models.PasswordResetOTP
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND code = ?", userID, code).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteExpired removes codes from both tables whose expiry is before now.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	reg := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.RegistrationOTP{})
	if reg.Error != nil {
		return reg.RowsAffected, reg.Error
	}
	reset := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.PasswordResetOTP{})
	return reg.RowsAffected + reset.RowsAffected, reset.Error
}
