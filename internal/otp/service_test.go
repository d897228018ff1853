package otp

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/aspida-health/aspida-backend/pkg/config"
	"github.com/aspida-health/aspida-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOTPTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	registration := `
CREATE TABLE IF NOT EXISTS registration_otps (
  id TEXT PRIMARY KEY,
  email TEXT,
  phone TEXT,
  code TEXT NOT NULL,
  created_at DATETIME,
  expires_at DATETIME NOT NULL
);`
	reset := `
CREATE TABLE IF NOT EXISTS password_reset_otps (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  code TEXT NOT NULL,
  created_at DATETIME,
  expires_at DATETIME NOT NULL
);`
	require.NoError(t, db.Exec(registration).Error)
	require.NoError(t, db.Exec(reset).Error)
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), config.OTPConfig{TTL: 10 * time.Minute})
	require.NoError(t, err)
	return svc
}

func TestGenerateRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestIssueRegistrationSupersedesPrior(t *testing.T) {
	db := setupOTPTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	first, err := svc.IssueRegistration(ctx, enums.OTPChannelEmail, "user@example.com")
	require.NoError(t, err)
	second, err := svc.IssueRegistration(ctx, enums.OTPChannelEmail, "user@example.com")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Table("registration_otps").Count(&count).Error)
	assert.Equal(t, int64(1), count, "issuing again must replace the prior code")

	// only the latest code validates
	if first.Code != second.Code {
		assert.ErrorIs(t, svc.ValidateRegistration(ctx, enums.OTPChannelEmail, "user@example.com", first.Code), ErrCodeInvalid)
	}
	assert.NoError(t, svc.ValidateRegistration(ctx, enums.OTPChannelEmail, "user@example.com", second.Code))
}

func TestIssueRegistrationLeavesOtherChannelsAlone(t *testing.T) {
	db := setupOTPTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	phoneOTP, err := svc.IssueRegistration(ctx, enums.OTPChannelPhone, "+15550001111")
	require.NoError(t, err)
	_, err = svc.IssueRegistration(ctx, enums.OTPChannelEmail, "user@example.com")
	require.NoError(t, err)

	assert.NoError(t, svc.ValidateRegistration(ctx, enums.OTPChannelPhone, "+15550001111", phoneOTP.Code))
}

func TestValidateRegistrationEmailCaseInsensitive(t *testing.T) {
	db := setupOTPTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	issued, err := svc.IssueRegistration(ctx, enums.OTPChannelEmail, "User@Example.com")
	require.NoError(t, err)
	assert.NoError(t, svc.ValidateRegistration(ctx, enums.OTPChannelEmail, "user@example.COM", issued.Code))
}

func TestValidateRegistrationInvalid(t *testing.T) {
	db := setupOTPTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.IssueRegistration(ctx, enums.OTPChannelEmail, "user@example.com")
	require.NoError(t, err)

	err = svc.ValidateRegistration(ctx, enums.OTPChannelEmail, "user@example.com", "000000")
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestValidateRegistrationExpired(t *testing.T) {
	db := setupOTPTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	issued, err := svc.IssueRegistration(ctx, enums.OTPChannelEmail, "user@example.com")
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.ExpiresAt.Add(time.Minute) }
	err = svc.ValidateRegistration(ctx, enums.OTPChannelEmail, "user@example.com", issued.Code)
	assert.ErrorIs(t, err, ErrCodeExpired)

	// expired rows stay until the sweep removes them
	var count int64
	require.NoError(t, db.Table("registration_otps").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIssueAndValidateReset(t *testing.T) {
	db := setupOTPTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	issued, err := svc.IssueReset(ctx, userID)
	require.NoError(t, err)

	assert.NoError(t, svc.ValidateReset(ctx, userID, issued.Code))
	assert.ErrorIs(t, svc.ValidateReset(ctx, userID, "999999"), ErrCodeInvalid)
	assert.ErrorIs(t, svc.ValidateReset(ctx, uuid.New(), issued.Code), ErrCodeInvalid)
}

func TestValidateResetExpired(t *testing.T) {
	db := setupOTPTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	issued, err := svc.IssueReset(ctx, userID)
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.ExpiresAt.Add(time.Minute) }
	assert.ErrorIs(t, svc.ValidateReset(ctx, userID, issued.Code), ErrCodeExpired)

	// expired rows stay until the sweep removes them
	var count int64
	require.NoError(t, db.Table("password_reset_otps").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeleteExpiredSweep(t *testing.T) {
	db := setupOTPTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	issued, err := svc.IssueRegistration(ctx, enums.OTPChannelEmail, "old@example.com")
	require.NoError(t, err)
	_, err = svc.IssueReset(ctx, uuid.New())
	require.NoError(t, err)

	repo := NewRepository(db)
	removed, err := repo.DeleteExpired(ctx, issued.ExpiresAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	removed, err = repo.DeleteExpired(ctx, issued.CreatedAt)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
