package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aspida-health/aspida-backend/internal/identity"
	"github.com/aspida-health/aspida-backend/internal/otp"
	"github.com/aspida-health/aspida-backend/pkg/config"
	"github.com/aspida-health/aspida-backend/pkg/db"
	"github.com/aspida-health/aspida-backend/pkg/db/models"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type sentMessage struct {
	to      string
	subject string
	body    string
}

type stubEmailSender struct {
	sent []sentMessage
	fail bool
}

func (s *stubEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	if s.fail {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, sentMessage{to: to, subject: subject, body: body})
	return nil
}

type stubSMSSender struct {
	sent []sentMessage
	fail bool
}

func (s *stubSMSSender) SendSMS(_ context.Context, to, body string) error {
	if s.fail {
		return errors.New("carrier unavailable")
	}
	s.sent = append(s.sent, sentMessage{to: to, body: body})
	return nil
}

type stubSessionManager struct {
	sessions map[string]string
	revoked  []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{sessions: map[string]string{}}
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.sessions[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.sessions[oldAccessID]
	if !ok || stored != provided {
		return "", "", errors.New("invalid refresh token")
	}
	delete(s.sessions, oldAccessID)
	newID := uuid.NewString()
	token := "refresh-" + newID
	s.sessions[newID] = token
	return newID, token, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	delete(s.sessions, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

func (s *stubSessionManager) HasSession(_ context.Context, accessID string) (bool, error) {
	_, ok := s.sessions[accessID]
	return ok, nil
}

type accountsFixture struct {
	svc     *Service
	db      *gorm.DB
	email   *stubEmailSender
	sms     *stubSMSSender
	session *stubSessionManager
	otps    *otp.Service
}

func setupAccountsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL UNIQUE,
  username TEXT NOT NULL UNIQUE,
  email TEXT UNIQUE,
  phone TEXT UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS registration_otps (
  id TEXT PRIMARY KEY,
  email TEXT,
  phone TEXT,
  code TEXT NOT NULL,
  created_at DATETIME,
  expires_at DATETIME NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS password_reset_otps (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  code TEXT NOT NULL,
  created_at DATETIME,
  expires_at DATETIME NOT NULL
);`}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newAccountsFixture(t *testing.T) *accountsFixture {
	t.Helper()

	conn := setupAccountsTestDB(t)
	client := db.NewWithConn(conn)

	userRepo := identity.NewRepository(conn)
	identitySvc, err := identity.NewService(userRepo)
	require.NoError(t, err)

	otpSvc, err := otp.NewService(otp.NewRepository(conn), config.OTPConfig{TTL: 10 * time.Minute})
	require.NoError(t, err)

	email := &stubEmailSender{}
	sms := &stubSMSSender{}
	session := newStubSessionManager()

	svc, err := NewService(ServiceParams{
		DB:             client,
		Users:          userRepo,
		Identity:       identitySvc,
		OTPs:           otpSvc,
		Email:          email,
		SMS:            sms,
		SessionManager: session,
		JWTConfig: config.JWTConfig{
			Secret:                 "test-secret",
			Issuer:                 "aspida",
			ExpirationMinutes:      15,
			RefreshTokenTTLMinutes: 60,
		},
		PasswordConfig: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     8,
			ArgonKeyLen:      16,
			MinLength:        8,
		},
	})
	require.NoError(t, err)

	return &accountsFixture{
		svc:     svc,
		db:      conn,
		email:   email,
		sms:     sms,
		session: session,
		otps:    otpSvc,
	}
}

func latestRegistrationCode(t *testing.T, conn *gorm.DB) string {
	t.Helper()
	var row models.RegistrationOTP
	require.NoError(t, conn.Order("created_at DESC").First(&row).Error)
	return row.Code
}

func requireFieldError(t *testing.T, err error, field string) *pkgerrors.Error {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.NotEmpty(t, typed.Fields()[field], "expected messages under %q, got %v", field, typed.Fields())
	return typed
}

func registerUser(t *testing.T, f *accountsFixture, login string) *AuthResult {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.svc.RequestRegistrationOTP(ctx, RequestRegistrationOTPRequest{Login: login}))
	code := latestRegistrationCode(t, f.db)

	result, err := f.svc.Register(ctx, RegisterRequest{
		Login:     login,
		OTP:       code,
		FirstName: "Maria",
		LastName:  "Lopez",
		Password:  "brightriver42",
		Password2: "brightriver42",
	})
	require.NoError(t, err)
	return result
}

func TestRequestRegistrationOTPEmail(t *testing.T) {
	f := newAccountsFixture(t)

	err := f.svc.RequestRegistrationOTP(context.Background(), RequestRegistrationOTPRequest{Login: "Maria@Example.com"})
	require.NoError(t, err)

	require.Len(t, f.email.sent, 1)
	assert.Equal(t, "maria@example.com", f.email.sent[0].to)
	assert.Contains(t, f.email.sent[0].body, latestRegistrationCode(t, f.db))
	assert.Empty(t, f.sms.sent)
}

func TestRequestRegistrationOTPPhone(t *testing.T) {
	f := newAccountsFixture(t)

	err := f.svc.RequestRegistrationOTP(context.Background(), RequestRegistrationOTPRequest{Login: "+15550001111"})
	require.NoError(t, err)

	require.Len(t, f.sms.sent, 1)
	assert.Equal(t, "+15550001111", f.sms.sent[0].to)
	assert.Empty(t, f.email.sent)
}

func TestRequestRegistrationOTPRejectsBadIdentifier(t *testing.T) {
	f := newAccountsFixture(t)

	err := f.svc.RequestRegistrationOTP(context.Background(), RequestRegistrationOTPRequest{Login: "not-an-identifier!"})
	requireFieldError(t, err, "login")
}

func TestRequestRegistrationOTPRejectsRegisteredIdentifier(t *testing.T) {
	f := newAccountsFixture(t)
	registerUser(t, f, "maria@example.com")

	err := f.svc.RequestRegistrationOTP(context.Background(), RequestRegistrationOTPRequest{Login: "maria@example.com"})
	requireFieldError(t, err, "login")
}

func TestRequestRegistrationOTPDispatchFailureKeepsCode(t *testing.T) {
	f := newAccountsFixture(t)
	f.email.fail = true

	err := f.svc.RequestRegistrationOTP(context.Background(), RequestRegistrationOTPRequest{Login: "maria@example.com"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDispatch, typed.Code())

	// the committed code survives for a later retry
	var count int64
	require.NoError(t, f.db.Table("registration_otps").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterEmailHappyPath(t *testing.T) {
	f := newAccountsFixture(t)

	result := registerUser(t, f, "maria.lopez@example.com")

	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "maria.lopez", result.User.Username)
	require.NotNil(t, result.User.Email)
	assert.Equal(t, "maria.lopez@example.com", *result.User.Email)
	require.Len(t, result.User.AccountID, 10)
	assert.Equal(t, "mari", result.User.AccountID[:4])

	// every pending code for the channel is consumed
	var count int64
	require.NoError(t, f.db.Table("registration_otps").Count(&count).Error)
	assert.Zero(t, count)
}

func TestRegisterPhoneDerivesUsernameFromNumber(t *testing.T) {
	f := newAccountsFixture(t)

	result := registerUser(t, f, "+15550001111")
	assert.Equal(t, "+15550001111", result.User.Username)
	require.NotNil(t, result.User.Phone)
}

func TestRegisterUsernameCollisionGetsCounterSuffix(t *testing.T) {
	f := newAccountsFixture(t)

	registerUser(t, f, "maria@example.com")
	second := registerUser(t, f, "maria@other.org")

	assert.Equal(t, "maria1", second.User.Username)
}

func TestRegisterWrongOTP(t *testing.T) {
	f := newAccountsFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RequestRegistrationOTP(ctx, RequestRegistrationOTPRequest{Login: "maria@example.com"}))

	_, err := f.svc.Register(ctx, RegisterRequest{
		Login:     "maria@example.com",
		OTP:       "000000",
		Password:  "brightriver42",
		Password2: "brightriver42",
	})
	typed := requireFieldError(t, err, "otp")
	assert.Contains(t, typed.Fields()["otp"][0], "invalid")
}

func TestRegisterPasswordMismatch(t *testing.T) {
	f := newAccountsFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Login:     "maria@example.com",
		OTP:       "123456",
		Password:  "brightriver42",
		Password2: "differentriver42",
	})
	requireFieldError(t, err, "password2")
}

func TestRegisterWeakPassword(t *testing.T) {
	f := newAccountsFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RequestRegistrationOTP(ctx, RequestRegistrationOTPRequest{Login: "maria@example.com"}))
	code := latestRegistrationCode(t, f.db)

	_, err := f.svc.Register(ctx, RegisterRequest{
		Login:     "maria@example.com",
		OTP:       code,
		Password:  "12345678",
		Password2: "12345678",
	})
	requireFieldError(t, err, "password")
}

func TestRegisterRetriesWhenGeneratedUsernameRaces(t *testing.T) {
	f := newAccountsFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RequestRegistrationOTP(ctx, RequestRegistrationOTPRequest{Login: "maria@example.com"}))
	code := latestRegistrationCode(t, f.db)

	// a rival registration with a different email lands the same derived
	// username between our availability check and the insert
	fired := false
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test_rival_user", func(tx *gorm.DB) {
		if fired || tx.Statement == nil || tx.Statement.Table != "users" {
			return
		}
		fired = true
		_, err := tx.Statement.ConnPool.ExecContext(ctx,
			`INSERT INTO users (id, account_id, username, email, password_hash) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), "mari111111", "maria", "maria@other.org", "x")
		require.NoError(t, err)
	}))
	defer func() {
		require.NoError(t, f.db.Callback().Create().Remove("test_rival_user"))
	}()

	result, err := f.svc.Register(ctx, RegisterRequest{
		Login:     "maria@example.com",
		OTP:       code,
		FirstName: "Maria",
		LastName:  "Lopez",
		Password:  "brightriver42",
		Password2: "brightriver42",
	})
	require.NoError(t, err, "a lost race on a generated username must retry, not fail")
	require.True(t, fired)
	assert.Equal(t, "maria", result.User.Username)
	require.NotNil(t, result.User.Email)
	assert.Equal(t, "maria@example.com", *result.User.Email)
}

func TestRegisterDuplicateIdentifier(t *testing.T) {
	f := newAccountsFixture(t)
	ctx := context.Background()
	registerUser(t, f, "maria@example.com")

	require.NoError(t, f.svc.RequestRegistrationOTP(ctx, RequestRegistrationOTPRequest{Login: "other@example.com"}))
	code := latestRegistrationCode(t, f.db)

	_, err := f.svc.Register(ctx, RegisterRequest{
		Login:     "maria@example.com",
		OTP:       code,
		Password:  "brightriver42",
		Password2: "brightriver42",
	})
	requireFieldError(t, err, "login")
}

func TestLoginIssuesTokensAndRecordsLogin(t *testing.T) {
	f := newAccountsFixture(t)
	registerUser(t, f, "maria@example.com")

	result, err := f.svc.Login(context.Background(), LoginRequest{Login: "maria", Password: "brightriver42"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)

	var user models.User
	require.NoError(t, f.db.Where("username = ?", "maria").First(&user).Error)
	assert.NotNil(t, user.LastLoginAt)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAccountsFixture(t)
	registerUser(t, f, "maria@example.com")

	_, err := f.svc.Login(context.Background(), LoginRequest{Login: "maria", Password: "wrong-pass"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestChangePassword(t *testing.T) {
	f := newAccountsFixture(t)
	registerUser(t, f, "maria@example.com")

	var user models.User
	require.NoError(t, f.db.Where("username = ?", "maria").First(&user).Error)

	err := f.svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		OldPassword:     "brightriver42",
		NewPassword:     "quietharbor77",
		ConfirmPassword: "quietharbor77",
	})
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), LoginRequest{Login: "maria", Password: "quietharbor77"})
	require.NoError(t, err)
}

func TestChangePasswordWrongOld(t *testing.T) {
	f := newAccountsFixture(t)
	registerUser(t, f, "maria@example.com")

	var user models.User
	require.NoError(t, f.db.Where("username = ?", "maria").First(&user).Error)

	err := f.svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		OldPassword:     "not-the-password",
		NewPassword:     "quietharbor77",
		ConfirmPassword: "quietharbor77",
	})
	requireFieldError(t, err, "old_password")
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newAccountsFixture(t)
	registerUser(t, f, "maria@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotPasswordRequest{Identifier: "maria@example.com"}))

	var reset models.PasswordResetOTP
	require.NoError(t, f.db.Order("created_at DESC").First(&reset).Error)

	err := f.svc.ResetPassword(ctx, ResetPasswordRequest{
		Identifier:      "maria@example.com",
		OTP:             reset.Code,
		NewPassword:     "quietharbor77",
		ConfirmPassword: "quietharbor77",
	})
	require.NoError(t, err)

	// reset codes are consumed with the password change
	var count int64
	require.NoError(t, f.db.Table("password_reset_otps").Count(&count).Error)
	assert.Zero(t, count)

	_, err = f.svc.Login(ctx, LoginRequest{Login: "maria", Password: "quietharbor77"})
	require.NoError(t, err)
}

func TestResetPasswordExpiredCode(t *testing.T) {
	f := newAccountsFixture(t)
	registerUser(t, f, "maria@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotPasswordRequest{Identifier: "maria@example.com"}))

	var reset models.PasswordResetOTP
	require.NoError(t, f.db.Order("created_at DESC").First(&reset).Error)
	require.NoError(t, f.db.Model(&models.PasswordResetOTP{}).
		Where("id = ?", reset.ID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error)

	err := f.svc.ResetPassword(ctx, ResetPasswordRequest{
		Identifier:      "maria@example.com",
		OTP:             reset.Code,
		NewPassword:     "quietharbor77",
		ConfirmPassword: "quietharbor77",
	})
	typed := requireFieldError(t, err, "otp")
	assert.Contains(t, typed.Fields()["otp"][0], "expired")

	// the stale code changed nothing
	_, err = f.svc.Login(ctx, LoginRequest{Login: "maria", Password: "brightriver42"})
	require.NoError(t, err)
}

func TestForgotPasswordUnknownIdentifier(t *testing.T) {
	f := newAccountsFixture(t)

	err := f.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Identifier: "ghost@example.com"})
	requireFieldError(t, err, "identifier")
}

func TestVerifyAndLogout(t *testing.T) {
	f := newAccountsFixture(t)
	result := registerUser(t, f, "maria@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.VerifyToken(ctx, result.AccessToken))

	accessID, err := liveSessionID(f)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, accessID))

	err = f.svc.VerifyToken(ctx, result.AccessToken)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func liveSessionID(f *accountsFixture) (string, error) {
	for id := range f.session.sessions {
		return id, nil
	}
	return "", errors.New("no live session")
}
