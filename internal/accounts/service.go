package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aspida-health/aspida-backend/internal/notify"
	pkgauth "github.com/aspida-health/aspida-backend/pkg/auth"
	"github.com/aspida-health/aspida-backend/pkg/auth/session"
	"github.com/aspida-health/aspida-backend/pkg/config"
	"github.com/aspida-health/aspida-backend/pkg/db"
	"github.com/aspida-health/aspida-backend/pkg/db/models"
	"github.com/aspida-health/aspida-backend/pkg/enums"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/google/uuid"
)

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type authenticator interface {
	Authenticate(ctx context.Context, login, password string) (*models.User, error)
}

type otpIssuer interface {
	IssueRegistration(ctx context.Context, channel enums.OTPChannel, identifier string) (*models.RegistrationOTP, error)
	IssueReset(ctx context.Context, userID uuid.UUID) (*models.PasswordResetOTP, error)
	ValidateRegistration(ctx context.Context, channel enums.OTPChannel, identifier, code string) error
	ValidateReset(ctx context.Context, userID uuid.UUID, code string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Service owns the account lifecycle: registration, login, tokens, password
// management, and profile reads/updates.
type Service struct {
	db       *db.Client
	users    userRepository
	identity authenticator
	otps     otpIssuer
	email    notify.EmailSender
	sms      notify.SMSSender
	session  sessionManager
	jwtCfg   config.JWTConfig
	passCfg  config.PasswordConfig
	now      func() time.Time
}

// ServiceParams bundles the dependencies required to build the accounts service.
type ServiceParams struct {
	DB             *db.Client
	Users          userRepository
	Identity       authenticator
	OTPs           otpIssuer
	Email          notify.EmailSender
	SMS            notify.SMSSender
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

// NewService constructs the accounts service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Identity == nil {
		return nil, fmt.Errorf("identity service is required")
	}
	if params.OTPs == nil {
		return nil, fmt.Errorf("otp service is required")
	}
	if params.Email == nil || params.SMS == nil {
		return nil, fmt.Errorf("email and sms senders are required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &Service{
		db:       params.DB,
		users:    params.Users,
		identity: params.Identity,
		otps:     params.OTPs,
		email:    params.Email,
		sms:      params.SMS,
		session:  params.SessionManager,
		jwtCfg:   params.JWTConfig,
		passCfg:  params.PasswordConfig,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Login authenticates the user and issues a token pair.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.identity.Authenticate(ctx, req.Login, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	return s.issueTokens(ctx, user, now)
}

// Refresh rotates the refresh token and mints a fresh access token. The old
// access token may be expired; only its signature and jti matter here.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*AuthResult, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, req.Access)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, claims.ID, req.Refresh)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	access, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID:   claims.UserID,
		Username: claims.Username,
		JTI:      newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &AuthResult{AccessToken: access, RefreshToken: newRefresh}, nil
}

// VerifyToken parses the access token and checks its session is still live.
func (s *Service) VerifyToken(ctx context.Context, access string) error {
	claims, err := pkgauth.ParseAccessToken(s.jwtCfg, access)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	live, err := s.session.HasSession(ctx, claims.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check session")
	}
	if !live {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	}
	return nil
}

// Logout revokes the session tied to the access token's jti.
func (s *Service) Logout(ctx context.Context, accessID string) error {
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

func (s *Service) issueTokens(ctx context.Context, user *models.User, now time.Time) (*AuthResult, error) {
	accessID := session.NewAccessID()
	access, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
		JTI:      accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refresh, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         ProfileFromModel(user),
	}, nil
}
