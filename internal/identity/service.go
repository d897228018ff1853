package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/aspida-health/aspida-backend/pkg/db/models"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/aspida-health/aspida-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

type loginRepository interface {
	FindByLogin(ctx context.Context, login string) ([]models.User, error)
}

// Service resolves login identifiers and verifies credentials.
type Service struct {
	users loginRepository
}

// NewService constructs the identity service.
func NewService(users loginRepository) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &Service{users: users}, nil
}

// Resolve maps a login input to exactly one user. More than one match is
// treated the same as none, so ambiguous identifiers fail closed.
func (s *Service) Resolve(ctx context.Context, login string) (*models.User, error) {
	input := strings.TrimSpace(login)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	rows, err := s.users.FindByLogin(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if len(rows) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return &rows[0], nil
}

// Authenticate resolves the login and verifies the password. Every failure
// collapses to the same unauthorized error so callers cannot probe which
// identifiers exist.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	user, err := s.Resolve(ctx, login)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, err
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}
