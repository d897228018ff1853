package accounts

import (
	"context"
	"strings"

	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/google/uuid"
)

// Profile returns the caller's account view.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	profile := ProfileFromModel(user)
	return &profile, nil
}

// UpdateProfile applies partial updates. Only the mutable name fields are
// accepted; identifiers never change after registration.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserProfile, error) {
	updates := map[string]any{}
	if req.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*req.LastName)
	}

	if len(updates) > 0 {
		if err := s.users.UpdateProfile(ctx, userID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
		}
	}
	return s.Profile(ctx, userID)
}
