package addresses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aspida-health/aspida-backend/pkg/db"
	"github.com/aspida-health/aspida-backend/pkg/db/models"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns the per-user address book.
type Service struct {
	db   *db.Client
	repo *Repository
}

// NewService constructs the address service.
func NewService(client *db.Client) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	return &Service{db: client, repo: NewRepository(client.DB())}, nil
}

// List returns the caller's addresses, default first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]AddressView, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
	}
	out := make([]AddressView, 0, len(rows))
	for i := range rows {
		out = append(out, viewFromModel(&rows[i]))
	}
	return out, nil
}

// Get loads one of the caller's addresses. Foreign ids read as not found.
func (s *Service) Get(ctx context.Context, userID, addressID uuid.UUID) (*AddressView, error) {
	row, err := s.repo.FindOwned(ctx, userID, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
	}
	view := viewFromModel(row)
	return &view, nil
}

// Create adds an address. Marking it default demotes the previous default
// in the same transaction. The user's first address becomes default.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateAddressRequest) (*AddressView, error) {
	row := &models.Address{
		UserID:     userID,
		FullName:   strings.TrimSpace(req.FullName),
		Phone:      strings.TrimSpace(req.Phone),
		Line1:      strings.TrimSpace(req.Line1),
		City:       strings.TrimSpace(req.City),
		State:      strings.TrimSpace(req.State),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Country:    strings.TrimSpace(req.Country),
		IsDefault:  req.IsDefault,
	}
	if line2 := strings.TrimSpace(req.Line2); line2 != "" {
		row.Line2 = &line2
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		existing, err := repo.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			row.IsDefault = true
		} else if row.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		return repo.Create(ctx, row)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create address")
	}
	view := viewFromModel(row)
	return &view, nil
}

// Update patches one owned address. Promoting to default demotes the
// previous default in the same transaction.
func (s *Service) Update(ctx context.Context, userID, addressID uuid.UUID, req UpdateAddressRequest) (*AddressView, error) {
	changes := map[string]any{}
	setTrimmed := func(column string, value *string) {
		if value != nil {
			changes[column] = strings.TrimSpace(*value)
		}
	}
	setTrimmed("full_name", req.FullName)
	setTrimmed("phone", req.Phone)
	setTrimmed("line1", req.Line1)
	setTrimmed("line2", req.Line2)
	setTrimmed("city", req.City)
	setTrimmed("state", req.State)
	setTrimmed("postal_code", req.PostalCode)
	setTrimmed("country", req.Country)
	if req.IsDefault != nil {
		changes["is_default"] = *req.IsDefault
	}
	if len(changes) == 0 {
		return s.Get(ctx, userID, addressID)
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if req.IsDefault != nil && *req.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		affected, err := repo.Update(ctx, userID, addressID, changes)
		if err != nil {
			return err
		}
		if affected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update address")
	}
	return s.Get(ctx, userID, addressID)
}

// Delete removes one owned address.
func (s *Service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, userID, addressID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete address")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}
