package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/aspida-health/aspida-backend/pkg/db"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns order history reads. Orders are written by checkout only.
type Service struct {
	repo *Repository
}

// NewService constructs the orders service.
func NewService(client *db.Client) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	return &Service{repo: NewRepository(client.DB())}, nil
}

// List returns the caller's order history, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]OrderView, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]OrderView, 0, len(rows))
	for i := range rows {
		out = append(out, ViewFromModel(&rows[i]))
	}
	return out, nil
}

// Get loads one of the caller's orders. Foreign ids read as not found.
func (s *Service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error) {
	row, err := s.repo.FindOwned(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	view := ViewFromModel(row)
	return &view, nil
}
