package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aspida-health/aspida-backend/pkg/db"
	"github.com/aspida-health/aspida-backend/pkg/db/models"
	pkgerrors "github.com/aspida-health/aspida-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type productFinder interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// AddItemRequest saves a product to the caller's wishlist.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// ItemView is one saved product.
type ItemView struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	InStock      bool            `json:"in_stock"`
	SavedAt      time.Time       `json:"saved_at"`
}

// Service owns the per-user wishlist.
type Service struct {
	repo     *Repository
	products productFinder
}

// NewService constructs the wishlist service.
func NewService(client *db.Client, products productFinder) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder is required")
	}
	return &Service{repo: NewRepository(client.DB()), products: products}, nil
}

// List returns the caller's saved products, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]ItemView, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wishlist")
	}

	out := make([]ItemView, 0, len(rows))
	for i := range rows {
		item := ItemView{ProductID: rows[i].ProductID, SavedAt: rows[i].CreatedAt}
		if p := rows[i].Product; p != nil {
			item.Name = p.Name
			item.Slug = p.Slug
			item.SellingPrice = p.SellingPrice
			item.InStock = p.Stock > 0
		}
		out = append(out, item)
	}
	return out, nil
}

// Add saves a product. Saving one already present is a no-op.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, req AddItemRequest) error {
	product, err := s.products.FindProductByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	exists, err := s.repo.Exists(ctx, userID, product.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check wishlist")
	}
	if exists {
		return nil
	}

	err = s.repo.Create(ctx, &models.WishlistItem{UserID: userID, ProductID: product.ID})
	if err != nil {
		// concurrent save of the same product lands on the unique index
		if db.IsUniqueViolation(err, "idx_wishlist_user_product") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save wishlist item")
	}
	return nil
}

// Remove drops a product from the wishlist.
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove wishlist item")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
	}
	return nil
}
